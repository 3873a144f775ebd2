// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package navigation tracks whether each user is browsing the ranked feed
(DEFAULT) or drilling into one topic (TOPIC).

In TOPIC mode pages walk the topic's member list in stored order and the
cursor counts member slots consumed, so tombstoned members are skipped
without shifting later pages. When the topic expires or is evicted the next
page silently returns the user to DEFAULT and reports TopicEnded.

In DEFAULT mode pages come from the ranking engine. Items already served in
the current session are excluded; entering or exiting a topic starts a new
session.

State is persisted through a StateStore:

  - memory: in-process map with an idle TTL (default)
  - badger: embedded BadgerDB, entries written WithTTL
  - redis: shared between instances, WATCH/MULTI transactions

Every backend folds writes through Merge, which is last-write-wins per
field, so concurrent requests for one user never corrupt each other.
*/
package navigation
