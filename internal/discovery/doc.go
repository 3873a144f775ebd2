// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package discovery groups recent content into topics.

A run pulls the recent-content window from the store, clusters it in one
greedy pass over items newest first (each item joins the open cluster whose
centroid is most similar when that similarity reaches the threshold), drops
clusters below the minimum size, and asks the summarizer for a title plus
the prevailing position and leading critique of each surviving cluster.

Clusters whose summarization fails or times out are deferred: they are not
published this tick and get reclustered from a fresh window on the next one.
The summarization call keeps running in the background and its answer is
cached under the representative set, so a slow model still pays off.

Topic cache:

Published topics live in an immutable snapshot behind an atomic pointer.
Readers never lock and never observe a partially published set. Topics from
an earlier publish leave the trending list but stay addressable by ID until
their own expiry, so a user paging through a topic sees a fixed member order.

Geo layering:

A cluster whose members mostly share one region tag is REGIONAL. The
trending list shows every NATIONAL topic plus at most one REGIONAL topic per
interleave window, preferring the caller's region.

Runs never overlap: Run holds a TryLock and a second caller gets
models.ErrRunInProgress. On-demand runs are rate limited per caller.
*/
package discovery
