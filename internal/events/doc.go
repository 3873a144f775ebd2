// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package events carries content lifecycle events over watermill.
//
// The gochannel transport keeps everything in one process. The nats
// transport uses core NATS subjects, optionally served by an embedded
// server, so embedding workers can run as separate processes: work handlers
// join a queue group and share the load, while broadcast handlers (topic
// eviction on tombstone) run in every instance.
package events
