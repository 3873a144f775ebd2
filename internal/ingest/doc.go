// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package ingest handles content writes (submit, edit, engage, tombstone)
// and the asynchronous embedding worker fed by the events bus.
package ingest
