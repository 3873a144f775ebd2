// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package models

import "errors"

// ErrTransientUpstream is returned when an embedding or summarization
// collaborator times out or fails. It is never surfaced to end users.
var ErrTransientUpstream = errors.New("transient upstream failure")

// ErrEmbeddingUnavailable is returned when every embedding tier failed.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// ErrInvalidState is returned when a navigation transition references a
// topic that does not exist or has expired.
var ErrInvalidState = errors.New("invalid navigation state")

// ErrConfiguration is returned for malformed configuration values,
// including ScoreWeights that do not sum to one.
var ErrConfiguration = errors.New("configuration error")

// ErrResourceExhausted marks a window or pool that exceeded its configured cap
// and was truncated.
var ErrResourceExhausted = errors.New("resource exhausted")

// ErrNotFound is returned when a content item does not exist.
var ErrNotFound = errors.New("not found")

// ErrRateLimited is returned when an on-demand operation is attempted inside
// the caller's cooldown window.
var ErrRateLimited = errors.New("rate limited")

// ErrRunInProgress is returned when a clustering run is already executing.
var ErrRunInProgress = errors.New("clustering run already in progress")

// ErrForbidden is returned when the caller lacks a required permission.
var ErrForbidden = errors.New("forbidden")

// ErrStaleVersion is returned when an embedding targets a text version that
// has since been edited.
var ErrStaleVersion = errors.New("stale text version")
