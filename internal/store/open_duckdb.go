// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

//go:build cgo

package store

import (
	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver (requires cgo)
)
