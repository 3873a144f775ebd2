// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package store

// Timestamps are stored as Unix microseconds so that SQLite and DuckDB share
// one schema and one scan path. Statements run one at a time because DuckDB
// prepares a single statement per Exec.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS content (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		text TEXT NOT NULL,
		text_version INTEGER NOT NULL DEFAULT 0,
		embedding TEXT,
		embedding_version INTEGER,
		likes BIGINT NOT NULL DEFAULT 0,
		replies BIGINT NOT NULL DEFAULT 0,
		shares BIGINT NOT NULL DEFAULT 0,
		region TEXT NOT NULL DEFAULT '',
		is_political BOOLEAN NOT NULL DEFAULT FALSE,
		deleted_at BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		user_id TEXT NOT NULL,
		content_id TEXT NOT NULL,
		liked_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, content_id)
	)`,
	`CREATE TABLE IF NOT EXISTS follows (
		follower_id TEXT NOT NULL,
		followee_id TEXT NOT NULL,
		PRIMARY KEY (follower_id, followee_id)
	)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		blocker_id TEXT NOT NULL,
		blocked_id TEXT NOT NULL,
		PRIMARY KEY (blocker_id, blocked_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_created_at ON content(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_content_author ON content(author_id)`,
	`CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_blocks_blocked ON blocks(blocked_id)`,
}
