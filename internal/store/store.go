// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package store persists content items and the social graph.
//
// Two implementations share one contract: an in-process Memory store for
// development and tests, and a SQL store over database/sql that runs on
// SQLite (modernc.org/sqlite) or DuckDB. Window queries return items newest
// first with ties broken by ID ascending, so truncation at a limit is
// deterministic.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

// ContentStore is the content persistence port.
type ContentStore interface {
	// Insert persists a new item. Embeddings are written separately.
	Insert(ctx context.Context, item *models.ContentItem) error
	// Get returns models.ErrNotFound for unknown IDs. Tombstoned items are
	// returned with DeletedAt set.
	Get(ctx context.Context, id string) (*models.ContentItem, error)
	// GetMany returns the items found, keyed by ID. Missing IDs are absent.
	GetMany(ctx context.Context, ids []string) (map[string]*models.ContentItem, error)
	// UpdateText replaces the text and increments TextVersion.
	UpdateText(ctx context.Context, id, text string) (*models.ContentItem, error)
	// SetEmbedding swaps in emb if emb.TextVersion still matches the item.
	// Returns models.ErrStaleVersion otherwise.
	SetEmbedding(ctx context.Context, id string, emb models.Embedding) error
	AddEngagement(ctx context.Context, id string, kind models.EngagementKind) error
	// Tombstone soft-deletes an item. Repeated calls keep the first time.
	Tombstone(ctx context.Context, id string, at time.Time) error
	ListTombstoned(ctx context.Context, limit int) ([]string, error)
	// Purge hard-deletes tombstoned items among ids and reports how many went.
	Purge(ctx context.Context, ids []string) (int, error)

	// RecentEmbedded returns live items created at or after since that carry
	// an embedding for their current text.
	RecentEmbedded(ctx context.Context, since time.Time, limit int) ([]*models.ContentItem, error)
	// Candidates returns live items created at or after since.
	Candidates(ctx context.Context, since time.Time, limit int) ([]*models.ContentItem, error)
	// MissingEmbeddings returns live items without a current embedding.
	MissingEmbeddings(ctx context.Context, limit int) ([]*models.ContentItem, error)
	// InterestVectors returns current model-space embeddings of items the user recently
	// liked or authored, most recent first.
	InterestVectors(ctx context.Context, userID string, limit int) ([][]float32, error)
	RecordLike(ctx context.Context, userID, contentID string, at time.Time) error

	Ping(ctx context.Context) error
}

// SocialGraph is the follow and block relation port.
type SocialGraph interface {
	// Follows returns who userID follows (out) and who follows userID (in).
	Follows(ctx context.Context, userID string) (out, in Set, err error)
	// Blocked returns users userID blocks or is blocked by.
	Blocked(ctx context.Context, userID string) (Set, error)
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	Block(ctx context.Context, blockerID, blockedID string) error
}

// Store is both ports plus lifecycle.
type Store interface {
	ContentStore
	SocialGraph
	Close() error
}

// Set is a set of user IDs.
type Set map[string]struct{}

// Has reports membership. A nil set is empty.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s Set) Add(id string) { s[id] = struct{}{} }

// SortNewestFirst orders items by CreatedAt descending, then ID ascending.
func SortNewestFirst(items []*models.ContentItem) {
	sort.Slice(items, func(i, j int) bool {
		return NewerFirst(items[i], items[j])
	})
}

// NewerFirst is the window ordering used by every query.
func NewerFirst(a, b *models.ContentItem) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func cloneItem(c *models.ContentItem) *models.ContentItem {
	out := *c
	if c.Embedding != nil {
		emb := *c.Embedding
		out.Embedding = &emb
	}
	if c.Geo != nil {
		geo := *c.Geo
		out.Geo = &geo
	}
	if c.DeletedAt != nil {
		at := *c.DeletedAt
		out.DeletedAt = &at
	}
	return &out
}
