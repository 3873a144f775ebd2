// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package models

import "time"

// EmbeddingTier identifies which resolver tier produced a vector.
type EmbeddingTier string

const (
	TierRemote  EmbeddingTier = "remote"
	TierLocal   EmbeddingTier = "local"
	TierKeyword EmbeddingTier = "keyword"
)

// Embedding is an immutable vector computed for one text version.
type Embedding struct {
	Vector      []float32     `json:"vector"`
	Tier        EmbeddingTier `json:"tier"`
	Degraded    bool          `json:"degraded"`
	TextVersion int           `json:"text_version"`
	ComputedAt  time.Time     `json:"computed_at"`
}

// Engagement holds monotonically increasing interaction counters.
type Engagement struct {
	Likes   int64 `json:"likes"`
	Replies int64 `json:"replies"`
	Shares  int64 `json:"shares"`
}

// Score is the raw engagement score used for representative selection
// and trending velocity.
func (e Engagement) Score() int64 {
	return e.Likes + e.Replies + e.Shares
}

// EngagementKind names a single counter.
type EngagementKind string

const (
	EngagementLike  EngagementKind = "like"
	EngagementReply EngagementKind = "reply"
	EngagementShare EngagementKind = "share"
)

// Valid reports whether k is a known engagement kind.
func (k EngagementKind) Valid() bool {
	switch k {
	case EngagementLike, EngagementReply, EngagementShare:
		return true
	}
	return false
}

// GeoTag is a coarse location such as a state or metro code.
type GeoTag struct {
	Region string `json:"region"`
}

// ContentItem is a unit of user-generated content eligible for discovery.
type ContentItem struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	CreatedAt   time.Time  `json:"created_at"`
	Text        string     `json:"text"`
	TextVersion int        `json:"text_version"`
	Embedding   *Embedding `json:"embedding,omitempty"`
	Engagement  Engagement `json:"engagement"`
	Geo         *GeoTag    `json:"geo,omitempty"`
	IsPolitical bool       `json:"is_political"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Tombstoned reports whether the item has been soft-deleted.
func (c *ContentItem) Tombstoned() bool {
	return c.DeletedAt != nil
}

// Embeddable reports whether the item still needs a vector for its current
// text version.
func (c *ContentItem) Embeddable() bool {
	if c.Tombstoned() {
		return false
	}
	return c.Embedding == nil || c.Embedding.TextVersion != c.TextVersion
}

// Vector returns the current embedding vector, or nil when the item has none
// or its embedding belongs to an older text version.
func (c *ContentItem) Vector() []float32 {
	if c.Embedding == nil || c.Embedding.TextVersion != c.TextVersion {
		return nil
	}
	return c.Embedding.Vector
}

// ModelVector is Vector restricted to model-space embeddings. Degraded
// (keyword tier) vectors live in a different space and yield nil.
func (c *ContentItem) ModelVector() []float32 {
	if c.Embedding == nil || c.Embedding.Degraded {
		return nil
	}
	return c.Vector()
}

// Region returns the item's geo region, or "" when untagged.
func (c *ContentItem) Region() string {
	if c.Geo == nil {
		return ""
	}
	return c.Geo.Region
}
