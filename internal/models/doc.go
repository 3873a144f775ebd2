// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package models defines the domain types shared by the discovery engine.

Key Components:

  - ContentItem: a user post with its engagement counters, optional geo tag
    and the embedding computed for its current text version
  - Topic: an ephemeral, summarized cluster of related content
  - UserFeedState: the per-user navigation position (DEFAULT or TOPIC)
  - ScoreWeights: the four ranking weights attached to a feed request
  - Sentinel errors shared across packages (see errors.go)

Embedding invariant:

A ContentItem's Embedding is replaced as a whole value, never mutated in
place. Each Embedding records the TextVersion it was computed from, and the
store refuses to attach an embedding whose TextVersion no longer matches the
item.

Usage Example:

	item := models.ContentItem{
	    ID:        uuid.NewString(),
	    AuthorID:  "u1",
	    CreatedAt: time.Now(),
	    Text:      "Transit levy vote next week",
	}
	if item.Embeddable() {
	    // queue for embedding
	}
*/
package models
