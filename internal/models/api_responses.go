// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package models

import (
	"time"
)

// APIResponse is the envelope of every JSON response.
//
//	{"success": true, "data": {...}, "meta": {"timestamp": "...", "request_id": "..."}}
//	{"success": false, "error": {"code": "INVALID_STATE", "message": "..."}, "meta": {...}}
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    Metadata  `json:"meta"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	// Cached is set when the body came from the in-process response cache.
	Cached bool `json:"cached,omitempty"`
	// Degraded is set when a dependency failed and the data is partial.
	Degraded bool `json:"degraded,omitempty"`
}

// APIError is the error half of the envelope. Codes are stable strings
// such as INVALID_STATE or RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// TopicSummary is the public view of a topic. Member IDs stay internal.
type TopicSummary struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	PrevailingPosition string    `json:"prevailing_position"`
	LeadingCritique    string    `json:"leading_critique"`
	ParticipantCount   int       `json:"participant_count"`
	GeoScope           GeoScope  `json:"geo_scope"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// NewTopicSummaries converts topics for the wire, never returning nil.
func NewTopicSummaries(topics []*Topic) []TopicSummary {
	out := make([]TopicSummary, 0, len(topics))
	for _, t := range topics {
		out = append(out, TopicSummary{
			ID:                 t.ID,
			Title:              t.Title,
			PrevailingPosition: t.PrevailingPosition,
			LeadingCritique:    t.LeadingCritique,
			ParticipantCount:   t.ParticipantCount,
			GeoScope:           t.Scope,
			ExpiresAt:          t.ExpiresAt,
		})
	}
	return out
}

// ContentView is the public view of a content item. Vectors stay internal.
type ContentView struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	CreatedAt   time.Time  `json:"created_at"`
	Text        string     `json:"text"`
	TextVersion int        `json:"text_version"`
	Engagement  Engagement `json:"engagement"`
	Region      string     `json:"region,omitempty"`
	IsPolitical bool       `json:"is_political"`
}

// NewContentView converts one item.
func NewContentView(c *ContentItem) ContentView {
	v := ContentView{
		ID:          c.ID,
		AuthorID:    c.AuthorID,
		CreatedAt:   c.CreatedAt,
		Text:        c.Text,
		TextVersion: c.TextVersion,
		Engagement:  c.Engagement,
		IsPolitical: c.IsPolitical,
	}
	if c.Geo != nil {
		v.Region = c.Geo.Region
	}
	return v
}

// NewContentViews converts items, never returning nil.
func NewContentViews(items []*ContentItem) []ContentView {
	out := make([]ContentView, 0, len(items))
	for _, c := range items {
		out = append(out, NewContentView(c))
	}
	return out
}
