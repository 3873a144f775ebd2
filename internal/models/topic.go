// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package models

import "time"

// GeoLevel is the geographic reach of a topic.
type GeoLevel string

const (
	GeoNational GeoLevel = "NATIONAL"
	GeoRegional GeoLevel = "REGIONAL"
)

// GeoScope pairs a level with the region identifier for REGIONAL topics.
type GeoScope struct {
	Level  GeoLevel `json:"level"`
	Region string   `json:"region,omitempty"`
}

// Topic is an ephemeral cluster of related content with synthesized text.
// MemberIDs preserves discovery order and is never empty.
type Topic struct {
	ID                 string    `json:"id"`
	MemberIDs          []string  `json:"member_content_ids"`
	Title              string    `json:"title"`
	PrevailingPosition string    `json:"prevailing_position"`
	LeadingCritique    string    `json:"leading_critique"`
	ParticipantCount   int       `json:"participant_count"`
	CreatedAt          time.Time `json:"created_at"`
	ExpiresAt          time.Time `json:"expires_at"`
	Scope              GeoScope  `json:"geo_scope"`
}

// Expired reports whether the topic is past its TTL at now.
func (t *Topic) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Regional reports whether the topic is regionally scoped.
func (t *Topic) Regional() bool {
	return t.Scope.Level == GeoRegional
}

// Synthesis is the summarizer's output for one cluster.
type Synthesis struct {
	Title              string `json:"title"`
	PrevailingPosition string `json:"prevailing_position"`
	LeadingCritique    string `json:"leading_critique"`
}
