// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package models

import (
	"fmt"
	"math"
	"time"
)

// FeedMode is the navigation mode of a user's feed.
type FeedMode string

const (
	ModeDefault FeedMode = "DEFAULT"
	ModeTopic   FeedMode = "TOPIC"
)

// UserFeedState is the resolved navigation state of one user.
// ActiveTopicID is set if and only if Mode is ModeTopic.
type UserFeedState struct {
	UserID        string    `json:"user_id"`
	Mode          FeedMode  `json:"mode"`
	ActiveTopicID string    `json:"active_topic_id,omitempty"`
	Cursor        string    `json:"pagination_cursor,omitempty"`
	LastRankedAt  time.Time `json:"last_ranked_at,omitempty"`
}

// Valid checks the mode/topic invariant.
func (s *UserFeedState) Valid() bool {
	switch s.Mode {
	case ModeDefault:
		return s.ActiveTopicID == ""
	case ModeTopic:
		return s.ActiveTopicID != ""
	}
	return false
}

// WeightTolerance is the accepted deviation of a ScoreWeights sum from 1.
const WeightTolerance = 1e-6

// ScoreWeights weighs the four ranking factors.
type ScoreWeights struct {
	Recency    float64 `json:"recency" koanf:"recency"`
	Similarity float64 `json:"similarity" koanf:"similarity"`
	Social     float64 `json:"social" koanf:"social"`
	Trending   float64 `json:"trending" koanf:"trending"`
}

// DefaultScoreWeights returns recency 0.35, similarity 0.25, social 0.25 and
// trending 0.15.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		Recency:    0.35,
		Similarity: 0.25,
		Social:     0.25,
		Trending:   0.15,
	}
}

// Sum returns the total of all four weights.
func (w ScoreWeights) Sum() float64 {
	return w.Recency + w.Similarity + w.Social + w.Trending
}

// Validate returns an error wrapping ErrConfiguration when any weight is
// negative or not finite, or when the weights do not sum to 1 within
// WeightTolerance.
func (w ScoreWeights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"recency", w.Recency},
		{"similarity", w.Similarity},
		{"social", w.Social},
		{"trending", w.Trending},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: weight %s is not finite", ErrConfiguration, f.name)
		}
		if f.value < 0 {
			return fmt.Errorf("%w: weight %s must be non-negative, got %g", ErrConfiguration, f.name, f.value)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("%w: weights must sum to 1, got %g", ErrConfiguration, sum)
	}
	return nil
}
