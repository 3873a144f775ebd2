// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/tomtom215/civitas/internal/embedding"
	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/store"
)

// NeutralSimilarity is used when either vector is missing, so content that
// could not be embedded is not penalized a second time.
const NeutralSimilarity = 0.5

// Social factor grades.
const (
	SocialSelf       = 1.0
	SocialMutual     = 1.0
	SocialFollowing  = 0.75
	SocialFollowedBy = 0.25
	SocialNone       = 0.0
)

// Factors are the four normalized signals of one candidate, each in [0, 1].
type Factors struct {
	Recency    float64 `json:"recency"`
	Similarity float64 `json:"similarity"`
	Social     float64 `json:"social"`
	Trending   float64 `json:"trending"`
}

// Score is the weighted sum of f.
func (f Factors) Score(w models.ScoreWeights) float64 {
	return w.Recency*f.Recency + w.Similarity*f.Similarity + w.Social*f.Social + w.Trending*f.Trending
}

// Recency halves every halfLife. Items dated in the future score 1.
func Recency(createdAt, now time.Time, halfLife time.Duration) float64 {
	age := now.Sub(createdAt)
	if age <= 0 || halfLife <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(halfLife))
}

// Similarity maps cosine similarity onto [0, 1]. A missing vector or a
// dimension mismatch yields NeutralSimilarity. Callers pass
// ContentItem.ModelVector so degraded vectors also score neutral.
func Similarity(item, interest []float32) float64 {
	if len(item) == 0 || len(interest) == 0 || len(item) != len(interest) {
		return NeutralSimilarity
	}
	return (embedding.Similarity(item, interest) + 1) / 2
}

// Social grades how close the author is to the viewer: mutual follows and
// the viewer's own posts score 1, following 0.75, followed-by 0.25.
func Social(viewerID, authorID string, following, followers store.Set) float64 {
	if viewerID == authorID {
		return SocialSelf
	}
	out, in := following.Has(authorID), followers.Has(authorID)
	switch {
	case out && in:
		return SocialMutual
	case out:
		return SocialFollowing
	case in:
		return SocialFollowedBy
	default:
		return SocialNone
	}
}

// Velocity is engagement per age with gravity, so fresh interactions count
// for more than old ones.
func Velocity(e models.Engagement, createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return float64(e.Score()) / math.Pow(hours+2, 1.5)
}

// TrendingPercentiles ranks each velocity within the pool: the fraction of
// other items below it plus half of its ties. A single-item pool scores 0.5.
func TrendingPercentiles(velocities []float64) []float64 {
	n := len(velocities)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[0] = 0.5
		return out
	}
	sorted := make([]float64, n)
	copy(sorted, velocities)
	sort.Float64s(sorted)

	for i, v := range velocities {
		lo := sort.SearchFloat64s(sorted, v)
		hi := sort.Search(n, func(j int) bool { return sorted[j] > v })
		ties := hi - lo - 1
		out[i] = (float64(lo) + 0.5*float64(ties)) / float64(n-1)
	}
	return out
}
