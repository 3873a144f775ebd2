// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package ranking

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/store"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRecency(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	half := 6 * time.Hour
	tests := []struct {
		name string
		at   time.Time
		want float64
	}{
		{"now", now, 1},
		{"future clamps", now.Add(time.Hour), 1},
		{"one half-life", now.Add(-half), 0.5},
		{"two half-lives", now.Add(-2 * half), 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Recency(tt.at, now, half); !approx(got, tt.want) {
				t.Errorf("Recency() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestRecencyMonotonic(t *testing.T) {
	t.Parallel()

	now := time.Now()
	prev := 2.0
	for h := 0; h < 72; h++ {
		got := Recency(now.Add(-time.Duration(h)*time.Hour), now, 6*time.Hour)
		if got > prev || got < 0 || got > 1 {
			t.Fatalf("Recency at %dh = %f, not monotonic in [0,1]", h, got)
		}
		prev = got
	}
}

func TestSimilarityFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		item     []float32
		interest []float32
		want     float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.5},
		{"no item vector", nil, []float32{1, 0}, NeutralSimilarity},
		{"no interest", []float32{1, 0}, nil, NeutralSimilarity},
		{"dimension change", []float32{1, 0, 0}, []float32{1, 0}, NeutralSimilarity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Similarity(tt.item, tt.interest); !approx(got, tt.want) {
				t.Errorf("Similarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSocialFactor(t *testing.T) {
	t.Parallel()

	following := store.Set{"mutual": {}, "idol": {}}
	followers := store.Set{"mutual": {}, "fan": {}}

	tests := []struct {
		author string
		want   float64
	}{
		{"me", SocialSelf},
		{"mutual", SocialMutual},
		{"idol", SocialFollowing},
		{"fan", SocialFollowedBy},
		{"stranger", SocialNone},
	}
	for _, tt := range tests {
		if got := Social("me", tt.author, following, followers); got != tt.want {
			t.Errorf("Social(%s) = %f, want %f", tt.author, got, tt.want)
		}
	}
	if got := Social("me", "mutual", nil, nil); got != SocialNone {
		t.Errorf("Social() with nil sets = %f, want 0", got)
	}
}

func TestVelocity(t *testing.T) {
	t.Parallel()

	now := time.Now()
	e := models.Engagement{Likes: 8}
	fresh := Velocity(e, now, now)
	old := Velocity(e, now.Add(-24*time.Hour), now)
	if !approx(fresh, 8/math.Pow(2, 1.5)) {
		t.Errorf("Velocity(fresh) = %f", fresh)
	}
	if old >= fresh {
		t.Errorf("older item velocity %f should be below fresh %f", old, fresh)
	}
}

func TestTrendingPercentiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"empty", nil, []float64{}},
		{"single", []float64{3}, []float64{0.5}},
		{"ties", []float64{1, 2, 2, 3}, []float64{0, 0.5, 0.5, 1}},
		{"all equal", []float64{4, 4, 4}, []float64{0.5, 0.5, 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TrendingPercentiles(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !approx(got[i], tt.want[i]) {
					t.Errorf("TrendingPercentiles()[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSampleNoRepeatsAndReproducible(t *testing.T) {
	t.Parallel()

	weights := make([]float64, 200)
	for i := range weights {
		weights[i] = float64(i%7) + 0.01
	}

	first := Sample(weights, 50, rand.New(rand.NewSource(7)))
	second := Sample(weights, 50, rand.New(rand.NewSource(7)))

	if len(first) != 50 {
		t.Fatalf("Sample() drew %d, want 50", len(first))
	}
	seen := make(map[int]bool)
	for i, idx := range first {
		if seen[idx] {
			t.Fatalf("index %d drawn twice", idx)
		}
		seen[idx] = true
		if second[i] != idx {
			t.Fatalf("draw %d differs under the same seed: %d vs %d", i, idx, second[i])
		}
	}
}

func TestSampleDrawsEverythingWhenKExceedsPool(t *testing.T) {
	t.Parallel()

	got := Sample([]float64{0.2, 0.5, 0.3}, 10, rand.New(rand.NewSource(1)))
	if len(got) != 3 {
		t.Fatalf("Sample() drew %d, want 3", len(got))
	}
}

func TestSampleSkipsZeroWeights(t *testing.T) {
	t.Parallel()

	got := Sample([]float64{0, 1, 0}, 3, rand.New(rand.NewSource(1)))
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Sample() = %v, want [1]", got)
	}
}

func TestSampleIsProportional(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	const trials = 20000
	firstPicks := 0
	for i := 0; i < trials; i++ {
		if Sample([]float64{9, 1}, 1, rng)[0] == 0 {
			firstPicks++
		}
	}
	share := float64(firstPicks) / trials
	if share < 0.88 || share > 0.92 {
		t.Errorf("heavy item drawn %.3f of the time, want about 0.9", share)
	}
}
