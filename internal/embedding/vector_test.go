// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package embedding

import (
	"errors"
	"math"
	"testing"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{3, 3}, 1},
		{"empty", []float32{}, []float32{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	t.Parallel()

	pairs := [][2][]float32{
		{{0.3, -0.2, 0.9}, {0.1, 0.4, -0.5}},
		{{1, 2, 3, 4}, {4, 3, 2, 1}},
		{{-7, 0.5}, {2, 2}},
	}
	for _, p := range pairs {
		if ab, ba := Similarity(p[0], p[1]), Similarity(p[1], p[0]); ab != ba {
			t.Errorf("Similarity not symmetric: %v vs %v", ab, ba)
		}
	}
}

func TestSimilarityDimensionMismatchPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrDimensionMismatch) {
			t.Fatalf("recovered %v, want ErrDimensionMismatch", r)
		}
	}()
	Similarity([]float32{1, 2}, []float32{1, 2, 3})
}

func TestReproject(t *testing.T) {
	t.Parallel()

	truncated := Reproject([]float32{3, 4, 12}, 2)
	if len(truncated) != 2 {
		t.Fatalf("len = %d, want 2", len(truncated))
	}
	if math.Abs(float64(truncated[0])-0.6) > 1e-6 || math.Abs(float64(truncated[1])-0.8) > 1e-6 {
		t.Errorf("truncated = %v, want [0.6 0.8]", truncated)
	}

	padded := Reproject([]float32{2}, 3)
	if len(padded) != 3 || padded[0] != 1 || padded[1] != 0 || padded[2] != 0 {
		t.Errorf("padded = %v, want [1 0 0]", padded)
	}
}

func TestMeanAndCentroid(t *testing.T) {
	t.Parallel()

	mean := Mean([][]float32{{1, 0}, {0, 1}, {1, 2, 3}, nil})
	if len(mean) != 2 || mean[0] != 0.5 || mean[1] != 0.5 {
		t.Errorf("Mean() = %v, want [0.5 0.5]", mean)
	}
	if Mean(nil) != nil {
		t.Error("Mean(nil) should be nil")
	}

	c := NewCentroid([]float32{1, 0})
	c.Add([]float32{0, 1})
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	want := Similarity([]float32{1, 1}, []float32{0.5, 0.5})
	if got := c.Similarity([]float32{1, 1}); math.Abs(got-want) > 1e-9 {
		t.Errorf("Centroid.Similarity() = %v, want %v", got, want)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 5, "hello"},
		{"trailing space trimmed", "hello world", 6, "hello"},
		{"multibyte", "héllo wörld", 8, "héllo wö"},
		{"disabled", "hello", 0, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Truncate(tt.text, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}
