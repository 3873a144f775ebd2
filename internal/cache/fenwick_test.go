// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package cache

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestFenwickTreePrefixSums(t *testing.T) {
	t.Parallel()

	weights := []float64{0.5, 1, 0, 2.5, 1, 3}
	ft := NewFenwickTree(weights)

	var running float64
	for i, w := range weights {
		running += w
		if got := ft.PrefixSum(i); math.Abs(got-running) > eps {
			t.Errorf("PrefixSum(%d) = %v, want %v", i, got, running)
		}
		if got := ft.Get(i); math.Abs(got-w) > eps {
			t.Errorf("Get(%d) = %v, want %v", i, got, w)
		}
	}
	if math.Abs(ft.Total()-8) > eps {
		t.Errorf("Total() = %v, want 8", ft.Total())
	}
}

func TestFenwickTreeAdd(t *testing.T) {
	t.Parallel()

	ft := NewFenwickTree([]float64{1, 1, 1, 1})
	ft.Add(2, -1)

	if math.Abs(ft.Total()-3) > eps {
		t.Errorf("Total() = %v, want 3", ft.Total())
	}
	if ft.Get(2) != 0 {
		t.Errorf("Get(2) = %v, want 0", ft.Get(2))
	}
}

func TestFenwickTreeSearch(t *testing.T) {
	t.Parallel()

	// Cumulative: [1, 3, 3, 6, 10]
	ft := NewFenwickTree([]float64{1, 2, 0, 3, 4})

	tests := []struct {
		target float64
		want   int
	}{
		{0, 0},
		{0.99, 0},
		{1, 1},
		{2.99, 1},
		{3, 3}, // index 2 has zero weight and is never chosen
		{5.5, 3},
		{6, 4},
		{9.99, 4},
	}
	for _, tt := range tests {
		if got := ft.Search(tt.target); got != tt.want {
			t.Errorf("Search(%v) = %d, want %d", tt.target, got, tt.want)
		}
	}
}

func TestFenwickTreeEmpty(t *testing.T) {
	t.Parallel()

	ft := NewFenwickTree(nil)
	if ft.Len() != 0 || ft.Total() != 0 {
		t.Errorf("empty tree Len=%d Total=%v", ft.Len(), ft.Total())
	}
}
