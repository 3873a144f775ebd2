// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package ranking

import (
	"math/rand"

	"github.com/tomtom215/civitas/internal/cache"
)

// Sample draws up to k distinct indexes with probability proportional to
// weights, without replacement. Each draw is a cumulative-weight descent of
// a Fenwick tree, after which the drawn weight is zeroed. Indexes with zero
// weight are never drawn.
func Sample(weights []float64, k int, rng *rand.Rand) []int {
	n := len(weights)
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}

	ft := cache.NewFenwickTree(weights)
	taken := make([]bool, n)
	remaining := 0
	for _, w := range weights {
		if w > 0 {
			remaining++
		}
	}

	out := make([]int, 0, k)
	for len(out) < k && remaining > 0 {
		total := ft.Total()
		if total <= 0 {
			break
		}
		idx := ft.Search(rng.Float64() * total)
		if taken[idx] || weights[idx] <= 0 {
			// Rounding left a sliver of removed weight in the tree.
			idx = nextAvailable(weights, taken, idx)
			if idx < 0 {
				break
			}
		}
		taken[idx] = true
		remaining--
		ft.Add(idx, -weights[idx])
		out = append(out, idx)
	}
	return out
}

func nextAvailable(weights []float64, taken []bool, from int) int {
	n := len(weights)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if !taken[i] && weights[i] > 0 {
			return i
		}
	}
	return -1
}
