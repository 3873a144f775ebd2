// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package cache

import "math/bits"

// FenwickTree is a binary indexed tree over non-negative float64 weights.
// It supports point updates, prefix sums and a cumulative-weight search in
// O(log n), which makes weighted sampling without replacement O(n log n)
// for a full draw instead of O(n^2).
//
// A FenwickTree is not safe for concurrent use; samplers own one per draw.
type FenwickTree struct {
	tree []float64 // 1-indexed
	n    int
	top  int // highest power of two <= n
}

// NewFenwickTree builds a tree over weights in O(n). Negative weights are
// treated as zero.
func NewFenwickTree(weights []float64) *FenwickTree {
	n := len(weights)
	ft := &FenwickTree{tree: make([]float64, n+1), n: n}
	if n > 0 {
		ft.top = 1 << (bits.Len(uint(n)) - 1)
	}
	for i, w := range weights {
		if w > 0 {
			ft.tree[i+1] += w
		}
		if j := (i + 1) + ((i + 1) & -(i + 1)); j <= n {
			ft.tree[j] += ft.tree[i+1]
		}
	}
	return ft
}

// Len returns the number of slots.
func (ft *FenwickTree) Len() int {
	return ft.n
}

// Add adds delta to the weight at index i (0-indexed).
func (ft *FenwickTree) Add(i int, delta float64) {
	if i < 0 || i >= ft.n {
		return
	}
	for i++; i <= ft.n; i += i & -i {
		ft.tree[i] += delta
	}
}

// PrefixSum returns the sum of weights 0..i inclusive.
func (ft *FenwickTree) PrefixSum(i int) float64 {
	if i < 0 {
		return 0
	}
	if i >= ft.n {
		i = ft.n - 1
	}
	var sum float64
	for i++; i > 0; i -= i & -i {
		sum += ft.tree[i]
	}
	return sum
}

// Get returns the weight at index i.
func (ft *FenwickTree) Get(i int) float64 {
	return ft.PrefixSum(i) - ft.PrefixSum(i-1)
}

// Total returns the sum of all weights.
func (ft *FenwickTree) Total() float64 {
	return ft.PrefixSum(ft.n - 1)
}

// Search returns the smallest index whose prefix sum exceeds target, walking
// down the implicit tree. target must be in [0, Total()). The result is
// clamped to the last index so floating-point drift cannot step past it.
func (ft *FenwickTree) Search(target float64) int {
	pos := 0
	for step := ft.top; step > 0; step >>= 1 {
		next := pos + step
		if next <= ft.n && ft.tree[next] <= target {
			pos = next
			target -= ft.tree[next]
		}
	}
	if pos >= ft.n {
		pos = ft.n - 1
	}
	return pos
}
