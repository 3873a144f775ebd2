// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package embedding

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrDimensionMismatch is the panic value of Similarity when vectors differ
// in length. Callers filter by dimension before comparing.
var ErrDimensionMismatch = errors.New("embedding: dimension mismatch")

// Similarity returns the cosine similarity of a and b in [-1, 1].
// A zero-magnitude input yields 0.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b)))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push |sim| slightly past 1.
	return math.Max(-1, math.Min(1, sim))
}

// Normalize scales v to unit L2 length in place and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Reproject fits v to dims components by truncating or zero-padding, then
// renormalizes. The input is not modified.
func Reproject(v []float32, dims int) []float32 {
	out := make([]float32, dims)
	copy(out, v)
	return Normalize(out)
}

// Mean returns the component-wise mean of vectors. Vectors whose length
// differs from the first are ignored. Returns nil for no input.
func Mean(vectors [][]float32) []float32 {
	var c Centroid
	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if c.n > 0 && len(v) != len(c.sum) {
			continue
		}
		c.Add(v)
	}
	return c.Vector()
}

// Centroid is an incrementally updated mean vector.
type Centroid struct {
	sum []float64
	n   int
}

// NewCentroid starts a centroid from its first member.
func NewCentroid(v []float32) *Centroid {
	c := &Centroid{}
	c.Add(v)
	return c
}

// Add folds v into the mean. Panics with ErrDimensionMismatch on a length
// change.
func (c *Centroid) Add(v []float32) {
	if c.sum == nil {
		c.sum = make([]float64, len(v))
	} else if len(v) != len(c.sum) {
		panic(fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(v), len(c.sum)))
	}
	for i, x := range v {
		c.sum[i] += float64(x)
	}
	c.n++
}

// Len is the number of vectors folded in.
func (c *Centroid) Len() int { return c.n }

// Vector returns the current mean, or nil when empty.
func (c *Centroid) Vector() []float32 {
	if c.n == 0 {
		return nil
	}
	out := make([]float32, len(c.sum))
	for i, s := range c.sum {
		out[i] = float32(s / float64(c.n))
	}
	return out
}

// Similarity compares v with the centroid. Cosine is scale invariant, so the
// running sum stands in for the mean.
func (c *Centroid) Similarity(v []float32) float64 {
	if c.n == 0 {
		return 0
	}
	if len(v) != len(c.sum) {
		panic(fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(v), len(c.sum)))
	}
	var dot, normA, normB float64
	for i, s := range c.sum {
		x := float64(v[i])
		dot += x * s
		normA += x * x
		normB += s * s
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, dot/(math.Sqrt(normA)*math.Sqrt(normB))))
}

// Truncate cuts text to at most maxRunes runes on a rune boundary and trims
// whitespace left trailing by the cut. maxRunes <= 0 disables the limit.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == maxRunes {
			return strings.TrimRightFunc(text[:i], unicode.IsSpace)
		}
		n++
	}
	return text
}
