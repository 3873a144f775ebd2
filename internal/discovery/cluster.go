// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package discovery

import (
	"sort"

	"github.com/tomtom215/civitas/internal/embedding"
	"github.com/tomtom215/civitas/internal/models"
)

// Cluster is a group of items whose vectors stayed close to a running mean.
// Members keep the order in which they joined.
type Cluster struct {
	Members  []*models.ContentItem
	centroid *embedding.Centroid
	degraded bool
}

// Size is the number of members.
func (c *Cluster) Size() int { return len(c.Members) }

// Centroid returns the mean vector of the members.
func (c *Cluster) Centroid() []float32 { return c.centroid.Vector() }

// Greedy clusters items in a single pass, in the order given. Each item joins
// the open cluster whose centroid it is most similar to when that similarity
// reaches threshold, and otherwise opens a new cluster. Ties go to the
// earliest-opened cluster. Items without a current vector are skipped.
// Degraded vectors only cluster with other degraded vectors, since they do
// not share the model's space. All vectors must share one length.
func Greedy(items []*models.ContentItem, threshold float64) []*Cluster {
	var clusters []*Cluster
	for _, item := range items {
		vec := item.Vector()
		if vec == nil {
			continue
		}
		degraded := item.Embedding.Degraded

		best, bestSim := -1, threshold
		for i, c := range clusters {
			if c.degraded != degraded {
				continue
			}
			sim := c.centroid.Similarity(vec)
			if sim > bestSim || (best == -1 && sim >= bestSim) {
				best, bestSim = i, sim
			}
		}

		if best >= 0 {
			c := clusters[best]
			c.Members = append(c.Members, item)
			c.centroid.Add(vec)
			continue
		}
		clusters = append(clusters, &Cluster{
			Members:  []*models.ContentItem{item},
			centroid: embedding.NewCentroid(vec),
			degraded: degraded,
		})
	}
	return clusters
}

// Qualify keeps clusters with at least minSize members, largest first.
// Equal sizes keep their opening order.
func Qualify(clusters []*Cluster, minSize int) []*Cluster {
	var out []*Cluster
	for _, c := range clusters {
		if c.Size() >= minSize {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Size() > out[j].Size()
	})
	return out
}

// Representatives returns up to k members by engagement score descending,
// then newest first, then ID ascending.
func Representatives(c *Cluster, k int) []*models.ContentItem {
	reps := make([]*models.ContentItem, len(c.Members))
	copy(reps, c.Members)
	sort.Slice(reps, func(i, j int) bool {
		si, sj := reps[i].Engagement.Score(), reps[j].Engagement.Score()
		if si != sj {
			return si > sj
		}
		if !reps[i].CreatedAt.Equal(reps[j].CreatedAt) {
			return reps[i].CreatedAt.After(reps[j].CreatedAt)
		}
		return reps[i].ID < reps[j].ID
	})
	if k > 0 && len(reps) > k {
		reps = reps[:k]
	}
	return reps
}

// dominantRegion returns the region shared by at least minShare of the
// members, or "" when no region is that common.
func dominantRegion(members []*models.ContentItem, minShare float64) string {
	if len(members) == 0 {
		return ""
	}
	counts := make(map[string]int)
	for _, m := range members {
		if r := m.Region(); r != "" {
			counts[r]++
		}
	}
	var (
		region string
		top    int
	)
	for r, n := range counts {
		if n > top || (n == top && r < region) {
			region, top = r, n
		}
	}
	if top == 0 || float64(top)/float64(len(members)) < minShare {
		return ""
	}
	return region
}
