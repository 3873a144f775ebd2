// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package cache provides the in-memory TTL cache behind the embedding,
// interest-vector, summary and response caches, plus the weighted Fenwick
// tree used for probability sampling.
package cache

import (
	"container/heap"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Options configures a Cache.
type Options struct {
	// TTL is the default freshness window of an entry.
	TTL time.Duration

	// StaleFor keeps entries readable through GetStale for this long after
	// they stop being fresh. Zero drops them at expiry.
	StaleFor time.Duration

	// MaxEntries bounds the cache. When full, the entry closest to removal
	// is evicted. Zero means unbounded.
	MaxEntries int

	// CleanupInterval is how often expired entries are swept.
	// Default: 1m
	CleanupInterval time.Duration

	// Now overrides the clock for tests.
	Now func() time.Time
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	index     int
}

// expiryHeap orders entries by expiresAt, earliest first.
type expiryHeap[V any] []*entry[V]

func (h expiryHeap[V]) Len() int           { return len(h) }
func (h expiryHeap[V]) Less(i, j int) bool { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap[V]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap[V]) Push(x any) {
	e := x.(*entry[V])
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *expiryHeap[V]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int
}

// Cache is a concurrency-safe string-keyed TTL cache.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[V]
	expiry  expiryHeap[V]
	opts    Options
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache and starts its cleanup goroutine. Call Close to stop it.
//
//	vectors := cache.New[[]float32](cache.Options{TTL: 30 * time.Minute, MaxEntries: 50_000})
//	defer vectors.Close()
func New[V any](opts Options) *Cache[V] {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Cache[V]{
		entries: make(map[string]*entry[V]),
		opts:    opts,
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns a fresh value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, fresh, ok := c.GetStale(key)
	if !ok || !fresh {
		var zero V
		return zero, false
	}
	return v, true
}

// GetStale returns the value for key even when past its TTL, as long as it
// is still inside the StaleFor retention. fresh reports whether the TTL still
// holds.
func (c *Cache[V]) GetStale(key string) (value V, fresh bool, ok bool) {
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, exists := c.entries[key]
	if !exists {
		c.stats.Misses++
		return value, false, false
	}
	if !now.Before(e.expiresAt.Add(c.opts.StaleFor)) {
		c.removeLocked(e)
		c.stats.Evictions++
		c.stats.Misses++
		return value, false, false
	}
	fresh = now.Before(e.expiresAt)
	if fresh {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return e.value, fresh, true
}

// Set stores value with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.opts.TTL)
}

// SetWithTTL stores value with a custom TTL.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[key]; exists {
		e.value = value
		e.expiresAt = now.Add(ttl)
		heap.Fix(&c.expiry, e.index)
		return
	}
	if c.opts.MaxEntries > 0 && len(c.entries) >= c.opts.MaxEntries {
		c.evictOneLocked()
	}
	e := &entry[V]{key: key, value: value, expiresAt: now.Add(ttl)}
	heap.Push(&c.expiry, e)
	c.entries[key] = e
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
		c.stats.Evictions++
	}
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or stale.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Range calls fn for every fresh entry until fn returns false.
func (c *Cache[V]) Range(fn func(key string, value V) bool) {
	now := c.opts.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, e := range c.entries {
		if now.Before(e.expiresAt) && !fn(k, e.value) {
			return
		}
	}
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Keys = len(c.entries)
	return s
}

// Close stops the cleanup goroutine. The cache stays usable.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

// Cleanup removes entries past their stale retention and returns how many
// were removed.
func (c *Cache[V]) Cleanup() int {
	now := c.opts.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for len(c.expiry) > 0 && !now.Before(c.expiry[0].expiresAt.Add(c.opts.StaleFor)) {
		e := heap.Pop(&c.expiry).(*entry[V])
		delete(c.entries, e.key)
		removed++
	}
	c.stats.Evictions += int64(removed)
	return removed
}

// evictOneLocked drops the entry with the earliest expiry in O(log n).
func (c *Cache[V]) evictOneLocked() {
	if len(c.expiry) == 0 {
		return
	}
	e := heap.Pop(&c.expiry).(*entry[V])
	delete(c.entries, e.key)
	c.stats.Evictions++
}

func (c *Cache[V]) removeLocked(e *entry[V]) {
	heap.Remove(&c.expiry, e.index)
	delete(c.entries, e.key)
}

// HashKey builds a compact key from a namespace and parts.
//
//	key := cache.HashKey("embed", model, text)
func HashKey(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return namespace + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}
