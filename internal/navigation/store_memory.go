// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package navigation

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore keeps state in process. Entries idle for longer than the TTL
// are swept by a janitor goroutine.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	seenCap int
	now     func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemoryStore creates a MemoryStore and starts its janitor.
// A non-positive sweep disables the janitor; expired entries are still
// ignored on read.
func NewMemoryStore(ttl time.Duration, seenCap int, sweep time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		seenCap: seenCap,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweep > 0 {
		go s.janitor(sweep)
	}
	return s
}

// Load implements StateStore.
func (s *MemoryStore) Load(_ context.Context, userID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok || !s.now().Before(e.expiresAt) {
		return Record{}, false, nil
	}
	return cloneRecord(e.record), true, nil
}

// Merge implements StateStore.
func (s *MemoryStore) Merge(_ context.Context, userID string, patch Patch) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var current Record
	if e, ok := s.entries[userID]; ok && now.Before(e.expiresAt) {
		current = e.record
	}
	merged := Merge(current, patch, s.seenCap)
	s.entries[userID] = &memoryEntry{record: merged, expiresAt: now.Add(s.ttl)}
	return cloneRecord(merged), nil
}

// Len returns the number of entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many went.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

//nolint:gocritic // hugeParam: records are small value types
func cloneRecord(r Record) Record {
	r.Session.Seen = copyStrings(r.Session.Seen)
	return r
}
