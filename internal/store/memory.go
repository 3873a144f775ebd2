// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

type like struct {
	contentID string
	at        time.Time
}

// Memory is an in-process Store. Items are copied on the way in and out, so
// callers never share a record with the store.
type Memory struct {
	mu      sync.RWMutex
	items   map[string]*models.ContentItem
	likes   map[string][]like // userID -> likes, append order
	follows map[string]Set    // follower -> followees
	blocks  map[string]Set    // blocker -> blocked
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		items:   make(map[string]*models.ContentItem),
		likes:   make(map[string][]like),
		follows: make(map[string]Set),
		blocks:  make(map[string]Set),
	}
}

func (m *Memory) Insert(_ context.Context, item *models.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[item.ID]; exists {
		return fmt.Errorf("insert content %s: already exists", item.ID)
	}
	m.items[item.ID] = cloneItem(item)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*models.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, models.ErrNotFound)
	}
	return cloneItem(item), nil
}

func (m *Memory) GetMany(_ context.Context, ids []string) (map[string]*models.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*models.ContentItem, len(ids))
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			out[id] = cloneItem(item)
		}
	}
	return out, nil
}

func (m *Memory) UpdateText(_ context.Context, id, text string) (*models.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Tombstoned() {
		return nil, fmt.Errorf("content %s: %w", id, models.ErrNotFound)
	}
	updated := cloneItem(item)
	updated.Text = text
	updated.TextVersion++
	m.items[id] = updated
	return cloneItem(updated), nil
}

func (m *Memory) SetEmbedding(_ context.Context, id string, emb models.Embedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Tombstoned() {
		return fmt.Errorf("content %s: %w", id, models.ErrNotFound)
	}
	if item.TextVersion != emb.TextVersion {
		return fmt.Errorf("content %s at version %d, embedding for %d: %w", id, item.TextVersion, emb.TextVersion, models.ErrStaleVersion)
	}
	updated := cloneItem(item)
	vec := make([]float32, len(emb.Vector))
	copy(vec, emb.Vector)
	emb.Vector = vec
	updated.Embedding = &emb
	m.items[id] = updated
	return nil
}

func (m *Memory) AddEngagement(_ context.Context, id string, kind models.EngagementKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Tombstoned() {
		return fmt.Errorf("content %s: %w", id, models.ErrNotFound)
	}
	switch kind {
	case models.EngagementLike:
		item.Engagement.Likes++
	case models.EngagementReply:
		item.Engagement.Replies++
	case models.EngagementShare:
		item.Engagement.Shares++
	default:
		return fmt.Errorf("unknown engagement kind %q", kind)
	}
	return nil
}

func (m *Memory) Tombstone(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("content %s: %w", id, models.ErrNotFound)
	}
	if item.DeletedAt == nil {
		deleted := at.UTC()
		item.DeletedAt = &deleted
	}
	return nil
}

func (m *Memory) ListTombstoned(_ context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var dead []*models.ContentItem
	for _, item := range m.items {
		if item.Tombstoned() {
			dead = append(dead, item)
		}
	}
	sort.Slice(dead, func(i, j int) bool {
		if !dead[i].DeletedAt.Equal(*dead[j].DeletedAt) {
			return dead[i].DeletedAt.Before(*dead[j].DeletedAt)
		}
		return dead[i].ID < dead[j].ID
	})
	if limit > 0 && len(dead) > limit {
		dead = dead[:limit]
	}
	ids := make([]string, len(dead))
	for i, item := range dead {
		ids[i] = item.ID
	}
	return ids, nil
}

func (m *Memory) Purge(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := make(Set, len(ids))
	for _, id := range ids {
		if item, ok := m.items[id]; ok && item.Tombstoned() {
			delete(m.items, id)
			purged.Add(id)
		}
	}
	if len(purged) > 0 {
		for user, ls := range m.likes {
			kept := ls[:0]
			for _, l := range ls {
				if !purged.Has(l.contentID) {
					kept = append(kept, l)
				}
			}
			m.likes[user] = kept
		}
	}
	return len(purged), nil
}

func (m *Memory) window(since time.Time, limit int, keep func(*models.ContentItem) bool) []*models.ContentItem {
	m.mu.RLock()
	var out []*models.ContentItem
	for _, item := range m.items {
		if item.Tombstoned() || item.CreatedAt.Before(since) || !keep(item) {
			continue
		}
		out = append(out, cloneItem(item))
	}
	m.mu.RUnlock()

	SortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) RecentEmbedded(_ context.Context, since time.Time, limit int) ([]*models.ContentItem, error) {
	return m.window(since, limit, func(c *models.ContentItem) bool { return c.Vector() != nil }), nil
}

func (m *Memory) Candidates(_ context.Context, since time.Time, limit int) ([]*models.ContentItem, error) {
	return m.window(since, limit, func(*models.ContentItem) bool { return true }), nil
}

func (m *Memory) MissingEmbeddings(_ context.Context, limit int) ([]*models.ContentItem, error) {
	return m.window(time.Time{}, limit, func(c *models.ContentItem) bool { return c.Embeddable() }), nil
}

func (m *Memory) InterestVectors(_ context.Context, userID string, limit int) ([][]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type signal struct {
		at  time.Time
		id  string
		vec []float32
	}
	var signals []signal
	seen := make(Set)
	for _, l := range m.likes[userID] {
		if item, ok := m.items[l.contentID]; ok && !item.Tombstoned() && item.ModelVector() != nil {
			signals = append(signals, signal{at: l.at, id: item.ID, vec: item.ModelVector()})
			seen.Add(item.ID)
		}
	}
	for _, item := range m.items {
		if item.AuthorID == userID && !item.Tombstoned() && item.ModelVector() != nil && !seen.Has(item.ID) {
			signals = append(signals, signal{at: item.CreatedAt, id: item.ID, vec: item.ModelVector()})
		}
	}
	sort.Slice(signals, func(i, j int) bool {
		if !signals[i].at.Equal(signals[j].at) {
			return signals[i].at.After(signals[j].at)
		}
		return signals[i].id < signals[j].id
	})
	if limit > 0 && len(signals) > limit {
		signals = signals[:limit]
	}
	out := make([][]float32, len(signals))
	for i, s := range signals {
		vec := make([]float32, len(s.vec))
		copy(vec, s.vec)
		out[i] = vec
	}
	return out, nil
}

func (m *Memory) RecordLike(_ context.Context, userID, contentID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[contentID]; !ok {
		return fmt.Errorf("content %s: %w", contentID, models.ErrNotFound)
	}
	for _, l := range m.likes[userID] {
		if l.contentID == contentID {
			return nil
		}
	}
	m.likes[userID] = append(m.likes[userID], like{contentID: contentID, at: at})
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Follows(_ context.Context, userID string) (out, in Set, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out, in = make(Set), make(Set)
	for id := range m.follows[userID] {
		out.Add(id)
	}
	for follower, followees := range m.follows {
		if followees.Has(userID) {
			in.Add(follower)
		}
	}
	return out, in, nil
}

func (m *Memory) Blocked(_ context.Context, userID string) (Set, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(Set)
	for id := range m.blocks[userID] {
		out.Add(id)
	}
	for blocker, blocked := range m.blocks {
		if blocked.Has(userID) {
			out.Add(blocker)
		}
	}
	return out, nil
}

func (m *Memory) Follow(_ context.Context, followerID, followeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addEdge(m.follows, followerID, followeeID)
	return nil
}

func (m *Memory) Unfollow(_ context.Context, followerID, followeeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.follows[followerID], followeeID)
	return nil
}

func (m *Memory) Block(_ context.Context, blockerID, blockedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addEdge(m.blocks, blockerID, blockedID)
	return nil
}

func (m *Memory) Close() error { return nil }

func addEdge(edges map[string]Set, from, to string) {
	s, ok := edges[from]
	if !ok {
		s = make(Set)
		edges[from] = s
	}
	s.Add(to)
}
