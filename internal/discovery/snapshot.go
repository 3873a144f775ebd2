// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package discovery

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

// entry is a published topic plus the member to author mapping needed to
// recompute ParticipantCount after evictions.
type entry struct {
	topic   *models.Topic
	authors map[string]string // contentID -> authorID
}

func (e *entry) has(contentID string) bool {
	_, ok := e.authors[contentID]
	return ok
}

// snapshot is immutable once stored. Readers load it without locking.
type snapshot struct {
	// listed is the current trending set in publish order.
	listed []*entry
	// byID also holds topics from earlier publishes until they expire, so a
	// user paginating a topic keeps a stable member list for its whole life.
	byID        map[string]*entry
	publishedAt time.Time
	// version increases on every publish and forget.
	version uint64
}

// TopicCache is the topic snapshot shared by every reader. Only the Engine
// writes to it.
type TopicCache struct {
	current atomic.Pointer[snapshot]
	writeMu sync.Mutex

	regional models.GeoLevel
	window   time.Duration
	slot     int
}

// NewTopicCache returns an empty cache. interleaveWindow and slot control
// how REGIONAL topics are layered into the trending list.
func NewTopicCache(interleaveWindow time.Duration, slot int) *TopicCache {
	tc := &TopicCache{window: interleaveWindow, slot: slot}
	tc.current.Store(&snapshot{byID: map[string]*entry{}})
	return tc
}

// Lookup returns an unexpired topic by ID.
func (tc *TopicCache) Lookup(id string, now time.Time) (*models.Topic, bool) {
	e, ok := tc.current.Load().byID[id]
	if !ok || e.topic.Expired(now) {
		return nil, false
	}
	return e.topic, true
}

// Listed returns the unexpired topics of the latest publish, NATIONAL and
// REGIONAL alike, in publish order.
func (tc *TopicCache) Listed(now time.Time) []*models.Topic {
	snap := tc.current.Load()
	out := make([]*models.Topic, 0, len(snap.listed))
	for _, e := range snap.listed {
		if !e.topic.Expired(now) {
			out = append(out, e.topic)
		}
	}
	return out
}

// Trending returns every listed NATIONAL topic plus at most one REGIONAL
// topic for the interleave window containing now. A REGIONAL topic for
// callerRegion is preferred; otherwise the regional topics take turns by
// window.
func (tc *TopicCache) Trending(now time.Time, callerRegion string) []*models.Topic {
	var national, regional, local []*models.Topic
	for _, t := range tc.Listed(now) {
		if !t.Regional() {
			national = append(national, t)
			continue
		}
		regional = append(regional, t)
		if callerRegion != "" && t.Scope.Region == callerRegion {
			local = append(local, t)
		}
	}
	if len(regional) == 0 {
		return national
	}

	pool := regional
	if len(local) > 0 {
		pool = local
	}
	pick := pool[tc.windowIndex(now)%len(pool)]

	slot := tc.slot
	if slot < 0 {
		slot = 0
	}
	if slot > len(national) {
		slot = len(national)
	}
	out := make([]*models.Topic, 0, len(national)+1)
	out = append(out, national[:slot]...)
	out = append(out, pick)
	out = append(out, national[slot:]...)
	return out
}

func (tc *TopicCache) windowIndex(now time.Time) int {
	if tc.window <= 0 {
		return 0
	}
	return int(now.UnixNano() / int64(tc.window))
}

// Referenced reports whether any unexpired topic still lists contentID.
func (tc *TopicCache) Referenced(contentID string, now time.Time) bool {
	for _, e := range tc.current.Load().byID {
		if !e.topic.Expired(now) && e.has(contentID) {
			return true
		}
	}
	return false
}

// PublishedAt is the time of the last publish, zero before the first.
func (tc *TopicCache) PublishedAt() time.Time {
	return tc.current.Load().publishedAt
}

// TrendingVersion identifies what Trending returns at now. It changes on
// every publish or forget, when the interleave window rotates and when a
// listed topic expires.
func (tc *TopicCache) TrendingVersion(now time.Time) string {
	snap := tc.current.Load()
	expired := 0
	for _, e := range snap.listed {
		if e.topic.Expired(now) {
			expired++
		}
	}
	return fmt.Sprintf("%d.%d.%d", snap.version, tc.windowIndex(now), expired)
}

// publish swaps in a new listing. Expired topics are dropped; earlier
// unexpired topics stay addressable by ID. When fresh is empty and keepListing
// is set, the previous listing survives until its topics expire.
func (tc *TopicCache) publish(fresh []*entry, now time.Time, keepListing bool) {
	tc.writeMu.Lock()
	defer tc.writeMu.Unlock()

	prev := tc.current.Load()
	next := &snapshot{
		byID:        make(map[string]*entry, len(prev.byID)+len(fresh)),
		publishedAt: now,
		version:     prev.version + 1,
	}
	for id, e := range prev.byID {
		if !e.topic.Expired(now) {
			next.byID[id] = e
		}
	}
	for _, e := range fresh {
		next.byID[e.topic.ID] = e
	}

	if len(fresh) == 0 && keepListing {
		for _, e := range prev.listed {
			if !e.topic.Expired(now) {
				next.listed = append(next.listed, e)
			}
		}
	} else {
		next.listed = fresh
	}
	tc.current.Store(next)
}

// forget rebuilds the snapshot without the given content IDs. Topics left
// with no members are dropped. It returns the IDs of dropped topics.
func (tc *TopicCache) forget(contentIDs []string) []string {
	gone := make(map[string]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		gone[id] = struct{}{}
	}

	tc.writeMu.Lock()
	defer tc.writeMu.Unlock()

	prev := tc.current.Load()
	replaced := make(map[*entry]*entry)
	var dropped []string
	next := &snapshot{
		byID:        make(map[string]*entry, len(prev.byID)),
		publishedAt: prev.publishedAt,
		version:     prev.version + 1,
	}
	for id, e := range prev.byID {
		ne := withoutMembers(e, gone)
		replaced[e] = ne
		if ne == nil {
			dropped = append(dropped, id)
			continue
		}
		next.byID[id] = ne
	}
	for _, e := range prev.listed {
		if ne, ok := replaced[e]; !ok {
			next.listed = append(next.listed, e)
		} else if ne != nil {
			next.listed = append(next.listed, ne)
		}
	}
	tc.current.Store(next)
	return dropped
}

// withoutMembers returns e itself when untouched, a rebuilt copy when some
// members were removed, or nil when none remain.
func withoutMembers(e *entry, gone map[string]struct{}) *entry {
	touched := false
	for _, id := range e.topic.MemberIDs {
		if _, ok := gone[id]; ok {
			touched = true
			break
		}
	}
	if !touched {
		return e
	}

	t := *e.topic
	t.MemberIDs = nil
	authors := make(map[string]string, len(e.authors))
	for _, id := range e.topic.MemberIDs {
		if _, ok := gone[id]; ok {
			continue
		}
		t.MemberIDs = append(t.MemberIDs, id)
		authors[id] = e.authors[id]
	}
	if len(t.MemberIDs) == 0 {
		return nil
	}
	t.ParticipantCount = distinctAuthors(authors)
	return &entry{topic: &t, authors: authors}
}

func distinctAuthors(authors map[string]string) int {
	seen := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		seen[a] = struct{}{}
	}
	return len(seen)
}
