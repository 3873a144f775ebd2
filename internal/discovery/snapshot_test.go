// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package discovery

import (
	"sort"
	"testing"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

func testEntry(id string, level models.GeoLevel, region string, expires time.Time, members map[string]string) *entry {
	t := &models.Topic{
		ID:        id,
		Title:     "topic " + id,
		CreatedAt: base,
		ExpiresAt: expires,
		Scope:     models.GeoScope{Level: level, Region: region},
	}
	t.MemberIDs = sortedKeys(members)
	t.ParticipantCount = distinctAuthors(members)
	return &entry{topic: t, authors: members}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func topicIDs(topics []*models.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.ID
	}
	return out
}

func TestTopicCacheLookupAndExpiry(t *testing.T) {
	t.Parallel()

	tc := NewTopicCache(50*time.Second, 2)
	expires := base.Add(2 * time.Minute)
	tc.publish([]*entry{testEntry("t1", models.GeoNational, "", expires, map[string]string{"c1": "u1"})}, base, false)

	if _, ok := tc.Lookup("t1", base.Add(time.Minute)); !ok {
		t.Error("Lookup() before expiry should succeed")
	}
	if _, ok := tc.Lookup("t1", expires); ok {
		t.Error("Lookup() at expiry should fail")
	}
	if _, ok := tc.Lookup("missing", base); ok {
		t.Error("Lookup() of unknown topic should fail")
	}
}

func TestTopicCachePreviousTopicsStayAddressable(t *testing.T) {
	t.Parallel()

	tc := NewTopicCache(50*time.Second, 2)
	tc.publish([]*entry{testEntry("old", models.GeoNational, "", base.Add(2*time.Minute), map[string]string{"c1": "u1"})}, base, false)
	tc.publish([]*entry{testEntry("new", models.GeoNational, "", base.Add(3*time.Minute), map[string]string{"c2": "u2"})}, base.Add(time.Minute), false)

	now := base.Add(90 * time.Second)
	if got := topicIDs(tc.Listed(now)); !equal(got, []string{"new"}) {
		t.Errorf("Listed() = %v, want [new]", got)
	}
	if _, ok := tc.Lookup("old", now); !ok {
		t.Error("topic from previous publish should stay addressable until it expires")
	}

	tc.publish(nil, base.Add(150*time.Second), false)
	if _, ok := tc.Lookup("old", base.Add(150*time.Second)); ok {
		t.Error("expired topic should be dropped at the next publish")
	}
}

func TestTopicCacheKeepsListingWhenEverythingDeferred(t *testing.T) {
	t.Parallel()

	tc := NewTopicCache(50*time.Second, 2)
	tc.publish([]*entry{testEntry("t1", models.GeoNational, "", base.Add(2*time.Minute), map[string]string{"c1": "u1"})}, base, false)
	tc.publish(nil, base.Add(time.Minute), true)

	if got := topicIDs(tc.Listed(base.Add(time.Minute))); !equal(got, []string{"t1"}) {
		t.Errorf("Listed() = %v, want previous listing kept", got)
	}
}

func TestTrendingInterleavesOneRegionalTopic(t *testing.T) {
	t.Parallel()

	window := 50 * time.Second
	tc := NewTopicCache(window, 1)
	expires := base.Add(time.Hour)
	tc.publish([]*entry{
		testEntry("n1", models.GeoNational, "", expires, map[string]string{"a": "u1"}),
		testEntry("r-wa", models.GeoRegional, "us-wa", expires, map[string]string{"b": "u2"}),
		testEntry("n2", models.GeoNational, "", expires, map[string]string{"c": "u3"}),
		testEntry("r-or", models.GeoRegional, "us-or", expires, map[string]string{"d": "u4"}),
	}, base, false)

	// Align to the start of a window so consecutive windows are predictable.
	start := time.Unix(0, (base.UnixNano()/int64(window)+1)*int64(window))

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		now := start.Add(time.Duration(i) * window)
		got := tc.Trending(now, "")
		if len(got) != 3 {
			t.Fatalf("window %d: Trending() = %v, want 2 national + 1 regional", i, topicIDs(got))
		}
		regional := 0
		for _, topic := range got {
			if topic.Regional() {
				regional++
			}
		}
		if regional != 1 {
			t.Errorf("window %d: %d regional topics, want exactly 1", i, regional)
		}
		if got[0].ID != "n1" || got[2].ID != "n2" || !got[1].Regional() {
			t.Errorf("window %d: order = %v, want regional at slot 1", i, topicIDs(got))
		}
		seen[got[1].ID] = true

		// Stable within a window.
		again := tc.Trending(now.Add(window-time.Second), "")
		if again[1].ID != got[1].ID {
			t.Errorf("window %d: regional pick changed within the window", i)
		}
	}
	if !seen["r-wa"] || !seen["r-or"] {
		t.Errorf("regional topics should rotate across windows, saw %v", seen)
	}
}

func TestTrendingPrefersCallerRegion(t *testing.T) {
	t.Parallel()

	tc := NewTopicCache(50*time.Second, 5)
	expires := base.Add(time.Hour)
	tc.publish([]*entry{
		testEntry("n1", models.GeoNational, "", expires, map[string]string{"a": "u1"}),
		testEntry("r-wa", models.GeoRegional, "us-wa", expires, map[string]string{"b": "u2"}),
		testEntry("r-or", models.GeoRegional, "us-or", expires, map[string]string{"d": "u4"}),
	}, base, false)

	for i := 0; i < 3; i++ {
		got := tc.Trending(base.Add(time.Duration(i)*50*time.Second), "us-or")
		// Slot 5 clamps to the end of a one-topic national list.
		if len(got) != 2 || got[0].ID != "n1" || got[1].ID != "r-or" {
			t.Errorf("Trending(us-or) = %v, want [n1 r-or]", topicIDs(got))
		}
	}
}

func TestForgetEvictsEmptiedTopics(t *testing.T) {
	t.Parallel()

	tc := NewTopicCache(50*time.Second, 2)
	expires := base.Add(time.Hour)
	tc.publish([]*entry{
		testEntry("t1", models.GeoNational, "", expires, map[string]string{"c1": "u1", "c2": "u2", "c3": "u2"}),
		testEntry("t2", models.GeoNational, "", expires, map[string]string{"c4": "u3"}),
	}, base, false)

	dropped := tc.forget([]string{"c1", "c4"})
	if !equal(dropped, []string{"t2"}) {
		t.Errorf("forget() dropped %v, want [t2]", dropped)
	}

	t1, ok := tc.Lookup("t1", base)
	if !ok {
		t.Fatal("t1 should survive with remaining members")
	}
	if !equal(t1.MemberIDs, []string{"c2", "c3"}) {
		t.Errorf("t1 members = %v, want [c2 c3] in original order", t1.MemberIDs)
	}
	if t1.ParticipantCount != 1 {
		t.Errorf("ParticipantCount = %d, want 1", t1.ParticipantCount)
	}
	if _, ok := tc.Lookup("t2", base); ok {
		t.Error("t2 should be evicted")
	}
	if got := topicIDs(tc.Listed(base)); !equal(got, []string{"t1"}) {
		t.Errorf("Listed() = %v, want [t1]", got)
	}
	if tc.Referenced("c1", base) {
		t.Error("forgotten content should not be referenced")
	}
	if !tc.Referenced("c2", base) {
		t.Error("c2 is still a member of t1")
	}
}

func TestReferencedIgnoresExpiredTopics(t *testing.T) {
	t.Parallel()

	tc := NewTopicCache(50*time.Second, 2)
	tc.publish([]*entry{testEntry("t1", models.GeoNational, "", base.Add(time.Minute), map[string]string{"c1": "u1"})}, base, false)
	if tc.Referenced("c1", base.Add(time.Minute)) {
		t.Error("expired topic should not pin its members")
	}
}

func TestTrendingVersionTracksOutputChanges(t *testing.T) {
	t.Parallel()

	window := 50 * time.Second
	tc := NewTopicCache(window, 2)
	at := base.Truncate(window)
	tc.publish([]*entry{
		testEntry("t1", models.GeoNational, "", at.Add(20*time.Second), map[string]string{"c1": "u1"}),
		testEntry("t2", models.GeoNational, "", at.Add(time.Hour), map[string]string{"c2": "u2", "c3": "u3"}),
	}, at, false)

	v0 := tc.TrendingVersion(at)
	if got := tc.TrendingVersion(at.Add(5 * time.Second)); got != v0 {
		t.Errorf("version moved without a change: %q -> %q", v0, got)
	}

	tc.forget([]string{"c3"})
	v1 := tc.TrendingVersion(at.Add(5 * time.Second))
	if v1 == v0 {
		t.Error("forget did not change the version")
	}
	v2 := tc.TrendingVersion(at.Add(25 * time.Second))
	if v2 == v1 {
		t.Error("expiry of a listed topic did not change the version")
	}
	if got := tc.TrendingVersion(at.Add(window + 25*time.Second)); got == v2 {
		t.Error("interleave window rotation did not change the version")
	}

	tc.publish(nil, at.Add(30*time.Second), false)
	if got := tc.TrendingVersion(at.Add(30 * time.Second)); got == v2 {
		t.Error("publish did not change the version")
	}
	if !tc.PublishedAt().Equal(at.Add(30 * time.Second)) {
		t.Errorf("PublishedAt() = %v, want last publish", tc.PublishedAt())
	}
}
