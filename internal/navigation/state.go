// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package navigation

import (
	"context"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

// Position is where the user is. Mode and topic always change together so
// the "topic set iff TOPIC" invariant survives a per-field merge.
type Position struct {
	Mode          models.FeedMode `json:"mode"`
	ActiveTopicID string          `json:"active_topic_id,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CursorState is the offset into a topic's member list. It only applies when
// TopicID matches the active topic.
type CursorState struct {
	TopicID   string    `json:"topic_id,omitempty"`
	Offset    int       `json:"offset"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session holds the IDs already served in DEFAULT mode. Enter and exit bump
// Epoch, which discards the history.
type Session struct {
	Epoch     int64     `json:"epoch"`
	Seen      []string  `json:"seen,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record is the persisted form of one user's state.
type Record struct {
	Position     Position    `json:"position"`
	Cursor       CursorState `json:"cursor"`
	Session      Session     `json:"session"`
	LastRankedAt time.Time   `json:"last_ranked_at,omitempty"`
}

// Patch carries the fields one transition writes. Nil fields are left alone.
type Patch struct {
	Position     *Position
	Cursor       *CursorState
	Session      *Session
	LastRankedAt time.Time
}

// StateStore persists Records with an idle TTL. Every backend applies the
// same per-field last-write-wins Merge.
type StateStore interface {
	// Load returns the record and whether one exists.
	Load(ctx context.Context, userID string) (Record, bool, error)
	// Merge folds patch into the stored record, refreshes its TTL and
	// returns the result.
	Merge(ctx context.Context, userID string, patch Patch) (Record, error)
	Close() error
}

// Mode returns the record's mode, DEFAULT for an empty record.
func (r Record) Mode() models.FeedMode {
	if r.Position.Mode == models.ModeTopic && r.Position.ActiveTopicID != "" {
		return models.ModeTopic
	}
	return models.ModeDefault
}

// Offset is the cursor offset for topicID, 0 when the cursor belongs to a
// different topic.
func (r Record) Offset(topicID string) int {
	if r.Cursor.TopicID != topicID || r.Cursor.Offset < 0 {
		return 0
	}
	return r.Cursor.Offset
}

// SeenSet returns the session history as a set.
func (r Record) SeenSet() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Session.Seen))
	for _, id := range r.Session.Seen {
		out[id] = struct{}{}
	}
	return out
}

// Merge applies patch to r field by field. A field is replaced when the
// patch's UpdatedAt is not older than the stored one; a cursor never moves
// backwards within one topic. Sessions with a higher
// epoch win; equal epochs union their Seen lists, keeping the newest seenCap
// entries. LastRankedAt keeps the maximum.
//
//nolint:gocritic // hugeParam: records are small value types
func Merge(r Record, patch Patch, seenCap int) Record {
	if p := patch.Position; p != nil && !p.UpdatedAt.Before(r.Position.UpdatedAt) {
		r.Position = *p
		if r.Position.Mode != models.ModeTopic {
			r.Position.Mode = models.ModeDefault
			r.Position.ActiveTopicID = ""
		}
	}
	if c := patch.Cursor; c != nil && !c.UpdatedAt.Before(r.Cursor.UpdatedAt) && !rewinds(r.Cursor, *c) {
		r.Cursor = *c
	}
	if s := patch.Session; s != nil {
		switch {
		case s.Epoch > r.Session.Epoch:
			r.Session = Session{Epoch: s.Epoch, Seen: capSeen(copyStrings(s.Seen), seenCap), UpdatedAt: s.UpdatedAt}
		case s.Epoch == r.Session.Epoch:
			r.Session.Seen = capSeen(unionSeen(r.Session.Seen, s.Seen), seenCap)
			if s.UpdatedAt.After(r.Session.UpdatedAt) {
				r.Session.UpdatedAt = s.UpdatedAt
			}
		}
	}
	if patch.LastRankedAt.After(r.LastRankedAt) {
		r.LastRankedAt = patch.LastRankedAt
	}
	return r
}

// rewinds reports whether next would move the cursor backwards within the
// same topic. Entering a topic always follows an exit or a topic switch,
// both of which change TopicID, so a same-topic reset never happens.
func rewinds(stored, next CursorState) bool {
	return stored.TopicID != "" && stored.TopicID == next.TopicID && next.Offset < stored.Offset
}

func unionSeen(existing, added []string) []string {
	out := copyStrings(existing)
	have := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		have[id] = struct{}{}
	}
	for _, id := range added {
		if _, ok := have[id]; !ok {
			have[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func capSeen(seen []string, limit int) []string {
	if limit > 0 && len(seen) > limit {
		return seen[len(seen)-limit:]
	}
	return seen
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
