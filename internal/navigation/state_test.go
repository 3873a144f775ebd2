// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package navigation

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

var t0 = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func TestMergeLastWriteWinsPerField(t *testing.T) {
	t.Parallel()

	stored := Record{
		Position: Position{Mode: models.ModeTopic, ActiveTopicID: "t1", UpdatedAt: t0.Add(2 * time.Second)},
		Cursor:   CursorState{TopicID: "t1", Offset: 4, UpdatedAt: t0},
	}

	// An older position loses while a newer cursor from the same patch wins.
	got := Merge(stored, Patch{
		Position: &Position{Mode: models.ModeDefault, UpdatedAt: t0.Add(time.Second)},
		Cursor:   &CursorState{TopicID: "t1", Offset: 6, UpdatedAt: t0.Add(3 * time.Second)},
	}, 0)

	if got.Position.Mode != models.ModeTopic || got.Position.ActiveTopicID != "t1" {
		t.Errorf("Position = %+v, want stored TOPIC(t1)", got.Position)
	}
	if got.Cursor.Offset != 6 {
		t.Errorf("Cursor.Offset = %d, want 6", got.Cursor.Offset)
	}
}

func TestMergeCursorNeverRewindsWithinTopic(t *testing.T) {
	t.Parallel()

	stored := Record{Cursor: CursorState{TopicID: "t1", Offset: 4, UpdatedAt: t0}}
	tests := []struct {
		name  string
		patch CursorState
		want  CursorState
	}{
		{"same topic lower offset", CursorState{TopicID: "t1", Offset: 2, UpdatedAt: t0.Add(time.Second)}, stored.Cursor},
		{"same topic higher offset", CursorState{TopicID: "t1", Offset: 6, UpdatedAt: t0.Add(time.Second)}, CursorState{TopicID: "t1", Offset: 6, UpdatedAt: t0.Add(time.Second)}},
		{"other topic resets", CursorState{TopicID: "t2", Offset: 0, UpdatedAt: t0.Add(time.Second)}, CursorState{TopicID: "t2", Offset: 0, UpdatedAt: t0.Add(time.Second)}},
		{"exit clears", CursorState{UpdatedAt: t0.Add(time.Second)}, CursorState{UpdatedAt: t0.Add(time.Second)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			patch := tt.patch
			got := Merge(stored, Patch{Cursor: &patch}, 0)
			if got.Cursor != tt.want {
				t.Errorf("Cursor = %+v, want %+v", got.Cursor, tt.want)
			}
		})
	}
}

func TestMergeDefaultClearsTopic(t *testing.T) {
	t.Parallel()

	got := Merge(Record{}, Patch{
		Position: &Position{Mode: models.ModeDefault, ActiveTopicID: "leftover", UpdatedAt: t0},
	}, 0)
	if got.Position.ActiveTopicID != "" {
		t.Errorf("ActiveTopicID = %q, want empty in DEFAULT", got.Position.ActiveTopicID)
	}
	if got.Mode() != models.ModeDefault {
		t.Errorf("Mode() = %s, want DEFAULT", got.Mode())
	}
}

func TestMergeSessions(t *testing.T) {
	t.Parallel()

	stored := Record{Session: Session{Epoch: 2, Seen: []string{"a", "b"}, UpdatedAt: t0}}

	tests := []struct {
		name      string
		patch     Session
		cap       int
		wantEpoch int64
		wantSeen  []string
	}{
		{"same epoch unions", Session{Epoch: 2, Seen: []string{"b", "c"}, UpdatedAt: t0}, 0, 2, []string{"a", "b", "c"}},
		{"newer epoch replaces", Session{Epoch: 3, Seen: []string{"z"}, UpdatedAt: t0}, 0, 3, []string{"z"}},
		{"older epoch ignored", Session{Epoch: 1, Seen: []string{"x"}, UpdatedAt: t0}, 0, 2, []string{"a", "b"}},
		{"cap keeps newest", Session{Epoch: 2, Seen: []string{"c", "d"}, UpdatedAt: t0}, 3, 2, []string{"b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			patch := tt.patch
			got := Merge(stored, Patch{Session: &patch}, tt.cap)
			if got.Session.Epoch != tt.wantEpoch {
				t.Errorf("Epoch = %d, want %d", got.Session.Epoch, tt.wantEpoch)
			}
			if !reflect.DeepEqual(got.Session.Seen, tt.wantSeen) {
				t.Errorf("Seen = %v, want %v", got.Session.Seen, tt.wantSeen)
			}
		})
	}
	if !reflect.DeepEqual(stored.Session.Seen, []string{"a", "b"}) {
		t.Errorf("Merge mutated its input: %v", stored.Session.Seen)
	}
}

func TestMergeLastRankedAtKeepsMax(t *testing.T) {
	t.Parallel()

	stored := Record{LastRankedAt: t0}
	if got := Merge(stored, Patch{LastRankedAt: t0.Add(-time.Minute)}, 0); !got.LastRankedAt.Equal(t0) {
		t.Errorf("LastRankedAt = %v, want %v", got.LastRankedAt, t0)
	}
	if got := Merge(stored, Patch{LastRankedAt: t0.Add(time.Minute)}, 0); !got.LastRankedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("LastRankedAt did not advance: %v", got.LastRankedAt)
	}
}

func TestRecordOffset(t *testing.T) {
	t.Parallel()

	r := Record{Cursor: CursorState{TopicID: "t1", Offset: 3}}
	if got := r.Offset("t1"); got != 3 {
		t.Errorf("Offset(t1) = %d, want 3", got)
	}
	if got := r.Offset("t2"); got != 0 {
		t.Errorf("Offset(t2) = %d, want 0 for a foreign cursor", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()

	c := EncodeCursor("topic-42", 4)
	topic, offset, err := DecodeCursor(c)
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if topic != "topic-42" || offset != 4 {
		t.Errorf("DecodeCursor() = %s/%d, want topic-42/4", topic, offset)
	}
}

func TestDecodeCursorRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "%%%"},
		{"not json", "bm90IGpzb24"},
		{"missing topic", EncodeCursor("", 1)},
		{"negative offset", EncodeCursor("t1", -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, _, err := DecodeCursor(tt.cursor); !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("DecodeCursor(%q) error = %v, want ErrInvalidCursor", tt.cursor, err)
			}
		})
	}
}
