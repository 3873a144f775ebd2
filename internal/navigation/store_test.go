// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package navigation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/civitas/internal/models"
)

func newBadgerTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db, time.Hour, 50)
}

// storeContract runs the behavior every backend shares.
func storeContract(t *testing.T, st StateStore) {
	t.Helper()
	ctx := context.Background()

	if _, found, err := st.Load(ctx, "nobody"); err != nil || found {
		t.Fatalf("Load(nobody) = found %v, err %v; want not found", found, err)
	}

	rec, err := st.Merge(ctx, "u1", Patch{
		Position: &Position{Mode: models.ModeTopic, ActiveTopicID: "t1", UpdatedAt: t0},
		Cursor:   &CursorState{TopicID: "t1", UpdatedAt: t0},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if rec.Mode() != models.ModeTopic {
		t.Fatalf("Merge() mode = %s, want TOPIC", rec.Mode())
	}

	if _, err := st.Merge(ctx, "u1", Patch{Cursor: &CursorState{TopicID: "t1", Offset: 2, UpdatedAt: t0.Add(time.Second)}}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	got, found, err := st.Load(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("Load(u1) found=%v err=%v", found, err)
	}
	if got.Position.ActiveTopicID != "t1" || got.Offset("t1") != 2 {
		t.Errorf("Load(u1) = %+v, want TOPIC(t1) at offset 2", got)
	}
}

// concurrentSeen checks that same-epoch Seen writes from many goroutines
// all land.
func concurrentSeen(t *testing.T, st StateStore) {
	t.Helper()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := st.Merge(ctx, "busy", Patch{Session: &Session{Seen: []string{fmt.Sprintf("c%d", i)}, UpdatedAt: t0}})
			if err != nil {
				t.Errorf("Merge() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	rec, _, err := st.Load(ctx, "busy")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rec.Session.Seen) != 8 {
		t.Errorf("Seen has %d entries, want 8: %v", len(rec.Session.Seen), rec.Session.Seen)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore(time.Hour, 50, 0)
	t.Cleanup(func() { _ = st.Close() })
	storeContract(t, st)
	concurrentSeen(t, st)
}

func TestMemoryStoreExpiresIdleEntries(t *testing.T) {
	t.Parallel()

	clock := t0
	st := NewMemoryStore(time.Minute, 50, 0)
	st.now = func() time.Time { return clock }
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	if _, err := st.Merge(ctx, "u1", Patch{LastRankedAt: t0}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	clock = clock.Add(2 * time.Minute)
	if _, found, _ := st.Load(ctx, "u1"); found {
		t.Error("expired entry still loads")
	}
	if removed := st.Sweep(); removed != 1 || st.Len() != 0 {
		t.Errorf("Sweep() removed %d, Len() = %d; want 1 and 0", removed, st.Len())
	}
}

func TestBadgerStore(t *testing.T) {
	t.Parallel()

	st := newBadgerTestStore(t)
	storeContract(t, st)
	concurrentSeen(t, st)
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := testNavConfig()
	cfg.Store = "etcd"
	if _, err := OpenStore(context.Background(), cfg, testRedisConfig()); err == nil {
		t.Error("OpenStore() should reject an unknown backend")
	}
}
