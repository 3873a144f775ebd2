// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

type fakeGate struct {
	mu    sync.Mutex
	held  map[string]bool
	err   error
	calls int
	ttl   time.Duration
}

func (g *fakeGate) Acquire(_ context.Context, callerID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.ttl = ttl
	if g.err != nil {
		return false, g.err
	}
	if g.held == nil {
		g.held = map[string]bool{}
	}
	if g.held[callerID] {
		return false, nil
	}
	g.held[callerID] = true
	return true, nil
}

func TestTriggerUsesSharedGate(t *testing.T) {
	t.Parallel()

	clock := &testClock{now: base}
	opts := testOptions(clock)
	gate := &fakeGate{}
	opts.Gate = gate
	e := newTestEngine(t, opts, &fakeSource{items: threeAlike()}, &fakeSummarizer{})
	ctx := context.Background()

	if _, err := e.Trigger(ctx, "mod-1"); err != nil {
		t.Fatalf("first Trigger() error = %v", err)
	}
	// Another instance holding the key looks the same as a second call here.
	if _, err := e.Trigger(ctx, "mod-1"); !errors.Is(err, models.ErrRateLimited) {
		t.Errorf("second Trigger() error = %v, want ErrRateLimited", err)
	}
	if gate.calls != 2 {
		t.Errorf("gate calls = %d, want 2", gate.calls)
	}
	if gate.ttl != 30*time.Second {
		t.Errorf("gate ttl = %s, want 30s", gate.ttl)
	}
}

func TestTriggerFallsBackToLocalLimiterWhenGateFails(t *testing.T) {
	t.Parallel()

	clock := &testClock{now: base}
	opts := testOptions(clock)
	opts.Gate = &fakeGate{err: errors.New("connection refused")}
	e := newTestEngine(t, opts, &fakeSource{items: threeAlike()}, &fakeSummarizer{})
	ctx := context.Background()

	if _, err := e.Trigger(ctx, "mod-1"); err != nil {
		t.Fatalf("first Trigger() error = %v", err)
	}
	if _, err := e.Trigger(ctx, "mod-1"); !errors.Is(err, models.ErrRateLimited) {
		t.Errorf("second Trigger() error = %v, want ErrRateLimited from local limiter", err)
	}
}
