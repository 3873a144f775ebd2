// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

//go:build integration

package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/testinfra"
)

func TestRedisGateSharedAcrossInstances(t *testing.T) {
	redis := testinfra.StartRedis(t)
	ctx := context.Background()
	cfg := config.RedisConfig{Addr: redis.Addr, DialTimeout: 5 * time.Second}

	a, err := OpenRedisGate(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenRedisGate() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	b, err := OpenRedisGate(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenRedisGate() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	if ok, err := a.Acquire(ctx, "mod-1", time.Second); err != nil || !ok {
		t.Fatalf("a.Acquire() = %v, %v, want true", ok, err)
	}
	if ok, err := b.Acquire(ctx, "mod-1", time.Second); err != nil || ok {
		t.Fatalf("b.Acquire() = %v, %v, want false while a holds the cooldown", ok, err)
	}
	if ok, err := b.Acquire(ctx, "mod-2", time.Second); err != nil || !ok {
		t.Fatalf("b.Acquire(mod-2) = %v, %v, want true", ok, err)
	}

	time.Sleep(1500 * time.Millisecond)
	if ok, err := b.Acquire(ctx, "mod-1", time.Second); err != nil || !ok {
		t.Fatalf("b.Acquire() after expiry = %v, %v, want true", ok, err)
	}
}
