// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

//go:build integration

package navigation

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/testinfra"
)

func TestRedisStoreContract(t *testing.T) {
	redis := testinfra.StartRedis(t)

	st, err := OpenRedisStore(context.Background(), config.RedisConfig{Addr: redis.Addr, DialTimeout: 5 * time.Second}, time.Hour, 50)
	if err != nil {
		t.Fatalf("OpenRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	storeContract(t, st)
}

func TestOpenStoreSelectsRedis(t *testing.T) {
	redis := testinfra.StartRedis(t)

	cfg := config.NavigationConfig{Store: "redis", StateTTL: time.Hour, SeenCap: 10, DefaultPageSize: 20, MaxPageSize: 50}
	st, err := OpenStore(context.Background(), cfg, config.RedisConfig{Addr: redis.Addr})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if _, ok := st.(*RedisStore); !ok {
		t.Fatalf("OpenStore() = %T, want *RedisStore", st)
	}
}
