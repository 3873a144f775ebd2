// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/civitas/internal/config"
)

const cooldownKeyPrefix = "civitas:discovery:cooldown:"

// CooldownGate grants at most one acquisition per key per ttl.
type CooldownGate interface {
	Acquire(ctx context.Context, callerID string, ttl time.Duration) (bool, error)
}

// RedisGate is a CooldownGate shared by every instance pointed at the same
// redis. A key set with NX and a TTL is the whole protocol.
type RedisGate struct {
	client redis.UniversalClient
	owned  bool
}

// OpenRedisGate dials redis with cfg and pings it.
func OpenRedisGate(ctx context.Context, cfg config.RedisConfig) (*RedisGate, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Addr, err)
	}
	return &RedisGate{client: client, owned: true}, nil
}

// NewRedisGate wraps an existing client. Close leaves it open.
func NewRedisGate(client redis.UniversalClient) *RedisGate {
	return &RedisGate{client: client}
}

// Acquire implements CooldownGate.
func (g *RedisGate) Acquire(ctx context.Context, callerID string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, cooldownKeyPrefix+callerID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire cooldown for %s: %w", callerID, err)
	}
	return ok, nil
}

// Close closes the client if the gate dialed it.
func (g *RedisGate) Close() error {
	if !g.owned {
		return nil
	}
	return g.client.Close()
}
