// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

//go:build integration

package testinfra

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/wait"
)

// DefaultRedisImage backs navigation.store=redis tests.
const DefaultRedisImage = "redis:7-alpine"

// RedisContainer is a disposable Redis without persistence.
type RedisContainer struct {
	*endpoint
	// Addr is host:port for config.RedisConfig.Addr.
	Addr string
}

// NewRedisContainer starts Redis and waits for it to accept commands.
func NewRedisContainer(ctx context.Context, opts ...Option) (*RedisContainer, error) {
	ep, err := start(ctx, DefaultRedisImage, "6379",
		wait.ForLog("Ready to accept connections"),
		[]string{"redis-server", "--save", "", "--appendonly", "no"},
		opts)
	if err != nil {
		return nil, err
	}
	return &RedisContainer{endpoint: ep, Addr: ep.HostPort}, nil
}

// StartRedis starts Redis for t, skipping without Docker.
func StartRedis(t *testing.T) *RedisContainer {
	t.Helper()
	SkipIfNoDocker(t)
	c, err := NewRedisContainer(context.Background())
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	CleanupContainer(t, c)
	return c
}
