// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/civitas/internal/config"
)

const (
	redisKeyPrefix     = "civitas:navstate:"
	redisMergeAttempts = 16
)

// RedisStore shares state between instances. Merges use optimistic
// WATCH/MULTI transactions.
type RedisStore struct {
	client  redis.UniversalClient
	ttl     time.Duration
	seenCap int
	owned   bool
}

// OpenRedisStore dials redis with cfg and pings it.
func OpenRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, seenCap int) (*RedisStore, error) {
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
	return &RedisStore{client: client, ttl: ttl, seenCap: seenCap, owned: true}, nil
}

// NewRedisStore wraps an existing client. Close leaves it open.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration, seenCap int) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, seenCap: seenCap}
}

// Load implements StateStore.
func (s *RedisStore) Load(ctx context.Context, userID string) (Record, bool, error) {
	return s.read(ctx, s.client, redisKey(userID))
}

// Merge implements StateStore.
func (s *RedisStore) Merge(ctx context.Context, userID string, patch Patch) (Record, error) {
	key := redisKey(userID)
	var merged Record

	txf := func(tx *redis.Tx) error {
		current, _, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		merged = Merge(current, patch, s.seenCap)
		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMergeAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Record{}, fmt.Errorf("merge state for %s: %w", userID, err)
		}
		return merged, nil
	}
	return Record{}, fmt.Errorf("merge state for %s: %w", userID, redis.TxFailedErr)
}

// Close closes the client when the store dialed it.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) read(ctx context.Context, c redis.Cmdable, key string) (Record, bool, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get state: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode state: %w", err)
	}
	return rec, true, nil
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}
