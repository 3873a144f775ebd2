// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/models"
)

// Store backend names accepted by navigation.store.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreRedis  = "redis"
)

// OpenStore builds the configured StateStore.
func OpenStore(ctx context.Context, cfg config.NavigationConfig, rc config.RedisConfig) (StateStore, error) {
	switch cfg.Store {
	case "", StoreMemory:
		return NewMemoryStore(cfg.StateTTL, cfg.SeenCap, sweepInterval(cfg.StateTTL)), nil
	case StoreBadger:
		return OpenBadgerStore(cfg.BadgerPath, cfg.StateTTL, cfg.SeenCap)
	case StoreRedis:
		return OpenRedisStore(ctx, rc, cfg.StateTTL, cfg.SeenCap)
	default:
		return nil, fmt.Errorf("%w: unknown navigation store %q", models.ErrConfiguration, cfg.Store)
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if d := ttl / 4; d > time.Minute {
		return d
	}
	return time.Minute
}
