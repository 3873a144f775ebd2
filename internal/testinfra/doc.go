// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package testinfra starts throwaway backends for integration tests with
// testcontainers-go.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/navigation/... ./internal/events/...
//
// Tests are skipped when Docker is unavailable.
//
//	func TestRedisStore(t *testing.T) {
//	    redis := testinfra.StartRedis(t)
//	    st, err := navigation.OpenRedisStore(ctx, config.RedisConfig{Addr: redis.Addr}, time.Hour, 50)
//	    ...
//	}
package testinfra
