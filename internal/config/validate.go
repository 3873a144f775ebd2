// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/civitas/internal/logging"
	"github.com/tomtom215/civitas/internal/models"
)

// Validate checks every section. Errors wrap models.ErrConfiguration.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
		c.validateStore,
		c.validateEvents,
		c.validateEmbedding,
		c.validateSummarizer,
		c.validateDiscovery,
		c.validateRanking,
		c.validateNavigation,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			if errors.Is(err, models.ErrConfiguration) {
				return err
			}
			return fmt.Errorf("%w: %w", models.ErrConfiguration, err)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Server.TrendingCacheTTL < 0 {
		return fmt.Errorf("server.trending_cache_ttl must not be negative")
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters when AUTH_MODE=jwt")
		}
	case "header":
		if c.Security.UserHeader == "" {
			return fmt.Errorf("security.user_header is required when AUTH_MODE=header")
		}
	case "none":
		if c.Server.Environment == "production" {
			return fmt.Errorf("AUTH_MODE=none is not allowed in production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be none, header or jwt, got %q", c.Security.AuthMode)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("security.rate_limit_reqs must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("security.rate_limit_window must be positive")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	}
	return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "memory":
		return nil
	case "sqlite", "duckdb":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
		}
		return nil
	}
	return fmt.Errorf("store.driver must be memory, sqlite or duckdb, got %q", c.Store.Driver)
}

func (c *Config) validateEvents() error {
	switch c.Events.Transport {
	case "gochannel":
	case "nats":
		if c.Events.NATSURL == "" && !c.Events.EmbeddedNATS {
			return fmt.Errorf("events.nats_url is required unless events.embedded_nats is set")
		}
	default:
		return fmt.Errorf("events.transport must be gochannel or nats, got %q", c.Events.Transport)
	}
	if c.Events.RetryCount < 0 {
		return fmt.Errorf("events.retry_count must be >= 0")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	e := c.Embedding
	if e.Dimensions < 8 || e.Dimensions > 4096 {
		return fmt.Errorf("embedding.dimensions must be between 8 and 4096, got %d", e.Dimensions)
	}
	if e.MaxTextRunes <= 0 {
		return fmt.Errorf("embedding.max_text_runes must be positive")
	}
	if !e.Remote.Enabled && !e.Local.Enabled && !e.Keyword.Enabled {
		return fmt.Errorf("at least one embedding tier must be enabled")
	}
	for name, p := range map[string]ProviderConfig{"remote": e.Remote, "local": e.Local} {
		if !p.Enabled {
			continue
		}
		if p.URL == "" || p.Model == "" {
			return fmt.Errorf("embedding.%s requires url and model", name)
		}
		if p.Timeout <= 0 {
			return fmt.Errorf("embedding.%s.timeout must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateSummarizer() error {
	if c.Summarizer.URL == "" || c.Summarizer.Model == "" {
		return fmt.Errorf("summarizer.url and summarizer.model are required")
	}
	if c.Summarizer.Timeout <= 0 {
		return fmt.Errorf("summarizer.timeout must be positive")
	}
	if c.Summarizer.MaxPayloadRunes <= 0 {
		return fmt.Errorf("summarizer.max_payload_runes must be positive")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	d := c.Discovery
	if d.Cadence <= 0 {
		return fmt.Errorf("discovery.cadence must be positive")
	}
	if d.Window <= 0 || d.MaxItems <= 0 {
		return fmt.Errorf("discovery.window and discovery.max_items must be positive")
	}
	if d.Threshold <= -1 || d.Threshold > 1 {
		return fmt.Errorf("discovery.threshold must be in (-1, 1], got %g", d.Threshold)
	}
	if d.MinClusterSize < 1 {
		return fmt.Errorf("discovery.min_cluster_size must be >= 1, got %d", d.MinClusterSize)
	}
	if d.MaxRepresentatives < 1 {
		return fmt.Errorf("discovery.max_representatives must be >= 1")
	}
	if d.SummarizeTimeout <= 0 || d.SummarizeTimeout > d.Cadence {
		return fmt.Errorf("discovery.summarize_timeout must be positive and no longer than discovery.cadence")
	}
	if d.TopicTTL <= 0 {
		return fmt.Errorf("discovery.topic_ttl must be positive")
	}
	if d.SharedCooldown && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when discovery.shared_cooldown=true")
	}
	if d.Regional.Enabled {
		w := d.Regional.InterleaveWindow
		if w < 45*time.Second || w > 60*time.Second {
			return fmt.Errorf("discovery.regional.interleave_window must be between 45s and 60s, got %s", w)
		}
		if d.Regional.MinShare <= 0 || d.Regional.MinShare > 1 {
			return fmt.Errorf("discovery.regional.min_share must be in (0, 1]")
		}
	}
	return nil
}

func (c *Config) validateRanking() error {
	r := c.Ranking
	if err := r.Weights.Validate(); err != nil {
		return fmt.Errorf("ranking.weights: %w", err)
	}
	if r.Window <= 0 || r.MaxCandidates <= 0 {
		return fmt.Errorf("ranking.window and ranking.max_candidates must be positive")
	}
	if r.RecencyHalfLife <= 0 {
		return fmt.Errorf("ranking.recency_half_life must be positive")
	}
	if r.MinProbabilityMass <= 0 || r.MinProbabilityMass >= 1 {
		return fmt.Errorf("ranking.min_probability_mass must be in (0, 1)")
	}
	if r.InterestRefreshTimeout <= 0 {
		return fmt.Errorf("ranking.interest_refresh_timeout must be positive")
	}
	return nil
}

func (c *Config) validateNavigation() error {
	n := c.Navigation
	if n.DefaultPageSize < 1 || n.MaxPageSize < n.DefaultPageSize {
		return fmt.Errorf("navigation.max_page_size must be >= navigation.default_page_size >= 1, got %d < %d",
			n.MaxPageSize, n.DefaultPageSize)
	}
	if n.StateTTL <= 0 {
		return fmt.Errorf("navigation.state_ttl must be positive")
	}
	switch n.Store {
	case "memory", "redis":
	case "badger":
		if n.BadgerPath == "" {
			return fmt.Errorf("navigation.badger_path is required when navigation.store=badger")
		}
	default:
		return fmt.Errorf("navigation.store must be memory, badger or redis, got %q", n.Store)
	}
	if n.Store == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when navigation.store=redis")
	}
	return nil
}
