// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package config

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secret", func(*Config) {}, false},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }, true},
		{"auth none in production", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Server.Environment = "production"
		}, true},
		{"auth none in development", func(c *Config) { c.Security.AuthMode = "none" }, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"unknown store driver", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"nats without url", func(c *Config) {
			c.Events.Transport = "nats"
			c.Events.NATSURL = ""
		}, true},
		{"embedded nats", func(c *Config) {
			c.Events.Transport = "nats"
			c.Events.NATSURL = ""
			c.Events.EmbeddedNATS = true
		}, false},
		{"no embedding tiers", func(c *Config) {
			c.Embedding.Remote.Enabled = false
			c.Embedding.Local.Enabled = false
			c.Embedding.Keyword.Enabled = false
		}, true},
		{"keyword only", func(c *Config) {
			c.Embedding.Remote.Enabled = false
			c.Embedding.Local.Enabled = false
		}, false},
		{"threshold above one", func(c *Config) { c.Discovery.Threshold = 1.5 }, true},
		{"zero min cluster", func(c *Config) { c.Discovery.MinClusterSize = 0 }, true},
		{"summarize timeout beyond cadence", func(c *Config) { c.Discovery.SummarizeTimeout = time.Hour }, true},
		{"interleave window too short", func(c *Config) { c.Discovery.Regional.InterleaveWindow = 10 * time.Second }, true},
		{"interleave ignored when regional off", func(c *Config) {
			c.Discovery.Regional.Enabled = false
			c.Discovery.Regional.InterleaveWindow = 0
		}, false},
		{"weights sum to 1.2", func(c *Config) {
			c.Ranking.Weights = models.ScoreWeights{Recency: 0.4, Similarity: 0.4, Social: 0.4}
		}, true},
		{"page sizes inverted", func(c *Config) { c.Navigation.MaxPageSize = 5 }, true},
		{"shared cooldown without redis", func(c *Config) {
			c.Discovery.SharedCooldown = true
			c.Redis.Addr = ""
		}, true},
		{"shared cooldown with redis", func(c *Config) {
			c.Discovery.SharedCooldown = true
			c.Redis.Addr = "localhost:6379"
		}, false},
		{"badger without path", func(c *Config) {
			c.Navigation.Store = "badger"
			c.Navigation.BadgerPath = ""
		}, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("Validate() error = %v, want ErrConfiguration", err)
			}
		})
	}
}
