// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Discovery.Threshold != 0.60 {
		t.Errorf("Discovery.Threshold = %v, want 0.60", cfg.Discovery.Threshold)
	}
	if cfg.Discovery.MinClusterSize != 3 {
		t.Errorf("Discovery.MinClusterSize = %d, want 3", cfg.Discovery.MinClusterSize)
	}
	if cfg.Discovery.TopicTTL != 2*time.Minute {
		t.Errorf("Discovery.TopicTTL = %v, want 2m", cfg.Discovery.TopicTTL)
	}
	w := cfg.Ranking.Weights
	if w.Recency != 0.35 || w.Similarity != 0.25 || w.Social != 0.25 || w.Trending != 0.15 {
		t.Errorf("Ranking.Weights = %+v, want 0.35/0.25/0.25/0.15", w)
	}
	if cfg.Navigation.Store != "memory" {
		t.Errorf("Navigation.Store = %q, want memory", cfg.Navigation.Store)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DISCOVERY_THRESHOLD", "0.72")
	t.Setenv("DISCOVERY_MIN_CLUSTER_SIZE", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NAVIGATION_STORE", "badger")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Discovery.Threshold != 0.72 {
		t.Errorf("Discovery.Threshold = %v, want 0.72", cfg.Discovery.Threshold)
	}
	if cfg.Discovery.MinClusterSize != 5 {
		t.Errorf("Discovery.MinClusterSize = %d, want 5", cfg.Discovery.MinClusterSize)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Security.CORSOrigins = %v, want two trimmed origins", cfg.Security.CORSOrigins)
	}
	if cfg.Navigation.Store != "badger" {
		t.Errorf("Navigation.Store = %q, want badger", cfg.Navigation.Store)
	}
}

func TestLoadWithKoanf_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
security:
  auth_mode: header
discovery:
  cadence: 90s
  window: 2h
  regional:
    interleave_window: 45s
ranking:
  weights:
    recency: 0.5
    similarity: 0.5
    social: 0
    trending: 0
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Discovery.Cadence != 90*time.Second {
		t.Errorf("Discovery.Cadence = %v, want 90s", cfg.Discovery.Cadence)
	}
	if cfg.Discovery.Window != 2*time.Hour {
		t.Errorf("Discovery.Window = %v, want 2h", cfg.Discovery.Window)
	}
	if cfg.Ranking.Weights.Recency != 0.5 || cfg.Ranking.Weights.Social != 0 {
		t.Errorf("Ranking.Weights = %+v", cfg.Ranking.Weights)
	}
	// Untouched sections keep their defaults.
	if cfg.Discovery.MinClusterSize != 3 {
		t.Errorf("Discovery.MinClusterSize = %d, want 3", cfg.Discovery.MinClusterSize)
	}
}

func TestLoadWithKoanf_RejectsBadWeights(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("RANKING_WEIGHT_RECENCY", "0.4")
	t.Setenv("RANKING_WEIGHT_SIMILARITY", "0.4")
	t.Setenv("RANKING_WEIGHT_SOCIAL", "0.4")
	t.Setenv("RANKING_WEIGHT_TRENDING", "0")

	if _, err := LoadWithKoanf(); err == nil {
		t.Fatal("LoadWithKoanf() accepted weights summing to 1.2")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":            "server.port",
		"EMBEDDING_REMOTE_URL": "embedding.remote.url",
		"discovery_threshold":  "discovery.threshold",
		"PATH":                 "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
