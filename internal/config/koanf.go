// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/civitas/internal/models"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/civitas/config.yaml",
	"/etc/civitas/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "0.0.0.0",
			Timeout:          30 * time.Second,
			Environment:      "development",
			TrendingCacheTTL: 5 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			UserHeader:      "X-User-ID",
			RolesHeader:     "X-User-Roles",
			DefaultRole:     "user",
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "/data/civitas.db",
		},
		Redis: RedisConfig{
			Addr:        "127.0.0.1:6379",
			DialTimeout: 5 * time.Second,
		},
		Events: EventsConfig{
			Transport:     "gochannel",
			NATSURL:       "nats://127.0.0.1:4222",
			NATSPort:      4222,
			QueueGroup:    "civitas-embedders",
			RetryCount:    3,
			RetryInterval: 200 * time.Millisecond,
			CloseTimeout:  15 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Dimensions:   256,
			MaxTextRunes: 2000,
			CacheTTL:     30 * time.Minute,
			Remote: ProviderConfig{
				Enabled: true,
				URL:     "https://api.openai.com/v1",
				Model:   "text-embedding-3-small",
				Timeout: 3 * time.Second,
			},
			Local: ProviderConfig{
				Enabled: true,
				URL:     "http://127.0.0.1:11434",
				Model:   "nomic-embed-text",
				Timeout: 10 * time.Second,
			},
			Keyword:          KeywordConfig{Enabled: true},
			BackfillInterval: 5 * time.Minute,
			BackfillBatch:    200,
		},
		Summarizer: SummarizerConfig{
			URL:             "https://api.openai.com/v1",
			Model:           "gpt-4o-mini",
			Timeout:         45 * time.Second,
			MaxPayloadRunes: 6000,
		},
		Discovery: DiscoveryConfig{
			Cadence:              3 * time.Minute,
			RunOnStartup:         true,
			Window:               6 * time.Hour,
			MaxItems:             2000,
			Threshold:            0.60,
			MinClusterSize:       3,
			MaxRepresentatives:   8,
			SummarizeTimeout:     20 * time.Second,
			SummarizeConcurrency: 4,
			TopicTTL:             2 * time.Minute,
			OnDemandCooldown:     30 * time.Second,
			PurgeInterval:        10 * time.Minute,
			Regional: RegionalConfig{
				Enabled:          true,
				MinShare:         0.8,
				InterleaveWindow: 50 * time.Second,
				Slot:             2,
			},
		},
		Ranking: RankingConfig{
			Weights:                models.DefaultScoreWeights(),
			Window:                 48 * time.Hour,
			MaxCandidates:          1000,
			RecencyHalfLife:        6 * time.Hour,
			MinProbabilityMass:     0.01,
			InterestSampleSize:     50,
			InterestTTL:            10 * time.Minute,
			InterestRefreshTimeout: 300 * time.Millisecond,
		},
		Navigation: NavigationConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			StateTTL:        30 * time.Minute,
			SeenCap:         500,
			Store:           "memory",
			BadgerPath:      "/data/navigation",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration in three layers, lowest priority first:
// struct defaults, the YAML file from CONFIG_PATH or DefaultConfigPaths, and
// mapped environment variables. The result is validated.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths accept comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",
	"trending_ttl": "server.trending_cache_ttl",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"auth_user_header":    "security.user_header",
	"auth_roles_header":   "security.roles_header",
	"default_role":        "security.default_role",
	"authz_policy_path":   "security.policy_path",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"store_driver": "store.driver",
	"store_dsn":    "store.dsn",

	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	"events_transport": "events.transport",
	"nats_url":         "events.nats_url",
	"nats_embedded":    "events.embedded_nats",
	"nats_port":        "events.nats_port",
	"nats_queue_group": "events.queue_group",

	"embedding_dimensions":     "embedding.dimensions",
	"embedding_max_text_runes": "embedding.max_text_runes",
	"embedding_remote_enabled": "embedding.remote.enabled",
	"embedding_remote_url":     "embedding.remote.url",
	"embedding_remote_model":   "embedding.remote.model",
	"embedding_remote_api_key": "embedding.remote.api_key",
	"embedding_remote_timeout": "embedding.remote.timeout",
	"embedding_local_enabled":  "embedding.local.enabled",
	"embedding_local_url":      "embedding.local.url",
	"embedding_local_model":    "embedding.local.model",
	"embedding_local_timeout":  "embedding.local.timeout",
	"embedding_keyword":        "embedding.keyword.enabled",

	"summarizer_url":     "summarizer.url",
	"summarizer_model":   "summarizer.model",
	"summarizer_api_key": "summarizer.api_key",
	"summarizer_timeout": "summarizer.timeout",

	"discovery_cadence":            "discovery.cadence",
	"discovery_window":             "discovery.window",
	"discovery_max_items":          "discovery.max_items",
	"discovery_threshold":          "discovery.threshold",
	"discovery_min_cluster_size":   "discovery.min_cluster_size",
	"discovery_topic_ttl":          "discovery.topic_ttl",
	"discovery_summarize_timeout":  "discovery.summarize_timeout",
	"discovery_on_demand_cooldown": "discovery.on_demand_cooldown",
	"discovery_shared_cooldown":    "discovery.shared_cooldown",
	"discovery_regional_enabled":   "discovery.regional.enabled",
	"discovery_regional_window":    "discovery.regional.interleave_window",

	"ranking_weight_recency":    "ranking.weights.recency",
	"ranking_weight_similarity": "ranking.weights.similarity",
	"ranking_weight_social":     "ranking.weights.social",
	"ranking_weight_trending":   "ranking.weights.trending",
	"ranking_max_candidates":    "ranking.max_candidates",
	"ranking_seed":              "ranking.seed",

	"navigation_store":       "navigation.store",
	"navigation_badger_path": "navigation.badger_path",
	"navigation_state_ttl":   "navigation.state_ttl",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
