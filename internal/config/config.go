// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package config loads Civitas configuration from defaults, an optional YAML
// file and environment variables (see LoadWithKoanf).
package config

import (
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	Store      StoreConfig      `koanf:"store"`
	Redis      RedisConfig      `koanf:"redis"`
	Events     EventsConfig     `koanf:"events"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Summarizer SummarizerConfig `koanf:"summarizer"`
	Discovery  DiscoveryConfig  `koanf:"discovery"`
	Ranking    RankingConfig    `koanf:"ranking"`
	Navigation NavigationConfig `koanf:"navigation"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`

	// Timeout bounds read and write of a single request.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// Environment is development or production. Production refuses
	// auth_mode=none.
	// Default: development
	Environment string `koanf:"environment"`

	// TrendingCacheTTL bounds how long a rendered trending list is reused.
	// Default: 5s
	TrendingCacheTTL time.Duration `koanf:"trending_cache_ttl"`
}

// SecurityConfig holds identity, CORS and rate limiting settings.
type SecurityConfig struct {
	// AuthMode is none, header or jwt.
	// Default: jwt
	AuthMode string `koanf:"auth_mode"`

	// JWTSecret signs HS256 bearer tokens. Required when AuthMode is jwt.
	JWTSecret string `koanf:"jwt_secret"`

	// JWTIssuer, when set, must match the iss claim.
	JWTIssuer string `koanf:"jwt_issuer"`

	// UserHeader and RolesHeader are read when AuthMode is header.
	UserHeader  string `koanf:"user_header"`
	RolesHeader string `koanf:"roles_header"`

	// PolicyPath points at a casbin CSV policy replacing the embedded one.
	PolicyPath string `koanf:"policy_path"`

	// DefaultRole applies to authenticated callers with no roles.
	// Default: user
	DefaultRole string `koanf:"default_role"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig selects the content store backend.
type StoreConfig struct {
	// Driver is memory, sqlite or duckdb.
	// Default: sqlite
	Driver string `koanf:"driver"`

	// DSN is the database path or connection string.
	// Default: /data/civitas.db
	DSN string `koanf:"dsn"`
}

// RedisConfig is used when navigation.store is redis.
type RedisConfig struct {
	Addr        string        `koanf:"addr"`
	Password    string        `koanf:"password"`
	DB          int           `koanf:"db"`
	DialTimeout time.Duration `koanf:"dial_timeout"`
}

// EventsConfig selects the message bus transport.
type EventsConfig struct {
	// Transport is gochannel (single process) or nats.
	// Default: gochannel
	Transport string `koanf:"transport"`

	NATSURL string `koanf:"nats_url"`

	// EmbeddedNATS starts an in-process NATS server on NATSPort.
	EmbeddedNATS bool `koanf:"embedded_nats"`
	NATSPort     int  `koanf:"nats_port"`

	// QueueGroup load-balances embedding workers across processes.
	// Default: civitas-embedders
	QueueGroup string `koanf:"queue_group"`

	RetryCount    int           `koanf:"retry_count"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	CloseTimeout  time.Duration `koanf:"close_timeout"`
}

// EmbeddingConfig configures the tiered embedding resolver.
type EmbeddingConfig struct {
	// Dimensions is the vector length every tier must produce.
	// Default: 256
	Dimensions int `koanf:"dimensions"`

	// MaxTextRunes truncates input text before embedding.
	// Default: 2000
	MaxTextRunes int `koanf:"max_text_runes"`

	CacheTTL time.Duration `koanf:"cache_ttl"`

	Remote  ProviderConfig `koanf:"remote"`
	Local   ProviderConfig `koanf:"local"`
	Keyword KeywordConfig  `koanf:"keyword"`

	// BackfillInterval re-enqueues items still missing a vector.
	// Default: 5m
	BackfillInterval time.Duration `koanf:"backfill_interval"`
	BackfillBatch    int           `koanf:"backfill_batch"`
}

// ProviderConfig is one network embedding tier.
type ProviderConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	Model   string        `koanf:"model"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// KeywordConfig controls the bag-of-words tier.
type KeywordConfig struct {
	Enabled bool `koanf:"enabled"`
}

// SummarizerConfig configures the language-model client.
type SummarizerConfig struct {
	URL    string `koanf:"url"`
	Model  string `koanf:"model"`
	APIKey string `koanf:"api_key"`

	// Timeout bounds a detached summarization call, including calls that
	// outlive the clustering tick that started them.
	// Default: 45s
	Timeout time.Duration `koanf:"timeout"`

	// MaxPayloadRunes caps the representative text sent per cluster.
	// Default: 6000
	MaxPayloadRunes int `koanf:"max_payload_runes"`
}

// DiscoveryConfig configures the clustering engine.
type DiscoveryConfig struct {
	Cadence      time.Duration `koanf:"cadence"`
	RunOnStartup bool          `koanf:"run_on_startup"`
	Window       time.Duration `koanf:"window"`
	MaxItems     int           `koanf:"max_items"`

	// Threshold is tuned for the configured embedding model. Re-validate it
	// when embedding.remote.model or embedding.dimensions changes.
	// Default: 0.60
	Threshold float64 `koanf:"threshold"`

	MinClusterSize       int           `koanf:"min_cluster_size"`
	MaxRepresentatives   int           `koanf:"max_representatives"`
	SummarizeTimeout     time.Duration `koanf:"summarize_timeout"`
	SummarizeConcurrency int           `koanf:"summarize_concurrency"`
	TopicTTL             time.Duration `koanf:"topic_ttl"`
	OnDemandCooldown     time.Duration `koanf:"on_demand_cooldown"`

	// SharedCooldown enforces on_demand_cooldown across instances through
	// redis. Requires redis.addr.
	SharedCooldown bool `koanf:"shared_cooldown"`

	PurgeInterval        time.Duration `koanf:"purge_interval"`

	Regional RegionalConfig `koanf:"regional"`
}

// RegionalConfig controls geo layering of the trending list.
type RegionalConfig struct {
	Enabled          bool          `koanf:"enabled"`
	MinShare         float64       `koanf:"min_share"`
	InterleaveWindow time.Duration `koanf:"interleave_window"`
	Slot             int           `koanf:"slot"`
}

// RankingConfig configures the feed ranking engine.
type RankingConfig struct {
	Weights models.ScoreWeights `koanf:"weights"`

	Window                 time.Duration `koanf:"window"`
	MaxCandidates          int           `koanf:"max_candidates"`
	RecencyHalfLife        time.Duration `koanf:"recency_half_life"`
	MinProbabilityMass     float64       `koanf:"min_probability_mass"`
	InterestSampleSize     int           `koanf:"interest_sample_size"`
	InterestTTL            time.Duration `koanf:"interest_ttl"`
	InterestRefreshTimeout time.Duration `koanf:"interest_refresh_timeout"`

	// Seed, when non-zero, makes the engine RNG deterministic.
	Seed int64 `koanf:"seed"`
}

// NavigationConfig configures the per-user state machine.
type NavigationConfig struct {
	DefaultPageSize int           `koanf:"default_page_size"`
	MaxPageSize     int           `koanf:"max_page_size"`
	StateTTL        time.Duration `koanf:"state_ttl"`
	SeenCap         int           `koanf:"seen_cap"`

	// Store is memory, badger or redis.
	// Default: memory
	Store      string `koanf:"store"`
	BadgerPath string `koanf:"badger_path"`
}

// SupervisorConfig mirrors supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}
