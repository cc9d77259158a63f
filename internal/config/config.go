// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package config loads and validates Trailmark configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for every optional setting
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//	db, err := database.New(&cfg.Database)
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Cache    CacheConfig    `koanf:"cache"`
	Events   EventsConfig   `koanf:"events"`
	Flags    FlagsConfig    `koanf:"flags"`
	Insights InsightsConfig `koanf:"insights"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use NumCPU
	// SkipMigrations opens the database without applying pending migrations.
	// The operator CLI uses it to inspect and roll back schema state.
	SkipMigrations bool `koanf:"skip_migrations"`
}

// SecurityConfig holds authentication, CORS and rate limit settings
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // jwt or none
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// LoginAttemptsPerMinute bounds password attempts per client IP.
	LoginAttemptsPerMinute int `koanf:"login_attempts_per_minute"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig holds query result cache settings
type CacheConfig struct {
	TTL             time.Duration `koanf:"ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// EventsConfig holds the user activity bus settings.
type EventsConfig struct {
	// Transport selects the bus: "memory" (in-process) or "nats".
	Transport     string        `koanf:"transport"`
	Topic         string        `koanf:"topic"`
	NATSURL       string        `koanf:"nats_url"`
	NATSEmbedded  bool          `koanf:"nats_embedded"`
	NATSStoreDir  string        `koanf:"nats_store_dir"`
	NATSPort      int           `koanf:"nats_port"`
	BufferSize    int64         `koanf:"buffer_size"`
	CloseTimeout  time.Duration `koanf:"close_timeout"`
	QueueGroup    string        `koanf:"queue_group"`
	SubscriberNum int           `koanf:"subscribers"`

	// Consumer retry policy. A message that still fails after MaxRetries
	// is moved to PoisonTopic, or dropped when PoisonTopic is empty.
	RetryMaxRetries      int           `koanf:"retry_max_retries"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	RetryMultiplier      float64       `koanf:"retry_multiplier"`
	PoisonTopic          string        `koanf:"poison_topic"`
}

// FlagsConfig holds feature flag gate settings.
type FlagsConfig struct {
	// Cloud enables flag-driven gates. Self-hosted installs evaluate
	// gates to false unless an override is set.
	Cloud bool `koanf:"cloud"`

	// HogQLInsightsOverride forces the insights gate. Empty means unset.
	HogQLInsightsOverride string `koanf:"hogql_insights_override"`

	File         string        `koanf:"file"`
	RemoteURL    string        `koanf:"remote_url"`
	RemoteToken  string        `koanf:"remote_token"`
	PollInterval time.Duration `koanf:"poll_interval"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	CacheDir     string        `koanf:"cache_dir"`
}

// InsightsOverride parses HogQLInsightsOverride. The second return value
// is false when no override is configured.
func (f FlagsConfig) InsightsOverride() (value, ok bool) {
	switch f.HogQLInsightsOverride {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// InsightsConfig holds insight conversion settings
type InsightsConfig struct {
	BackfillChunkSize int `koanf:"backfill_chunk_size"`
}

// IsProduction returns true when running with ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, an optional config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
