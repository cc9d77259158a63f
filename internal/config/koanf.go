// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

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
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trailmark/config.yaml",
	"/etc/trailmark/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/trailmark.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			AuthMode:               "jwt",
			JWTSecret:              "",
			SessionTimeout:         24 * time.Hour,
			RateLimitReqs:          100,
			RateLimitWindow:        time.Minute,
			RateLimitDisabled:      false,
			CORSOrigins:            []string{"*"},
			LoginAttemptsPerMinute: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Cache: CacheConfig{
			TTL:             30 * time.Second,
			CleanupInterval: time.Minute,
		},
		Events: EventsConfig{
			Transport:     "memory",
			Topic:         "activity.user_actions",
			NATSURL:       "nats://127.0.0.1:4222",
			NATSEmbedded:  false,
			NATSStoreDir:  "/data/nats",
			NATSPort:      4222,
			BufferSize:    256,
			CloseTimeout:  10 * time.Second,
			QueueGroup:    "activity-writers",
			SubscriberNum: 1,

			RetryMaxRetries:      3,
			RetryInitialInterval: 100 * time.Millisecond,
			RetryMaxInterval:     2 * time.Second,
			RetryMultiplier:      2,
			PoisonTopic:          "activity.poison",
		},
		Flags: FlagsConfig{
			Cloud:        false,
			PollInterval: 30 * time.Second,
			FetchTimeout: 5 * time.Second,
			CacheDir:     "",
		},
		Insights: InsightsConfig{
			BackfillChunkSize: 100,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File (if one exists)
//  3. Environment Variables
func LoadWithKoanf() (*Config, error) {
	cfg, err := loadUnvalidated()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadForTooling loads the same layers as Load but validates only the
// database and logging sections. Offline tools such as the migration CLI
// need no JWT secret or listener settings.
func LoadForTooling() (*Config, error) {
	cfg, err := loadUnvalidated()
	if err != nil {
		return nil, err
	}
	for _, v := range []func() error{cfg.validateDatabase, cfg.validateLogging, cfg.validateInsights} {
		if err := v(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

func loadUnvalidated() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
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
	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"login_attempts":      "security.login_attempts_per_minute",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Cache
	"cache_ttl":              "cache.ttl",
	"cache_cleanup_interval": "cache.cleanup_interval",

	// Events
	"events_transport": "events.transport",
	"activity_topic":   "events.topic",
	"nats_url":         "events.nats_url",
	"nats_embedded":    "events.nats_embedded",
	"nats_store_dir":   "events.nats_store_dir",
	"nats_port":        "events.nats_port",
	"nats_queue_group": "events.queue_group",

	"activity_retry_max_retries":      "events.retry_max_retries",
	"activity_retry_initial_interval": "events.retry_initial_interval",
	"activity_retry_max_interval":     "events.retry_max_interval",
	"activity_retry_multiplier":       "events.retry_multiplier",
	"activity_poison_topic":           "events.poison_topic",

	// Feature flags
	"trailmark_cloud":         "flags.cloud",
	"hogql_insights_override": "flags.hogql_insights_override",
	"flags_file":              "flags.file",
	"flags_remote_url":        "flags.remote_url",
	"flags_remote_token":      "flags.remote_token",
	"flags_poll_interval":     "flags.poll_interval",
	"flags_fetch_timeout":     "flags.fetch_timeout",
	"flags_cache_dir":         "flags.cache_dir",

	// Insights
	"insights_backfill_chunk_size": "insights.backfill_chunk_size",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - HOGQL_INSIGHTS_OVERRIDE -> flags.hogql_insights_override
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// Unmapped keys are skipped so unrelated environment variables never leak into config.
	return ""
}
