// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package config

import (
	"strings"
	"testing"
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
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults with secret", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"empty db path", func(c *Config) { c.Database.Path = " " }, "DUCKDB_PATH"},
		{"unknown auth mode", func(c *Config) { c.Security.AuthMode = "basic" }, "AUTH_MODE"},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "abc" }, "JWT_SECRET"},
		{"none mode skips secret", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Security.JWTSecret = ""
		}, ""},
		{"none mode in production", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Server.Environment = "production"
		}, "AUTH_MODE=none"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"unknown transport", func(c *Config) { c.Events.Transport = "kafka" }, "EVENTS_TRANSPORT"},
		{"nats without url", func(c *Config) {
			c.Events.Transport = "nats"
			c.Events.NATSURL = ""
		}, "NATS_URL"},
		{"embedded nats without url", func(c *Config) {
			c.Events.Transport = "nats"
			c.Events.NATSURL = ""
			c.Events.NATSEmbedded = true
		}, ""},
		{"negative retries", func(c *Config) { c.Events.RetryMaxRetries = -1 }, "ACTIVITY_RETRY_MAX_RETRIES"},
		{"retry interval above max", func(c *Config) {
			c.Events.RetryInitialInterval = c.Events.RetryMaxInterval * 2
		}, "ACTIVITY_RETRY_INITIAL_INTERVAL"},
		{"shrinking backoff", func(c *Config) { c.Events.RetryMultiplier = 0.5 }, "ACTIVITY_RETRY_MULTIPLIER"},
		{"no retries ignores backoff", func(c *Config) {
			c.Events.RetryMaxRetries = 0
			c.Events.RetryMultiplier = 0
		}, ""},
		{"poison topic loops back", func(c *Config) { c.Events.PoisonTopic = c.Events.Topic }, "ACTIVITY_POISON_TOPIC"},
		{"relative remote flags url", func(c *Config) { c.Flags.RemoteURL = "/flags" }, "FLAGS_REMOTE_URL"},
		{"bad override", func(c *Config) { c.Flags.HogQLInsightsOverride = "maybe" }, "HOGQL_INSIGHTS_OVERRIDE"},
		{"zero chunk size", func(c *Config) { c.Insights.BackfillChunkSize = 0 }, "CHUNK_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestInsightsOverride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw       string
		wantValue bool
		wantOK    bool
	}{
		{"", false, false},
		{"true", true, true},
		{"1", true, true},
		{"false", false, true},
		{"off", false, true},
		{"garbage", false, false},
	}
	for _, tt := range tests {
		v, ok := FlagsConfig{HogQLInsightsOverride: tt.raw}.InsightsOverride()
		if v != tt.wantValue || ok != tt.wantOK {
			t.Errorf("InsightsOverride(%q) = (%v, %v), want (%v, %v)", tt.raw, v, ok, tt.wantValue, tt.wantOK)
		}
	}
}
