// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MinJWTSecretLength is the minimum accepted length of JWT_SECRET.
const MinJWTSecretLength = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateSecurity,
		c.validateLogging,
		c.validateEvents,
		c.validateFlags,
		c.validateInsights,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

// validateSecurity validates the auth mode and its required settings
func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "jwt":
		if len(c.Security.JWTSecret) < MinJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", MinJWTSecretLength)
		}
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=none is not allowed with ENVIRONMENT=production")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of: jwt, none (got %q)", c.Security.AuthMode)
	}

	if c.Security.SessionTimeout < time.Minute {
		return fmt.Errorf("SESSION_TIMEOUT must be at least 1m")
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}

	if c.Security.LoginAttemptsPerMinute < 1 {
		return fmt.Errorf("LOGIN_ATTEMPTS must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// validateEvents validates the activity bus transport
func (c *Config) validateEvents() error {
	if strings.TrimSpace(c.Events.Topic) == "" {
		return fmt.Errorf("ACTIVITY_TOPIC is required")
	}
	if c.Events.RetryMaxRetries < 0 {
		return fmt.Errorf("ACTIVITY_RETRY_MAX_RETRIES must not be negative")
	}
	if c.Events.RetryMaxRetries > 0 {
		if c.Events.RetryInitialInterval <= 0 || c.Events.RetryMaxInterval < c.Events.RetryInitialInterval {
			return fmt.Errorf("ACTIVITY_RETRY_INITIAL_INTERVAL must be positive and not above ACTIVITY_RETRY_MAX_INTERVAL")
		}
		if c.Events.RetryMultiplier < 1 {
			return fmt.Errorf("ACTIVITY_RETRY_MULTIPLIER must be at least 1")
		}
	}
	if c.Events.PoisonTopic != "" && c.Events.PoisonTopic == c.Events.Topic {
		return fmt.Errorf("ACTIVITY_POISON_TOPIC must differ from ACTIVITY_TOPIC")
	}
	switch c.Events.Transport {
	case "memory":
		return nil
	case "nats":
		if !c.Events.NATSEmbedded && strings.TrimSpace(c.Events.NATSURL) == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT=nats without an embedded server")
		}
		if c.Events.NATSEmbedded && (c.Events.NATSPort < 1 || c.Events.NATSPort > 65535) {
			return fmt.Errorf("NATS_PORT must be between 1 and 65535")
		}
		return nil
	default:
		return fmt.Errorf("EVENTS_TRANSPORT must be memory or nats (got %q)", c.Events.Transport)
	}
}

// validateFlags validates the feature flag definition sources
func (c *Config) validateFlags() error {
	if c.Flags.HogQLInsightsOverride != "" {
		if _, ok := c.Flags.InsightsOverride(); !ok {
			return fmt.Errorf("HOGQL_INSIGHTS_OVERRIDE must be a boolean (got %q)", c.Flags.HogQLInsightsOverride)
		}
	}
	if c.Flags.RemoteURL == "" {
		return nil
	}
	u, err := url.Parse(c.Flags.RemoteURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("FLAGS_REMOTE_URL must be an absolute URL")
	}
	if c.Flags.PollInterval < time.Second {
		return fmt.Errorf("FLAGS_POLL_INTERVAL must be at least 1s when FLAGS_REMOTE_URL is set")
	}
	return nil
}

func (c *Config) validateInsights() error {
	if c.Insights.BackfillChunkSize < 1 {
		return fmt.Errorf("INSIGHTS_BACKFILL_CHUNK_SIZE must be positive")
	}
	return nil
}
