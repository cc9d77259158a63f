// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package flags

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
)

const maxPayloadBytes = 10 << 20

// RemoteSourceConfig configures a RemoteSource.
type RemoteSourceConfig struct {
	URL string
	// Token is sent as a Bearer token when set.
	Token   string
	Timeout time.Duration
	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// RemoteSource fetches definitions over HTTP through a circuit breaker and
// falls back to the durable cache when the endpoint is unavailable.
type RemoteSource struct {
	url    string
	token  string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]FlagDefinition]
	cache  *DefinitionCache
}

// NewRemoteSource creates a remote source. cache may be nil.
//
// The breaker opens after 5 consecutive failures and probes again after
// 30 seconds.
func NewRemoteSource(cfg RemoteSourceConfig, cache *DefinitionCache) *RemoteSource {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	metrics.FlagBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[[]FlagDefinition](gobreaker.Settings{
		Name:        "flag-definitions",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Flag source breaker state changed")
			metrics.FlagBreakerState.Set(stateToFloat(to))
		},
	})

	return &RemoteSource{
		url:    cfg.URL,
		token:  cfg.Token,
		client: client,
		cb:     cb,
		cache:  cache,
	}
}

// Load fetches the current definitions. When the fetch fails or the breaker
// is open, the cached definitions are returned instead.
func (s *RemoteSource) Load(ctx context.Context) ([]FlagDefinition, error) {
	defs, err := s.cb.Execute(func() ([]FlagDefinition, error) {
		return s.fetch(ctx)
	})
	if err == nil {
		metrics.FlagDefinitionFetches.WithLabelValues("success").Inc()
		if s.cache != nil {
			if cerr := s.cache.Store(defs); cerr != nil {
				logging.Warn().Err(cerr).Msg("Failed to cache flag definitions")
			}
		}
		return defs, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.FlagDefinitionFetches.WithLabelValues("rejected").Inc()
	} else {
		metrics.FlagDefinitionFetches.WithLabelValues("failure").Inc()
	}

	if s.cache == nil {
		return nil, err
	}
	cached, storedAt, ok, cerr := s.cache.Load()
	if cerr != nil || !ok {
		return nil, err
	}
	metrics.FlagDefinitionFetches.WithLabelValues("cache").Inc()
	logging.Warn().Err(err).Time("cached_at", storedAt).Msg("Serving cached flag definitions")
	return cached, nil
}

func (s *RemoteSource) fetch(ctx context.Context) ([]FlagDefinition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch definitions: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug().Err(cerr).Msg("Failed to close flag response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch definitions: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	var payload definitionsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}
	return payload.Flags, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
