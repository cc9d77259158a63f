// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	MigrationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schema_migrations_total",
			Help: "Schema migrations executed, by direction",
		},
		[]string{"direction"}, // up, down
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// Time-to-see-data session queries
	SessionQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tts_session_query_duration_seconds",
			Help:    "Duration of time-to-see-data session queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"}, // sessions, session_events
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Query cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Query cache misses by cache name",
		},
		[]string{"cache"},
	)

	// Feature Flag Metrics
	FlagEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_flag_evaluations_total",
			Help: "Local feature flag evaluations by flag and result",
		},
		[]string{"flag", "result"},
	)

	FlagDefinitionFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_flag_definition_fetches_total",
			Help: "Remote flag definition fetches by outcome",
		},
		[]string{"outcome"}, // ok, error, breaker_open, cached
	)

	FlagBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feature_flag_breaker_state",
			Help: "Remote flag source circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	FlagDefinitionsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feature_flag_definitions_loaded",
			Help: "Number of flag definitions currently active",
		},
	)

	// Activity Metrics
	ActivityPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_published_total",
			Help: "User activity events published to the bus",
		},
		[]string{"event", "status"}, // status: ok, error
	)

	ActivityPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_persisted_total",
			Help: "User activity events consumed from the bus",
		},
		[]string{"status"}, // ok, error, malformed, poisoned, dropped
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "WebSocket messages broadcast by type",
		},
		[]string{"type"},
	)

	// Login Metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Password login attempts by result",
		},
		[]string{"result"}, // success, invalid, throttled
	)

	// Authorization Metrics
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Policy decisions by role, object, action and outcome",
		},
		[]string{"role", "object", "action", "decision"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordFlagEvaluation counts one local flag evaluation.
func RecordFlagEvaluation(flag string, enabled bool) {
	FlagEvaluations.WithLabelValues(flag, strconv.FormatBool(enabled)).Inc()
}

// RecordCacheLookup counts a hit or miss for the named cache.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordActivityPublish counts a publish attempt.
func RecordActivityPublish(event string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ActivityPublished.WithLabelValues(event, status).Inc()
}

// RecordAuthzDecision counts one policy check.
func RecordAuthzDecision(role, object, action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(role, object, action, decision).Inc()
}
