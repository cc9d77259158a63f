// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

/*
Package middleware provides HTTP middleware components for the application.

Key Components:

  - RequestID: request and correlation IDs on the response and the logging context
  - PrometheusMetrics: request count, duration and in-flight gauge, labelled by chi route pattern
  - Compression: gzip for clients that accept it
  - PerformanceMonitor: sliding-window latency percentiles and slow request warnings

All middleware has the chi signature func(http.Handler) http.Handler and is
installed by the api router:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perf.Middleware)
	r.Use(middleware.Compression)

Wrapped response writers forward Hijack, so /api/ws upgrades work through
every layer.
*/
package middleware
