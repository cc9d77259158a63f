// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

/*
Command server runs the Trailmark API.

Startup order:

 1. Configuration (koanf: defaults, config.yaml, environment)
 2. Logging (zerolog)
 3. DuckDB, applying pending migrations
 4. Activity bus (in-process GoChannel or NATS, optionally embedded)
 5. Feature flags (remote endpoint with badger cache, YAML file, or none)
 6. JWT, login throttle and the casbin enforcer
 7. Services, router and the suture tree

The tree runs until SIGINT or SIGTERM; the HTTP server then drains for up
to ten seconds.

# Configuration

Common environment variables:

	HTTP_PORT            listen port (8000)
	DUCKDB_PATH          database file (/data/trailmark.duckdb)
	AUTH_MODE            jwt or none
	JWT_SECRET           32+ character signing secret (required for jwt)
	CORS_ORIGINS         comma separated allowed origins
	EVENTS_TRANSPORT     memory or nats
	NATS_URL             broker address when not embedded
	NATS_EMBEDDED        start an in-process NATS server
	TRAILMARK_CLOUD      enable flag-driven gates
	FLAGS_FILE           YAML flag definitions
	FLAGS_REMOTE_URL     remote flag definitions endpoint
	FLAGS_CACHE_DIR      badger directory caching remote definitions

# Example

	export JWT_SECRET=$(openssl rand -base64 32)
	export DUCKDB_PATH=./trailmark.duckdb
	./server

Schema management and user bootstrap live in the trailmarkctl command.
*/
package main
