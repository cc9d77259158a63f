// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

/*
Package api provides the HTTP REST API layer for Trailmark.

Routes are served by a chi router (see Router.SetupChi). Every JSON response
except the annotation list uses the models.APIResponse envelope:

	{"status": "success", "data": ..., "metadata": {"timestamp": ...}}
	{"status": "error", "data": null, "error": {"code": "NOT_FOUND", "message": "..."}}

The annotation list keeps the paginated shape older clients expect:

	{"results": [...], "next": null}

Middleware Order:

Global middleware runs for every request:

  - middleware.RequestID: X-Request-ID and logging context
  - chi RealIP and Recoverer
  - CORS (go-chi/cors)
  - middleware.Compression and the performance monitor

Project routes (/api/projects/{team_id}/...) then add rate limiting,
Prometheus metrics, auth.Middleware.Authenticate, authz RequireProject and
finally authz Authorize for the resource object. Handlers read the resolved
team and membership level from authz.AccessFromContext.

Endpoints:

  - POST /api/login
  - GET  /api/health
  - GET|POST /api/projects/{team_id}/annotations/
  - GET|PATCH|PUT /api/projects/{team_id}/annotations/{id}/
  - GET|POST /api/projects/{team_id}/insights/
  - GET /api/projects/{team_id}/insights/{id}/
  - GET|POST /api/projects/{team_id}/time_to_see_data/sessions
  - POST /api/projects/{team_id}/time_to_see_data/session_events
  - POST /api/projects/{team_id}/time_to_see_data/events
  - GET|POST /api/organizations/{org_id}/invites/
  - DELETE /api/organizations/{org_id}/invites/{id}/
  - POST /api/organizations/{org_id}/invites/{id}/accept
  - GET /api/flags/hogql?team_id=N
  - GET /api/ws?team_id=N
  - GET /metrics, GET /swagger/*
*/
package api
