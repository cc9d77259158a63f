// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/trailmark/internal/annotations"
	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/flags"
	"github.com/tomtom215/trailmark/internal/insights"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/middleware"
	"github.com/tomtom215/trailmark/internal/organizations"
	"github.com/tomtom215/trailmark/internal/sessions"
	ws "github.com/tomtom215/trailmark/internal/websocket"
)

// Services bundles the domain services the handlers call.
type Services struct {
	Annotations   *annotations.Service
	Insights      *insights.Service
	Sessions      *sessions.Service
	Organizations *organizations.Service
	Gate          *flags.Gate
	Authenticator *auth.Authenticator
	Tokens        *auth.JWTManager
}

// Handler handles HTTP requests for all API endpoints
type Handler struct {
	db        *database.DB
	svc       Services
	config    *config.Config
	authMode  auth.AuthMode
	wsHub     *ws.Hub
	perfMon   *middleware.PerformanceMonitor
	startTime time.Time
}

// NewHandler creates a new Handler instance
func NewHandler(db *database.DB, svc Services, cfg *config.Config, wsHub *ws.Hub, perfMon *middleware.PerformanceMonitor) *Handler {
	mode := auth.AuthModeJWT
	if cfg != nil {
		if parsed, err := auth.ParseAuthMode(cfg.Security.AuthMode); err == nil {
			mode = parsed
		}
	}
	return &Handler{
		db:        db,
		svc:       svc,
		config:    cfg,
		authMode:  mode,
		wsHub:     wsHub,
		perfMon:   perfMon,
		startTime: time.Now(),
	}
}

// getUpgrader returns a configured WebSocket upgrader with origin validation
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins. Requests
// without an Origin header come from non-browser clients and are allowed;
// cross-site browser requests must match the CORS origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.config == nil {
		return true
	}

	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}
