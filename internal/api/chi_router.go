// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/middleware"
)

// Router sets up HTTP routes using the Chi router.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. The auth and authz middleware should be built
// with WriteError so their rejections use the API envelope.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, authzMiddleware *authz.Middleware, chiMiddleware *ChiMiddleware) *Router {
	if chiMiddleware == nil {
		chiMiddleware = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMiddleware,
		authz:         authzMiddleware,
		chiMiddleware: chiMiddleware,
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	// ========================
	// Global Middleware
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.Compression)
	if h.perfMon != nil {
		r.Use(h.perfMon.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", h.Health)
		r.With(router.chiMiddleware.RateLimitAuth()).Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.auth.Authenticate)

			r.Get("/flags/hogql", h.HogQLFlags)
			r.Get("/ws", h.WebSocket)

			r.Route("/projects/{team_id}", router.projectRoutes)
			r.Route("/organizations/{org_id}/invites", router.inviteRoutes)
		})
	})

	// ========================
	// Observability
	// ========================
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}

// projectRoutes registers /api/projects/{team_id}/... Every route resolves
// project access first, then checks the policy for its object.
func (router *Router) projectRoutes(r chi.Router) {
	h := router.handler
	r.Use(router.authz.RequireProject("team_id"))

	r.Route("/annotations", func(r chi.Router) {
		authorize := r.With(router.authz.Authorize(authz.ObjectAnnotation))

		// Catch-all first: the method routes below take precedence.
		r.HandleFunc("/", annotationsNotAllowed(http.MethodGet, http.MethodPost))
		authorize.Get("/", h.ListAnnotations)
		authorize.Post("/", h.CreateAnnotation)

		r.HandleFunc("/{id}", annotationsNotAllowed(http.MethodGet, http.MethodPatch, http.MethodPut))
		authorize.Get("/{id}", h.GetAnnotation)
		authorize.Patch("/{id}", h.UpdateAnnotation)
		authorize.Put("/{id}", h.UpdateAnnotation)
	})

	r.Route("/insights", func(r chi.Router) {
		r.Use(router.authz.Authorize(authz.ObjectInsight))
		r.Get("/", h.ListInsights)
		r.Post("/", h.CreateInsight)
		r.Get("/{id}", h.GetInsight)
	})

	r.Route("/time_to_see_data", func(r chi.Router) {
		r.Use(router.authz.Authorize(authz.ObjectSession))
		r.Get("/sessions", h.Sessions)
		r.Post("/sessions", h.Sessions)
		r.Post("/session_events", h.SessionEvents)
		r.Post("/events", h.InsertEvents)
	})
}

// inviteRoutes registers /api/organizations/{org_id}/invites/... Accepting
// an invite only needs a signed-in user, since the invitee is not a member
// yet.
func (router *Router) inviteRoutes(r chi.Router) {
	h := router.handler

	r.Post("/{id}/accept", h.AcceptInvite)

	r.Group(func(r chi.Router) {
		r.Use(router.authz.RequireOrganization("org_id"))
		r.Use(router.authz.Authorize(authz.ObjectInvite))
		r.Get("/", h.ListInvites)
		r.Post("/", h.CreateInvite)
		r.Delete("/{id}", h.RevokeInvite)
	})
}
