// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package authz

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/logging"
)

// Middleware resolves project and organization access for chi routes and
// enforces the policy on them.
type Middleware struct {
	enforcer   *Enforcer
	store      Store
	writeError auth.ErrorWriter
}

// NewMiddleware creates a new authorization middleware. A nil writeError
// falls back to plain-text errors.
func NewMiddleware(enforcer *Enforcer, store Store, writeError auth.ErrorWriter) *Middleware {
	if writeError == nil {
		writeError = func(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, store: store, writeError: writeError}
}

// RequireProject resolves the team named by the URL parameter param and the
// caller's access to it. It must run after auth.Middleware.Authenticate.
func (m *Middleware) RequireProject(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			teamID, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil || teamID <= 0 {
				m.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Project not found.")
				return
			}

			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				m.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided.")
				return
			}

			var access *Access
			if subject.Anonymous {
				access, err = AnonymousProjectAccess(r.Context(), m.store, teamID)
			} else {
				access, err = ProjectAccess(r.Context(), m.store, subject.User, teamID)
			}
			if err != nil {
				m.denied(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAccess(r.Context(), access)))
		})
	}
}

// RequireOrganization is RequireProject for organization-scoped routes.
func (m *Middleware) RequireOrganization(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, err := uuid.Parse(chi.URLParam(r, param))
			if err != nil {
				m.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Organization not found.")
				return
			}

			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				m.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided.")
				return
			}

			var access *Access
			if subject.Anonymous {
				access, err = AnonymousOrganizationAccess(r.Context(), m.store, orgID)
			} else {
				access, err = OrganizationAccess(r.Context(), m.store, subject.User, orgID)
			}
			if err != nil {
				m.denied(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithAccess(r.Context(), access)))
		})
	}
}

// Authorize enforces object with the action implied by the HTTP method.
func (m *Middleware) Authorize(object string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := AccessFromContext(r.Context())
			if access == nil {
				m.writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Forbidden: no access context")
				return
			}

			action := methodToAction(r.Method)
			if !m.enforcer.Allowed(access.Level, object, action) {
				logging.Ctx(r.Context()).Info().
					Str("role", access.Role()).
					Str("object", object).
					Str("action", action).
					Msg("Authorization denied")
				m.writeError(w, r, http.StatusForbidden, "FORBIDDEN", "You do not have permission to perform this action.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// denied maps access resolution errors to responses.
func (m *Middleware) denied(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNoProjectAccess), errors.Is(err, ErrNoOrganizationAccess):
		m.writeError(w, r, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, database.ErrTeamNotFound):
		m.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Project not found.")
	case errors.Is(err, database.ErrOrganizationNotFound):
		m.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Organization not found.")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to resolve access")
		m.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve access")
	}
}
