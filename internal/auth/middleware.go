// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package auth

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/logging"
)

// TokenCookie is the cookie the login endpoint sets and Authenticate reads.
const TokenCookie = "token"

// ErrorWriter writes an error response. api.WriteError satisfies it.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code, message string)

func plainError(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
	http.Error(w, message, status)
}

// Middleware provides authentication middleware
type Middleware struct {
	jwtManager *JWTManager
	users      UserStore
	authMode   AuthMode
	writeError ErrorWriter
}

// NewMiddleware creates a new authentication middleware. jwtManager and
// users may be nil when mode is AuthModeNone. A nil writeError falls back to
// plain-text errors.
func NewMiddleware(jwtManager *JWTManager, users UserStore, mode AuthMode, writeError ErrorWriter) *Middleware {
	if writeError == nil {
		writeError = plainError
	}
	return &Middleware{
		jwtManager: jwtManager,
		users:      users,
		authMode:   mode,
		writeError: writeError,
	}
}

// Mode returns the configured authentication mode.
func (m *Middleware) Mode() AuthMode {
	return m.authMode
}

// Authenticate is middleware that enforces authentication. The resolved
// Subject is stored on the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.authMode == AuthModeNone {
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), AnonymousSubject())))
			return
		}

		token, err := extractJWTToken(r)
		if err != nil {
			m.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided.")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			m.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token.")
			return
		}

		user, err := m.users.GetUserByID(r.Context(), claims.UserID)
		if errors.Is(err, database.ErrUserNotFound) {
			m.writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "User no longer exists.")
			return
		}
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to load token user")
			m.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to authenticate request")
			return
		}

		ctx := ContextWithSubject(r.Context(), &Subject{User: user, AuthMethod: AuthModeJWT})
		ctx = logging.ContextWithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractJWTToken extracts JWT token from Authorization header or cookie
func extractJWTToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookie)
		if err != nil || cookie.Value == "" {
			return "", ErrNoCredentials
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("unauthorized: invalid authorization header")
	}

	return parts[1], nil
}

// ClientIP returns the host part of r.RemoteAddr. chi's RealIP middleware
// rewrites RemoteAddr from trusted proxy headers before this runs.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
