// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

/*
Package auth authenticates API callers.

Key Components:

  - JWTManager: HS256 token generation and validation. Claims carry the
    user id, email and distinct id.
  - Authenticator: password login. Hashes are compared with bcrypt and
    attempts are throttled per client IP by a LoginLimiter.
  - Middleware: resolves the caller of each request into a Subject stored on
    the request context.

Authentication Modes:

The mode is configured with AUTH_MODE.

  - jwt (default): a Bearer token in the Authorization header, or the token
    cookie set by the login endpoint, is required on protected routes.
  - none: every request runs as an anonymous subject. Intended for local
    development only.

Usage:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(jwtManager, db, auth.AuthModeJWT, api.WriteError)
	r.With(mw.Authenticate).Get("/api/projects/{team_id}/annotations/", h.ListAnnotations)

Handlers read the caller with SubjectFromContext or UserFromContext.
*/
package auth
