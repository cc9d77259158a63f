// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package auth

import (
	"context"
	"errors"

	"github.com/tomtom215/trailmark/internal/models"
)

// AuthMode represents the authentication strategy.
type AuthMode string

const (
	// AuthModeNone disables authentication
	AuthModeNone AuthMode = "none"

	// AuthModeJWT uses JWT Bearer tokens
	AuthModeJWT AuthMode = "jwt"
)

// ParseAuthMode converts a string to AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch s {
	case "jwt", "":
		return AuthModeJWT, nil
	case "none":
		return AuthModeNone, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// String returns the string representation of AuthMode.
func (m AuthMode) String() string {
	return string(m)
}

// Standard authentication errors
var (
	// ErrNoCredentials indicates no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates credentials were invalid.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLoginThrottled indicates too many login attempts from one client.
	ErrLoginThrottled = errors.New("too many login attempts")
)

// Subject is the authenticated caller of a request.
type Subject struct {
	// User is nil for anonymous subjects.
	User *models.User

	// Anonymous is set when authentication is disabled.
	Anonymous bool

	// AuthMethod is the mode that produced the subject.
	AuthMethod AuthMode
}

// AnonymousSubject is injected for every request when AUTH_MODE=none.
func AnonymousSubject() *Subject {
	return &Subject{Anonymous: true, AuthMethod: AuthModeNone}
}

type subjectKey struct{}

// ContextWithSubject stores s on ctx.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFromContext returns the request's subject, or nil when the request
// did not pass through Authenticate.
func SubjectFromContext(ctx context.Context) *Subject {
	s, _ := ctx.Value(subjectKey{}).(*Subject)
	return s
}

// UserFromContext returns the authenticated user, or nil for anonymous or
// unauthenticated requests.
func UserFromContext(ctx context.Context) *models.User {
	if s := SubjectFromContext(ctx); s != nil {
		return s.User
	}
	return nil
}
