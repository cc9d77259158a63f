// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/models"
)

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	UserID     int64     `json:"user_id"`
	DistinctID string    `json:"distinct_id"`
}

// Login handles user authentication requests
//
// @Summary Authenticate user
// @Description Checks email and password and returns a JWT. The token is also set as an HTTP-only cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} models.APIResponse{data=LoginResponse} "Authentication successful"
// @Failure 400 {object} models.APIResponse "Invalid request body"
// @Failure 401 {object} models.APIResponse "Invalid credentials"
// @Failure 403 {object} models.APIResponse "Authentication disabled"
// @Failure 429 {object} models.APIResponse "Too many login attempts"
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.authMode == auth.AuthModeNone || h.svc.Authenticator == nil {
		respondError(w, http.StatusForbidden, ErrCodeForbidden, "Authentication is disabled", nil)
		return
	}

	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, user, err := h.svc.Authenticator.Login(r.Context(), auth.ClientIP(r), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrLoginThrottled):
		respondError(w, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Too many login attempts, try again later", nil)
		return
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNoCredentials):
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid email or password", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
		return
	}

	expiresAt := time.Now().Add(h.svc.Tokens.Timeout())
	h.setAuthCookie(w, r, token, expiresAt)
	logging.Ctx(r.Context()).Info().Int64("user_id", user.ID).Msg("User logged in")

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: LoginResponse{
			Token:      token,
			ExpiresAt:  expiresAt,
			UserID:     user.ID,
			DistinctID: user.DistinctID,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// setAuthCookie sets the JWT cookie read by auth.Middleware.
func (h *Handler) setAuthCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}
