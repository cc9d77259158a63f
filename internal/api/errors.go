// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/insights"
	"github.com/tomtom215/trailmark/internal/organizations"
	"github.com/tomtom215/trailmark/internal/sessions"
)

// respondServiceError maps a service or store error to a response. Errors
// without a mapping are logged and answered with 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var queryErr *insights.QueryValidationError
	switch {
	case errors.As(err, &queryErr):
		violations := make([]map[string]interface{}, 0, len(queryErr.Violations))
		for _, v := range queryErr.Violations {
			violations = append(violations, map[string]interface{}{
				"path":    v.Path,
				"message": v.Message,
			})
		}
		respondErrorDetails(w, http.StatusBadRequest, ErrCodeValidation, "Insight query does not match the InsightVizNode schema.",
			map[string]interface{}{"query": violations}, nil)

	case errors.Is(err, sessions.ErrInvalidQuery):
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)

	case errors.Is(err, organizations.ErrInvalidLevel):
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)

	case errors.Is(err, organizations.ErrInviteEmailMismatch),
		errors.Is(err, organizations.ErrPermissionDenied):
		respondError(w, http.StatusForbidden, ErrCodeForbidden, err.Error(), nil)

	case errors.Is(err, authz.ErrNoProjectAccess), errors.Is(err, authz.ErrNoOrganizationAccess):
		respondError(w, http.StatusForbidden, ErrCodeForbidden, err.Error(), nil)

	case errors.Is(err, organizations.ErrAuthenticationRequired):
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error(), nil)

	case errors.Is(err, database.ErrTeamNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Project not found.", nil)

	case errors.Is(err, database.ErrAnnotationNotFound),
		errors.Is(err, database.ErrInsightNotFound),
		errors.Is(err, database.ErrInviteNotFound),
		errors.Is(err, database.ErrOrganizationNotFound),
		errors.Is(err, sessions.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found.", nil)

	case errors.Is(err, database.ErrAlreadyMember), errors.Is(err, database.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, ErrCodeConflict, err.Error(), nil)

	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", err)
	}
}
