// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/models"
)

// HogQLFlags reports which query paths are enabled.
type HogQLFlags struct {
	HogQLInsights  bool `json:"hogql_insights"`
	ReplaceFilters bool `json:"replace_filters"`
}

// HogQLFlags handles GET /api/flags/hogql
//
// @Summary HogQL feature gates
// @Description Evaluates the HogQL insight gate for the current user and, when team_id is given, the filter replacement gate for that project.
// @Tags Flags
// @Produce json
// @Param team_id query int false "Project ID"
// @Success 200 {object} models.APIResponse{data=HogQLFlags}
// @Failure 400 {object} models.APIResponse "Invalid team_id"
// @Failure 403 {object} models.APIResponse "No access to the project"
// @Failure 404 {object} models.APIResponse "Project not found"
// @Router /flags/hogql [get]
func (h *Handler) HogQLFlags(w http.ResponseWriter, r *http.Request) {
	teamID, err := optionalInt64Param(r, "team_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}

	user := auth.UserFromContext(r.Context())
	result := HogQLFlags{HogQLInsights: h.svc.Gate.InsightsEnabled(user)}

	if teamID != nil {
		access, err := h.projectAccess(r, *teamID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		result.ReplaceFilters = h.svc.Gate.ReplaceFiltersEnabled(access.Team)
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     result,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// projectAccess resolves the caller's access to a project named outside the
// URL path, such as a query parameter.
func (h *Handler) projectAccess(r *http.Request, teamID int64) (*authz.Access, error) {
	subject := auth.SubjectFromContext(r.Context())
	if subject != nil && subject.Anonymous {
		return authz.AnonymousProjectAccess(r.Context(), h.db, teamID)
	}
	return authz.ProjectAccess(r.Context(), h.db, auth.UserFromContext(r.Context()), teamID)
}
