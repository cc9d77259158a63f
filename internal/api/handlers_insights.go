// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/insights"
	"github.com/tomtom215/trailmark/internal/models"
)

// ListInsights handles GET /api/projects/{team_id}/insights
//
// @Summary List insights
// @Tags Insights
// @Produce json
// @Param team_id path int true "Project ID"
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} models.APIResponse{data=[]models.Insight}
// @Failure 403 {object} models.APIResponse "No access to the project"
// @Router /projects/{team_id}/insights [get]
func (h *Handler) ListInsights(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())
	limit, offset := pagination(r)

	list, err := h.svc.Insights.List(r.Context(), access.Team, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.Insight{}
	}
	respondData(w, http.StatusOK, list, start)
}

// CreateInsight handles POST /api/projects/{team_id}/insights
//
// @Summary Create an insight
// @Description Stores an insight with legacy filters, a query, or both. A query must match the InsightVizNode schema.
// @Tags Insights
// @Accept json
// @Produce json
// @Param team_id path int true "Project ID"
// @Param insight body insights.CreateRequest true "Insight"
// @Success 201 {object} models.APIResponse{data=models.Insight}
// @Failure 400 {object} models.APIResponse "Invalid body or query"
// @Router /projects/{team_id}/insights [post]
func (h *Handler) CreateInsight(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	var req insights.CreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ins, err := h.svc.Insights.Create(r.Context(), access.User, access.Team, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusCreated, ins, start)
}

// GetInsight handles GET /api/projects/{team_id}/insights/{id}
//
// @Summary Get an insight
// @Description Returns one insight. hogql_enabled tells whether it is computed from its query; hogql holds the compiled select of each trends series when it is.
// @Tags Insights
// @Produce json
// @Param team_id path int true "Project ID"
// @Param id path int true "Insight ID"
// @Success 200 {object} models.APIResponse{data=models.Insight}
// @Failure 404 {object} models.APIResponse "Insight not found"
// @Router /projects/{team_id}/insights/{id} [get]
func (h *Handler) GetInsight(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	id, ok := int64URLParam(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found.", nil)
		return
	}

	ins, err := h.svc.Insights.Get(r.Context(), access.Team, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, ins, start)
}
