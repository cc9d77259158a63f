// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trailmark/internal/annotations"
	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/models"
)

// ListAnnotations handles GET /api/projects/{team_id}/annotations
//
// @Summary List annotations
// @Description Returns the project's annotations plus organization-wide ones, newest date marker first. The response is a results page, not the standard envelope.
// @Tags Annotations
// @Produce json
// @Param team_id path int true "Project ID"
// @Param dashboardItemId query int false "Only annotations of this insight"
// @Param before query string false "Created before (RFC 3339 or YYYY-MM-DD)"
// @Param after query string false "Created after (RFC 3339 or YYYY-MM-DD)"
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} models.ResultsPage[models.Annotation]
// @Failure 400 {object} models.APIResponse "Invalid filter"
// @Failure 403 {object} models.APIResponse "No access to the project"
// @Router /projects/{team_id}/annotations [get]
func (h *Handler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	access := authz.AccessFromContext(r.Context())

	filter, err := annotationFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}

	list, err := h.svc.Annotations.List(r.Context(), access.Team, filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.Annotation{}
	}
	writeJSON(w, http.StatusOK, models.ResultsPage[*models.Annotation]{Results: list})
}

func annotationFilter(r *http.Request) (models.AnnotationFilter, error) {
	var (
		filter models.AnnotationFilter
		err    error
	)
	if filter.DashboardItemID, err = optionalInt64Param(r, "dashboardItemId"); err != nil {
		return filter, err
	}
	if filter.Before, err = parseTimeParam(r, "before"); err != nil {
		return filter, err
	}
	if filter.After, err = parseTimeParam(r, "after"); err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = pagination(r)
	return filter, nil
}

// CreateAnnotation handles POST /api/projects/{team_id}/annotations
//
// @Summary Create an annotation
// @Description Creates an annotation in the project named by the URL. A team in the body is ignored.
// @Tags Annotations
// @Accept json
// @Produce json
// @Param team_id path int true "Project ID"
// @Param annotation body annotations.CreateRequest true "Annotation"
// @Success 201 {object} models.APIResponse{data=models.Annotation}
// @Failure 400 {object} models.APIResponse "Invalid request body"
// @Failure 403 {object} models.APIResponse "No access to the project"
// @Router /projects/{team_id}/annotations [post]
func (h *Handler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	var req annotations.CreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.svc.Annotations.Create(r.Context(), access.User, access.Team, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusCreated, a, start)
}

// GetAnnotation handles GET /api/projects/{team_id}/annotations/{id}
//
// @Summary Get an annotation
// @Tags Annotations
// @Produce json
// @Param team_id path int true "Project ID"
// @Param id path int true "Annotation ID"
// @Success 200 {object} models.APIResponse{data=models.Annotation}
// @Failure 404 {object} models.APIResponse "Annotation not found"
// @Router /projects/{team_id}/annotations/{id} [get]
func (h *Handler) GetAnnotation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	id, ok := int64URLParam(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found.", nil)
		return
	}

	a, err := h.svc.Annotations.Get(r.Context(), access.Team, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, a, start)
}

// UpdateAnnotation handles PATCH and PUT /api/projects/{team_id}/annotations/{id}
//
// @Summary Update an annotation
// @Description Partial update; fields left out keep their value. PUT behaves like PATCH. Soft delete with {"deleted": true}.
// @Tags Annotations
// @Accept json
// @Produce json
// @Param team_id path int true "Project ID"
// @Param id path int true "Annotation ID"
// @Param annotation body annotations.PatchRequest true "Changed fields"
// @Success 200 {object} models.APIResponse{data=models.Annotation}
// @Failure 400 {object} models.APIResponse "Invalid request body"
// @Failure 404 {object} models.APIResponse "Annotation not found"
// @Router /projects/{team_id}/annotations/{id} [patch]
func (h *Handler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	id, ok := int64URLParam(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found.", nil)
		return
	}

	var req annotations.PatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	a, err := h.svc.Annotations.Update(r.Context(), access.User, access.Team, id, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, a, start)
}

// annotationsNotAllowed answers methods the annotation routes do not
// support, DELETE included. Annotations are soft deleted through PATCH.
func annotationsNotAllowed(allowed ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		methodNotAllowed(w, allowed...)
	}
}
