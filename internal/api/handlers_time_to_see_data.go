// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/models"
	"github.com/tomtom215/trailmark/internal/sessions"
)

// maxBulkEvents caps one bulk insert.
const maxBulkEvents = 10000

// SessionsRequest is the optional body of POST time_to_see_data/sessions.
type SessionsRequest struct {
	SessionID *string `json:"session_id,omitempty" validate:"omitempty,min=1,max=200"`
}

// SessionEventsRequest is the body of POST time_to_see_data/session_events.
type SessionEventsRequest struct {
	SessionID    string    `json:"session_id" validate:"required,max=200"`
	SessionStart time.Time `json:"session_start" validate:"required"`
	SessionEnd   time.Time `json:"session_end" validate:"required"`
}

// BulkEventsRequest is the body of POST time_to_see_data/events.
type BulkEventsRequest struct {
	Events []models.TimeToSeeDataEvent `json:"events" validate:"required,min=1,dive"`
}

// BulkEventsResponse reports how many rows were stored.
type BulkEventsResponse struct {
	Inserted int `json:"inserted"`
}

// Sessions handles GET and POST /api/projects/{team_id}/time_to_see_data/sessions
//
// @Summary List time-to-see-data sessions
// @Description One aggregate row per session of the project, most recently ended first. POST accepts {"session_id"} to narrow the list to one session.
// @Tags TimeToSeeData
// @Accept json
// @Produce json
// @Param team_id path int true "Project ID"
// @Param filter body SessionsRequest false "Optional session filter (POST only)"
// @Success 200 {object} models.APIResponse{data=[]models.Session}
// @Failure 400 {object} models.APIResponse "Invalid filter"
// @Router /projects/{team_id}/time_to_see_data/sessions [get]
// @Router /projects/{team_id}/time_to_see_data/sessions [post]
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	teamID := access.Team.ID
	q := sessions.SessionsQuery{TeamID: &teamID}

	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var req SessionsRequest
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
			respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", nil)
			return
		}
		if apiErr := validateRequest(&req); apiErr != nil {
			respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
			return
		}
		q.SessionID = req.SessionID
	}

	list, err := h.svc.Sessions.GetSessions(r.Context(), q)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []models.Session{}
	}
	respondData(w, http.StatusOK, list, start)
}

// SessionEvents handles POST /api/projects/{team_id}/time_to_see_data/session_events
//
// @Summary Events of one session
// @Description Returns the session row and its events between session_start and two hours after session_end. Events slower than 5s are flagged as frustrating.
// @Tags TimeToSeeData
// @Accept json
// @Produce json
// @Param team_id path int true "Project ID"
// @Param session body SessionEventsRequest true "Session window"
// @Success 200 {object} models.APIResponse{data=models.SessionEvents}
// @Failure 400 {object} models.APIResponse "Invalid window"
// @Failure 404 {object} models.APIResponse "Session not found"
// @Router /projects/{team_id}/time_to_see_data/session_events [post]
func (h *Handler) SessionEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	var req SessionEventsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.svc.Sessions.GetSessionEvents(r.Context(), sessions.SessionEventsQuery{
		TeamID:       access.Team.ID,
		SessionID:    req.SessionID,
		SessionStart: req.SessionStart,
		SessionEnd:   req.SessionEnd,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, result, start)
}

// InsertEvents handles POST /api/projects/{team_id}/time_to_see_data/events
//
// @Summary Bulk insert time-to-see-data events
// @Description Stores metric rows for the project. Used for seeding and tests; team_id in the rows is replaced by the project of the URL.
// @Tags TimeToSeeData
// @Accept json
// @Produce json
// @Param team_id path int true "Project ID"
// @Param events body BulkEventsRequest true "Events"
// @Success 201 {object} models.APIResponse{data=BulkEventsResponse}
// @Failure 400 {object} models.APIResponse "Invalid events"
// @Router /projects/{team_id}/time_to_see_data/events [post]
func (h *Handler) InsertEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	var req BulkEventsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body", nil)
		return
	}
	if len(req.Events) > maxBulkEvents {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Too many events in one request", nil)
		return
	}
	for i := range req.Events {
		req.Events[i].TeamID = access.Team.ID
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	inserted, err := h.db.InsertTimeToSeeDataEvents(r.Context(), req.Events)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	h.svc.Sessions.Invalidate()
	logging.Ctx(r.Context()).Info().Int64("team_id", access.Team.ID).Int("inserted", inserted).Msg("Inserted time-to-see-data events")
	respondData(w, http.StatusCreated, BulkEventsResponse{Inserted: inserted}, start)
}
