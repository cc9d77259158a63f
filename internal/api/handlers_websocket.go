// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"net/http"

	"github.com/tomtom215/trailmark/internal/logging"
	ws "github.com/tomtom215/trailmark/internal/websocket"
)

// WebSocket handles WebSocket connection upgrades
//
// @Summary Realtime updates
// @Description Upgrades to a WebSocket that receives annotation and activity messages for the project given by team_id.
// @Tags Core
// @Param team_id query int true "Project ID"
// @Success 101 "Switching protocols"
// @Failure 400 {object} models.APIResponse "Missing team_id"
// @Failure 403 {object} models.APIResponse "No access to the project"
// @Failure 503 {object} models.APIResponse "Realtime updates unavailable"
// @Router /ws [get]
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", nil)
		return
	}

	teamID, err := optionalInt64Param(r, "team_id")
	if err != nil || teamID == nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "team_id is required", nil)
		return
	}
	access, err := h.projectAccess(r, *teamID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn, access.Team.ID)
	h.wsHub.Register <- client
	client.Start()
}
