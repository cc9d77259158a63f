// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trailmark/internal/middleware"
	"github.com/tomtom215/trailmark/internal/models"
)

// HealthStatus is the payload of GET /api/health.
type HealthStatus struct {
	Status            string                     `json:"status"`
	DatabaseConnected bool                       `json:"database_connected"`
	SchemaVersion     int                        `json:"schema_version"`
	AuthMode          string                     `json:"auth_mode"`
	WebSocketClients  int                        `json:"websocket_clients"`
	Uptime            float64                    `json:"uptime_seconds"`
	Endpoints         []middleware.EndpointStats `json:"endpoints,omitempty"`
}

// Health handles health check requests
//
// @Summary Get system health status
// @Description Returns database connectivity, schema version, connected WebSocket clients, uptime and per-endpoint latency statistics. Answers 503 when the database is unreachable.
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=HealthStatus} "Service is healthy"
// @Failure 503 {object} models.APIResponse{data=HealthStatus} "Database unreachable"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	health := HealthStatus{
		Status:            "healthy",
		DatabaseConnected: dbConnected,
		AuthMode:          h.authMode.String(),
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if dbConnected {
		if version, err := h.db.GetCurrentSchemaVersion(r.Context()); err == nil {
			health.SchemaVersion = version
		}
	}
	if h.wsHub != nil {
		health.WebSocketClients = h.wsHub.GetClientCount()
	}
	if h.perfMon != nil {
		health.Endpoints = h.perfMon.GetStats()
	}

	status := http.StatusOK
	if !dbConnected {
		health.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
