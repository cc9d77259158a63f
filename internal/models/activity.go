// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEvent records an action a user performed in the product, such as
// "annotation created".
type ActivityEvent struct {
	ID             uuid.UUID              `json:"id"`
	Timestamp      time.Time              `json:"timestamp"`
	Event          string                 `json:"event"`
	UserID         int64                  `json:"user_id"`
	DistinctID     string                 `json:"distinct_id"`
	TeamID         *int64                 `json:"team_id,omitempty"`
	OrganizationID *uuid.UUID             `json:"organization_id,omitempty"`
	Properties     map[string]interface{} `json:"properties"`
	CorrelationID  string                 `json:"correlation_id,omitempty"`
}
