// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package models

import "time"

// FrustratingThresholdMS is the time-to-see-data at or above which an
// interaction counts as frustrating.
const FrustratingThresholdMS = 5000

// TimeToSeeDataEvent is one measurement of how long a user waited for data
// to render.
type TimeToSeeDataEvent struct {
	TeamID               int64      `json:"team_id" validate:"required,gt=0"`
	UserID               int64      `json:"user_id"`
	SessionID            string     `json:"session_id" validate:"required"`
	Timestamp            time.Time  `json:"timestamp" validate:"required"`
	IngestedAt           time.Time  `json:"_timestamp"`
	TeamEventsLastMonth  int64      `json:"team_events_last_month"`
	QueryID              string     `json:"query_id"`
	PrimaryInteractionID string     `json:"primary_interaction_id"`
	TimeToSeeDataMS      int64      `json:"time_to_see_data_ms" validate:"gte=0"`
	Status               string     `json:"status"`
	APIResponseBytes     int64      `json:"api_response_bytes"`
	CurrentURL           string     `json:"current_url"`
	APIURL               string     `json:"api_url"`
	Insight              string     `json:"insight"`
	Action               string     `json:"action"`
	InsightsFetched      int32      `json:"insights_fetched"`
	InsightsFetchedCache int32      `json:"insights_fetched_cached"`
	MinLastRefresh       *time.Time `json:"min_last_refresh"`
	MaxLastRefresh       *time.Time `json:"max_last_refresh"`
	IsPrimaryInteraction bool       `json:"is_primary_interaction"`
}

// Session aggregates the time-to-see-data events sharing a session_id.
type Session struct {
	SessionID                       string     `json:"session_id"`
	UserID                          int64      `json:"user_id"`
	TeamID                          int64      `json:"team_id"`
	SessionStart                    time.Time  `json:"session_start"`
	SessionEnd                      time.Time  `json:"session_end"`
	DurationMS                      int64      `json:"duration_ms"`
	TeamEventsLastMonth             int64      `json:"team_events_last_month"`
	EventsCount                     int64      `json:"events_count"`
	InteractionsCount               int64      `json:"interactions_count"`
	TotalInteractionTimeToSeeDataMS int64      `json:"total_interaction_time_to_see_data_ms"`
	FrustratingInteractionsCount    int64      `json:"frustrating_interactions_count"`
	User                            *UserBasic `json:"user"`
}

// SessionEvent is a raw event annotated with whether it was frustrating.
type SessionEvent struct {
	TimeToSeeDataEvent
	IsFrustrating bool `json:"is_frustrating"`
}

// SessionEvents is the drill-down of one session.
type SessionEvents struct {
	Session Session        `json:"session"`
	Events  []SessionEvent `json:"events"`
}
