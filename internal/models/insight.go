// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package models

import (
	"encoding/json"
	"time"
)

// Insight is a saved chart. Legacy insights only carry Filters; converted
// ones carry a Query node as well.
type Insight struct {
	ID        int64                  `json:"id"`
	ShortID   string                 `json:"short_id"`
	TeamID    int64                  `json:"team"`
	Name      string                 `json:"name"`
	Filters   map[string]interface{} `json:"filters"`
	Query     json.RawMessage        `json:"query"`
	CreatedBy *int64                 `json:"created_by,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`

	// HogQLEnabled is computed per request from the replace-filters gate.
	HogQLEnabled bool `json:"hogql_enabled"`
	// HogQL holds the printed query of each trends series when HogQLEnabled.
	HogQL []string `json:"hogql,omitempty"`
}
