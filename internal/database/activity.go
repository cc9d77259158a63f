// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

// InsertActivityEvent persists one user action. Re-delivered events with an
// already stored ID are ignored.
func (db *DB) InsertActivityEvent(ctx context.Context, ev *models.ActivityEvent) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	props := ev.Properties
	if props == nil {
		props = map[string]interface{}{}
	}
	encoded, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("failed to encode activity properties: %w", err)
	}

	var orgID interface{}
	if ev.OrganizationID != nil {
		orgID = ev.OrganizationID.String()
	}

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO activity_log (id, occurred_at, event, user_id, distinct_id, team_id, organization_id, properties, correlation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		ev.ID.String(), ev.Timestamp.UTC(), ev.Event, ev.UserID, ev.DistinctID,
		nullableInt64(ev.TeamID), orgID, string(encoded), ev.CorrelationID)
	metrics.RecordDBQuery("INSERT", "activity_log", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}
	return nil
}

// ListActivity returns a project's most recent activity.
func (db *DB) ListActivity(ctx context.Context, teamID int64, limit int) ([]*models.ActivityEvent, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, occurred_at, event, user_id, distinct_id, team_id, organization_id, properties, correlation_id
		FROM activity_log
		WHERE team_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?`, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer closeWithLog(rows, "rows")

	events := make([]*models.ActivityEvent, 0)
	for rows.Next() {
		ev := &models.ActivityEvent{}
		var rawID, props string
		var team sql.NullInt64
		var org sql.NullString
		if err := rows.Scan(&rawID, &ev.Timestamp, &ev.Event, &ev.UserID, &ev.DistinctID,
			&team, &org, &props, &ev.CorrelationID); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if ev.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("activity has malformed id: %w", err)
		}
		if team.Valid {
			id := team.Int64
			ev.TeamID = &id
		}
		if org.Valid {
			if parsed, err := uuid.Parse(org.String); err == nil {
				ev.OrganizationID = &parsed
			}
		}
		if err := json.Unmarshal([]byte(props), &ev.Properties); err != nil {
			return nil, fmt.Errorf("activity %s has malformed properties: %w", rawID, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
