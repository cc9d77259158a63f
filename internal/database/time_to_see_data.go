// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/trailmark/internal/database/query"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

// sessionEventsGrace extends a session's window so that slow queries started
// near the end of a session are still attributed to it.
const sessionEventsGrace = "INTERVAL 2 HOUR"

const ttsColumns = `team_id, user_id, session_id, "timestamp", _timestamp, team_events_last_month,
	query_id, primary_interaction_id, time_to_see_data_ms, status, api_response_bytes,
	current_url, api_url, insight, action, insights_fetched, insights_fetched_cached,
	min_last_refresh, max_last_refresh, is_primary_interaction`

// InsertTimeToSeeDataEvents bulk loads events through a DuckDB appender.
// The appender runs inside an explicit transaction on a pinned connection,
// so a failed flush leaves no rows behind. Events without an ingestion time
// get the current time.
func (db *DB) InsertTimeToSeeDataEvents(ctx context.Context, events []models.TimeToSeeDataEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer closeWithLog(conn, "conn")

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}

	start := time.Now()
	now := time.Now().UTC()
	err = conn.Raw(func(driverConn any) error {
		dc, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		appender, err := duckdb.NewAppenderFromConn(dc, "", "metrics_time_to_see_data")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		for i := range events {
			e := &events[i]
			if e.IngestedAt.IsZero() {
				e.IngestedAt = now
			}
			if err := appender.AppendRow(
				e.TeamID, e.UserID, e.SessionID, e.Timestamp.UTC(), e.IngestedAt.UTC(), e.TeamEventsLastMonth,
				e.QueryID, e.PrimaryInteractionID, e.TimeToSeeDataMS, e.Status, e.APIResponseBytes,
				e.CurrentURL, e.APIURL, e.Insight, e.Action, e.InsightsFetched, e.InsightsFetchedCache,
				nullableTime(e.MinLastRefresh), nullableTime(e.MaxLastRefresh), e.IsPrimaryInteraction,
			); err != nil {
				closeQuietly(appender)
				return fmt.Errorf("failed to append event %d: %w", i, err)
			}
		}
		// Close flushes the remaining rows.
		if err := appender.Close(); err != nil {
			return fmt.Errorf("failed to flush appender: %w", err)
		}
		return nil
	})
	if err != nil {
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
		}
		metrics.RecordDBQuery("INSERT", "metrics_time_to_see_data", time.Since(start), err)
		return 0, err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}
	metrics.RecordDBQuery("INSERT", "metrics_time_to_see_data", time.Since(start), nil)
	return len(events), nil
}

// QueryTimeToSeeDataSessions aggregates events into one row per session,
// most recently ended first. Nil filters are ignored.
func (db *DB) QueryTimeToSeeDataSessions(ctx context.Context, teamID *int64, sessionID *string) ([]models.Session, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	wb := query.NewWhereBuilder()
	if teamID != nil {
		wb.AddClause("team_id = ?", *teamID)
	}
	if sessionID != nil {
		wb.AddClause("session_id = ?", *sessionID)
	}
	where, args := wb.Build()

	q := fmt.Sprintf(`
		SELECT
			session_id,
			any_value(user_id) AS user_id,
			any_value(team_id) AS team_id,
			min("timestamp") AS session_start,
			max("timestamp") AS session_end,
			1000 * date_diff('second', min("timestamp"), max("timestamp")) AS duration_ms,
			arg_max(team_events_last_month, _timestamp) AS team_events_last_month,
			count(*) AS events_count,
			count(*) FILTER (WHERE is_primary_interaction) AS interactions_count,
			CAST(COALESCE(sum(time_to_see_data_ms) FILTER (WHERE is_primary_interaction), 0) AS BIGINT)
				AS total_interaction_time_to_see_data_ms,
			count(*) FILTER (WHERE is_primary_interaction AND time_to_see_data_ms >= %d)
				AS frustrating_interactions_count
		FROM metrics_time_to_see_data
		WHERE %s
		GROUP BY session_id
		ORDER BY session_end DESC`, models.FrustratingThresholdMS, where)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, q, args...)
	metrics.RecordDBQuery("SELECT", "metrics_time_to_see_data", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.SessionID, &s.UserID, &s.TeamID, &s.SessionStart, &s.SessionEnd, &s.DurationMS,
			&s.TeamEventsLastMonth, &s.EventsCount, &s.InteractionsCount,
			&s.TotalInteractionTimeToSeeDataMS, &s.FrustratingInteractionsCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// QueryTimeToSeeDataSessionEvents returns a session's events in time order.
// The upper bound is extended by two hours past sessionEnd.
func (db *DB) QueryTimeToSeeDataSessionEvents(ctx context.Context, teamID int64, sessionID string, sessionStart, sessionEnd time.Time) ([]models.SessionEvent, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	q := fmt.Sprintf(`
		SELECT %s, time_to_see_data_ms >= %d AS is_frustrating
		FROM metrics_time_to_see_data
		WHERE team_id = ?
			AND session_id = ?
			AND "timestamp" >= ?
			AND "timestamp" <= CAST(? AS TIMESTAMP) + %s
		ORDER BY "timestamp"`, ttsColumns, models.FrustratingThresholdMS, sessionEventsGrace)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, q, teamID, sessionID, sessionStart.UTC(), sessionEnd.UTC())
	metrics.RecordDBQuery("SELECT", "metrics_time_to_see_data", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query session events: %w", err)
	}
	defer closeWithLog(rows, "rows")

	events := make([]models.SessionEvent, 0)
	for rows.Next() {
		var ev models.SessionEvent
		var minRefresh, maxRefresh sql.NullTime
		e := &ev.TimeToSeeDataEvent
		if err := rows.Scan(&e.TeamID, &e.UserID, &e.SessionID, &e.Timestamp, &e.IngestedAt, &e.TeamEventsLastMonth,
			&e.QueryID, &e.PrimaryInteractionID, &e.TimeToSeeDataMS, &e.Status, &e.APIResponseBytes,
			&e.CurrentURL, &e.APIURL, &e.Insight, &e.Action, &e.InsightsFetched, &e.InsightsFetchedCache,
			&minRefresh, &maxRefresh, &e.IsPrimaryInteraction, &ev.IsFrustrating); err != nil {
			return nil, fmt.Errorf("failed to scan session event: %w", err)
		}
		if minRefresh.Valid {
			t := minRefresh.Time
			e.MinLastRefresh = &t
		}
		if maxRefresh.Valid {
			t := maxRefresh.Time
			e.MaxLastRefresh = &t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
