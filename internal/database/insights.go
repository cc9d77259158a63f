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

	"github.com/tomtom215/trailmark/internal/insights/legacy"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

const insightColumns = `id, short_id, team_id, name, filters, query, created_by, created_at, updated_at`

// BackfillResult summarizes one filters-to-query conversion pass.
type BackfillResult struct {
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
}

func scanInsight(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Insight, error) {
	ins := &models.Insight{}
	var filters string
	var query sql.NullString
	var createdBy sql.NullInt64

	if err := scanner.Scan(&ins.ID, &ins.ShortID, &ins.TeamID, &ins.Name, &filters, &query,
		&createdBy, &ins.CreatedAt, &ins.UpdatedAt); err != nil {
		return nil, err
	}

	ins.Filters = map[string]interface{}{}
	if filters != "" {
		if err := json.Unmarshal([]byte(filters), &ins.Filters); err != nil {
			return nil, fmt.Errorf("insight %d has malformed filters: %w", ins.ID, err)
		}
	}
	if query.Valid && query.String != "" {
		ins.Query = json.RawMessage(query.String)
	}
	if createdBy.Valid {
		id := createdBy.Int64
		ins.CreatedBy = &id
	}
	return ins, nil
}

// CreateInsight stores a new insight and fills in its ID and timestamps.
func (db *DB) CreateInsight(ctx context.Context, ins *models.Insight) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if ins.Filters == nil {
		ins.Filters = map[string]interface{}{}
	}
	filters, err := json.Marshal(ins.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	var query interface{}
	if len(ins.Query) > 0 && string(ins.Query) != "null" {
		query = string(ins.Query)
	}

	now := time.Now().UTC()
	start := time.Now()
	err = db.conn.QueryRowContext(ctx, `
		INSERT INTO insights (short_id, team_id, name, filters, query, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		ins.ShortID, ins.TeamID, ins.Name, string(filters), query, nullableInt64(ins.CreatedBy), now, now,
	).Scan(&ins.ID)
	metrics.RecordDBQuery("INSERT", "insights", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	ins.CreatedAt = now
	ins.UpdatedAt = now
	return nil
}

// GetInsight returns one insight of a project.
func (db *DB) GetInsight(ctx context.Context, teamID, id int64) (*models.Insight, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE team_id = ? AND id = ?`, teamID, id)
	ins, err := scanInsight(row)
	if err != nil {
		return nil, notFound(err, ErrInsightNotFound)
	}
	return ins, nil
}

// ListInsights returns a project's insights, newest first.
func (db *DB) ListInsights(ctx context.Context, teamID int64, limit, offset int) ([]*models.Insight, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE team_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		teamID, limit, offset)
	metrics.RecordDBQuery("SELECT", "insights", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list insights: %w", err)
	}
	defer closeWithLog(rows, "rows")

	insights := make([]*models.Insight, 0)
	for rows.Next() {
		ins, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, ins)
	}
	return insights, rows.Err()
}

// UpdateInsightQuery replaces an insight's query and filters.
func (db *DB) UpdateInsightQuery(ctx context.Context, id int64, query json.RawMessage, filters map[string]interface{}) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	encodedFilters, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	var q interface{}
	if len(query) > 0 {
		q = string(query)
	}
	res, err := db.conn.ExecContext(ctx,
		`UPDATE insights SET query = ?, filters = ?, updated_at = ? WHERE id = ?`,
		q, string(encodedFilters), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update insight %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInsightNotFound
	}
	return nil
}

// BackfillInsightQueries runs the filters-to-query conversion outside the
// migration framework, committing once at the end.
func (db *DB) BackfillInsightQueries(ctx context.Context) (BackfillResult, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("failed to begin backfill: %w", err)
	}
	result, err := db.backfillInsights(ctx, tx)
	if err != nil {
		rollbackQuietly(tx)
		return result, err
	}
	if err := tx.Commit(); err != nil {
		return BackfillResult{}, fmt.Errorf("failed to commit backfill: %w", err)
	}
	return result, nil
}

// backfillInsightQueries is the Go step of migration 3.
func (db *DB) backfillInsightQueries(ctx context.Context, tx *sql.Tx) error {
	result, err := db.backfillInsights(ctx, tx)
	if err != nil {
		return err
	}
	logging.Info().
		Int("converted", result.Converted).
		Int("skipped", result.Skipped).
		Msg("Converted insight filters to queries")
	return nil
}

type pendingInsight struct {
	id      int64
	filters string
}

// backfillInsights walks insights by ascending id in chunks. Each insight with
// an insight type and no query kind gets an InsightVizNode query and a
// migrated_at marker. Conversion failures are logged and skipped.
func (db *DB) backfillInsights(ctx context.Context, tx *sql.Tx) (BackfillResult, error) {
	var result BackfillResult
	var lastID int64
	chunk := db.backfillChunkSize
	if chunk <= 0 {
		chunk = defaultBackfillChunkSize
	}

	for {
		batch, err := loadPendingInsights(ctx, tx, lastID, chunk)
		if err != nil {
			return result, err
		}
		if len(batch) == 0 {
			return result, nil
		}

		migratedAt := time.Now().UTC().Format(time.RFC3339)
		for _, p := range batch {
			lastID = p.id

			query, filters, err := convertInsight(p.filters, migratedAt)
			if err != nil {
				logging.Warn().Int64("insight_id", p.id).Err(err).Msg("Skipping insight during filters-to-query conversion")
				result.Skipped++
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE insights SET query = ?, filters = ? WHERE id = ?`, query, filters, p.id); err != nil {
				return result, fmt.Errorf("failed to store converted insight %d: %w", p.id, err)
			}
			result.Converted++
		}

		if len(batch) < chunk {
			return result, nil
		}
	}
}

func loadPendingInsights(ctx context.Context, tx *sql.Tx, afterID int64, limit int) ([]pendingInsight, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, filters
		FROM insights
		WHERE id > ?
			AND json_extract_string(filters, '$.insight') IS NOT NULL
			AND (query IS NULL OR json_extract_string(query, '$.kind') IS NULL)
		ORDER BY id
		LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load insights for conversion: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var batch []pendingInsight
	for rows.Next() {
		var p pendingInsight
		if err := rows.Scan(&p.id, &p.filters); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		batch = append(batch, p)
	}
	return batch, rows.Err()
}

// convertInsight returns the encoded query and the encoded filters with the
// migrated_at marker set.
func convertInsight(rawFilters, migratedAt string) (string, string, error) {
	var filters map[string]interface{}
	if err := json.Unmarshal([]byte(rawFilters), &filters); err != nil {
		return "", "", fmt.Errorf("decode filters: %w", err)
	}
	source, err := legacy.FilterToQuery(filters)
	if err != nil {
		return "", "", err
	}
	query, err := json.Marshal(legacy.InsightVizNode(source))
	if err != nil {
		return "", "", fmt.Errorf("encode query: %w", err)
	}
	filters[legacy.MigratedAtKey] = migratedAt
	encodedFilters, err := json.Marshal(filters)
	if err != nil {
		return "", "", fmt.Errorf("encode filters: %w", err)
	}
	return string(query), string(encodedFilters), nil
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
