// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/database/query"
	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

const annotationSelect = `
	SELECT a.id, a.content, a.date_marker, a.creation_type, a.dashboard_item_id, a.team_id,
		a.organization_id, a.scope, a.created_at, a.updated_at, a.deleted,
		u.id, u.uuid, u.distinct_id, u.email, u.first_name
	FROM annotations a
	LEFT JOIN users u ON u.id = a.created_by_id`

// AnnotationPatch lists the fields an update may change. Nil fields stay as
// they are. ClearDashboardItem detaches the annotation from its insight.
type AnnotationPatch struct {
	Content            *string
	Scope              *models.AnnotationScope
	DateMarker         *time.Time
	DashboardItemID    *int64
	ClearDashboardItem bool
	Deleted            *bool
}

func scanAnnotation(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Annotation, error) {
	a := &models.Annotation{}
	var dateMarker sql.NullTime
	var dashboardItem sql.NullInt64
	var rawOrg, scope string
	var userID sql.NullInt64
	var userUUID, distinctID, email, firstName sql.NullString

	if err := scanner.Scan(&a.ID, &a.Content, &dateMarker, &a.CreationType, &dashboardItem, &a.TeamID,
		&rawOrg, &scope, &a.CreatedAt, &a.UpdatedAt, &a.Deleted,
		&userID, &userUUID, &distinctID, &email, &firstName); err != nil {
		return nil, err
	}

	orgID, err := uuid.Parse(rawOrg)
	if err != nil {
		return nil, fmt.Errorf("annotation %d has malformed organization id: %w", a.ID, err)
	}
	a.OrganizationID = orgID
	a.Scope = models.AnnotationScope(scope)
	if dateMarker.Valid {
		t := dateMarker.Time
		a.DateMarker = &t
	}
	if dashboardItem.Valid {
		id := dashboardItem.Int64
		a.DashboardItemID = &id
	}
	if userID.Valid {
		creator := &models.UserBasic{
			ID:         userID.Int64,
			DistinctID: distinctID.String,
			Email:      email.String,
			FirstName:  firstName.String,
		}
		if parsed, err := uuid.Parse(userUUID.String); err == nil {
			creator.UUID = parsed
		}
		a.CreatedBy = creator
	}
	return a, nil
}

// CreateAnnotation stores an annotation. createdByID may be nil for
// system-created annotations.
func (db *DB) CreateAnnotation(ctx context.Context, a *models.Annotation, createdByID *int64) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if a.CreationType == "" {
		a.CreationType = models.CreationTypeUser
	}
	now := time.Now().UTC()

	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO annotations (content, date_marker, creation_type, dashboard_item_id, team_id,
			organization_id, scope, created_by_id, created_at, updated_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, false)
		RETURNING id`,
		a.Content, nullableTime(a.DateMarker), a.CreationType, nullableInt64(a.DashboardItemID), a.TeamID,
		a.OrganizationID.String(), string(a.Scope), nullableInt64(createdByID), now, now,
	).Scan(&a.ID)
	metrics.RecordDBQuery("INSERT", "annotations", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert annotation: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAnnotation returns an annotation visible from a project: its own, or an
// organization-scoped one from the same organization.
func (db *DB) GetAnnotation(ctx context.Context, teamID int64, orgID uuid.UUID, id int64) (*models.Annotation, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, annotationSelect+`
		WHERE a.id = ? AND (a.team_id = ? OR (a.scope = 'organization' AND a.organization_id = ?))`,
		id, teamID, orgID.String())
	a, err := scanAnnotation(row)
	if err != nil {
		return nil, notFound(err, ErrAnnotationNotFound)
	}
	return a, nil
}

// UpdateAnnotation applies a partial update and returns the stored row.
func (db *DB) UpdateAnnotation(ctx context.Context, teamID int64, orgID uuid.UUID, id int64, patch AnnotationPatch) (*models.Annotation, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Scope != nil {
		sets = append(sets, "scope = ?")
		args = append(args, string(*patch.Scope))
	}
	if patch.DateMarker != nil {
		sets = append(sets, "date_marker = ?")
		args = append(args, patch.DateMarker.UTC())
	}
	if patch.ClearDashboardItem {
		sets = append(sets, "dashboard_item_id = NULL")
	} else if patch.DashboardItemID != nil {
		sets = append(sets, "dashboard_item_id = ?")
		args = append(args, *patch.DashboardItemID)
	}
	if patch.Deleted != nil {
		sets = append(sets, "deleted = ?")
		args = append(args, *patch.Deleted)
	}

	args = append(args, id, teamID, orgID.String())

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE annotations SET `+strings.Join(sets, ", ")+`
		WHERE id = ? AND (team_id = ? OR (scope = 'organization' AND organization_id = ?))`, args...)
	metrics.RecordDBQuery("UPDATE", "annotations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to update annotation %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrAnnotationNotFound
	}
	return db.GetAnnotation(ctx, teamID, orgID, id)
}

// ListAnnotations returns non-deleted annotations visible from a project,
// most recent date marker first.
func (db *DB) ListAnnotations(ctx context.Context, teamID int64, orgID uuid.UUID, filter models.AnnotationFilter) ([]*models.Annotation, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	wb := query.NewWhereBuilder().
		AddClause("(a.team_id = ? OR (a.scope = 'organization' AND a.organization_id = ?))", teamID, orgID.String()).
		AddClause("a.deleted = false").
		AddTimeRange("a.created_at", filter.After, filter.Before)
	if filter.DashboardItemID != nil {
		wb.AddClause("a.dashboard_item_id = ?", *filter.DashboardItemID)
	}
	where, args := wb.BuildWithPrefix()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, annotationSelect+"\n\t"+where+`
		ORDER BY a.date_marker DESC NULLS LAST, a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?`, args...)
	metrics.RecordDBQuery("SELECT", "annotations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	defer closeWithLog(rows, "rows")

	annotations := make([]*models.Annotation, 0)
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotation: %w", err)
		}
		annotations = append(annotations, a)
	}
	return annotations, rows.Err()
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
