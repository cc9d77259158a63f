// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package annotations manages chart annotations: notes pinned to a point in
// time on one insight, one project, or every project of an organization.
package annotations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/models"
)

// Activity event names.
const (
	EventCreated = "annotation created"
	EventUpdated = "annotation updated"
)

// MessageType is the realtime message type for annotation changes.
const MessageType = "annotation"

// Store is the subset of the database used by Service.
type Store interface {
	ListAnnotations(ctx context.Context, teamID int64, orgID uuid.UUID, filter models.AnnotationFilter) ([]*models.Annotation, error)
	CreateAnnotation(ctx context.Context, a *models.Annotation, createdByID *int64) error
	GetAnnotation(ctx context.Context, teamID int64, orgID uuid.UUID, id int64) (*models.Annotation, error)
	UpdateAnnotation(ctx context.Context, teamID int64, orgID uuid.UUID, id int64, patch database.AnnotationPatch) (*models.Annotation, error)
}

// Reporter records user actions. *activity.Reporter satisfies it.
type Reporter interface {
	Report(ctx context.Context, user *models.User, team *models.Team, event string, props map[string]interface{})
}

// Broadcaster pushes changes to live listeners. *websocket.Hub satisfies it.
type Broadcaster interface {
	BroadcastJSON(messageType string, teamID *int64, data interface{})
}

// CreateRequest is the body of an annotation create.
type CreateRequest struct {
	Content         string                 `json:"content" validate:"max=400"`
	Scope           models.AnnotationScope `json:"scope,omitempty" validate:"omitempty,annotation_scope"`
	DateMarker      *time.Time             `json:"date_marker,omitempty"`
	DashboardItemID *int64                 `json:"dashboard_item,omitempty" validate:"omitempty,gt=0"`
	CreationType    string                 `json:"creation_type,omitempty" validate:"omitempty,oneof=USR GIT"`
	// Team is accepted for compatibility and ignored: the project in the
	// URL always wins.
	Team *int64 `json:"team,omitempty"`
}

// PatchRequest is the body of a partial update. Absent fields are left as
// they are.
type PatchRequest struct {
	Content         *string                 `json:"content,omitempty" validate:"omitempty,max=400"`
	Scope           *models.AnnotationScope `json:"scope,omitempty" validate:"omitempty,annotation_scope"`
	DateMarker      *time.Time              `json:"date_marker,omitempty"`
	DashboardItemID *int64                  `json:"dashboard_item,omitempty" validate:"omitempty,gt=0"`
	Deleted         *bool                   `json:"deleted,omitempty"`
}

// Service implements annotation listing and editing for one project at a
// time.
type Service struct {
	store       Store
	reporter    Reporter
	broadcaster Broadcaster
}

// NewService creates a service. reporter and broadcaster may be nil.
func NewService(store Store, reporter Reporter, broadcaster Broadcaster) *Service {
	return &Service{store: store, reporter: reporter, broadcaster: broadcaster}
}

// List returns the annotations visible from team.
func (s *Service) List(ctx context.Context, team *models.Team, filter models.AnnotationFilter) ([]*models.Annotation, error) {
	return s.store.ListAnnotations(ctx, team.ID, team.OrganizationID, filter)
}

// Get returns one annotation visible from team.
func (s *Service) Get(ctx context.Context, team *models.Team, id int64) (*models.Annotation, error) {
	return s.store.GetAnnotation(ctx, team.ID, team.OrganizationID, id)
}

// Create stores a new annotation in team on behalf of actor, which may be
// nil for anonymous callers.
func (s *Service) Create(ctx context.Context, actor *models.User, team *models.Team, req CreateRequest) (*models.Annotation, error) {
	a := &models.Annotation{
		Content:         req.Content,
		DateMarker:      utc(req.DateMarker),
		CreationType:    req.CreationType,
		DashboardItemID: req.DashboardItemID,
		TeamID:          team.ID,
		OrganizationID:  team.OrganizationID,
		Scope:           req.Scope,
		CreatedBy:       actor.Basic(),
	}
	if a.Scope == "" {
		a.Scope = models.ScopeProject
		if a.DashboardItemID != nil {
			a.Scope = models.ScopeInsight
		}
	}

	var createdByID *int64
	if actor != nil {
		id := actor.ID
		createdByID = &id
	}
	if err := s.store.CreateAnnotation(ctx, a, createdByID); err != nil {
		return nil, fmt.Errorf("create annotation: %w", err)
	}

	logging.Ctx(ctx).Info().Int64("annotation_id", a.ID).Int64("team_id", team.ID).
		Str("scope", string(a.Scope)).Msg("annotation created")
	s.changed(ctx, team, a, EventCreated)
	return a, nil
}

// Update applies a partial update on behalf of actor. The creator, not the
// editor, is the subject of the reported activity.
func (s *Service) Update(ctx context.Context, actor *models.User, team *models.Team, id int64, req PatchRequest) (*models.Annotation, error) {
	patch := database.AnnotationPatch{
		Content:         req.Content,
		Scope:           req.Scope,
		DateMarker:      utc(req.DateMarker),
		DashboardItemID: req.DashboardItemID,
		Deleted:         req.Deleted,
	}
	a, err := s.store.UpdateAnnotation(ctx, team.ID, team.OrganizationID, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update annotation %d: %w", id, err)
	}

	event := logging.Ctx(ctx).Info().Int64("annotation_id", a.ID).Int64("team_id", team.ID)
	if actor != nil {
		event = event.Int64("user_id", actor.ID)
	}
	event.Msg("annotation updated")

	s.changed(ctx, team, a, EventUpdated)
	return a, nil
}

// changed reports and broadcasts a stored change.
func (s *Service) changed(ctx context.Context, team *models.Team, a *models.Annotation, event string) {
	if s.broadcaster != nil {
		teamID := team.ID
		s.broadcaster.BroadcastJSON(MessageType, &teamID, a)
	}
	if s.reporter == nil || a.CreatedBy == nil {
		return
	}
	s.reporter.Report(ctx, a.CreatedBy.User(), team, event, reportProperties(a))
}

func reportProperties(a *models.Annotation) map[string]interface{} {
	props := map[string]interface{}{
		"scope":       string(a.Scope),
		"date_marker": nil,
	}
	if a.DateMarker != nil {
		props["date_marker"] = *a.DateMarker
	}
	return props
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
