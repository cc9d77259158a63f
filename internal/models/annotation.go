// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package models

import (
	"time"

	"github.com/google/uuid"
)

// AnnotationScope controls where an annotation is visible.
type AnnotationScope string

const (
	// ScopeInsight shows the annotation on a single insight.
	ScopeInsight AnnotationScope = "dashboard_item"
	// ScopeProject shows the annotation across one project.
	ScopeProject AnnotationScope = "project"
	// ScopeOrganization shows the annotation in every project of the organization.
	ScopeOrganization AnnotationScope = "organization"
)

// Valid reports whether s is a known scope.
func (s AnnotationScope) Valid() bool {
	return s == ScopeInsight || s == ScopeProject || s == ScopeOrganization
}

// Annotation creation types.
const (
	CreationTypeUser   = "USR"
	CreationTypeGitHub = "GIT"
)

// Annotation marks a point in time on charts.
type Annotation struct {
	ID              int64           `json:"id"`
	Content         string          `json:"content"`
	DateMarker      *time.Time      `json:"date_marker"`
	CreationType    string          `json:"creation_type"`
	DashboardItemID *int64          `json:"dashboard_item"`
	TeamID          int64           `json:"team"`
	OrganizationID  uuid.UUID       `json:"organization"`
	Scope           AnnotationScope `json:"scope"`
	CreatedBy       *UserBasic      `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Deleted         bool            `json:"deleted"`
}

// AnnotationFilter narrows annotation listings.
type AnnotationFilter struct {
	DashboardItemID *int64
	// Before and After compare against created_at.
	Before *time.Time
	After  *time.Time
	Limit  int
	Offset int
}
