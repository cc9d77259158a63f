// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package annotations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/models"
)

type reportCall struct {
	userID int64
	event  string
	props  map[string]interface{}
}

type fakeReporter struct {
	mu    sync.Mutex
	calls []reportCall
}

func (r *fakeReporter) Report(_ context.Context, user *models.User, _ *models.Team, event string, props map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, reportCall{userID: user.ID, event: event, props: props})
}

type fakeBroadcaster struct {
	teams []int64
}

func (b *fakeBroadcaster) BroadcastJSON(messageType string, teamID *int64, _ interface{}) {
	if messageType == MessageType && teamID != nil {
		b.teams = append(b.teams, *teamID)
	}
}

type fixture struct {
	db       *database.DB
	org      *models.Organization
	team     *models.Team
	user     *models.User
	reporter *fakeReporter
	hub      *fakeBroadcaster
	svc      *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB"})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{db: db, reporter: &fakeReporter{}, hub: &fakeBroadcaster{}}
	f.org = &models.Organization{Name: "Acme"}
	if err := db.CreateOrganization(ctx, f.org); err != nil {
		t.Fatalf("CreateOrganization() error = %v", err)
	}
	f.team = f.newTeam(t, f.org, "Default project")
	f.user = &models.User{Email: "ada@example.com", FirstName: "Ada"}
	if err := db.CreateUser(ctx, f.user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	f.svc = NewService(db, f.reporter, f.hub)
	return f
}

func (f *fixture) newTeam(t *testing.T, org *models.Organization, name string) *models.Team {
	t.Helper()
	team := &models.Team{OrganizationID: org.ID, Name: name}
	if err := f.db.CreateTeam(context.Background(), team); err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}
	return team
}

func timePtr(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestCreate_TeamComesFromProject(t *testing.T) {
	t.Parallel()
	f := setup(t)
	other := f.newTeam(t, f.org, "Second project")

	marker := timePtr("2020-01-01T00:00:00Z")
	a, err := f.svc.Create(context.Background(), f.user, f.team, CreateRequest{
		Content:    "Marketing campaign",
		Scope:      models.ScopeOrganization,
		DateMarker: marker,
		Team:       &other.ID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stored, err := f.db.GetAnnotation(context.Background(), f.team.ID, f.org.ID, a.ID)
	if err != nil {
		t.Fatalf("GetAnnotation() error = %v", err)
	}
	if stored.TeamID != f.team.ID {
		t.Errorf("TeamID = %d, want %d", stored.TeamID, f.team.ID)
	}
	if stored.Scope != models.ScopeOrganization || stored.Content != "Marketing campaign" {
		t.Errorf("stored = %+v", stored)
	}
	if stored.DateMarker == nil || !stored.DateMarker.Equal(*marker) {
		t.Errorf("DateMarker = %v, want %v", stored.DateMarker, marker)
	}

	want := []reportCall{{
		userID: f.user.ID,
		event:  EventCreated,
		props:  map[string]interface{}{"scope": "organization", "date_marker": *marker},
	}}
	if diff := cmp.Diff(want, f.reporter.calls, cmp.AllowUnexported(reportCall{})); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{f.team.ID}, f.hub.teams); diff != "" {
		t.Errorf("broadcasts mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_DefaultScope(t *testing.T) {
	t.Parallel()
	f := setup(t)

	item := int64(99)
	tests := []struct {
		name string
		req  CreateRequest
		want models.AnnotationScope
	}{
		{"no insight", CreateRequest{Content: "a"}, models.ScopeProject},
		{"with insight", CreateRequest{Content: "b", DashboardItemID: &item}, models.ScopeInsight},
		{"explicit", CreateRequest{Content: "c", DashboardItemID: &item, Scope: models.ScopeOrganization}, models.ScopeOrganization},
	}
	for _, tt := range tests {
		a, err := f.svc.Create(context.Background(), f.user, f.team, tt.req)
		if err != nil {
			t.Fatalf("%s: Create() error = %v", tt.name, err)
		}
		if a.Scope != tt.want {
			t.Errorf("%s: Scope = %q, want %q", tt.name, a.Scope, tt.want)
		}
		if a.CreationType != models.CreationTypeUser {
			t.Errorf("%s: CreationType = %q", tt.name, a.CreationType)
		}
	}
}

func TestCreate_AnonymousIsNotReported(t *testing.T) {
	t.Parallel()
	f := setup(t)

	a, err := f.svc.Create(context.Background(), nil, f.team, CreateRequest{Content: "hello world!"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.CreatedBy != nil {
		t.Errorf("CreatedBy = %+v, want nil", a.CreatedBy)
	}
	if len(f.reporter.calls) != 0 {
		t.Errorf("reported %v for an annotation without a creator", f.reporter.calls)
	}

	list, err := f.svc.List(context.Background(), f.team, models.AnnotationFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Content != "hello world!" {
		t.Errorf("List() = %+v", list)
	}
}

func TestUpdate_PartialAndReported(t *testing.T) {
	t.Parallel()
	f := setup(t)

	a, err := f.svc.Create(context.Background(), f.user, f.team, CreateRequest{Content: "hello world!"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	f.reporter.calls = nil

	editor := &models.User{ID: f.user.ID + 100}
	content := "Updated text"
	scope := models.ScopeOrganization
	updated, err := f.svc.Update(context.Background(), editor, f.team, a.ID, PatchRequest{Content: &content, Scope: &scope})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Content != content || updated.Scope != scope {
		t.Errorf("updated = %+v", updated)
	}
	if updated.DateMarker != nil {
		t.Errorf("DateMarker = %v, want unchanged nil", updated.DateMarker)
	}

	want := []reportCall{{
		userID: f.user.ID,
		event:  EventUpdated,
		props:  map[string]interface{}{"scope": "organization", "date_marker": nil},
	}}
	if diff := cmp.Diff(want, f.reporter.calls, cmp.AllowUnexported(reportCall{})); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdate_SoftDeleteHidesFromList(t *testing.T) {
	t.Parallel()
	f := setup(t)

	a, err := f.svc.Create(context.Background(), f.user, f.team, CreateRequest{Content: "gone soon"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	deleted := true
	if _, err := f.svc.Update(context.Background(), f.user, f.team, a.ID, PatchRequest{Deleted: &deleted}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	list, err := f.svc.List(context.Background(), f.team, models.AnnotationFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List() returned %d soft-deleted annotations", len(list))
	}
}

func TestList_OrganizationScopeCrossesProjects(t *testing.T) {
	t.Parallel()
	f := setup(t)
	second := f.newTeam(t, f.org, "Second team")

	if _, err := f.svc.Create(context.Background(), f.user, second, CreateRequest{
		Content: "Cross-project annotation!", Scope: models.ScopeOrganization,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.Create(context.Background(), f.user, second, CreateRequest{
		Content: "Intra-project annotation!", Scope: models.ScopeProject,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := f.svc.List(context.Background(), f.team, models.AnnotationFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].Content != "Cross-project annotation!" {
		t.Errorf("List() = %+v", list)
	}

	foreignOrg := &models.Organization{Name: "Elsewhere"}
	if err := f.db.CreateOrganization(context.Background(), foreignOrg); err != nil {
		t.Fatalf("CreateOrganization() error = %v", err)
	}
	foreign := f.newTeam(t, foreignOrg, "Foreign")
	list, err = f.svc.List(context.Background(), foreign, models.AnnotationFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("foreign organization sees %d annotations", len(list))
	}
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	f := setup(t)

	_, err := f.svc.Get(context.Background(), f.team, 12345)
	if !errors.Is(err, database.ErrAnnotationNotFound) {
		t.Errorf("Get() error = %v, want ErrAnnotationNotFound", err)
	}

	content := "x"
	_, err = f.svc.Update(context.Background(), f.user, f.team, 12345, PatchRequest{Content: &content})
	if !errors.Is(err, database.ErrAnnotationNotFound) {
		t.Errorf("Update() error = %v, want ErrAnnotationNotFound", err)
	}
}
