// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/models"
)

func ttsEvent(team int64, session string, at time.Time, ms int64, primary bool) models.TimeToSeeDataEvent {
	return models.TimeToSeeDataEvent{
		TeamID:               team,
		UserID:               1,
		SessionID:            session,
		Timestamp:            at,
		TimeToSeeDataMS:      ms,
		IsPrimaryInteraction: primary,
		TeamEventsLastMonth:  ms,
		Action:               "load_insight",
	}
}

func TestTimeToSeeData_Sessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	events := []models.TimeToSeeDataEvent{
		ttsEvent(1, "s1", base, 1000, true),
		ttsEvent(1, "s1", base.Add(30*time.Second), 6000, true),
		ttsEvent(1, "s1", base.Add(60*time.Second), 200, false),
		ttsEvent(1, "s2", base.Add(time.Hour), 300, true),
		ttsEvent(2, "s3", base.Add(2*time.Hour), 100, false),
	}
	inserted, err := db.InsertTimeToSeeDataEvents(ctx, events)
	if err != nil {
		t.Fatalf("InsertTimeToSeeDataEvents() error = %v", err)
	}
	if inserted != len(events) {
		t.Fatalf("inserted %d, want %d", inserted, len(events))
	}

	team := int64(1)
	sessions, err := db.QueryTimeToSeeDataSessions(ctx, &team, nil)
	if err != nil {
		t.Fatalf("QueryTimeToSeeDataSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].SessionID != "s2" {
		t.Errorf("sessions must be ordered by end time desc, first = %s", sessions[0].SessionID)
	}

	s1 := sessions[1]
	if s1.EventsCount != 3 || s1.InteractionsCount != 2 {
		t.Errorf("s1 counts = events %d interactions %d", s1.EventsCount, s1.InteractionsCount)
	}
	if s1.TotalInteractionTimeToSeeDataMS != 7000 {
		t.Errorf("s1 total tts = %d, want 7000", s1.TotalInteractionTimeToSeeDataMS)
	}
	if s1.FrustratingInteractionsCount != 1 {
		t.Errorf("s1 frustrating = %d, want 1", s1.FrustratingInteractionsCount)
	}
	if s1.DurationMS != 60000 {
		t.Errorf("s1 duration = %d, want 60000", s1.DurationMS)
	}
	if !s1.SessionStart.Equal(base) {
		t.Errorf("s1 start = %v, want %v", s1.SessionStart, base)
	}

	all, err := db.QueryTimeToSeeDataSessions(ctx, nil, nil)
	if err != nil {
		t.Fatalf("QueryTimeToSeeDataSessions(all) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered sessions = %d, want 3", len(all))
	}

	session := "s3"
	only, err := db.QueryTimeToSeeDataSessions(ctx, &team, &session)
	if err != nil {
		t.Fatalf("QueryTimeToSeeDataSessions(filtered) error = %v", err)
	}
	if len(only) != 0 {
		t.Errorf("s3 belongs to team 2, got %d sessions", len(only))
	}
}

func TestTimeToSeeData_SessionEventsWindow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	refresh := base.Add(-time.Minute)
	late := ttsEvent(1, "s1", base.Add(90*time.Minute), 7000, true)
	late.MinLastRefresh = &refresh
	events := []models.TimeToSeeDataEvent{
		ttsEvent(1, "s1", base.Add(-time.Second), 100, true),
		ttsEvent(1, "s1", base, 100, true),
		late,
		ttsEvent(1, "s1", base.Add(3*time.Hour), 100, true),
		ttsEvent(1, "other", base, 100, true),
	}
	if _, err := db.InsertTimeToSeeDataEvents(ctx, events); err != nil {
		t.Fatalf("InsertTimeToSeeDataEvents() error = %v", err)
	}

	got, err := db.QueryTimeToSeeDataSessionEvents(ctx, 1, "s1", base, base.Add(time.Minute))
	if err != nil {
		t.Fatalf("QueryTimeToSeeDataSessionEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 (start bound and the late one)", len(got))
	}
	if got[0].IsFrustrating {
		t.Error("fast event flagged frustrating")
	}
	if !got[1].IsFrustrating {
		t.Error("slow event not flagged frustrating")
	}
	if got[1].MinLastRefresh == nil || !got[1].MinLastRefresh.Equal(refresh) {
		t.Errorf("MinLastRefresh = %v, want %v", got[1].MinLastRefresh, refresh)
	}
	if got[1].IngestedAt.IsZero() {
		t.Error("ingestion time should default to now")
	}
}

func TestInsertTimeToSeeDataEvents_LargeBatch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Spans several appender chunks.
	const n = 5000
	base := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	refreshed := base.Add(-time.Minute)
	events := make([]models.TimeToSeeDataEvent, n)
	for i := range events {
		events[i] = ttsEvent(7, "bulk", base.Add(time.Duration(i)*time.Millisecond), int64(i), i%2 == 0)
	}
	events[0].MinLastRefresh = &refreshed
	events[0].InsightsFetched = 3

	inserted, err := db.InsertTimeToSeeDataEvents(ctx, events)
	if err != nil {
		t.Fatalf("InsertTimeToSeeDataEvents() error = %v", err)
	}
	if inserted != n {
		t.Fatalf("inserted %d, want %d", inserted, n)
	}

	var count, withRefresh, missingIngest int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*),
			count(min_last_refresh),
			count(*) FILTER (WHERE _timestamp IS NULL)
		FROM metrics_time_to_see_data WHERE team_id = 7`).Scan(&count, &withRefresh, &missingIngest); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != n || withRefresh != 1 || missingIngest != 0 {
		t.Errorf("rows = %d with refresh %d missing ingest %d, want %d/1/0", count, withRefresh, missingIngest, n)
	}

	got, err := db.QueryTimeToSeeDataSessionEvents(ctx, 7, "bulk", base, base)
	if err != nil {
		t.Fatalf("QueryTimeToSeeDataSessionEvents() error = %v", err)
	}
	first := got[0].TimeToSeeDataEvent
	if first.InsightsFetched != 3 || first.MinLastRefresh == nil || !first.MinLastRefresh.Equal(refreshed) || first.MaxLastRefresh != nil {
		t.Errorf("first event = %+v", first)
	}
}

func TestInsertTimeToSeeDataEvents_CanceledContext(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := []models.TimeToSeeDataEvent{ttsEvent(8, "s", time.Now().UTC(), 10, true)}
	if _, err := db.InsertTimeToSeeDataEvents(ctx, events); err == nil {
		t.Fatal("expected error for canceled context")
	}

	var count int
	if err := db.conn.QueryRowContext(context.Background(),
		`SELECT count(*) FROM metrics_time_to_see_data WHERE team_id = 8`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Errorf("rows = %d, want 0", count)
	}
}

func TestActivity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org, team, owner := seedTenant(t, db)

	ev := &models.ActivityEvent{
		Event:          "annotation created",
		UserID:         owner.ID,
		DistinctID:     owner.DistinctID,
		TeamID:         &team.ID,
		OrganizationID: &org.ID,
		Properties:     map[string]interface{}{"scope": "project"},
	}
	if err := db.InsertActivityEvent(ctx, ev); err != nil {
		t.Fatalf("InsertActivityEvent() error = %v", err)
	}
	if ev.ID == uuid.Nil {
		t.Fatal("expected an id to be assigned")
	}
	// Redelivery is idempotent.
	if err := db.InsertActivityEvent(ctx, ev); err != nil {
		t.Fatalf("InsertActivityEvent(redelivery) error = %v", err)
	}

	list, err := db.ListActivity(ctx, team.ID, 10)
	if err != nil {
		t.Fatalf("ListActivity() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListActivity() = %d, want 1", len(list))
	}
	if list[0].Properties["scope"] != "project" || list[0].OrganizationID == nil || *list[0].OrganizationID != org.ID {
		t.Errorf("ListActivity()[0] = %+v", list[0])
	}
}
