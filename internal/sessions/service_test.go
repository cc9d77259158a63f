// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/trailmark/internal/cache"
	"github.com/tomtom215/trailmark/internal/models"
)

type fakeStore struct {
	mu            sync.Mutex
	sessions      []models.Session
	events        []models.SessionEvent
	users         map[int64]*models.User
	sessionsErr   error
	eventsErr     error
	sessionCalls  int
	userLookups   [][]int64
	lastTeamID    *int64
	lastSessionID *string
}

func (f *fakeStore) QueryTimeToSeeDataSessions(_ context.Context, teamID *int64, sessionID *string) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	f.lastTeamID, f.lastSessionID = teamID, sessionID
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	out := make([]models.Session, len(f.sessions))
	copy(out, f.sessions)
	return out, nil
}

func (f *fakeStore) QueryTimeToSeeDataSessionEvents(_ context.Context, _ int64, _ string, _, _ time.Time) ([]models.SessionEvent, error) {
	return f.events, f.eventsErr
}

func (f *fakeStore) GetUsersByIDs(_ context.Context, ids []int64) (map[int64]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userLookups = append(f.userLookups, ids)
	out := make(map[int64]*models.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func int64Ptr(v int64) *int64    { return &v }
func stringPtr(v string) *string { return &v }

func TestSessionsQuery_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		q       SessionsQuery
		wantErr bool
	}{
		{"empty", SessionsQuery{}, false},
		{"team", SessionsQuery{TeamID: int64Ptr(1)}, false},
		{"zero team", SessionsQuery{TeamID: int64Ptr(0)}, true},
		{"empty session", SessionsQuery{SessionID: stringPtr("")}, true},
	}
	for _, tt := range tests {
		if err := tt.q.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestSessionEventsQuery_Validate(t *testing.T) {
	t.Parallel()

	now := time.Now()
	valid := SessionEventsQuery{TeamID: 1, SessionID: "s", SessionStart: now.Add(-time.Hour), SessionEnd: now}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	inverted := valid
	inverted.SessionStart, inverted.SessionEnd = valid.SessionEnd, valid.SessionStart
	missing := valid
	missing.SessionID = ""
	noTeam := valid
	noTeam.TeamID = 0

	for name, q := range map[string]SessionEventsQuery{"inverted": inverted, "missing session": missing, "no team": noTeam} {
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("%s: Validate() = %v, want ErrInvalidQuery", name, err)
		}
	}
}

func TestGetSessions_AttachesUsersWithOneLookup(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		sessions: []models.Session{
			{SessionID: "b", UserID: 7},
			{SessionID: "a", UserID: 7},
			{SessionID: "c", UserID: 9},
		},
		users: map[int64]*models.User{7: {ID: 7, Email: "seven@example.com"}},
	}
	svc := NewService(store, nil)

	sessions, err := svc.GetSessions(context.Background(), SessionsQuery{TeamID: int64Ptr(3)})
	if err != nil {
		t.Fatalf("GetSessions() error = %v", err)
	}
	if len(store.userLookups) != 1 || len(store.userLookups[0]) != 2 {
		t.Fatalf("user lookups = %v, want one lookup of 2 ids", store.userLookups)
	}
	if sessions[0].User == nil || sessions[0].User.Email != "seven@example.com" {
		t.Errorf("session b user = %+v", sessions[0].User)
	}
	if sessions[2].User != nil {
		t.Errorf("unknown user should stay nil, got %+v", sessions[2].User)
	}
	if store.lastTeamID == nil || *store.lastTeamID != 3 || store.lastSessionID != nil {
		t.Errorf("filters passed = %v, %v", store.lastTeamID, store.lastSessionID)
	}
}

func TestGetSessions_Cached(t *testing.T) {
	t.Parallel()

	store := &fakeStore{sessions: []models.Session{{SessionID: "a", UserID: 1}}}
	svc := NewService(store, cache.New("sessions-test", time.Minute, time.Minute))

	q := SessionsQuery{TeamID: int64Ptr(1)}
	for i := 0; i < 3; i++ {
		if _, err := svc.GetSessions(context.Background(), q); err != nil {
			t.Fatalf("GetSessions() error = %v", err)
		}
	}
	if store.sessionCalls != 1 {
		t.Errorf("store called %d times, want 1", store.sessionCalls)
	}

	if _, err := svc.GetSessions(context.Background(), SessionsQuery{TeamID: int64Ptr(2)}); err != nil {
		t.Fatal(err)
	}
	if store.sessionCalls != 2 {
		t.Errorf("different filter should miss the cache, calls = %d", store.sessionCalls)
	}
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	store := &fakeStore{sessions: []models.Session{{SessionID: "a", UserID: 1}}}
	svc := NewService(store, cache.New("sessions-test", time.Minute, time.Minute))

	q := SessionsQuery{TeamID: int64Ptr(1)}
	if _, err := svc.GetSessions(context.Background(), q); err != nil {
		t.Fatalf("GetSessions() error = %v", err)
	}
	svc.Invalidate()
	if _, err := svc.GetSessions(context.Background(), q); err != nil {
		t.Fatalf("GetSessions() error = %v", err)
	}
	if store.sessionCalls != 2 {
		t.Errorf("store called %d times, want 2 after invalidation", store.sessionCalls)
	}

	// Without a cache it is a no-op.
	NewService(store, nil).Invalidate()
}

func TestGetSessionEvents(t *testing.T) {
	t.Parallel()

	end := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		sessions: []models.Session{{SessionID: "s1", UserID: 1, TeamID: 2, SessionEnd: end}},
		events: []models.SessionEvent{
			{TimeToSeeDataEvent: models.TimeToSeeDataEvent{SessionID: "s1", TimeToSeeDataMS: 100}},
			{TimeToSeeDataEvent: models.TimeToSeeDataEvent{SessionID: "s1", TimeToSeeDataMS: 6000}, IsFrustrating: true},
		},
	}
	svc := NewService(store, nil)

	got, err := svc.GetSessionEvents(context.Background(), SessionEventsQuery{
		TeamID: 2, SessionID: "s1", SessionStart: end.Add(-time.Hour), SessionEnd: end,
	})
	if err != nil {
		t.Fatalf("GetSessionEvents() error = %v", err)
	}
	if got.Session.SessionID != "s1" || len(got.Events) != 2 || !got.Events[1].IsFrustrating {
		t.Errorf("GetSessionEvents() = %+v", got)
	}
	if store.lastSessionID == nil || *store.lastSessionID != "s1" {
		t.Errorf("session lookup used %v", store.lastSessionID)
	}
}

func TestGetSessionEvents_Errors(t *testing.T) {
	t.Parallel()

	end := time.Now()
	q := SessionEventsQuery{TeamID: 2, SessionID: "gone", SessionStart: end.Add(-time.Minute), SessionEnd: end}

	svc := NewService(&fakeStore{}, nil)
	if _, err := svc.GetSessionEvents(context.Background(), q); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("missing session: err = %v, want ErrSessionNotFound", err)
	}

	boom := errors.New("boom")
	svc = NewService(&fakeStore{sessions: []models.Session{{SessionID: "gone"}}, eventsErr: boom}, nil)
	if _, err := svc.GetSessionEvents(context.Background(), q); !errors.Is(err, boom) {
		t.Errorf("events failure: err = %v, want boom", err)
	}

	svc = NewService(&fakeStore{sessionsErr: boom}, nil)
	if _, err := svc.GetSessionEvents(context.Background(), q); !errors.Is(err, boom) {
		t.Errorf("sessions failure: err = %v, want boom", err)
	}
}
