// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package sessions reconstructs time-to-see-data sessions: how long users
// waited for insights to load, grouped by browser session.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/trailmark/internal/cache"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

var (
	// ErrSessionNotFound is returned when no events exist for a session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidQuery wraps validation failures of query parameters.
	ErrInvalidQuery = errors.New("invalid session query")
)

// Store is the subset of the database used by Service.
type Store interface {
	QueryTimeToSeeDataSessions(ctx context.Context, teamID *int64, sessionID *string) ([]models.Session, error)
	QueryTimeToSeeDataSessionEvents(ctx context.Context, teamID int64, sessionID string, start, end time.Time) ([]models.SessionEvent, error)
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
}

// SessionsQuery filters the session list. Nil fields are not filtered on.
type SessionsQuery struct {
	TeamID    *int64  `json:"team_id,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
}

// Validate checks the optional filters.
func (q SessionsQuery) Validate() error {
	if q.TeamID != nil && *q.TeamID <= 0 {
		return fmt.Errorf("%w: team_id must be positive", ErrInvalidQuery)
	}
	if q.SessionID != nil && *q.SessionID == "" {
		return fmt.Errorf("%w: session_id must not be empty", ErrInvalidQuery)
	}
	return nil
}

// SessionEventsQuery identifies one session and its time window.
type SessionEventsQuery struct {
	TeamID       int64     `json:"team_id"`
	SessionID    string    `json:"session_id"`
	SessionStart time.Time `json:"session_start"`
	SessionEnd   time.Time `json:"session_end"`
}

// Validate checks that the query names a session and a sane window.
func (q SessionEventsQuery) Validate() error {
	if q.TeamID <= 0 {
		return fmt.Errorf("%w: team_id must be positive", ErrInvalidQuery)
	}
	if q.SessionID == "" {
		return fmt.Errorf("%w: session_id is required", ErrInvalidQuery)
	}
	if q.SessionStart.IsZero() || q.SessionEnd.IsZero() {
		return fmt.Errorf("%w: session_start and session_end are required", ErrInvalidQuery)
	}
	if q.SessionStart.After(q.SessionEnd) {
		return fmt.Errorf("%w: session_start is after session_end", ErrInvalidQuery)
	}
	return nil
}

// Service answers session queries with a short-lived result cache.
type Service struct {
	store Store
	cache *cache.Cache
}

// NewService creates a service. c may be nil to disable caching.
func NewService(store Store, c *cache.Cache) *Service {
	return &Service{store: store, cache: c}
}

// Invalidate drops every cached result. Writers of session events call it
// after a successful insert.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// GetSessions returns one aggregate row per session, most recently ended
// first, each with its user attached.
func (s *Service) GetSessions(ctx context.Context, q SessionsQuery) ([]models.Session, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	key := cache.GenerateKey("sessions", q)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if sessions, ok := cached.([]models.Session); ok {
				return sessions, nil
			}
		}
	}

	start := time.Now()
	sessions, err := s.store.QueryTimeToSeeDataSessions(ctx, q.TeamID, q.SessionID)
	metrics.SessionQueryDuration.WithLabelValues("sessions").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	if err := s.attachUsers(ctx, sessions); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, sessions)
	}
	return sessions, nil
}

// attachUsers resolves every distinct user_id with a single lookup.
func (s *Service) attachUsers(ctx context.Context, sessions []models.Session) error {
	if len(sessions) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(sessions))
	ids := make([]int64, 0, len(sessions))
	for _, sess := range sessions {
		if _, ok := seen[sess.UserID]; ok {
			continue
		}
		seen[sess.UserID] = struct{}{}
		ids = append(ids, sess.UserID)
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("lookup session users: %w", err)
	}
	for i := range sessions {
		if u, ok := users[sessions[i].UserID]; ok {
			sessions[i].User = u.Basic()
		}
	}
	return nil
}

// GetSessionEvents returns a session together with its events. The session
// row and the event list are loaded concurrently.
func (s *Service) GetSessionEvents(ctx context.Context, q SessionEventsQuery) (*models.SessionEvents, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		sessions []models.Session
		events   []models.SessionEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teamID, sessionID := q.TeamID, q.SessionID
		sessions, err = s.GetSessions(gctx, SessionsQuery{TeamID: &teamID, SessionID: &sessionID})
		return err
	})
	g.Go(func() error {
		start := time.Now()
		var err error
		events, err = s.store.QueryTimeToSeeDataSessionEvents(gctx, q.TeamID, q.SessionID, q.SessionStart, q.SessionEnd)
		metrics.SessionQueryDuration.WithLabelValues("session_events").Observe(time.Since(start).Seconds())
		if err != nil {
			return fmt.Errorf("query session events: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}

	logging.Ctx(ctx).Debug().
		Str("session_id", q.SessionID).
		Int("events", len(events)).
		Msg("Loaded session events")

	return &models.SessionEvents{Session: sessions[0], Events: events}, nil
}
