// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package insights stores saved charts and moves them from legacy filters to
// query nodes.
package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/insights/legacy"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/models"
)

// EventCreated is reported after an insight is saved.
const EventCreated = "insight created"

// Store is the subset of the database used by Service.
type Store interface {
	CreateInsight(ctx context.Context, ins *models.Insight) error
	GetInsight(ctx context.Context, teamID, id int64) (*models.Insight, error)
	ListInsights(ctx context.Context, teamID int64, limit, offset int) ([]*models.Insight, error)
	BackfillInsightQueries(ctx context.Context) (database.BackfillResult, error)
}

// Gate decides per project whether queries replace filters.
type Gate interface {
	ReplaceFiltersEnabled(team *models.Team) bool
}

// Reporter records user actions.
type Reporter interface {
	Report(ctx context.Context, user *models.User, team *models.Team, event string, props map[string]interface{})
}

// CreateRequest is the body of an insight create.
type CreateRequest struct {
	Name    string                 `json:"name" validate:"max=400"`
	Filters map[string]interface{} `json:"filters,omitempty"`
	Query   json.RawMessage        `json:"query,omitempty"`
}

// Service implements insight storage for one project at a time.
type Service struct {
	store    Store
	gate     Gate
	reporter Reporter
}

// NewService creates a service. gate and reporter may be nil; a nil gate
// never replaces filters.
func NewService(store Store, gate Gate, reporter Reporter) *Service {
	return &Service{store: store, gate: gate, reporter: reporter}
}

// Create validates and stores an insight. A given query must be an
// InsightVizNode.
func (s *Service) Create(ctx context.Context, actor *models.User, team *models.Team, req CreateRequest) (*models.Insight, error) {
	query := req.Query
	if len(query) > 0 && strings.TrimSpace(string(query)) == "null" {
		query = nil
	}
	if len(query) > 0 {
		if err := ValidateQuery(query); err != nil {
			return nil, err
		}
	}

	ins := &models.Insight{
		ShortID: newShortID(),
		TeamID:  team.ID,
		Name:    req.Name,
		Filters: req.Filters,
		Query:   query,
	}
	if actor != nil {
		id := actor.ID
		ins.CreatedBy = &id
	}
	if err := s.store.CreateInsight(ctx, ins); err != nil {
		return nil, fmt.Errorf("create insight: %w", err)
	}

	logging.Ctx(ctx).Info().Int64("insight_id", ins.ID).Str("short_id", ins.ShortID).Msg("insight created")
	if s.reporter != nil {
		s.reporter.Report(ctx, actor, team, EventCreated, map[string]interface{}{
			"insight":   insightType(ins),
			"has_query": len(ins.Query) > 0,
		})
	}
	s.decorate(team, ins)
	return ins, nil
}

// Get returns one insight of team.
func (s *Service) Get(ctx context.Context, team *models.Team, id int64) (*models.Insight, error) {
	ins, err := s.store.GetInsight(ctx, team.ID, id)
	if err != nil {
		return nil, err
	}
	s.decorate(team, ins)
	return ins, nil
}

// List returns a page of team's insights.
func (s *Service) List(ctx context.Context, team *models.Team, limit, offset int) ([]*models.Insight, error) {
	list, err := s.store.ListInsights(ctx, team.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	enabled := s.replaceFilters(team)
	for _, ins := range list {
		s.apply(enabled, ins)
	}
	return list, nil
}

// Backfill converts every unconverted legacy insight in one transaction.
func (s *Service) Backfill(ctx context.Context) (database.BackfillResult, error) {
	res, err := s.store.BackfillInsightQueries(ctx)
	if err != nil {
		return res, fmt.Errorf("backfill insight queries: %w", err)
	}
	logging.Ctx(ctx).Info().Int("converted", res.Converted).Int("skipped", res.Skipped).Msg("insight backfill finished")
	return res, nil
}

func (s *Service) replaceFilters(team *models.Team) bool {
	return s.gate != nil && s.gate.ReplaceFiltersEnabled(team)
}

func (s *Service) decorate(team *models.Team, ins *models.Insight) {
	s.apply(s.replaceFilters(team), ins)
}

// apply marks ins for query execution. For legacy insights it derives the
// query on the fly without storing it, then compiles trends series to HogQL.
func (s *Service) apply(enabled bool, ins *models.Insight) {
	ins.HogQLEnabled = enabled
	if !enabled {
		return
	}
	if len(ins.Query) == 0 && insightType(ins) != "" {
		s.deriveQuery(ins)
	}

	printed, err := CompileTrends(ins.Query)
	if err != nil {
		logging.Debug().Err(err).Int64("insight_id", ins.ID).Msg("insight query not compiled to hogql")
		return
	}
	ins.HogQL = printed
}

func (s *Service) deriveQuery(ins *models.Insight) {
	source, err := legacy.FilterToQuery(ins.Filters)
	if err != nil {
		logging.Debug().Err(err).Int64("insight_id", ins.ID).Msg("legacy insight has no query equivalent")
		return
	}
	raw, err := json.Marshal(legacy.InsightVizNode(source))
	if err != nil {
		logging.Warn().Err(err).Int64("insight_id", ins.ID).Msg("failed to encode derived insight query")
		return
	}
	ins.Query = raw
}

func insightType(ins *models.Insight) string {
	if ins.Filters == nil {
		return ""
	}
	v, _ := ins.Filters["insight"].(string)
	return strings.ToUpper(v)
}

func newShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
