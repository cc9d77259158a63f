// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package flags

import (
	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/models"
)

// Flag keys checked by Gate.
const (
	HogQLInsightsFlag  = "hogql-insights"
	ReplaceFiltersFlag = "hogql-insights-replace-filters"
)

// Checker evaluates a single flag. *Evaluator implements it.
type Checker interface {
	IsEnabled(key, distinctID string, opts EvalOptions) (bool, error)
}

// Gate decides whether insights go through the HogQL query path.
type Gate struct {
	cfg     config.FlagsConfig
	checker Checker
}

// NewGate creates a gate over checker.
func NewGate(cfg config.FlagsConfig, checker Checker) *Gate {
	return &Gate{cfg: cfg, checker: checker}
}

// InsightsEnabled reports whether user gets HogQL-backed insights. A
// configured override always wins. Outside cloud mode the gate is closed.
func (g *Gate) InsightsEnabled(user *models.User) bool {
	if override, ok := g.cfg.InsightsOverride(); ok {
		return override
	}
	if !g.cfg.Cloud {
		return false
	}
	// Requests without an authenticated user (API keys, anonymous) never
	// match a person flag.
	if user == nil || user.DistinctID == "" {
		return false
	}
	return g.check(HogQLInsightsFlag, user.DistinctID, EvalOptions{
		PersonProperties: map[string]interface{}{"email": user.Email},
	})
}

// ReplaceFiltersEnabled reports whether team's insights are computed from
// the converted query instead of legacy filters. The flag rolls out per
// organization.
func (g *Gate) ReplaceFiltersEnabled(team *models.Team) bool {
	if team == nil {
		return false
	}
	orgID := team.OrganizationID.String()
	return g.check(ReplaceFiltersFlag, team.UUID.String(), EvalOptions{
		Groups: map[string]string{"organization": orgID},
		GroupProperties: map[string]map[string]interface{}{
			"organization": {"id": orgID},
		},
	})
}

func (g *Gate) check(key, distinctID string, opts EvalOptions) bool {
	if g.checker == nil {
		return false
	}
	enabled, err := g.checker.IsEnabled(key, distinctID, opts)
	if err != nil {
		logging.Warn().Err(err).Str("flag", key).Msg("Flag evaluation failed")
		return false
	}
	return enabled
}
