// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/models"
)

var (
	// ErrNoProjectAccess is returned when the user is not a member of the
	// project's organization. The message is shown to API clients as is.
	ErrNoProjectAccess = errors.New("You don't have access to the project.") //nolint:staticcheck // user-facing detail

	// ErrNoOrganizationAccess is the organization counterpart of ErrNoProjectAccess.
	ErrNoOrganizationAccess = errors.New("You don't have access to the organization.") //nolint:staticcheck // user-facing detail
)

// Store is the subset of the database needed to resolve access.
type Store interface {
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetMembership(ctx context.Context, orgID uuid.UUID, userID int64) (*models.OrganizationMembership, error)
}

// Access is the resolved scope of a request. Team is nil for
// organization-level access.
type Access struct {
	User         *models.User
	Team         *models.Team
	Organization uuid.UUID
	Level        models.MembershipLevel
	Anonymous    bool
}

// Role returns the policy role of the access level.
func (a *Access) Role() string {
	return a.Level.String()
}

// ProjectAccess loads the team and the user's membership in its organization.
// A missing team returns database.ErrTeamNotFound. A user without membership
// gets ErrNoProjectAccess.
func ProjectAccess(ctx context.Context, store Store, user *models.User, teamID int64) (*Access, error) {
	team, err := store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("resolve project %d: %w", teamID, err)
	}
	if user == nil {
		return nil, ErrNoProjectAccess
	}

	membership, err := store.GetMembership(ctx, team.OrganizationID, user.ID)
	if errors.Is(err, database.ErrMembershipNotFound) {
		return nil, ErrNoProjectAccess
	}
	if err != nil {
		return nil, fmt.Errorf("resolve membership: %w", err)
	}

	return &Access{
		User:         user,
		Team:         team,
		Organization: team.OrganizationID,
		Level:        membership.Level,
	}, nil
}

// OrganizationAccess loads the organization and the user's membership in it.
func OrganizationAccess(ctx context.Context, store Store, user *models.User, orgID uuid.UUID) (*Access, error) {
	org, err := store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("resolve organization %s: %w", orgID, err)
	}
	if user == nil {
		return nil, ErrNoOrganizationAccess
	}

	membership, err := store.GetMembership(ctx, org.ID, user.ID)
	if errors.Is(err, database.ErrMembershipNotFound) {
		return nil, ErrNoOrganizationAccess
	}
	if err != nil {
		return nil, fmt.Errorf("resolve membership: %w", err)
	}

	return &Access{User: user, Organization: org.ID, Level: membership.Level}, nil
}

// AnonymousProjectAccess grants owner-level access to a team. It is only used
// when authentication is disabled.
func AnonymousProjectAccess(ctx context.Context, store Store, teamID int64) (*Access, error) {
	team, err := store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("resolve project %d: %w", teamID, err)
	}
	return &Access{Team: team, Organization: team.OrganizationID, Level: models.LevelOwner, Anonymous: true}, nil
}

// AnonymousOrganizationAccess is the organization counterpart of AnonymousProjectAccess.
func AnonymousOrganizationAccess(ctx context.Context, store Store, orgID uuid.UUID) (*Access, error) {
	org, err := store.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("resolve organization %s: %w", orgID, err)
	}
	return &Access{Organization: org.ID, Level: models.LevelOwner, Anonymous: true}, nil
}

type accessKey struct{}

// ContextWithAccess stores the resolved access on ctx.
func ContextWithAccess(ctx context.Context, a *Access) context.Context {
	return context.WithValue(ctx, accessKey{}, a)
}

// AccessFromContext returns the access stored by the middleware, or nil.
func AccessFromContext(ctx context.Context) *Access {
	a, _ := ctx.Value(accessKey{}).(*Access)
	return a
}
