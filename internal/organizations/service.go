// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package organizations manages membership invites. Several owners per
// organization are allowed, and an invite carries the level the invitee
// joins at.
package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/models"
)

// Activity event names.
const (
	EventInviteCreated  = "invite created"
	EventInviteRevoked  = "invite revoked"
	EventInviteAccepted = "invite accepted"
)

var (
	// ErrInviteEmailMismatch is returned when a user accepts an invite sent
	// to another address.
	ErrInviteEmailMismatch = errors.New("this invite was sent to a different email address")

	// ErrPermissionDenied is returned when the caller's level does not allow
	// the operation.
	ErrPermissionDenied = errors.New("you do not have permission to perform this action")

	// ErrInvalidLevel is returned for invites at an unknown level.
	ErrInvalidLevel = errors.New("invalid membership level")

	// ErrAuthenticationRequired is returned when an anonymous caller tries to
	// accept an invite.
	ErrAuthenticationRequired = errors.New("accepting an invite requires a signed-in user")
)

// Store is the subset of the database used by Service.
type Store interface {
	CreateInvite(ctx context.Context, inv *models.OrganizationInvite) error
	GetInvite(ctx context.Context, orgID, id uuid.UUID) (*models.OrganizationInvite, error)
	ListInvites(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationInvite, error)
	DeleteInvite(ctx context.Context, orgID, id uuid.UUID) error
	AcceptInvite(ctx context.Context, inviteID uuid.UUID, userID int64) (*models.OrganizationMembership, error)
}

// Reporter records user actions. *activity.Reporter satisfies it.
type Reporter interface {
	Report(ctx context.Context, user *models.User, team *models.Team, event string, props map[string]interface{})
}

// InviteRequest is the body of an invite create.
type InviteRequest struct {
	TargetEmail string                 `json:"target_email" validate:"required,email,max=254"`
	Level       models.MembershipLevel `json:"level,omitempty" validate:"omitempty,membership_level"`
}

// Service implements invite management on top of the authorization policy.
type Service struct {
	store    Store
	enforcer *authz.Enforcer
	reporter Reporter
}

// NewService creates a service. reporter may be nil.
func NewService(store Store, enforcer *authz.Enforcer, reporter Reporter) *Service {
	return &Service{store: store, enforcer: enforcer, reporter: reporter}
}

// CreateInvite invites email into the organization of access at level. A
// zero level invites a member. Only owners may invite owners.
func (s *Service) CreateInvite(ctx context.Context, access *authz.Access, email string, level models.MembershipLevel) (*models.OrganizationInvite, error) {
	if level == 0 {
		level = models.LevelMember
	}
	if !level.Valid() {
		return nil, ErrInvalidLevel
	}
	if !s.enforcer.Allowed(access.Level, authz.InviteObject(level), authz.ActionWrite) {
		return nil, ErrPermissionDenied
	}

	inv := &models.OrganizationInvite{
		OrganizationID: access.Organization,
		TargetEmail:    strings.TrimSpace(email),
		Level:          level,
	}
	if access.User != nil {
		id := access.User.ID
		inv.CreatedByID = &id
	}
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("organization_id", inv.OrganizationID.String()).
		Str("level", level.String()).
		Msg("Invite created")
	s.report(ctx, access.User, EventInviteCreated, map[string]interface{}{
		"organization_id": inv.OrganizationID.String(),
		"level":           level.String(),
	})
	return inv, nil
}

// ListInvites returns the organization's open invites.
func (s *Service) ListInvites(ctx context.Context, access *authz.Access) ([]*models.OrganizationInvite, error) {
	if !s.enforcer.Allowed(access.Level, authz.ObjectInvite, authz.ActionRead) {
		return nil, ErrPermissionDenied
	}
	return s.store.ListInvites(ctx, access.Organization)
}

// RevokeInvite deletes an open invite.
func (s *Service) RevokeInvite(ctx context.Context, access *authz.Access, inviteID uuid.UUID) error {
	if !s.enforcer.Allowed(access.Level, authz.ObjectInvite, authz.ActionDelete) {
		return ErrPermissionDenied
	}
	if err := s.store.DeleteInvite(ctx, access.Organization, inviteID); err != nil {
		return err
	}
	s.report(ctx, access.User, EventInviteRevoked, map[string]interface{}{
		"organization_id": access.Organization.String(),
	})
	return nil
}

// AcceptInvite joins user to the invite's organization at the invite's
// level. The user's email must match the invite, ignoring case.
func (s *Service) AcceptInvite(ctx context.Context, user *models.User, orgID, inviteID uuid.UUID) (*models.OrganizationMembership, error) {
	if user == nil {
		return nil, ErrAuthenticationRequired
	}

	inv, err := s.store.GetInvite(ctx, orgID, inviteID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(inv.TargetEmail), strings.TrimSpace(user.Email)) {
		return nil, ErrInviteEmailMismatch
	}

	membership, err := s.store.AcceptInvite(ctx, inv.ID, user.ID)
	if err != nil {
		return nil, err
	}

	s.report(ctx, user, EventInviteAccepted, map[string]interface{}{
		"organization_id": orgID.String(),
		"level":           membership.Level.String(),
	})
	return membership, nil
}

func (s *Service) report(ctx context.Context, user *models.User, event string, props map[string]interface{}) {
	if s.reporter == nil {
		return
	}
	s.reporter.Report(ctx, user, nil, event, props)
}
