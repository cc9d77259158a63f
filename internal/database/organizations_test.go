// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/models"
)

func TestOrganizationsAndTeams(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org, team, _ := seedTenant(t, db)

	gotOrg, err := db.GetOrganization(ctx, org.ID)
	if err != nil {
		t.Fatalf("GetOrganization() error = %v", err)
	}
	if gotOrg.Name != "Acme" {
		t.Errorf("Name = %q, want Acme", gotOrg.Name)
	}

	gotTeam, err := db.GetTeam(ctx, team.ID)
	if err != nil {
		t.Fatalf("GetTeam() error = %v", err)
	}
	if gotTeam.OrganizationID != org.ID || gotTeam.UUID != team.UUID {
		t.Errorf("GetTeam() = %+v, want org %s uuid %s", gotTeam, org.ID, team.UUID)
	}

	second := &models.Team{OrganizationID: org.ID, Name: "Mobile"}
	if err := db.CreateTeam(ctx, second); err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}
	teams, err := db.ListTeamsForOrganization(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListTeamsForOrganization() error = %v", err)
	}
	if len(teams) != 2 || teams[0].ID != team.ID {
		t.Errorf("ListTeamsForOrganization() = %d teams, first %d", len(teams), teams[0].ID)
	}

	if _, err := db.GetTeam(ctx, 9999); !errors.Is(err, ErrTeamNotFound) {
		t.Errorf("GetTeam(missing) error = %v, want ErrTeamNotFound", err)
	}
	if _, err := db.GetOrganization(ctx, uuid.New()); !errors.Is(err, ErrOrganizationNotFound) {
		t.Errorf("GetOrganization(missing) error = %v, want ErrOrganizationNotFound", err)
	}
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, _, owner := seedTenant(t, db)

	if owner.Email != "owner@example.com" {
		t.Errorf("email not normalized: %q", owner.Email)
	}
	if owner.DistinctID == "" {
		t.Error("distinct_id should default to the user uuid")
	}

	byEmail, err := db.GetUserByEmail(ctx, "  OWNER@example.COM ")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if byEmail.ID != owner.ID {
		t.Errorf("GetUserByEmail() id = %d, want %d", byEmail.ID, owner.ID)
	}

	dup := &models.User{Email: "owner@EXAMPLE.com"}
	if err := db.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("CreateUser(duplicate) error = %v, want ErrDuplicateEmail", err)
	}

	other := &models.User{Email: "other@example.com", DistinctID: "distinct-other"}
	if err := db.CreateUser(ctx, other); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	users, err := db.GetUsersByIDs(ctx, []int64{owner.ID, other.ID, 4242})
	if err != nil {
		t.Fatalf("GetUsersByIDs() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("GetUsersByIDs() returned %d users, want 2", len(users))
	}
	if users[other.ID].DistinctID != "distinct-other" {
		t.Errorf("distinct_id = %q", users[other.ID].DistinctID)
	}

	empty, err := db.GetUsersByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetUsersByIDs(nil) = %v, %v", empty, err)
	}

	if _, err := db.GetUserByID(ctx, 4242); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserByID(missing) error = %v, want ErrUserNotFound", err)
	}
}

func TestMemberships(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org, _, owner := seedTenant(t, db)

	m, err := db.GetMembership(ctx, org.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetMembership() error = %v", err)
	}
	if m.Level != models.LevelOwner {
		t.Errorf("Level = %v, want owner", m.Level)
	}

	err = db.AddMembership(ctx, &models.OrganizationMembership{OrganizationID: org.ID, UserID: owner.ID})
	if !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("AddMembership(duplicate) error = %v, want ErrAlreadyMember", err)
	}

	if _, err := db.GetMembership(ctx, org.ID, 4242); !errors.Is(err, ErrMembershipNotFound) {
		t.Errorf("GetMembership(missing) error = %v, want ErrMembershipNotFound", err)
	}

	list, err := db.ListMemberships(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListMemberships() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListMemberships() = %d, want 1", len(list))
	}
}

func TestInvites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org, _, owner := seedTenant(t, db)

	memberInvite := &models.OrganizationInvite{
		OrganizationID: org.ID,
		TargetEmail:    "new@example.com",
		CreatedByID:    &owner.ID,
	}
	if err := db.CreateInvite(ctx, memberInvite); err != nil {
		t.Fatalf("CreateInvite() error = %v", err)
	}
	if memberInvite.Level != models.LevelMember {
		t.Errorf("default level = %v, want member", memberInvite.Level)
	}

	adminInvite := &models.OrganizationInvite{OrganizationID: org.ID, TargetEmail: "admin@example.com", Level: models.LevelAdmin}
	if err := db.CreateInvite(ctx, adminInvite); err != nil {
		t.Fatalf("CreateInvite() error = %v", err)
	}

	got, err := db.GetInvite(ctx, org.ID, memberInvite.ID)
	if err != nil {
		t.Fatalf("GetInvite() error = %v", err)
	}
	if got.CreatedByID == nil || *got.CreatedByID != owner.ID {
		t.Errorf("CreatedByID = %v, want %d", got.CreatedByID, owner.ID)
	}

	invites, err := db.ListInvites(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListInvites() error = %v", err)
	}
	if len(invites) != 2 {
		t.Fatalf("ListInvites() = %d, want 2", len(invites))
	}

	joiner := &models.User{Email: "admin@example.com"}
	if err := db.CreateUser(ctx, joiner); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	m, err := db.AcceptInvite(ctx, adminInvite.ID, joiner.ID)
	if err != nil {
		t.Fatalf("AcceptInvite() error = %v", err)
	}
	if m.Level != models.LevelAdmin || m.OrganizationID != org.ID {
		t.Errorf("AcceptInvite() membership = %+v", m)
	}
	if _, err := db.GetInvite(ctx, org.ID, adminInvite.ID); !errors.Is(err, ErrInviteNotFound) {
		t.Errorf("accepted invite should be deleted, got %v", err)
	}

	// Accepting as an existing member rolls back and keeps the invite.
	if _, err := db.AcceptInvite(ctx, memberInvite.ID, owner.ID); !errors.Is(err, ErrAlreadyMember) {
		t.Errorf("AcceptInvite(existing member) error = %v, want ErrAlreadyMember", err)
	}
	if _, err := db.GetInvite(ctx, org.ID, memberInvite.ID); err != nil {
		t.Errorf("invite should survive a failed accept: %v", err)
	}

	if err := db.DeleteInvite(ctx, org.ID, memberInvite.ID); err != nil {
		t.Fatalf("DeleteInvite() error = %v", err)
	}
	if err := db.DeleteInvite(ctx, org.ID, memberInvite.ID); !errors.Is(err, ErrInviteNotFound) {
		t.Errorf("DeleteInvite(again) error = %v, want ErrInviteNotFound", err)
	}
	if _, err := db.AcceptInvite(ctx, uuid.New(), joiner.ID); !errors.Is(err, ErrInviteNotFound) {
		t.Errorf("AcceptInvite(missing) error = %v, want ErrInviteNotFound", err)
	}
}
