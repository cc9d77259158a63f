// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Organization owns projects (teams) and members.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Team is a project inside an organization. All analytics data is team scoped.
type Team struct {
	ID             int64     `json:"id"`
	UUID           uuid.UUID `json:"uuid"`
	OrganizationID uuid.UUID `json:"organization"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

// User is an account that can belong to several organizations.
type User struct {
	ID           int64     `json:"id"`
	UUID         uuid.UUID `json:"uuid"`
	DistinctID   string    `json:"distinct_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Basic returns the public projection embedded in other resources.
func (u *User) Basic() *UserBasic {
	if u == nil {
		return nil
	}
	return &UserBasic{ID: u.ID, UUID: u.UUID, DistinctID: u.DistinctID, Email: u.Email, FirstName: u.FirstName}
}

// UserBasic is the public subset of User.
type UserBasic struct {
	ID         int64     `json:"id"`
	UUID       uuid.UUID `json:"uuid"`
	DistinctID string    `json:"distinct_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
}

// User widens the projection back to a User without credentials.
func (u *UserBasic) User() *User {
	if u == nil {
		return nil
	}
	return &User{ID: u.ID, UUID: u.UUID, DistinctID: u.DistinctID, Email: u.Email, FirstName: u.FirstName}
}

// MembershipLevel ranks a user's rights inside an organization.
type MembershipLevel int16

const (
	LevelMember MembershipLevel = 1
	LevelAdmin  MembershipLevel = 8
	LevelOwner  MembershipLevel = 15
)

// String returns the role name used by the authorization policy.
func (l MembershipLevel) String() string {
	switch l {
	case LevelMember:
		return "member"
	case LevelAdmin:
		return "admin"
	case LevelOwner:
		return "owner"
	default:
		return fmt.Sprintf("level(%d)", int16(l))
	}
}

// Valid reports whether l is one of the known levels.
func (l MembershipLevel) Valid() bool {
	return l == LevelMember || l == LevelAdmin || l == LevelOwner
}

// ParseMembershipLevel accepts either a role name or its numeric value.
func ParseMembershipLevel(s string) (MembershipLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member", "1":
		return LevelMember, nil
	case "admin", "administrator", "8":
		return LevelAdmin, nil
	case "owner", "15":
		return LevelOwner, nil
	}
	return 0, fmt.Errorf("unknown membership level %q", s)
}

// OrganizationMembership links a user to an organization.
type OrganizationMembership struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	UserID         int64           `json:"user_id"`
	Level          MembershipLevel `json:"level"`
	JoinedAt       time.Time       `json:"joined_at"`
}

// OrganizationInvite is a pending invitation that grants Level on acceptance.
type OrganizationInvite struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	TargetEmail    string          `json:"target_email"`
	Level          MembershipLevel `json:"level"`
	CreatedByID    *int64          `json:"created_by_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
