// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

/*
organizations.go - Tenancy Database Operations

Organizations own projects (teams). Users join organizations through
memberships carrying a level (member, admin, owner) and are brought in by
invites. Authorization decisions on top of these levels live in the authz
package; this file only stores and loads rows.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/trailmark/internal/database/query"
	"github.com/tomtom215/trailmark/internal/models"
)

// CreateOrganization stores a new organization, assigning an ID when unset.
func (db *DB) CreateOrganization(ctx context.Context, org *models.Organization) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	org.CreatedAt = time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)`,
		org.ID.String(), org.Name, org.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert organization: %w", err)
	}
	return nil
}

// GetOrganization loads an organization by ID.
func (db *DB) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	org := &models.Organization{}
	var rawID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id = ?`, id.String(),
	).Scan(&rawID, &org.Name, &org.CreatedAt)
	if err != nil {
		return nil, notFound(err, ErrOrganizationNotFound)
	}
	if org.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("organization has malformed id %q: %w", rawID, err)
	}
	return org, nil
}

func scanTeam(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.Team, error) {
	team := &models.Team{}
	var rawUUID, rawOrg string
	if err := scanner.Scan(&team.ID, &rawUUID, &rawOrg, &team.Name, &team.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if team.UUID, err = uuid.Parse(rawUUID); err != nil {
		return nil, fmt.Errorf("team %d has malformed uuid: %w", team.ID, err)
	}
	if team.OrganizationID, err = uuid.Parse(rawOrg); err != nil {
		return nil, fmt.Errorf("team %d has malformed organization id: %w", team.ID, err)
	}
	return team, nil
}

// CreateTeam stores a new project inside an organization.
func (db *DB) CreateTeam(ctx context.Context, team *models.Team) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if team.UUID == uuid.Nil {
		team.UUID = uuid.New()
	}
	team.CreatedAt = time.Now().UTC()
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO teams (uuid, organization_id, name, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		team.UUID.String(), team.OrganizationID.String(), team.Name, team.CreatedAt,
	).Scan(&team.ID)
	if err != nil {
		return fmt.Errorf("failed to insert team: %w", err)
	}
	return nil
}

// GetTeam loads a project by ID.
func (db *DB) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, uuid, organization_id, name, created_at FROM teams WHERE id = ?`, id)
	team, err := scanTeam(row)
	if err != nil {
		return nil, notFound(err, ErrTeamNotFound)
	}
	return team, nil
}

// ListTeamsForOrganization returns an organization's projects by ID.
func (db *DB) ListTeamsForOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Team, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, uuid, organization_id, name, created_at FROM teams WHERE organization_id = ? ORDER BY id`,
		orgID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer closeWithLog(rows, "rows")

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

const userColumns = `id, uuid, distinct_id, email, first_name, password_hash, created_at`

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.User, error) {
	u := &models.User{}
	var rawUUID string
	if err := scanner.Scan(&u.ID, &rawUUID, &u.DistinctID, &u.Email, &u.FirstName, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if u.UUID, err = uuid.Parse(rawUUID); err != nil {
		return nil, fmt.Errorf("user %d has malformed uuid: %w", u.ID, err)
	}
	return u, nil
}

// CreateUser stores a user. PasswordHash must already be hashed. The email is
// stored lowercased and must be unique.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.DistinctID == "" {
		u.DistinctID = u.UUID.String()
	}

	var exists bool
	if err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) > 0 FROM users WHERE email = ?`, u.Email).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return ErrDuplicateEmail
	}

	u.CreatedAt = time.Now().UTC()
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO users (uuid, distinct_id, email, first_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		u.UUID.String(), u.DistinctID, u.Email, u.FirstName, u.PasswordHash, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail looks a user up case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return u, nil
}

// GetUserByID loads a user by numeric ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return u, nil
}

// GetUsersByIDs loads several users in one query. Unknown IDs are absent
// from the result map.
func (db *DB) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	users := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	wb := query.NewWhereBuilder()
	query.AddIn(wb, "id", ids)
	where, args := wb.Build()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

func scanMembership(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.OrganizationMembership, error) {
	m := &models.OrganizationMembership{}
	var rawID, rawOrg string
	if err := scanner.Scan(&rawID, &rawOrg, &m.UserID, &m.Level, &m.JoinedAt); err != nil {
		return nil, err
	}
	var err error
	if m.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("membership has malformed id: %w", err)
	}
	if m.OrganizationID, err = uuid.Parse(rawOrg); err != nil {
		return nil, fmt.Errorf("membership has malformed organization id: %w", err)
	}
	return m, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func addMembership(ctx context.Context, ex execer, m *models.OrganizationMembership) error {
	var exists bool
	if err := ex.QueryRowContext(ctx,
		`SELECT count(*) > 0 FROM organization_memberships WHERE organization_id = ? AND user_id = ?`,
		m.OrganizationID.String(), m.UserID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if exists {
		return ErrAlreadyMember
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Level == 0 {
		m.Level = models.LevelMember
	}
	m.JoinedAt = time.Now().UTC()
	_, err := ex.ExecContext(ctx, `
		INSERT INTO organization_memberships (id, organization_id, user_id, level, joined_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID.String(), m.OrganizationID.String(), m.UserID, int16(m.Level), m.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

// AddMembership adds a user to an organization.
func (db *DB) AddMembership(ctx context.Context, m *models.OrganizationMembership) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	return addMembership(ctx, db.conn, m)
}

// GetMembership returns the user's membership in an organization.
func (db *DB) GetMembership(ctx context.Context, orgID uuid.UUID, userID int64) (*models.OrganizationMembership, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT id, organization_id, user_id, level, joined_at
		FROM organization_memberships
		WHERE organization_id = ? AND user_id = ?`, orgID.String(), userID)
	m, err := scanMembership(row)
	if err != nil {
		return nil, notFound(err, ErrMembershipNotFound)
	}
	return m, nil
}

// ListMemberships returns an organization's memberships ordered by join time.
func (db *DB) ListMemberships(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationMembership, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, organization_id, user_id, level, joined_at
		FROM organization_memberships
		WHERE organization_id = ?
		ORDER BY joined_at, user_id`, orgID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer closeWithLog(rows, "rows")

	memberships := make([]*models.OrganizationMembership, 0)
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func scanInvite(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.OrganizationInvite, error) {
	inv := &models.OrganizationInvite{}
	var rawID, rawOrg string
	var createdBy sql.NullInt64
	if err := scanner.Scan(&rawID, &rawOrg, &inv.TargetEmail, &inv.Level, &createdBy, &inv.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if inv.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("invite has malformed id: %w", err)
	}
	if inv.OrganizationID, err = uuid.Parse(rawOrg); err != nil {
		return nil, fmt.Errorf("invite has malformed organization id: %w", err)
	}
	if createdBy.Valid {
		id := createdBy.Int64
		inv.CreatedByID = &id
	}
	return inv, nil
}

const inviteColumns = `id, organization_id, target_email, level, created_by_id, created_at`

// CreateInvite stores an invite. A zero level defaults to member.
func (db *DB) CreateInvite(ctx context.Context, inv *models.OrganizationInvite) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Level == 0 {
		inv.Level = models.LevelMember
	}
	inv.TargetEmail = strings.TrimSpace(inv.TargetEmail)
	inv.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO organization_invites (id, organization_id, target_email, level, created_by_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inv.ID.String(), inv.OrganizationID.String(), inv.TargetEmail, int16(inv.Level),
		nullableInt64(inv.CreatedByID), inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invite: %w", err)
	}
	return nil
}

// GetInvite loads one invite of an organization.
func (db *DB) GetInvite(ctx context.Context, orgID, id uuid.UUID) (*models.OrganizationInvite, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM organization_invites WHERE organization_id = ? AND id = ?`,
		orgID.String(), id.String())
	inv, err := scanInvite(row)
	if err != nil {
		return nil, notFound(err, ErrInviteNotFound)
	}
	return inv, nil
}

// ListInvites returns an organization's open invites, newest first.
func (db *DB) ListInvites(ctx context.Context, orgID uuid.UUID) ([]*models.OrganizationInvite, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+inviteColumns+` FROM organization_invites WHERE organization_id = ? ORDER BY created_at DESC`,
		orgID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer closeWithLog(rows, "rows")

	invites := make([]*models.OrganizationInvite, 0)
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

// DeleteInvite removes an invite.
func (db *DB) DeleteInvite(ctx context.Context, orgID, id uuid.UUID) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM organization_invites WHERE organization_id = ? AND id = ?`, orgID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// AcceptInvite turns an invite into a membership at the invite's level and
// deletes the invite, in one transaction.
func (db *DB) AcceptInvite(ctx context.Context, inviteID uuid.UUID, userID int64) (m *models.OrganizationMembership, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollbackQuietly(tx)
		}
	}()

	inv, err := scanInvite(tx.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM organization_invites WHERE id = ?`, inviteID.String()))
	if err != nil {
		return nil, notFound(err, ErrInviteNotFound)
	}

	m = &models.OrganizationMembership{
		OrganizationID: inv.OrganizationID,
		UserID:         userID,
		Level:          inv.Level,
	}
	if err = addMembership(ctx, tx, m); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM organization_invites WHERE id = ?`, inviteID.String()); err != nil {
		return nil, fmt.Errorf("failed to delete accepted invite: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invite acceptance: %w", err)
	}
	return m, nil
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint, such as the single-owner index before migration 2.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint error")
}
