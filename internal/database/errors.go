// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

import (
	"database/sql"
	"errors"
	"io"

	"github.com/tomtom215/trailmark/internal/logging"
)

// Sentinel errors returned by store methods. Match with errors.Is.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrInviteNotFound       = errors.New("invite not found")
	ErrAnnotationNotFound   = errors.New("annotation not found")
	ErrInsightNotFound      = errors.New("insight not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrAlreadyMember        = errors.New("user is already a member of the organization")

	// ErrIrreversibleMigration is returned when rolling back past a
	// migration that has no down steps.
	ErrIrreversibleMigration = errors.New("migration is irreversible")
	// ErrUnknownMigrationVersion is returned by MigrateTo for a version
	// that is not registered.
	ErrUnknownMigrationVersion = errors.New("unknown migration version")
)

// notFound converts sql.ErrNoRows into the given sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

// closeWithLog closes a resource and logs any error.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// rollbackQuietly aborts a transaction on an error path.
func rollbackQuietly(tx *sql.Tx) {
	if tx != nil {
		_ = tx.Rollback()
	}
}
