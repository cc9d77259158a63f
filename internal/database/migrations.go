// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/trailmark/internal/logging"
	"github.com/tomtom215/trailmark/internal/metrics"
)

// Migration represents a versioned, optionally reversible schema change.
//
// Up statements run before UpFunc; DownFunc runs before the Down statements.
// Both directions execute inside a single transaction together with the
// schema_migrations bookkeeping, so a failed step leaves the version unchanged.
type Migration struct {
	Version     int
	Name        string
	Description string
	Up          []string
	Down        []string
	UpFunc      func(ctx context.Context, tx *sql.Tx) error
	DownFunc    func(ctx context.Context, tx *sql.Tx) error
	AppliedAt   time.Time // populated from schema_migrations
}

// Reversible reports whether the migration can be rolled back.
func (m Migration) Reversible() bool {
	return len(m.Down) > 0 || m.DownFunc != nil
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name VARCHAR NOT NULL,
	description VARCHAR,
	applied_at TIMESTAMP NOT NULL
);
`

// createMigrationsTable creates the schema_migrations table if it doesn't exist
func (db *DB) createMigrationsTable(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, schemaMigrationsTable)
	return err
}

// getAppliedMigrations returns a map of version -> Migration for all applied migrations
func (db *DB) getAppliedMigrations(ctx context.Context) (map[int]Migration, error) {
	history, err := db.GetMigrationHistory(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[int]Migration, len(history))
	for _, m := range history {
		applied[m.Version] = m
	}
	return applied, nil
}

// Migrations returns the registered migrations in version order.
func (db *DB) Migrations() []Migration {
	out := make([]Migration, len(db.migrations))
	copy(out, db.migrations)
	return out
}

func (db *DB) findMigration(version int) (Migration, bool) {
	for _, m := range db.migrations {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}

// Migrate applies every pending migration in version order and returns how
// many were applied.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	if len(db.migrations) == 0 {
		return 0, nil
	}
	return db.MigrateTo(ctx, db.migrations[len(db.migrations)-1].Version)
}

// MigrateTo moves the schema up or down to target. A target of 0 rolls back
// every applied migration.
func (db *DB) MigrateTo(ctx context.Context, target int) (int, error) {
	if target != 0 {
		if _, ok := db.findMigration(target); !ok {
			return 0, fmt.Errorf("%w: %d", ErrUnknownMigrationVersion, target)
		}
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	count := 0

	// Down first, newest to oldest.
	var down []int
	for version := range applied {
		if version > target {
			down = append(down, version)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(down)))
	for _, version := range down {
		m, ok := db.findMigration(version)
		if !ok {
			return count, fmt.Errorf("applied migration v%d is not registered", version)
		}
		if err := db.revert(ctx, m); err != nil {
			return count, err
		}
		count++
	}

	for _, m := range db.migrations {
		if m.Version > target {
			break
		}
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// Rollback reverts the most recent steps applied migrations.
func (db *DB) Rollback(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, nil
	}
	history, err := db.GetMigrationHistory(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(history) - 1; i >= 0 && count < steps; i-- {
		m, ok := db.findMigration(history[i].Version)
		if !ok {
			return count, fmt.Errorf("applied migration v%d is not registered", history[i].Version)
		}
		if err := db.revert(ctx, m); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration v%d: %w", m.Version, err)
	}

	for i, stmt := range m.Up {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			rollbackQuietly(tx)
			return fmt.Errorf("failed to execute migration v%d (%s) step %d: %w", m.Version, m.Name, i+1, err)
		}
	}
	if m.UpFunc != nil {
		if err := m.UpFunc(ctx, tx); err != nil {
			rollbackQuietly(tx)
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)`,
		m.Version, m.Name, m.Description, time.Now().UTC()); err != nil {
		rollbackQuietly(tx)
		return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
	}

	metrics.MigrationsApplied.WithLabelValues("up").Inc()
	logging.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
	return nil
}

func (db *DB) revert(ctx context.Context, m Migration) error {
	if !m.Reversible() {
		return fmt.Errorf("%w: v%d (%s)", ErrIrreversibleMigration, m.Version, m.Name)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rollback of v%d: %w", m.Version, err)
	}

	if m.DownFunc != nil {
		if err := m.DownFunc(ctx, tx); err != nil {
			rollbackQuietly(tx)
			return fmt.Errorf("failed to roll back migration v%d (%s): %w", m.Version, m.Name, err)
		}
	}
	for i, stmt := range m.Down {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			rollbackQuietly(tx)
			return fmt.Errorf("failed to roll back migration v%d (%s) step %d: %w", m.Version, m.Name, i+1, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, m.Version); err != nil {
		rollbackQuietly(tx)
		return fmt.Errorf("failed to unrecord migration v%d: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rollback of v%d: %w", m.Version, err)
	}

	metrics.MigrationsApplied.WithLabelValues("down").Inc()
	logging.Info().Int("version", m.Version).Str("name", m.Name).Msg("Rolled back migration")
	return nil
}

// GetCurrentSchemaVersion returns the highest applied migration version
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var version int
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// GetMigrationHistory returns all applied migrations in order
func (db *DB) GetMigrationHistory(ctx context.Context) ([]Migration, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var history []Migration
	for rows.Next() {
		var m Migration
		var description sql.NullString
		if err := rows.Scan(&m.Version, &m.Name, &description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		m.Description = description.String
		history = append(history, m)
	}
	return history, rows.Err()
}

// PendingMigrations lists registered migrations that are not yet applied.
func (db *DB) PendingMigrations(ctx context.Context) ([]Migration, error) {
	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, m := range db.migrations {
		if _, ok := applied[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return pending, nil
}
