// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO calls
// from many parallel tests can hang under CI resource pressure, so a test
// holds the slot until it completes.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates a fully migrated in-memory database. The semaphore is
// released and the database closed when the test completes.
func setupTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"}, opts...)
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

// seedTenant creates an organization with one project and one owner.
func seedTenant(t *testing.T, db *DB) (*models.Organization, *models.Team, *models.User) {
	t.Helper()
	ctx := context.Background()

	org := &models.Organization{Name: "Acme"}
	if err := db.CreateOrganization(ctx, org); err != nil {
		t.Fatalf("CreateOrganization() error = %v", err)
	}
	team := &models.Team{OrganizationID: org.ID, Name: "Web"}
	if err := db.CreateTeam(ctx, team); err != nil {
		t.Fatalf("CreateTeam() error = %v", err)
	}
	user := &models.User{Email: "Owner@Example.com", FirstName: "Olive"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := db.AddMembership(ctx, &models.OrganizationMembership{
		OrganizationID: org.ID, UserID: user.ID, Level: models.LevelOwner,
	}); err != nil {
		t.Fatalf("AddMembership() error = %v", err)
	}
	return org, team, user
}

func TestNew_AppliesAllMigrations(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion() error = %v", err)
	}
	registered := db.Migrations()
	if want := registered[len(registered)-1].Version; version != want {
		t.Errorf("schema version = %d, want %d", version, want)
	}

	history, err := db.GetMigrationHistory(ctx)
	if err != nil {
		t.Fatalf("GetMigrationHistory() error = %v", err)
	}
	if len(history) != len(registered) {
		t.Fatalf("history has %d entries, want %d", len(history), len(registered))
	}
	for i, m := range history {
		if m.Name != registered[i].Name {
			t.Errorf("history[%d] = %q, want %q", i, m.Name, registered[i].Name)
		}
		if m.AppliedAt.IsZero() {
			t.Errorf("history[%d] has no applied_at", i)
		}
	}

	pending, err := db.PendingMigrations(ctx)
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("expected no pending migrations, got %d", len(pending))
	}

	// Migrating again is a no-op.
	applied, err := db.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if applied != 0 {
		t.Errorf("second Migrate() applied %d migrations", applied)
	}
}

func TestMigrationVersionsAreOrdered(t *testing.T) {
	db := &DB{}
	migrations := db.registeredMigrations()
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("migration %q (v%d) is not after v%d",
				migrations[i].Name, migrations[i].Version, migrations[i-1].Version)
		}
	}
	if migrations[0].Reversible() {
		t.Error("initial schema must be irreversible")
	}
	for _, m := range migrations[1:] {
		if !m.Reversible() {
			t.Errorf("migration %q should be reversible", m.Name)
		}
	}
}

func TestMigrateTo_UnknownVersion(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.MigrateTo(context.Background(), 999)
	if !errors.Is(err, ErrUnknownMigrationVersion) {
		t.Errorf("MigrateTo(999) error = %v, want ErrUnknownMigrationVersion", err)
	}
}

func TestRollback_IrreversibleInitialSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	reverted, err := db.MigrateTo(ctx, 0)
	if !errors.Is(err, ErrIrreversibleMigration) {
		t.Fatalf("MigrateTo(0) error = %v, want ErrIrreversibleMigration", err)
	}
	if reverted != 2 {
		t.Errorf("reverted %d migrations before failing, want 2", reverted)
	}

	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion() error = %v", err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestInviteLevelMigration_MultipleOwners(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org, _, _ := seedTenant(t, db)

	second := &models.User{Email: "second@example.com"}
	if err := db.CreateUser(ctx, second); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := db.AddMembership(ctx, &models.OrganizationMembership{
		OrganizationID: org.ID, UserID: second.ID, Level: models.LevelOwner,
	}); err != nil {
		t.Fatalf("second owner should be allowed after migration 2: %v", err)
	}

	// Restoring the one-owner index must fail and leave migration 2 applied.
	if _, err := db.MigrateTo(ctx, 1); err == nil {
		t.Fatal("expected rollback to fail with two owners")
	}
	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}

	invite := &models.OrganizationInvite{OrganizationID: org.ID, TargetEmail: "x@example.com"}
	if err := db.CreateInvite(ctx, invite); err != nil {
		t.Fatalf("invite level column must survive a failed rollback: %v", err)
	}
}

func TestInviteLevelMigration_RollbackRestoresSingleOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	org, _, _ := seedTenant(t, db)

	reverted, err := db.Rollback(ctx, 2)
	if err != nil {
		t.Fatalf("Rollback(2) error = %v", err)
	}
	if reverted != 2 {
		t.Fatalf("reverted %d migrations, want 2", reverted)
	}

	second := &models.User{Email: "second@example.com"}
	if err := db.CreateUser(ctx, second); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	err = db.AddMembership(ctx, &models.OrganizationMembership{
		OrganizationID: org.ID, UserID: second.ID, Level: models.LevelOwner,
	})
	if err == nil {
		t.Fatal("expected the one-owner index to reject a second owner")
	}
	if !IsUniqueViolation(err) {
		t.Errorf("expected a unique violation, got %v", err)
	}

	// Admins are unaffected by the index.
	if err := db.AddMembership(ctx, &models.OrganizationMembership{
		OrganizationID: org.ID, UserID: second.ID, Level: models.LevelAdmin,
	}); err != nil {
		t.Fatalf("AddMembership(admin) error = %v", err)
	}

	pending, err := db.PendingMigrations(ctx)
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending migrations, got %d", len(pending))
	}

	applied, err := db.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if applied != 2 {
		t.Errorf("applied %d migrations, want 2", applied)
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, cancel := ensureContext(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected a deadline to be applied")
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()
	ctx2, cancel2 := ensureContext(parent)
	defer cancel2()
	if ctx2 != parent {
		t.Error("context with a deadline should be returned unchanged")
	}
}
