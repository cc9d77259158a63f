// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/database"
)

// runCtl executes one trailmarkctl invocation against dbPath.
func runCtl(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(append([]string{"--db", dbPath, "--log-level", "error"}, args...), &out, &out)
	return out.String(), err
}

func setupCtl(t *testing.T) string {
	t.Helper()
	t.Setenv(config.ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "")
	return filepath.Join(t.TempDir(), "ctl.duckdb")
}

func TestMigrateCommands(t *testing.T) {
	dbPath := setupCtl(t)

	out, err := runCtl(t, dbPath, "migrate", "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if strings.Count(out, "pending") != 3 {
		t.Errorf("fresh database should list 3 pending migrations:\n%s", out)
	}

	out, err = runCtl(t, dbPath, "migrate", "up")
	if err != nil {
		t.Fatalf("up error = %v", err)
	}
	if !strings.Contains(out, "applied 3 migration(s); schema version 3") {
		t.Errorf("up output = %q", out)
	}

	out, err = runCtl(t, dbPath, "migrate", "down", "--steps", "1")
	if err != nil {
		t.Fatalf("down error = %v", err)
	}
	if !strings.Contains(out, "schema version 2") {
		t.Errorf("down output = %q", out)
	}

	out, err = runCtl(t, dbPath, "migrate", "to", "--version", "3")
	if err != nil {
		t.Fatalf("to error = %v", err)
	}
	if !strings.Contains(out, "moved through 1 migration(s); schema version 3") {
		t.Errorf("to output = %q", out)
	}

	out, err = runCtl(t, dbPath, "migrate", "status")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if strings.Count(out, "applied") != 3 || strings.Contains(out, "pending") {
		t.Errorf("status after up:\n%s", out)
	}

	if _, err := runCtl(t, dbPath, "migrate", "to"); err == nil {
		t.Error("migrate to without --version should fail")
	}
	if _, err := runCtl(t, dbPath, "migrate", "down", "--steps", "0"); err == nil {
		t.Error("migrate down --steps 0 should fail")
	}
	if _, err := runCtl(t, dbPath, "migrate", "to", "--version", "99"); err == nil {
		t.Error("migrate to an unknown version should fail")
	}
}

func TestUserCreateAndBackfill(t *testing.T) {
	dbPath := setupCtl(t)
	if _, err := runCtl(t, dbPath, "migrate", "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	out, err := runCtl(t, dbPath, "user", "create",
		"--email", "Admin@Example.com", "--password", "s3cret-pass",
		"--organization", "Acme", "--project", "Web")
	if err != nil {
		t.Fatalf("user create error = %v", err)
	}
	for _, want := range []string{"<admin@example.com> created", "organization Acme", "user is owner", "project"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := runCtl(t, dbPath, "user", "create", "--email", "admin@example.com", "--password", "x"); err == nil {
		t.Error("duplicate email should fail")
	}
	if _, err := runCtl(t, dbPath, "user", "create", "--email", "p@example.com", "--password", "x", "--project", "Web"); err == nil {
		t.Error("--project without --organization should fail")
	}

	out, err = runCtl(t, dbPath, "insights", "backfill")
	if err != nil {
		t.Fatalf("backfill error = %v", err)
	}
	if !strings.Contains(out, "converted 0 insight(s), skipped 0") {
		t.Errorf("backfill output = %q", out)
	}

	db, err := database.New(&config.DatabaseConfig{Path: dbPath})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	user, err := db.GetUserByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cret-pass" {
		t.Error("password must be stored hashed")
	}
}
