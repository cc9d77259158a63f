// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailmark/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.db.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			return a.reportVersion(cmd, "applied", n)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return errors.New("--steps must be at least 1")
			}
			n, err := a.db.Rollback(cmd.Context(), steps)
			if err != nil {
				if errors.Is(err, database.ErrIrreversibleMigration) {
					return fmt.Errorf("migrate down stopped after %d step(s): %w", n, err)
				}
				return fmt.Errorf("migrate down: %w", err)
			}
			return a.reportVersion(cmd, "rolled back", n)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	var version int
	to := &cobra.Command{
		Use:   "to",
		Short: "Migrate up or down to an exact version (0 reverts everything)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("version") {
				return errors.New("--version is required")
			}
			n, err := a.db.MigrateTo(cmd.Context(), version)
			if err != nil {
				return fmt.Errorf("migrate to %d: %w", version, err)
			}
			return a.reportVersion(cmd, "moved through", n)
		},
	}
	to.Flags().IntVar(&version, "version", 0, "Target schema version")

	status := &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printStatus(cmd)
		},
	}

	cmd.AddCommand(up, down, to, status)
	return cmd
}

func (a *app) reportVersion(cmd *cobra.Command, verb string, n int) error {
	v, err := a.db.GetCurrentSchemaVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d migration(s); schema version %d\n", verb, n, v)
	return nil
}

func (a *app) printStatus(cmd *cobra.Command) error {
	ctx := cmd.Context()
	history, err := a.db.GetMigrationHistory(ctx)
	if err != nil {
		return err
	}
	pending, err := a.db.PendingMigrations(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATE\tAPPLIED AT")
	for _, m := range history {
		fmt.Fprintf(w, "%d\t%s\tapplied\t%s\n", m.Version, m.Name, m.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		state := "pending"
		if !m.Reversible() {
			state = "pending (irreversible)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t-\n", m.Version, m.Name, state)
	}
	return w.Flush()
}
