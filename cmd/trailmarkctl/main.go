// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Command trailmarkctl manages a Trailmark database offline: schema
// migrations, the insight query backfill and first-user bootstrap.
//
// It reads the same configuration layers as the server (config.yaml and
// environment) but only needs the database settings. Stop the server first;
// DuckDB allows a single writer process.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailmark/internal/config"
	"github.com/tomtom215/trailmark/internal/database"
	"github.com/tomtom215/trailmark/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes one invocation. The database is closed even when a command
// fails, since cobra skips post-run hooks on error.
func run(args []string, stdout, stderr io.Writer) (err error) {
	a := &app{}
	defer func() {
		err = errors.Join(err, a.close())
	}()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// app carries state shared by the subcommands of one invocation.
type app struct {
	dbPath   string
	logLevel string

	cfg *config.Config
	db  *database.DB
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "trailmarkctl",
		Short:         "Operate a Trailmark database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.open()
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "DuckDB file (overrides DUCKDB_PATH)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newMigrateCmd(a), newInsightsCmd(a), newUserCmd(a))
	return root
}

// open loads configuration and opens the database without migrating it.
func (a *app) open() error {
	logging.Init(logging.Config{Level: a.logLevel, Format: "console"})

	cfg, err := config.LoadForTooling()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	cfg.Database.SkipMigrations = true

	db, err := database.New(&cfg.Database, database.WithBackfillChunkSize(cfg.Insights.BackfillChunkSize))
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	a.cfg = cfg
	a.db = db
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
