// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailmark/internal/insights"
)

func newInsightsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Insight maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "backfill",
		Short: "Store a query for every legacy insight that only has filters",
		Long: "Converts legacy filters into an InsightVizNode query for insights that lack one.\n" +
			"Insights whose filters cannot be converted are logged and skipped. Safe to re-run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := insights.NewService(a.db, nil, nil).Backfill(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d insight(s), skipped %d\n", res.Converted, res.Skipped)
			return nil
		},
	})
	return cmd
}
