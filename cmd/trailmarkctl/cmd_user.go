// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/models"
)

type userOptions struct {
	email        string
	password     string
	firstName    string
	organization string
	project      string
	level        string
}

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	var opts userOptions
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user, optionally with a new organization and project",
		Example: "  trailmarkctl user create --email admin@example.com --password '...' \\\n" +
			"    --organization Acme --project Web",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.createUser(cmd, opts)
		},
	}
	create.Flags().StringVar(&opts.email, "email", "", "Login email (required)")
	create.Flags().StringVar(&opts.password, "password", "", "Password (required)")
	create.Flags().StringVar(&opts.firstName, "first-name", "", "Display name")
	create.Flags().StringVar(&opts.organization, "organization", "", "Create this organization with the user as a member")
	create.Flags().StringVar(&opts.project, "project", "", "Create this project in the new organization")
	create.Flags().StringVar(&opts.level, "level", "owner", "Membership level in the new organization (member, admin, owner)")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func (a *app) createUser(cmd *cobra.Command, opts userOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if opts.project != "" && opts.organization == "" {
		return errors.New("--project requires --organization")
	}
	level, err := models.ParseMembershipLevel(opts.level)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(opts.password)
	if err != nil {
		return err
	}
	user := &models.User{
		Email:        strings.TrimSpace(opts.email),
		FirstName:    opts.firstName,
		PasswordHash: hash,
	}
	if err := a.db.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	fmt.Fprintf(out, "user %d <%s> created\n", user.ID, user.Email)

	if opts.organization == "" {
		return nil
	}

	org := &models.Organization{Name: opts.organization}
	if err := a.db.CreateOrganization(ctx, org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	membership := &models.OrganizationMembership{OrganizationID: org.ID, UserID: user.ID, Level: level}
	if err := a.db.AddMembership(ctx, membership); err != nil {
		return fmt.Errorf("add membership: %w", err)
	}
	fmt.Fprintf(out, "organization %s (%s) created; user is %s\n", org.Name, org.ID, level)

	if opts.project != "" {
		team := &models.Team{OrganizationID: org.ID, Name: opts.project}
		if err := a.db.CreateTeam(ctx, team); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		fmt.Fprintf(out, "project %d (%s) created\n", team.ID, team.Name)
	}
	return nil
}
