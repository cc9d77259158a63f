// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package database

// registeredMigrations returns all versioned migrations in order.
//
// Migrations are append-only: once released, a migration's statements never
// change. New schema work gets a new version.
func (db *DB) registeredMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Name:        "initial_schema",
			Description: "Create organizations, projects, users, memberships, invites, insights, annotations, time-to-see-data and activity tables",
			Up:          initialSchema,
		},
		{
			Version:     2,
			Name:        "invite_level_and_multiple_owners",
			Description: "Allow several owners per organization and give invites a membership level",
			Up: []string{
				`DROP INDEX IF EXISTS only_one_owner_per_organization`,
				`ALTER TABLE organization_invites ADD COLUMN level SMALLINT`,
				`UPDATE organization_invites SET level = 1 WHERE level IS NULL`,
				`ALTER TABLE organization_invites ALTER COLUMN level SET DEFAULT 1`,
				`ALTER TABLE organization_invites ALTER COLUMN level SET NOT NULL`,
			},
			Down: []string{
				`ALTER TABLE organization_invites DROP COLUMN level`,
				onlyOneOwnerIndex,
			},
		},
		{
			Version:     3,
			Name:        "insight_filters_to_query",
			Description: "Convert legacy insight filters into InsightVizNode queries",
			UpFunc:      db.backfillInsightQueries,
			Down: []string{
				`UPDATE insights
				SET query = NULL,
					filters = CAST(json_merge_patch(filters, '{"migrated_at": null}') AS VARCHAR)
				WHERE json_extract_string(filters, '$.migrated_at') IS NOT NULL`,
			},
		},
	}
}

// onlyOneOwnerIndex enforces a single owner per organization. Non-owner rows
// index as NULL, which never conflicts.
const onlyOneOwnerIndex = `CREATE UNIQUE INDEX only_one_owner_per_organization
	ON organization_memberships ((CASE WHEN level = 15 THEN organization_id END))`

var initialSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS teams_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGINT PRIMARY KEY DEFAULT nextval('teams_id_seq'),
		uuid VARCHAR NOT NULL UNIQUE,
		organization_id VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS users_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY DEFAULT nextval('users_id_seq'),
		uuid VARCHAR NOT NULL UNIQUE,
		distinct_id VARCHAR NOT NULL UNIQUE,
		email VARCHAR NOT NULL UNIQUE,
		first_name VARCHAR NOT NULL DEFAULT '',
		password_hash VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS organization_memberships (
		id VARCHAR PRIMARY KEY,
		organization_id VARCHAR NOT NULL,
		user_id BIGINT NOT NULL,
		level SMALLINT NOT NULL DEFAULT 1,
		joined_at TIMESTAMP NOT NULL,
		UNIQUE (organization_id, user_id)
	)`,
	onlyOneOwnerIndex,

	// No indexes: migration 2 alters this table.
	`CREATE TABLE IF NOT EXISTS organization_invites (
		id VARCHAR NOT NULL,
		organization_id VARCHAR NOT NULL,
		target_email VARCHAR NOT NULL,
		created_by_id BIGINT,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS insights_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS insights (
		id BIGINT PRIMARY KEY DEFAULT nextval('insights_id_seq'),
		short_id VARCHAR NOT NULL,
		team_id BIGINT NOT NULL,
		name VARCHAR NOT NULL DEFAULT '',
		filters VARCHAR NOT NULL DEFAULT '{}',
		query VARCHAR,
		created_by BIGINT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS annotations_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS annotations (
		id BIGINT PRIMARY KEY DEFAULT nextval('annotations_id_seq'),
		content VARCHAR NOT NULL DEFAULT '',
		date_marker TIMESTAMP,
		creation_type VARCHAR NOT NULL DEFAULT 'USR',
		dashboard_item_id BIGINT,
		team_id BIGINT NOT NULL,
		organization_id VARCHAR NOT NULL,
		scope VARCHAR NOT NULL DEFAULT 'dashboard_item',
		created_by_id BIGINT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		deleted BOOLEAN NOT NULL DEFAULT false
	)`,

	`CREATE TABLE IF NOT EXISTS metrics_time_to_see_data (
		team_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		session_id VARCHAR NOT NULL,
		"timestamp" TIMESTAMP NOT NULL,
		_timestamp TIMESTAMP NOT NULL,
		team_events_last_month BIGINT NOT NULL DEFAULT 0,
		query_id VARCHAR NOT NULL DEFAULT '',
		primary_interaction_id VARCHAR NOT NULL DEFAULT '',
		time_to_see_data_ms BIGINT NOT NULL DEFAULT 0,
		status VARCHAR NOT NULL DEFAULT '',
		api_response_bytes BIGINT NOT NULL DEFAULT 0,
		current_url VARCHAR NOT NULL DEFAULT '',
		api_url VARCHAR NOT NULL DEFAULT '',
		insight VARCHAR NOT NULL DEFAULT '',
		action VARCHAR NOT NULL DEFAULT '',
		insights_fetched INTEGER NOT NULL DEFAULT 0,
		insights_fetched_cached INTEGER NOT NULL DEFAULT 0,
		min_last_refresh TIMESTAMP,
		max_last_refresh TIMESTAMP,
		is_primary_interaction BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tts_team_session ON metrics_time_to_see_data (team_id, session_id)`,

	`CREATE TABLE IF NOT EXISTS activity_log (
		id VARCHAR PRIMARY KEY,
		occurred_at TIMESTAMP NOT NULL,
		event VARCHAR NOT NULL,
		user_id BIGINT NOT NULL,
		distinct_id VARCHAR NOT NULL DEFAULT '',
		team_id BIGINT,
		organization_id VARCHAR,
		properties VARCHAR NOT NULL DEFAULT '{}',
		correlation_id VARCHAR NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_team ON activity_log (team_id, occurred_at)`,
}
