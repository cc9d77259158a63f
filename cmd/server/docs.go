// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// @title Trailmark API
// @version 1.0
// @description Product analytics backend: annotations, insights, time-to-see-data sessions and organization invites.
// @description
// @description ## Authentication
// @description
// @description Send a JWT from `POST /api/login` as `Authorization: Bearer <token>` or via the `token` cookie.
// @description
// @description ## Errors
// @description
// @description Errors use the envelope `{"status":"error","error":{"code":"...","message":"..."}}`.
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /api
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
//
// @tag.name Core
// @tag.description Health and realtime updates
// @tag.name Auth
// @tag.description Password login
// @tag.name Annotations
// @tag.description Chart annotations per project
// @tag.name Insights
// @tag.description Saved insights and their queries
// @tag.name TimeToSeeData
// @tag.description Query latency sessions
// @tag.name Organizations
// @tag.description Organization invites
// @tag.name Flags
// @tag.description Feature gate state

package main

import "github.com/swaggo/swag"

// swaggerInfo is served at /swagger/doc.json through swag's registry.
var swaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Trailmark API",
	Description:      "Product analytics backend: annotations, insights, time-to-see-data sessions and organization invites.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(swaggerInfo.InstanceName(), swaggerInfo)
}

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}",
        "license": {"name": "AGPL-3.0-or-later", "url": "https://www.gnu.org/licenses/agpl-3.0.html"}
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/health": {
            "get": {"tags": ["Core"], "summary": "Health check", "security": [], "responses": {"200": {"description": "OK"}, "503": {"description": "Degraded"}}}
        },
        "/login": {
            "post": {"tags": ["Auth"], "summary": "Exchange email and password for a token", "security": [], "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}, "429": {"description": "Throttled"}}}
        },
        "/ws": {
            "get": {"tags": ["Core"], "summary": "Realtime updates for a project", "parameters": [{"name": "team_id", "in": "query", "type": "integer", "required": true}], "responses": {"101": {"description": "Switching protocols"}}}
        },
        "/flags/hogql": {
            "get": {"tags": ["Flags"], "summary": "HogQL gate state", "parameters": [{"name": "team_id", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/projects/{team_id}/annotations": {
            "get": {"tags": ["Annotations"], "summary": "List annotations", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}, {"name": "dashboardItemId", "in": "query", "type": "integer"}, {"name": "before", "in": "query", "type": "string"}, {"name": "after", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Annotations"], "summary": "Create an annotation", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}], "responses": {"201": {"description": "Created"}}}
        },
        "/projects/{team_id}/annotations/{id}": {
            "get": {"tags": ["Annotations"], "summary": "Get an annotation", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}, {"name": "id", "in": "path", "type": "integer", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "patch": {"tags": ["Annotations"], "summary": "Update an annotation", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}, {"name": "id", "in": "path", "type": "integer", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/projects/{team_id}/insights": {
            "get": {"tags": ["Insights"], "summary": "List insights", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Insights"], "summary": "Create an insight", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}], "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid query"}}}
        },
        "/projects/{team_id}/insights/{id}": {
            "get": {"tags": ["Insights"], "summary": "Get an insight", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}, {"name": "id", "in": "path", "type": "integer", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/projects/{team_id}/time_to_see_data/sessions": {
            "get": {"tags": ["TimeToSeeData"], "summary": "List sessions", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["TimeToSeeData"], "summary": "List sessions, optionally for one session_id", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/projects/{team_id}/time_to_see_data/session_events": {
            "post": {"tags": ["TimeToSeeData"], "summary": "Events of one session", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown session"}}}
        },
        "/projects/{team_id}/time_to_see_data/events": {
            "post": {"tags": ["TimeToSeeData"], "summary": "Bulk insert events", "parameters": [{"name": "team_id", "in": "path", "type": "integer", "required": true}], "responses": {"201": {"description": "Created"}}}
        },
        "/organizations/{org_id}/invites": {
            "get": {"tags": ["Organizations"], "summary": "List invites", "parameters": [{"name": "org_id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Organizations"], "summary": "Create an invite", "parameters": [{"name": "org_id", "in": "path", "type": "string", "required": true}], "responses": {"201": {"description": "Created"}, "403": {"description": "Level not allowed"}}}
        },
        "/organizations/{org_id}/invites/{id}": {
            "delete": {"tags": ["Organizations"], "summary": "Revoke an invite", "parameters": [{"name": "org_id", "in": "path", "type": "string", "required": true}, {"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Revoked"}}}
        },
        "/organizations/{org_id}/invites/{id}/accept": {
            "post": {"tags": ["Organizations"], "summary": "Accept an invite", "parameters": [{"name": "org_id", "in": "path", "type": "string", "required": true}, {"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "Membership created"}}}
        }
    }
}`
