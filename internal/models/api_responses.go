// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package models

import "time"

// APIResponse is the standard envelope for JSON API responses.
//
// Success:
//
//	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
//
// Error:
//
//	{"status": "error", "data": null, "error": {"code": "NOT_FOUND", "message": "..."}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing and cache information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       int       `json:"count,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a structured error.
//
// Codes: VALIDATION_ERROR, UNAUTHORIZED, FORBIDDEN, NOT_FOUND,
// METHOD_NOT_ALLOWED, CONFLICT, RATE_LIMITED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ResultsPage is the list shape used by the project-scoped resources.
type ResultsPage[T any] struct {
	Results []T     `json:"results"`
	Next    *string `json:"next"`
}
