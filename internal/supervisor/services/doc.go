// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

// Package services adapts components whose lifecycle does not already
// match suture.Service. Today that is only the HTTP server, whose blocking
// ListenAndServe is turned into a context-aware Serve with graceful drain.
package services
