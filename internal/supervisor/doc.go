// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

/*
Package supervisor runs the server's long-lived goroutines under suture v4.

The tree has three layers so that a crash loop in one does not take the
others down:

	trailmark
	├── data-layer
	│   ├── flag-poller
	│   └── cache janitors (sessions, flag definitions)
	├── messaging-layer
	│   ├── websocket-hub
	│   └── activity-consumer (when events are enabled)
	└── api-layer
	    ├── http-server
	    └── login-limiter

Every component implements suture.Service directly (Serve plus String),
except the HTTP server, which is wrapped by services.HTTPServerService.
Supervisor events are logged through sutureslog into the zerolog-backed
slog handler from internal/logging.

Typical wiring in main:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddComponents(supervisor.Components{
	    HTTP: services.NewHTTPServerService(srv, 10*time.Second),
	    Hub:  hub,
	})
	return tree.Serve(ctx)
*/
package supervisor
