// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

/*
Package websocket pushes live project updates to browser clients.

A Hub owns the set of connected clients and fans messages out to them. Each
Client watches one project and runs two goroutines:

  - readPump reads client frames, answers "ping" messages, and unregisters
    the client when the connection drops
  - writePump writes queued messages and keeps the connection alive with
    websocket pings

Message types:

  - annotation: an annotation was created or changed
  - activity: a user action was recorded
  - pong: reply to a client "ping"

Messages tagged with a project are delivered only to clients watching it.
The hub runs as a suture service:

	hub := websocket.NewHub()
	supervisor.Add(hub)

	client := websocket.NewClient(hub, conn, teamID)
	hub.Register <- client
	client.Start()
*/
package websocket
