// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

/*
Package authz decides what an authenticated user may do inside a project or
organization.

Two steps are involved. Access resolution (ProjectAccess, OrganizationAccess)
loads the team or organization and the caller's membership in it. Policy
enforcement (Enforcer) then checks the membership level against an embedded
Casbin RBAC policy:

	role     inherits  grants
	member   -         annotation, insight, session: read/write; invite: read
	admin    member    invite: write, delete
	owner    admin     invite:owner: write

Objects are the resource kinds annotation, insight, invite, invite:owner and
session. Actions are read, write and delete.

The Middleware type wires both steps into chi routes:

	r.Route("/api/projects/{team_id}", func(r chi.Router) {
	    r.Use(authzMW.RequireProject("team_id"))
	    r.With(authzMW.Authorize(authz.ObjectAnnotation)).Get("/annotations/", h.ListAnnotations)
	})
*/
package authz
