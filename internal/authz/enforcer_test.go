// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package authz

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/trailmark/internal/metrics"
	"github.com/tomtom215/trailmark/internal/models"
)

// setupEnforcer creates an enforcer from the embedded policy.
func setupEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	enforcer, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	return enforcer
}

func TestEnforcer_RoleHierarchy(t *testing.T) {
	t.Parallel()
	enforcer := setupEnforcer(t)

	tests := []struct {
		role    string
		object  string
		action  string
		allowed bool
	}{
		{"member", ObjectAnnotation, ActionRead, true},
		{"member", ObjectAnnotation, ActionWrite, true},
		{"member", ObjectAnnotation, ActionDelete, false},
		{"member", ObjectInsight, ActionWrite, true},
		{"member", ObjectSession, ActionRead, true},
		{"member", ObjectInvite, ActionRead, true},
		{"member", ObjectInvite, ActionWrite, false},
		{"member", ObjectInvite, ActionDelete, false},
		{"admin", ObjectAnnotation, ActionWrite, true},
		{"admin", ObjectInvite, ActionRead, true},
		{"admin", ObjectInvite, ActionWrite, true},
		{"admin", ObjectInvite, ActionDelete, true},
		{"admin", ObjectOwnerInvite, ActionWrite, false},
		{"owner", ObjectInvite, ActionWrite, true},
		{"owner", ObjectOwnerInvite, ActionWrite, true},
		{"owner", ObjectSession, ActionWrite, true},
		{"stranger", ObjectAnnotation, ActionRead, false},
		{"member", "dashboard", ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.object+"/"+tt.action, func(t *testing.T) {
			t.Parallel()
			got, err := enforcer.Enforce(tt.role, tt.object, tt.action)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if got != tt.allowed {
				t.Errorf("Enforce(%s, %s, %s) = %v, want %v", tt.role, tt.object, tt.action, got, tt.allowed)
			}
		})
	}
}

func TestEnforcer_Allowed(t *testing.T) {
	t.Parallel()
	enforcer := setupEnforcer(t)

	if !enforcer.Allowed(models.LevelAdmin, ObjectInvite, ActionWrite) {
		t.Error("admins must be able to invite")
	}
	if enforcer.Allowed(models.LevelMember, ObjectInvite, ActionWrite) {
		t.Error("members must not be able to invite")
	}
	if enforcer.Allowed(models.MembershipLevel(3), ObjectAnnotation, ActionRead) {
		t.Error("unknown levels must be denied")
	}
}

func TestEnforcer_RecordsDecisions(t *testing.T) {
	enforcer := setupEnforcer(t)

	denied := metrics.AuthzDecisions.WithLabelValues("member", ObjectOwnerInvite, ActionWrite, "deny")
	before := testutil.ToFloat64(denied)

	if _, err := enforcer.Enforce("member", ObjectOwnerInvite, ActionWrite); err != nil {
		t.Fatalf("Enforce() error = %v", err)
	}

	if got := testutil.ToFloat64(denied) - before; got != 1 {
		t.Errorf("deny counter delta = %v, want 1", got)
	}
}

func TestInviteObject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level models.MembershipLevel
		want  string
	}{
		{models.LevelMember, ObjectInvite},
		{models.LevelAdmin, ObjectInvite},
		{models.LevelOwner, ObjectOwnerInvite},
	}
	for _, tt := range tests {
		if got := InviteObject(tt.level); got != tt.want {
			t.Errorf("InviteObject(%s) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestMethodToAction(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"GET":     ActionRead,
		"HEAD":    ActionRead,
		"OPTIONS": ActionRead,
		"POST":    ActionWrite,
		"PUT":     ActionWrite,
		"PATCH":   ActionWrite,
		"DELETE":  ActionDelete,
		"TRACE":   ActionRead,
	}
	for method, want := range tests {
		if got := methodToAction(method); got != want {
			t.Errorf("methodToAction(%s) = %q, want %q", method, got, want)
		}
	}
}
