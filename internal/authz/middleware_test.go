// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/models"
)

// withSubject injects s the way auth.Middleware.Authenticate would.
func withSubject(s *auth.Subject) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s != nil {
				r = r.WithContext(auth.ContextWithSubject(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newProjectRouter(t *testing.T, store Store, subject *auth.Subject) http.Handler {
	t.Helper()
	mw := NewMiddleware(setupEnforcer(t), store, nil)

	r := chi.NewRouter()
	r.Use(withSubject(subject))
	r.Route("/api/projects/{team_id}", func(r chi.Router) {
		r.Use(mw.RequireProject("team_id"))
		r.With(mw.Authorize(ObjectAnnotation)).Get("/annotations/", func(w http.ResponseWriter, r *http.Request) {
			if AccessFromContext(r.Context()) == nil {
				t.Error("handler ran without access on the context")
			}
			w.WriteHeader(http.StatusOK)
		})
		r.With(mw.Authorize(ObjectAnnotation)).Delete("/annotations/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})
	r.Route("/api/organizations/{org_id}", func(r chi.Router) {
		r.Use(mw.RequireOrganization("org_id"))
		r.With(mw.Authorize(ObjectInvite)).Post("/invites/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
	})
	return r
}

func TestMiddleware_RequireProject(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	team := store.addTeam(4)
	member := &models.User{ID: 1}
	store.memberships[membershipKey{team.OrganizationID, member.ID}] = models.LevelMember

	tests := []struct {
		name    string
		subject *auth.Subject
		method  string
		path    string
		want    int
	}{
		{"member reads", &auth.Subject{User: member}, http.MethodGet, "/api/projects/4/annotations/", http.StatusOK},
		{"outsider", &auth.Subject{User: &models.User{ID: 2}}, http.MethodGet, "/api/projects/4/annotations/", http.StatusForbidden},
		{"unknown project", &auth.Subject{User: member}, http.MethodGet, "/api/projects/40/annotations/", http.StatusNotFound},
		{"non-numeric project", &auth.Subject{User: member}, http.MethodGet, "/api/projects/abc/annotations/", http.StatusNotFound},
		{"no subject", nil, http.MethodGet, "/api/projects/4/annotations/", http.StatusUnauthorized},
		{"member cannot delete", &auth.Subject{User: member}, http.MethodDelete, "/api/projects/4/annotations/", http.StatusForbidden},
		{"anonymous owner", auth.AnonymousSubject(), http.MethodDelete, "/api/projects/4/annotations/", http.StatusForbidden},
		{"anonymous reads", auth.AnonymousSubject(), http.MethodGet, "/api/projects/4/annotations/", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newProjectRouter(t, store, tt.subject)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestMiddleware_ForbiddenDetail(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addTeam(4)

	var gotCode, gotMessage string
	mw := NewMiddleware(setupEnforcer(t), store, func(w http.ResponseWriter, _ *http.Request, status int, code, message string) {
		gotCode, gotMessage = code, message
		w.WriteHeader(status)
	})

	r := chi.NewRouter()
	r.Use(withSubject(&auth.Subject{User: &models.User{ID: 9}}))
	r.With(mw.RequireProject("team_id")).Get("/api/projects/{team_id}/annotations/", func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/projects/4/annotations/", nil))

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if gotCode != "FORBIDDEN" || gotMessage != "You don't have access to the project." {
		t.Errorf("error = %s %q", gotCode, gotMessage)
	}
}

func TestMiddleware_RequireOrganization(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	team := store.addTeam(1)
	admin := &models.User{ID: 1}
	member := &models.User{ID: 2}
	store.memberships[membershipKey{team.OrganizationID, admin.ID}] = models.LevelAdmin
	store.memberships[membershipKey{team.OrganizationID, member.ID}] = models.LevelMember

	tests := []struct {
		name    string
		subject *auth.Subject
		org     string
		want    int
	}{
		{"admin invites", &auth.Subject{User: admin}, team.OrganizationID.String(), http.StatusCreated},
		{"member cannot invite", &auth.Subject{User: member}, team.OrganizationID.String(), http.StatusForbidden},
		{"bad id", &auth.Subject{User: admin}, "not-a-uuid", http.StatusNotFound},
		{"unknown org", &auth.Subject{User: admin}, "6f1c1a56-4b49-4f4c-9d3c-0d8f3f0f2b11", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := newProjectRouter(t, store, tt.subject)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/organizations/"+tt.org+"/invites/", nil))

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMiddleware_AuthorizeWithoutAccess(t *testing.T) {
	t.Parallel()

	mw := NewMiddleware(setupEnforcer(t), newFakeStore(), nil)
	handler := mw.Authorize(ObjectInsight)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
