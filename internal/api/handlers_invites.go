// Trailmark - Product Analytics Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailmark

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trailmark/internal/auth"
	"github.com/tomtom215/trailmark/internal/authz"
	"github.com/tomtom215/trailmark/internal/models"
	"github.com/tomtom215/trailmark/internal/organizations"
)

// ListInvites handles GET /api/organizations/{org_id}/invites
//
// @Summary List open invites
// @Tags Organizations
// @Produce json
// @Param org_id path string true "Organization ID"
// @Success 200 {object} models.APIResponse{data=[]models.OrganizationInvite}
// @Failure 403 {object} models.APIResponse "No access to the organization"
// @Router /organizations/{org_id}/invites [get]
func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	list, err := h.svc.Organizations.ListInvites(r.Context(), access)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if list == nil {
		list = []*models.OrganizationInvite{}
	}
	respondData(w, http.StatusOK, list, start)
}

// CreateInvite handles POST /api/organizations/{org_id}/invites
//
// @Summary Invite a user
// @Description Invites an email address at a membership level (1 member, 8 admin, 15 owner; default member). Admins may invite members and admins, only owners may invite owners.
// @Tags Organizations
// @Accept json
// @Produce json
// @Param org_id path string true "Organization ID"
// @Param invite body organizations.InviteRequest true "Invite"
// @Success 201 {object} models.APIResponse{data=models.OrganizationInvite}
// @Failure 400 {object} models.APIResponse "Invalid request body"
// @Failure 403 {object} models.APIResponse "Level not allowed for the caller"
// @Router /organizations/{org_id}/invites [post]
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	access := authz.AccessFromContext(r.Context())

	var req organizations.InviteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	inv, err := h.svc.Organizations.CreateInvite(r.Context(), access, req.TargetEmail, req.Level)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusCreated, inv, start)
}

// RevokeInvite handles DELETE /api/organizations/{org_id}/invites/{id}
//
// @Summary Revoke an invite
// @Tags Organizations
// @Param org_id path string true "Organization ID"
// @Param id path string true "Invite ID"
// @Success 204 "Invite revoked"
// @Failure 403 {object} models.APIResponse "Not allowed"
// @Failure 404 {object} models.APIResponse "Invite not found"
// @Router /organizations/{org_id}/invites/{id} [delete]
func (h *Handler) RevokeInvite(w http.ResponseWriter, r *http.Request) {
	access := authz.AccessFromContext(r.Context())

	id, ok := uuidURLParam(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found.", nil)
		return
	}

	if err := h.svc.Organizations.RevokeInvite(r.Context(), access, id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AcceptInvite handles POST /api/organizations/{org_id}/invites/{id}/accept
//
// @Summary Accept an invite
// @Description Joins the signed-in user to the organization at the invite's level. The user's email must match the invite, ignoring case. The caller does not need to be a member yet.
// @Tags Organizations
// @Produce json
// @Param org_id path string true "Organization ID"
// @Param id path string true "Invite ID"
// @Success 200 {object} models.APIResponse{data=models.OrganizationMembership}
// @Failure 401 {object} models.APIResponse "Not signed in"
// @Failure 403 {object} models.APIResponse "Invite sent to another email"
// @Failure 404 {object} models.APIResponse "Invite not found"
// @Router /organizations/{org_id}/invites/{id}/accept [post]
func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	orgID, ok := uuidURLParam(r, "org_id")
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found.", nil)
		return
	}
	id, ok := uuidURLParam(r, "id")
	if !ok {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Not found.", nil)
		return
	}

	membership, err := h.svc.Organizations.AcceptInvite(r.Context(), auth.UserFromContext(r.Context()), orgID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondData(w, http.StatusOK, membership, start)
}
