// Copyright 2026 The Orgbase Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/orgbase/orgbase/internal/observability/logger"
)

// CreateOrganizationRequest represents organization creation data
type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

// CreateOrganization creates a new organization with the caller as its
// initial OWNER.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "organization name is required")
		return
	}

	o, err := h.orgService.CreateOrganization(r.Context(), req.Name, GetUserID(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create organization",
			logger.Error(err),
			logger.UserID(GetUserID(r.Context())),
		)
		respondDomainError(w, err, "failed to create organization")
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

// GetOrganization returns the current organization context
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := h.orgService.GetOrganization(r.Context(), GetOrgID(r.Context()))
	if err != nil {
		respondDomainError(w, err, "failed to get organization")
		return
	}

	respondJSON(w, http.StatusOK, o)
}

// GetSeatCount returns the number of memberships in the organization,
// the basis for per-seat billing.
func (h *Handler) GetSeatCount(w http.ResponseWriter, r *http.Request) {
	orgID := GetOrgID(r.Context())

	count, err := h.authzService.SeatCount(r.Context(), orgID)
	if err != nil {
		respondDomainError(w, err, "failed to count seats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"org_id": orgID,
		"seats":  count,
	})
}

// ListMembers lists the organization's memberships with role and
// permission detail.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.orgService.ListMembers(r.Context(), GetOrgID(r.Context()))
	if err != nil {
		respondDomainError(w, err, "failed to list members")
		return
	}

	out := make([]map[string]any, 0, len(members))
	for _, m := range members {
		out = append(out, map[string]any{
			"user_id":     m.UserID,
			"role_id":     m.RoleID,
			"role_code":   m.RoleCode,
			"permissions": m.Permissions,
			"granted_at":  m.GrantedAt,
			"granted_by":  m.GrantedBy,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"members": out})
}

// AddMemberRequest represents member addition data
type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

// AddMember adds a user to the organization with the default MEMBER role
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	m, err := h.orgService.AddMember(r.Context(), GetUserID(r.Context()), req.UserID, GetOrgID(r.Context()))
	if err != nil {
		respondDomainError(w, err, "failed to add member")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id":   m.UserID,
		"org_id":    m.OrgID,
		"role_id":   m.RoleID,
		"role_code": m.RoleCode,
	})
}
