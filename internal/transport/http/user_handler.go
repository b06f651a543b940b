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

	"github.com/go-chi/chi/v5"
	"github.com/orgbase/orgbase/internal/observability/logger"
)

// AssignRoleRequest represents role assignment data
type AssignRoleRequest struct {
	RoleID string `json:"role_id"`
}

// AssignRole changes a member's role in the current organization. All
// hierarchy, self-protection and last-owner rules are enforced by the
// engine; the handler only translates the outcome.
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoleID == "" {
		respondError(w, http.StatusBadRequest, "role_id is required")
		return
	}

	targetUserID := chi.URLParam(r, "userID")

	m, err := h.engine.AssignRole(r.Context(), GetUserID(r.Context()), targetUserID, GetOrgID(r.Context()), req.RoleID)
	if err != nil {
		slog.WarnContext(r.Context(), "role assignment rejected",
			logger.Error(err),
			logger.UserID(GetUserID(r.Context())),
			logger.OrgID(GetOrgID(r.Context())),
			"target_id", targetUserID,
		)
		respondDomainError(w, err, "failed to assign role")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":   m.UserID,
		"org_id":    m.OrgID,
		"role_id":   m.RoleID,
		"role_code": m.RoleCode,
	})
}

// SuspendUser suspends a member's account
func (h *Handler) SuspendUser(w http.ResponseWriter, r *http.Request) {
	targetUserID := chi.URLParam(r, "userID")

	user, err := h.engine.SuspendUser(r.Context(), targetUserID, GetUserID(r.Context()), GetOrgID(r.Context()))
	if err != nil {
		respondDomainError(w, err, "failed to suspend user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.ID,
		"status":       user.Status,
		"suspended_at": user.SuspendedAt,
	})
}

// RestoreUser lifts a member's suspension
func (h *Handler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	targetUserID := chi.URLParam(r, "userID")

	user, err := h.engine.RestoreUser(r.Context(), targetUserID, GetUserID(r.Context()), GetOrgID(r.Context()))
	if err != nil {
		respondDomainError(w, err, "failed to restore user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": user.ID,
		"status":  user.Status,
	})
}

// HardDeleteUser permanently removes a user and their memberships
func (h *Handler) HardDeleteUser(w http.ResponseWriter, r *http.Request) {
	targetUserID := chi.URLParam(r, "userID")

	if targetUserID == GetUserID(r.Context()) {
		respondError(w, http.StatusForbidden, "cannot delete your own account")
		return
	}

	if err := h.engine.HardDeleteUser(r.Context(), targetUserID); err != nil {
		respondDomainError(w, err, "failed to delete user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "user deleted",
	})
}
