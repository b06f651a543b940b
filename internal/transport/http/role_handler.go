package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListPermissions returns the permission catalog
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.authzService.ListPermissions(r.Context())
	if err != nil {
		respondDomainError(w, err, "failed to list permissions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"permissions": permissions})
}

// ListRoles returns all roles with their permission sets
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.authzService.ListRoles(r.Context())
	if err != nil {
		respondDomainError(w, err, "failed to list roles")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// CreateRoleRequest represents role creation data
type CreateRoleRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateRole creates a custom role
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	role, err := h.authzService.CreateRole(r.Context(), req.Code, req.Name, req.Description)
	if err != nil {
		respondDomainError(w, err, "failed to create role")
		return
	}

	respondJSON(w, http.StatusCreated, role)
}

// DeleteRole removes a custom role. Reserved roles and roles still held
// by members are rejected.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")

	if err := h.authzService.DeleteRole(r.Context(), roleID); err != nil {
		respondDomainError(w, err, "failed to delete role")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "role deleted",
	})
}

// ReplaceRolePermissionsRequest represents a role permission set update
type ReplaceRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// ReplaceRolePermissions replaces a role's permission set. Members
// holding the role see the new set on their next request.
func (h *Handler) ReplaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req ReplaceRolePermissionsRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.authzService.ReplaceRolePermissions(r.Context(), chi.URLParam(r, "roleID"), req.Permissions)
	if err != nil {
		respondDomainError(w, err, "failed to update role permissions")
		return
	}

	respondJSON(w, http.StatusOK, role)
}
