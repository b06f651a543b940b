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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/authz"
	"github.com/orgbase/orgbase/internal/identity"
	"github.com/orgbase/orgbase/internal/observability/logger"
	"github.com/orgbase/orgbase/internal/observability/metrics"
	"github.com/orgbase/orgbase/internal/org"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	orgService      *org.Service
	authzService    *authz.Service
	engine          *authz.Engine
	tokenService    *TokenService
	auditLogger     audit.Logger
	authzMetrics    *metrics.AuthzMetrics
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	orgService *org.Service,
	authzService *authz.Service,
	engine *authz.Engine,
	tokenService *TokenService,
	auditLogger audit.Logger,
	authzMetrics *metrics.AuthzMetrics,
) *Handler {
	return &Handler{
		identityService: identityService,
		orgService:      orgService,
		authzService:    authzService,
		engine:          engine,
		tokenService:    tokenService,
		auditLogger:     auditLogger,
		authzMetrics:    authzMetrics,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Authentication
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)

			// Organization creation is open to any authenticated user;
			// the creator is seated as the initial OWNER.
			r.Post("/orgs", h.CreateOrganization)

			// Organization-scoped routes
			r.Group(func(r chi.Router) {
				r.Use(h.OrgMiddleware)
				r.Use(RequireOrg)

				r.With(h.RequirePermissions(authz.PermOrgsRead)).
					Get("/org", h.GetOrganization)
				r.With(h.RequirePermissions(authz.PermOrgsRead)).
					Get("/org/seats", h.GetSeatCount)

				r.With(h.RequirePermissions(authz.PermUsersRead)).
					Get("/org/members", h.ListMembers)
				r.With(h.RequirePermissions(authz.PermUsersManage)).
					Post("/org/members", h.AddMember)
				r.With(h.RequirePermissions(authz.PermUsersManage)).
					Put("/org/members/{userID}/role", h.AssignRole)

				r.With(h.RequirePermissions(authz.PermUsersSuspend)).
					Post("/org/members/{userID}/suspend", h.SuspendUser)
				r.With(h.RequirePermissions(authz.PermUsersSuspend)).
					Post("/org/members/{userID}/restore", h.RestoreUser)
				r.With(h.RequirePermissions(authz.PermUsersDelete)).
					Delete("/users/{userID}", h.HardDeleteUser)

				// Role and permission catalog management
				r.With(h.RequirePermissions(authz.PermRolesRead)).
					Get("/permissions", h.ListPermissions)
				r.With(h.RequirePermissions(authz.PermRolesRead)).
					Get("/roles", h.ListRoles)
				r.With(h.RequirePermissions(authz.PermRolesManage)).
					Post("/roles", h.CreateRole)
				r.With(h.RequirePermissions(authz.PermRolesManage)).
					Delete("/roles/{roleID}", h.DeleteRole)
				r.With(h.RequirePermissions(authz.PermRolesManage)).
					Put("/roles/{roleID}/permissions", h.ReplaceRolePermissions)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "orgbase",
	})
}

// RegisterRequest represents registration data
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile := identity.Profile{
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		FullName:   req.GivenName + " " + req.FamilyName,
	}

	user, err := h.identityService.ProvisionUser(r.Context(), req.Email, req.Password, profile)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to provision user",
			logger.Error(err),
			logger.Email(req.Email),
		)
		respondDomainError(w, err, "failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user login and issues an access token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.auditLogger.Log(r.Context(), audit.Event{
			Type:      audit.TypeLoginFailed,
			ActorID:   "",
			Resource:  req.Email,
			IPAddress: getIPAddress(r),
			UserAgent: r.UserAgent(),
			Metadata:  map[string]any{audit.AttrReason: "invalid_credentials"},
		})
		if errors.Is(err, identity.ErrUserSuspended) {
			respondError(w, http.StatusForbidden, "account is suspended")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokenService.Issue(user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue token", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.auditLogger.Log(r.Context(), audit.Event{
		Type:      audit.TypeLoginSuccess,
		ActorID:   user.ID,
		Resource:  "token",
		IPAddress: getIPAddress(r),
		UserAgent: r.UserAgent(),
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.ID,
		"email":        user.Email,
		"access_token": token,
		"token_type":   "Bearer",
	})
}

// GetCurrentUser returns the current authenticated user identity
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())

	user, err := h.identityService.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":        user.ID,
		"email":          user.Email,
		"email_verified": user.EmailVerified,
		"profile":        user.Profile,
		"status":         user.Status,
		"default_org_id": user.DefaultOrgID,
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDomainError maps domain sentinel errors to HTTP statuses in one
// place so handlers do not each carry a switch. Unknown errors become 500
// with the fallback message.
func respondDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, authz.ErrRoleNotFound),
		errors.Is(err, authz.ErrPermissionNotFound),
		errors.Is(err, authz.ErrMembershipNotFound),
		errors.Is(err, org.ErrOrgNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrUserAlreadyExists),
		errors.Is(err, authz.ErrDuplicateRole),
		errors.Is(err, authz.ErrDuplicatePermission),
		errors.Is(err, org.ErrOrgAlreadyExists),
		errors.Is(err, authz.ErrRoleInUse):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, authz.ErrSelfModification),
		errors.Is(err, authz.ErrSelfSuspension),
		errors.Is(err, authz.ErrInsufficientHierarchy),
		errors.Is(err, authz.ErrLastOwner),
		errors.Is(err, authz.ErrLastOwnerDeletion),
		errors.Is(err, authz.ErrNotInOrganization),
		errors.Is(err, authz.ErrProtectedRole):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

func getIPAddress(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
