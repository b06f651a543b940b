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
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/authz"
	"github.com/orgbase/orgbase/internal/identity"
	"github.com/orgbase/orgbase/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRoleRepo struct{}

func (stubRoleRepo) Create(ctx context.Context, role *authz.Role) error { return nil }
func (stubRoleRepo) GetByID(ctx context.Context, id string) (*authz.Role, error) {
	return nil, authz.ErrRoleNotFound
}
func (stubRoleRepo) GetByCode(ctx context.Context, code string) (*authz.Role, error) {
	return nil, authz.ErrRoleNotFound
}
func (stubRoleRepo) List(ctx context.Context) ([]*authz.Role, error) { return nil, nil }
func (stubRoleRepo) Delete(ctx context.Context, id string) error     { return nil }
func (stubRoleRepo) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	return nil
}
func (stubRoleRepo) ReplacePermissions(ctx context.Context, roleID string, permissionCodes []string) error {
	return nil
}

// stubMembershipRepo serves one fixed membership per (user, org) pair
type stubMembershipRepo struct {
	memberships map[string]*authz.Membership
}

func (s *stubMembershipRepo) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*authz.Membership, error) {
	if m, ok := s.memberships[userID+"/"+orgID]; ok {
		return m, nil
	}
	return nil, authz.ErrMembershipNotFound
}

func (s *stubMembershipRepo) ListByUserAndOrg(ctx context.Context, userID, orgID string) ([]*authz.Membership, error) {
	return nil, nil
}
func (s *stubMembershipRepo) ListByOrg(ctx context.Context, orgID string) ([]*authz.Membership, error) {
	return nil, nil
}
func (s *stubMembershipRepo) CountByOrg(ctx context.Context, orgID string) (int, error) {
	return 0, nil
}
func (s *stubMembershipRepo) CountByRoleAndOrg(ctx context.Context, roleID, orgID string) (int, error) {
	return 0, nil
}
func (s *stubMembershipRepo) CountByRole(ctx context.Context, roleID string) (int, error) {
	return 0, nil
}
func (s *stubMembershipRepo) Replace(ctx context.Context, m *authz.Membership) error { return nil }
func (s *stubMembershipRepo) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) error {
	return nil
}
func (s *stubMembershipRepo) DeleteByUser(ctx context.Context, userID string) error { return nil }

type stubUserRepo struct {
	users map[string]*identity.User
}

func (s *stubUserRepo) Create(ctx context.Context, user *identity.User) error { return nil }
func (s *stubUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}
func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return nil, identity.ErrUserNotFound
}
func (s *stubUserRepo) Update(ctx context.Context, user *identity.User) error { return nil }
func (s *stubUserRepo) UpdateSuspension(ctx context.Context, userID, status string, suspendedAt *time.Time, suspendedBy string) error {
	return nil
}
func (s *stubUserRepo) SetDefaultOrg(ctx context.Context, userID, orgID string) error { return nil }
func (s *stubUserRepo) HardDelete(ctx context.Context, id string) error               { return nil }
func (s *stubUserRepo) AddCredentials(ctx context.Context, credentials *identity.Credentials) error {
	return nil
}
func (s *stubUserRepo) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	return nil, identity.ErrInvalidCredentials
}

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Log(ctx context.Context, event audit.Event) {
	r.events = append(r.events, event)
}

func newGuardHandler(t *testing.T) (*Handler, *recordingAudit) {
	t.Helper()

	memberships := &stubMembershipRepo{memberships: map[string]*authz.Membership{
		"user-member/org-1": {
			UserID:      "user-member",
			OrgID:       "org-1",
			RoleID:      rbac.RoleIDMember,
			RoleCode:    rbac.RoleCodeMember,
			Permissions: []string{authz.PermUsersRead, authz.PermOrgsRead},
		},
	}}
	users := &stubUserRepo{users: map[string]*identity.User{
		"user-member": {ID: "user-member", Email: "m@example.com", Status: identity.StatusActive},
		"user-frozen": {ID: "user-frozen", Email: "f@example.com", Status: identity.StatusSuspended},
	}}

	auditLog := &recordingAudit{}
	engine := authz.NewEngine(stubRoleRepo{}, memberships, users, auditLog)
	identityService := identity.NewService(users, identity.NewPasswordHasher(8*1024, 1, 1, 16, 32), auditLog)
	tokenService := NewTokenService("test-secret", "orgbase-test", time.Hour)

	return NewHandler(identityService, nil, nil, engine, tokenService, auditLog, nil), auditLog
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"ok": "true"})
	})
}

// TestPurpose: Validates that a request holding every declared permission
// passes the guard.
// Scope: Unit Test
// Expected: 200 from the wrapped handler.
// Test Case ID: GRD-01
func TestRequirePermissions_Granted(t *testing.T) {
	h, _ := newGuardHandler(t)

	guard := h.RequirePermissions(authz.PermUsersRead, authz.PermOrgsRead)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req = req.WithContext(withOrgID(withUserID(req.Context(), "user-member"), "org-1"))
	rec := httptest.NewRecorder()

	guard.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestPurpose: Validates that a denial names the missing permission codes in
// the response and emits a permission_denied audit event.
// Scope: Unit Test
// Security: Fail-closed guard with audit trail
// Expected: 403, body lists only the codes actually missing.
// Test Case ID: GRD-02
func TestRequirePermissions_DeniedNamesMissingCodes(t *testing.T) {
	h, auditLog := newGuardHandler(t)

	guard := h.RequirePermissions(authz.PermUsersRead, authz.PermUsersSuspend)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req = req.WithContext(withOrgID(withUserID(req.Context(), "user-member"), "org-1"))
	rec := httptest.NewRecorder()

	guard.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), authz.PermUsersSuspend)
	assert.NotContains(t, rec.Body.String(), authz.PermUsersRead)

	require.Len(t, auditLog.events, 1)
	assert.Equal(t, audit.TypePermissionDenied, auditLog.events[0].Type)
	assert.Equal(t, "user-member", auditLog.events[0].ActorID)
}

// TestPurpose: Validates that a user with no membership in the organization
// is denied even for permissions they hold elsewhere.
// Scope: Unit Test
// Security: Cross-organization isolation
// Expected: 403 listing every required code.
// Test Case ID: GRD-03
func TestRequirePermissions_CrossOrgDenied(t *testing.T) {
	h, _ := newGuardHandler(t)

	guard := h.RequirePermissions(authz.PermUsersRead)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req = req.WithContext(withOrgID(withUserID(req.Context(), "user-member"), "org-other"))
	rec := httptest.NewRecorder()

	guard.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), authz.PermUsersRead)
}

// TestPurpose: Validates that an unresolvable organization context is
// rejected before any permission lookup.
// Scope: Unit Test
// Expected: 400 asking for X-Org-ID or a default organization.
// Test Case ID: GRD-04
func TestRequirePermissions_MissingOrgContext(t *testing.T) {
	h, _ := newGuardHandler(t)

	guard := h.RequirePermissions(authz.PermUsersRead)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req = req.WithContext(withUserID(req.Context(), "user-member"))
	rec := httptest.NewRecorder()

	guard.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "X-Org-ID")
}

// TestPurpose: Validates bearer token authentication outcomes: valid token,
// malformed token, missing header and suspended account.
// Scope: Unit Test
// Security: Suspension takes effect on the next request even with a live token
// Expected: 200, 401, 401 and 403 respectively.
// Test Case ID: GRD-05
func TestAuthMiddleware(t *testing.T) {
	h, _ := newGuardHandler(t)

	var seenUserID string
	protected := h.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token, err := h.tokenService.Issue("user-member")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-member", seenUserID)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	frozenToken, err := h.tokenService.Issue("user-frozen")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+frozenToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// TestPurpose: Validates token issue/verify roundtrip and rejection of
// foreign-issuer and expired tokens.
// Scope: Unit Test
// Expected: Subject recovered; bad tokens return ErrInvalidToken.
// Test Case ID: GRD-06
func TestTokenService_Roundtrip(t *testing.T) {
	svc := NewTokenService("secret-a", "orgbase-test", time.Hour)

	token, err := svc.Issue("user-42")
	require.NoError(t, err)

	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", subject)

	_, err = svc.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer := NewTokenService("secret-a", "someone-else", time.Hour)
	foreign, err := otherIssuer.Issue("user-42")
	require.NoError(t, err)
	_, err = svc.Verify(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenService("secret-a", "orgbase-test", -time.Minute)
	stale, err := expired.Issue("user-42")
	require.NoError(t, err)
	_, err = svc.Verify(stale)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
