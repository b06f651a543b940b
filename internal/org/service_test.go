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

package org

import (
	"context"
	"testing"
	"time"

	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/authz"
	"github.com/orgbase/orgbase/internal/identity"
	"github.com/orgbase/orgbase/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOrgRepo struct {
	orgs map[string]*Organization
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{orgs: make(map[string]*Organization)}
}

func (m *memOrgRepo) Create(ctx context.Context, o *Organization) error {
	m.orgs[o.ID] = o
	return nil
}

func (m *memOrgRepo) GetByID(ctx context.Context, id string) (*Organization, error) {
	if o, ok := m.orgs[id]; ok {
		return o, nil
	}
	return nil, ErrOrgNotFound
}

func (m *memOrgRepo) GetByName(ctx context.Context, name string) (*Organization, error) {
	for _, o := range m.orgs {
		if o.Name == name {
			return o, nil
		}
	}
	return nil, ErrOrgNotFound
}

func (m *memOrgRepo) Update(ctx context.Context, o *Organization) error {
	m.orgs[o.ID] = o
	return nil
}

func (m *memOrgRepo) Delete(ctx context.Context, id string) error {
	delete(m.orgs, id)
	return nil
}

func (m *memOrgRepo) List(ctx context.Context, limit, offset int) ([]*Organization, error) {
	var out []*Organization
	for _, o := range m.orgs {
		out = append(out, o)
	}
	return out, nil
}

type memRoleRepo struct {
	roles map[string]*authz.Role
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{roles: map[string]*authz.Role{
		rbac.RoleIDOwner:  {ID: rbac.RoleIDOwner, Code: rbac.RoleCodeOwner, Permissions: []string{authz.PermUsersRead, authz.PermUsersManage}},
		rbac.RoleIDMember: {ID: rbac.RoleIDMember, Code: rbac.RoleCodeMember, Permissions: []string{authz.PermUsersRead}},
	}}
}

func (m *memRoleRepo) Create(ctx context.Context, role *authz.Role) error {
	m.roles[role.ID] = role
	return nil
}

func (m *memRoleRepo) GetByID(ctx context.Context, id string) (*authz.Role, error) {
	if r, ok := m.roles[id]; ok {
		return r, nil
	}
	return nil, authz.ErrRoleNotFound
}

func (m *memRoleRepo) GetByCode(ctx context.Context, code string) (*authz.Role, error) {
	for _, r := range m.roles {
		if r.Code == code {
			return r, nil
		}
	}
	return nil, authz.ErrRoleNotFound
}

func (m *memRoleRepo) List(ctx context.Context) ([]*authz.Role, error) { return nil, nil }
func (m *memRoleRepo) Delete(ctx context.Context, id string) error     { return nil }
func (m *memRoleRepo) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	return nil
}
func (m *memRoleRepo) ReplacePermissions(ctx context.Context, roleID string, permissionCodes []string) error {
	return nil
}

type memMembershipRepo struct {
	rows  []*authz.Membership
	roles *memRoleRepo
}

func (m *memMembershipRepo) join(row *authz.Membership) *authz.Membership {
	out := *row
	if r, ok := m.roles.roles[row.RoleID]; ok {
		out.RoleCode = r.Code
		out.Permissions = r.Permissions
	}
	return &out
}

func (m *memMembershipRepo) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*authz.Membership, error) {
	for _, row := range m.rows {
		if row.UserID == userID && row.OrgID == orgID {
			return m.join(row), nil
		}
	}
	return nil, authz.ErrMembershipNotFound
}

func (m *memMembershipRepo) ListByUserAndOrg(ctx context.Context, userID, orgID string) ([]*authz.Membership, error) {
	var out []*authz.Membership
	for _, row := range m.rows {
		if row.UserID == userID && row.OrgID == orgID {
			out = append(out, m.join(row))
		}
	}
	return out, nil
}

func (m *memMembershipRepo) ListByOrg(ctx context.Context, orgID string) ([]*authz.Membership, error) {
	var out []*authz.Membership
	for _, row := range m.rows {
		if row.OrgID == orgID {
			out = append(out, m.join(row))
		}
	}
	return out, nil
}

func (m *memMembershipRepo) CountByOrg(ctx context.Context, orgID string) (int, error) {
	n := 0
	for _, row := range m.rows {
		if row.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

func (m *memMembershipRepo) CountByRoleAndOrg(ctx context.Context, roleID, orgID string) (int, error) {
	n := 0
	for _, row := range m.rows {
		if row.RoleID == roleID && row.OrgID == orgID {
			n++
		}
	}
	return n, nil
}

func (m *memMembershipRepo) CountByRole(ctx context.Context, roleID string) (int, error) {
	n := 0
	for _, row := range m.rows {
		if row.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

func (m *memMembershipRepo) Replace(ctx context.Context, membership *authz.Membership) error {
	kept := m.rows[:0]
	for _, row := range m.rows {
		if !(row.UserID == membership.UserID && row.OrgID == membership.OrgID) {
			kept = append(kept, row)
		}
	}
	m.rows = append(kept, membership)
	return nil
}

func (m *memMembershipRepo) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) error {
	return nil
}
func (m *memMembershipRepo) DeleteByUser(ctx context.Context, userID string) error { return nil }

type memUserRepo struct {
	users map[string]*identity.User
}

func (m *memUserRepo) Create(ctx context.Context, user *identity.User) error { return nil }
func (m *memUserRepo) GetByID(ctx context.Context, id string) (*identity.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, identity.ErrUserNotFound
}
func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return nil, identity.ErrUserNotFound
}
func (m *memUserRepo) Update(ctx context.Context, user *identity.User) error { return nil }
func (m *memUserRepo) UpdateSuspension(ctx context.Context, userID, status string, suspendedAt *time.Time, suspendedBy string) error {
	return nil
}
func (m *memUserRepo) SetDefaultOrg(ctx context.Context, userID, orgID string) error {
	if u, ok := m.users[userID]; ok {
		u.DefaultOrgID = orgID
	}
	return nil
}
func (m *memUserRepo) HardDelete(ctx context.Context, id string) error { return nil }
func (m *memUserRepo) AddCredentials(ctx context.Context, credentials *identity.Credentials) error {
	return nil
}
func (m *memUserRepo) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	return nil, identity.ErrInvalidCredentials
}

type nopAudit struct{}

func (nopAudit) Log(ctx context.Context, event audit.Event) {}

func newTestService() (*Service, *memUserRepo, *memMembershipRepo) {
	roles := newMemRoleRepo()
	memberships := &memMembershipRepo{roles: roles}
	users := &memUserRepo{users: map[string]*identity.User{
		"user-1": {ID: "user-1", Email: "one@example.com", Status: identity.StatusActive},
		"user-2": {ID: "user-2", Email: "two@example.com", Status: identity.StatusActive},
	}}
	engine := authz.NewEngine(roles, memberships, users, nopAudit{})
	svc := NewService(newMemOrgRepo(), engine, memberships, users, nopAudit{})
	return svc, users, memberships
}

// TestPurpose: Validates that creating an organization seats the creator as
// OWNER through the engine's trusted bootstrap path and records the default
// tenant context.
// Scope: Unit Test
// Security: Initial owner seating without a pre-existing hierarchy
// Expected: New org with an OWNER membership granted by the system marker.
// Test Case ID: ORG-01
func TestService_CreateOrganization_SeatsInitialOwner(t *testing.T) {
	svc, users, memberships := newTestService()
	ctx := context.Background()

	o, err := svc.CreateOrganization(ctx, "Acme", "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, o.Status)

	m, err := memberships.GetByUserAndOrg(ctx, "user-1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleCodeOwner, m.RoleCode)
	assert.Equal(t, "system", m.GrantedBy)

	u, err := users.GetByID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, u.DefaultOrgID, "first org becomes the default tenant context")
}

// TestPurpose: Validates duplicate-name rejection and unknown-owner rejection
// at organization creation.
// Scope: Unit Test
// Expected: ErrOrgAlreadyExists and identity.ErrUserNotFound respectively.
// Test Case ID: ORG-02
func TestService_CreateOrganization_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateOrganization(ctx, "Acme", "user-1")
	require.NoError(t, err)

	_, err = svc.CreateOrganization(ctx, "Acme", "user-2")
	assert.ErrorIs(t, err, ErrOrgAlreadyExists)

	_, err = svc.CreateOrganization(ctx, "Globex", "user-ghost")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

// TestPurpose: Validates member onboarding with the default MEMBER role via
// the engine, including the engine's entity checks.
// Scope: Unit Test
// Expected: MEMBER membership for the new user; unknown org rejected.
// Test Case ID: ORG-03
func TestService_AddMember_DefaultRole(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	o, err := svc.CreateOrganization(ctx, "Acme", "user-1")
	require.NoError(t, err)

	m, err := svc.AddMember(ctx, "user-1", "user-2", o.ID)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleCodeMember, m.RoleCode)
	assert.Equal(t, "user-1", m.GrantedBy)

	_, err = svc.AddMember(ctx, "user-1", "user-2", "org-ghost")
	assert.ErrorIs(t, err, ErrOrgNotFound)

	members, err := svc.ListMembers(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
