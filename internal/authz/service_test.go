package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRoleRepo struct {
	mock.Mock
}

func (m *mockRoleRepo) Create(ctx context.Context, role *Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *mockRoleRepo) GetByID(ctx context.Context, id string) (*Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Role), args.Error(1)
}

func (m *mockRoleRepo) GetByCode(ctx context.Context, code string) (*Role, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Role), args.Error(1)
}

func (m *mockRoleRepo) List(ctx context.Context) ([]*Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*Role), args.Error(1)
}

func (m *mockRoleRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRoleRepo) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	args := m.Called(ctx, roleID, permissionID)
	return args.Error(0)
}

func (m *mockRoleRepo) ReplacePermissions(ctx context.Context, roleID string, permissionCodes []string) error {
	args := m.Called(ctx, roleID, permissionCodes)
	return args.Error(0)
}

type mockPermissionRepo struct {
	mock.Mock
}

func (m *mockPermissionRepo) Create(ctx context.Context, p *Permission) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPermissionRepo) Ensure(ctx context.Context, p *Permission) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPermissionRepo) GetByCode(ctx context.Context, code string) (*Permission, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Permission), args.Error(1)
}

func (m *mockPermissionRepo) List(ctx context.Context) ([]*Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*Permission), args.Error(1)
}

type mockMembershipRepo struct {
	mock.Mock
}

func (m *mockMembershipRepo) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*Membership, error) {
	args := m.Called(ctx, userID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func (m *mockMembershipRepo) ListByUserAndOrg(ctx context.Context, userID, orgID string) ([]*Membership, error) {
	args := m.Called(ctx, userID, orgID)
	return args.Get(0).([]*Membership), args.Error(1)
}

func (m *mockMembershipRepo) ListByOrg(ctx context.Context, orgID string) ([]*Membership, error) {
	args := m.Called(ctx, orgID)
	return args.Get(0).([]*Membership), args.Error(1)
}

func (m *mockMembershipRepo) CountByOrg(ctx context.Context, orgID string) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *mockMembershipRepo) CountByRoleAndOrg(ctx context.Context, roleID, orgID string) (int, error) {
	args := m.Called(ctx, roleID, orgID)
	return args.Int(0), args.Error(1)
}

func (m *mockMembershipRepo) CountByRole(ctx context.Context, roleID string) (int, error) {
	args := m.Called(ctx, roleID)
	return args.Int(0), args.Error(1)
}

func (m *mockMembershipRepo) Replace(ctx context.Context, membership *Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *mockMembershipRepo) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) error {
	args := m.Called(ctx, userID, orgID)
	return args.Error(0)
}

func (m *mockMembershipRepo) DeleteByUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

// TestPurpose: Validates that role creation generates UUIDv7 IDs and starts
// with an empty permission set.
// Scope: Unit Test
// Expected: Role created with a valid UUIDv7 ID and no permissions.
// Test Case ID: SVC-01
func TestService_CreateRole_UUIDv7(t *testing.T) {
	roles := new(mockRoleRepo)
	permissions := new(mockPermissionRepo)
	memberships := new(mockMembershipRepo)
	auditLogger := new(mockAudit)
	svc := NewService(roles, permissions, memberships, auditLogger)
	ctx := context.Background()

	roles.On("Create", ctx, mock.MatchedBy(func(r *Role) bool {
		uid, err := uuid.Parse(r.ID)
		if err != nil {
			return false
		}
		return uid.Version() == 7 && r.Code == "AUDITOR" && len(r.Permissions) == 0
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeRoleCreated && e.Resource == "AUDITOR"
	})).Return()

	role, err := svc.CreateRole(ctx, "AUDITOR", "Auditor", "Read-only compliance access")
	require.NoError(t, err)
	assert.Equal(t, "AUDITOR", role.Code)

	roles.AssertExpectations(t)
	auditLogger.AssertExpectations(t)
}

// TestPurpose: Validates that the reserved OWNER/ADMIN/MEMBER roles can never
// be deleted.
// Scope: Unit Test
// Security: Reserved role protection
// Expected: ErrProtectedRole without touching the store.
// Test Case ID: SVC-02
func TestService_DeleteRole_ReservedRoleProtected(t *testing.T) {
	roles := new(mockRoleRepo)
	memberships := new(mockMembershipRepo)
	svc := NewService(roles, new(mockPermissionRepo), memberships, new(mockAudit))
	ctx := context.Background()

	roles.On("GetByID", ctx, rbac.RoleIDOwner).Return(&Role{
		ID:   rbac.RoleIDOwner,
		Code: rbac.RoleCodeOwner,
	}, nil)

	err := svc.DeleteRole(ctx, rbac.RoleIDOwner)
	assert.ErrorIs(t, err, ErrProtectedRole)
	roles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that a custom role still held by members cannot be
// deleted.
// Scope: Unit Test
// Expected: ErrRoleInUse when any membership references the role.
// Test Case ID: SVC-03
func TestService_DeleteRole_InUse(t *testing.T) {
	roles := new(mockRoleRepo)
	memberships := new(mockMembershipRepo)
	svc := NewService(roles, new(mockPermissionRepo), memberships, new(mockAudit))
	ctx := context.Background()

	roles.On("GetByID", ctx, "role-custom").Return(&Role{ID: "role-custom", Code: "AUDITOR"}, nil)
	memberships.On("CountByRole", ctx, "role-custom").Return(3, nil)

	err := svc.DeleteRole(ctx, "role-custom")
	assert.ErrorIs(t, err, ErrRoleInUse)
	roles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that an unused custom role is deleted and audited.
// Scope: Unit Test
// Expected: Delete called once, role_deleted event emitted.
// Test Case ID: SVC-04
func TestService_DeleteRole_Unused(t *testing.T) {
	roles := new(mockRoleRepo)
	memberships := new(mockMembershipRepo)
	auditLogger := new(mockAudit)
	svc := NewService(roles, new(mockPermissionRepo), memberships, auditLogger)
	ctx := context.Background()

	roles.On("GetByID", ctx, "role-custom").Return(&Role{ID: "role-custom", Code: "AUDITOR"}, nil)
	memberships.On("CountByRole", ctx, "role-custom").Return(0, nil)
	roles.On("Delete", ctx, "role-custom").Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeRoleDeleted
	})).Return()

	err := svc.DeleteRole(ctx, "role-custom")
	require.NoError(t, err)
	roles.AssertExpectations(t)
}

// TestPurpose: Validates that replacing a role's permission set rejects codes
// absent from the catalog before writing anything.
// Scope: Unit Test
// Security: Catalog referential integrity
// Expected: ErrPermissionNotFound naming the bad code; no replace call.
// Test Case ID: SVC-05
func TestService_ReplaceRolePermissions_UnknownCode(t *testing.T) {
	roles := new(mockRoleRepo)
	permissions := new(mockPermissionRepo)
	svc := NewService(roles, permissions, new(mockMembershipRepo), new(mockAudit))
	ctx := context.Background()

	roles.On("GetByID", ctx, "role-custom").Return(&Role{ID: "role-custom", Code: "AUDITOR"}, nil)
	permissions.On("GetByCode", ctx, PermUsersRead).Return(&Permission{Code: PermUsersRead}, nil)
	permissions.On("GetByCode", ctx, "reports:read").Return(nil, ErrPermissionNotFound)

	_, err := svc.ReplaceRolePermissions(ctx, "role-custom", []string{PermUsersRead, "reports:read"})
	assert.ErrorIs(t, err, ErrPermissionNotFound)
	assert.Contains(t, err.Error(), "reports:read")
	roles.AssertNotCalled(t, "ReplacePermissions", mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates the seat count passthrough used for billing.
// Scope: Unit Test
// Expected: CountByOrg result surfaced unchanged.
// Test Case ID: SVC-06
func TestService_SeatCount(t *testing.T) {
	memberships := new(mockMembershipRepo)
	svc := NewService(new(mockRoleRepo), new(mockPermissionRepo), memberships, new(mockAudit))
	ctx := context.Background()

	memberships.On("CountByOrg", ctx, "org-1").Return(17, nil)

	count, err := svc.SeatCount(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 17, count)
}
