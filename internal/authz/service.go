package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/id"
	"github.com/orgbase/orgbase/internal/rbac"
)

// Service provides role and permission catalog management.
// Hierarchy-sensitive membership mutations live on the Engine; this service
// owns the tenant-agnostic catalog side.
type Service struct {
	roles       RoleRepository
	permissions PermissionRepository
	memberships MembershipRepository
	auditLogger audit.Logger
}

// NewService creates a new authorization catalog service
func NewService(
	roles RoleRepository,
	permissions PermissionRepository,
	memberships MembershipRepository,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		roles:       roles,
		permissions: permissions,
		memberships: memberships,
		auditLogger: auditLogger,
	}
}

// ListPermissions returns the entire permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	return s.permissions.List(ctx)
}

// ListRoles returns all roles with their attached permission codes.
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.roles.List(ctx)
}

// GetRoleByCode retrieves a role by its code.
func (s *Service) GetRoleByCode(ctx context.Context, code string) (*Role, error) {
	return s.roles.GetByCode(ctx, code)
}

// CreateRole creates a new custom role with no permissions attached.
func (s *Service) CreateRole(ctx context.Context, code, name, description string) (*Role, error) {
	if code == "" {
		return nil, fmt.Errorf("role code is required")
	}
	if name == "" {
		return nil, fmt.Errorf("role name is required")
	}

	now := time.Now()
	role := &Role{
		ID:          id.NewUUIDv7(),
		Code:        code,
		Name:        name,
		Description: description,
		Permissions: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		Resource: code,
		Metadata: map[string]any{audit.AttrRoleID: role.ID},
	})

	return role, nil
}

// DeleteRole deletes a custom role. Reserved roles and roles still
// referenced by memberships are protected; both checks run before the
// delete so a rejection leaves state untouched.
func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	if rbac.IsReservedRole(role.Code) {
		return ErrProtectedRole
	}

	inUse, err := s.memberships.CountByRole(ctx, roleID)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return ErrRoleInUse
	}

	if err := s.roles.Delete(ctx, roleID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleDeleted,
		Resource: role.Code,
		Metadata: map[string]any{audit.AttrRoleID: roleID},
	})

	return nil
}

// AttachPermission grants a single permission to a role. Idempotent: an
// already-attached pair is left as is.
func (s *Service) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	return s.roles.AttachPermission(ctx, roleID, permissionID)
}

// ReplaceRolePermissions atomically replaces the role's entire permission
// set with the given codes. Every code must exist in the catalog.
func (s *Service) ReplaceRolePermissions(ctx context.Context, roleID string, permissionCodes []string) (*Role, error) {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	for _, code := range permissionCodes {
		if _, err := s.permissions.GetByCode(ctx, code); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrPermissionNotFound, code)
		}
	}
	if err := s.roles.ReplacePermissions(ctx, roleID, permissionCodes); err != nil {
		return nil, err
	}
	return s.roles.GetByID(ctx, roleID)
}

// SeatCount returns the number of memberships in an organization.
// Consumed by the subscription collaborator for seat-limit enforcement.
func (s *Service) SeatCount(ctx context.Context, orgID string) (int, error) {
	return s.memberships.CountByOrg(ctx, orgID)
}
