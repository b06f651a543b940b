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

package authz

import (
	"context"
	"time"

	"github.com/orgbase/orgbase/internal/rbac"
)

// Role is a tenant-agnostic template: a role named OWNER is the same
// entity across all organizations. Only its membership rows are scoped.
type Role struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"` // attached permission codes
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasPermission checks if the role grants a specific permission code.
func (r *Role) HasPermission(code string) bool {
	for _, p := range r.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// IsOwner reports whether this is the reserved OWNER role.
func (r *Role) IsOwner() bool {
	return r.Code == rbac.RoleCodeOwner
}

// -----------------------------------------------------------------------------
// Default Role Permission Mappings
// Used for seeding. OWNER is not listed here: it always receives the
// entire catalog during bootstrap.
// -----------------------------------------------------------------------------

// AdminDefaultPermissions defines the initial grants for the ADMIN role.
var AdminDefaultPermissions = []string{
	PermUsersRead,
	PermUsersManage,
	PermUsersSuspend,
	PermOrgsRead,
	PermRolesRead,
	PermNotificationsRead,
	PermNotificationsManage,
	PermDashboardRead,
}

// MemberDefaultPermissions defines the initial grants for the MEMBER role.
var MemberDefaultPermissions = []string{
	PermUsersRead,
	PermOrgsRead,
	PermDashboardRead,
}

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	// Create creates a new role. Returns ErrDuplicateRole if the code is
	// already taken.
	Create(ctx context.Context, role *Role) error

	// GetByID retrieves a role with its attached permission codes.
	GetByID(ctx context.Context, id string) (*Role, error)

	// GetByCode retrieves a role by code with its attached permission codes.
	GetByCode(ctx context.Context, code string) (*Role, error)

	// List retrieves all roles with their attached permission codes.
	List(ctx context.Context) ([]*Role, error)

	// Delete removes a role row. Protected-role and in-use checks live in
	// the service, not here.
	Delete(ctx context.Context, id string) error

	// AttachPermission links a permission to a role. Idempotent: an
	// existing (role, permission) pair is left untouched.
	AttachPermission(ctx context.Context, roleID, permissionID string) error

	// ReplacePermissions atomically clears all permission attachments for
	// the role and inserts the given permission codes. Full replace, not
	// merge.
	ReplacePermissions(ctx context.Context, roleID string, permissionCodes []string) error
}
