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
)

// -----------------------------------------------------------------------------
// Permission Code Constants
// Codes follow the resource:action format and are globally unique.
// The catalog is additive: codes are never deleted once created.
// -----------------------------------------------------------------------------

const (
	PermUsersRead    = "users:read"
	PermUsersManage  = "users:manage"
	PermUsersSuspend = "users:suspend"
	PermUsersDelete  = "users:delete"

	PermOrgsRead   = "orgs:read"
	PermOrgsManage = "orgs:manage"

	PermRolesRead   = "roles:read"
	PermRolesManage = "roles:manage"

	PermBillingRead   = "billing:read"
	PermBillingManage = "billing:manage"

	PermNotificationsRead   = "notifications:read"
	PermNotificationsManage = "notifications:manage"

	PermDashboardRead = "dashboard:read"
)

// CatalogEntry describes one permission seeded at startup.
type CatalogEntry struct {
	Code        string
	Description string
}

// StandardCatalog is the fixed list of permissions guaranteed to exist
// after bootstrap. OWNER always holds the entire catalog.
var StandardCatalog = []CatalogEntry{
	{PermUsersRead, "View users and their roles"},
	{PermUsersManage, "Create users and assign roles"},
	{PermUsersSuspend, "Suspend and restore user accounts"},
	{PermUsersDelete, "Permanently delete user accounts"},
	{PermOrgsRead, "View organization details and seat usage"},
	{PermOrgsManage, "Update organization settings"},
	{PermRolesRead, "View roles and their permissions"},
	{PermRolesManage, "Create, delete and modify roles"},
	{PermBillingRead, "View billing and subscription state"},
	{PermBillingManage, "Change plans and payment details"},
	{PermNotificationsRead, "View notifications"},
	{PermNotificationsManage, "Send and configure notifications"},
	{PermDashboardRead, "View dashboard KPIs"},
}

// Permission represents one grantable capability in the catalog.
// Immutable after creation except for its description.
type Permission struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PermissionRepository defines the interface for permission catalog storage
type PermissionRepository interface {
	// Create inserts a permission. Returns ErrDuplicatePermission if the
	// code is already taken.
	Create(ctx context.Context, p *Permission) error

	// Ensure inserts a permission if its code is absent. Idempotent.
	Ensure(ctx context.Context, p *Permission) error

	// GetByCode retrieves a permission by its code.
	GetByCode(ctx context.Context, code string) (*Permission, error)

	// List retrieves the entire catalog ordered by code.
	List(ctx context.Context) ([]*Permission, error)
}
