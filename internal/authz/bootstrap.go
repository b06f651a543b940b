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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/id"
	"github.com/orgbase/orgbase/internal/rbac"
)

// Bootstrap seeds the permission catalog and the reserved roles.
// It runs once at process startup; a storage failure here is fatal and
// aborts the start. Every step is idempotent so repeated invocation (for
// example in tests) produces no duplicate rows.
type Bootstrap struct {
	roles       RoleRepository
	permissions PermissionRepository
	auditLogger audit.Logger
}

// NewBootstrap creates a new bootstrap seeder
func NewBootstrap(roles RoleRepository, permissions PermissionRepository, auditLogger audit.Logger) *Bootstrap {
	return &Bootstrap{
		roles:       roles,
		permissions: permissions,
		auditLogger: auditLogger,
	}
}

// EnsureSeeded guarantees the standard permission catalog and the three
// reserved roles exist, then grants the full catalog to OWNER. OWNER's
// grant is re-applied on every start so a permission added to the catalog
// is immediately owner-held; ADMIN and MEMBER defaults are applied only on
// first creation and stay editable afterwards.
func (b *Bootstrap) EnsureSeeded(ctx context.Context) error {
	catalog := make([]string, 0, len(StandardCatalog))
	for _, entry := range StandardCatalog {
		p := &Permission{
			ID:          id.NewUUIDv7(),
			Code:        entry.Code,
			Description: entry.Description,
			CreatedAt:   time.Now(),
		}
		if err := b.permissions.Ensure(ctx, p); err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", entry.Code, err)
		}
		catalog = append(catalog, entry.Code)
	}

	ownerCreated, err := b.ensureRole(ctx, rbac.RoleIDOwner, rbac.RoleCodeOwner, "Owner",
		"Full control of the organization, including ownership transfer")
	if err != nil {
		return err
	}
	adminCreated, err := b.ensureRole(ctx, rbac.RoleIDAdmin, rbac.RoleCodeAdmin, "Administrator",
		"Day-to-day administration without ownership privileges")
	if err != nil {
		return err
	}
	memberCreated, err := b.ensureRole(ctx, rbac.RoleIDMember, rbac.RoleCodeMember, "Member",
		"Default role assigned on onboarding")
	if err != nil {
		return err
	}

	// OWNER is a superuser within any organization: it always holds the
	// whole catalog.
	if err := b.roles.ReplacePermissions(ctx, rbac.RoleIDOwner, catalog); err != nil {
		return fmt.Errorf("failed to grant catalog to owner role: %w", err)
	}

	if adminCreated {
		if err := b.roles.ReplacePermissions(ctx, rbac.RoleIDAdmin, AdminDefaultPermissions); err != nil {
			return fmt.Errorf("failed to seed admin permissions: %w", err)
		}
	}
	if memberCreated {
		if err := b.roles.ReplacePermissions(ctx, rbac.RoleIDMember, MemberDefaultPermissions); err != nil {
			return fmt.Errorf("failed to seed member permissions: %w", err)
		}
	}

	if ownerCreated || adminCreated || memberCreated {
		b.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeCatalogSeeded,
			ActorID:  audit.ActorSystem,
			Resource: "rbac_catalog",
			Metadata: map[string]any{audit.AttrPermissions: len(catalog)},
		})
	}

	slog.InfoContext(ctx, "rbac catalog seeded",
		slog.Int("permissions", len(catalog)),
		slog.String("component", "authz"),
	)
	return nil
}

// ensureRole creates the role with a stable seeded ID if it does not
// exist. Reports whether it was newly created.
func (b *Bootstrap) ensureRole(ctx context.Context, roleID, code, name, description string) (bool, error) {
	_, err := b.roles.GetByCode(ctx, code)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrRoleNotFound) {
		return false, fmt.Errorf("failed to look up role %s: %w", code, err)
	}

	now := time.Now()
	role := &Role{
		ID:          roleID,
		Code:        code,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.roles.Create(ctx, role); err != nil {
		// Another instance may have seeded concurrently.
		if errors.Is(err, ErrDuplicateRole) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create role %s: %w", code, err)
	}
	return true, nil
}
