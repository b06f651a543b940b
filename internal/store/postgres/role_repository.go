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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/orgbase/orgbase/internal/authz"
)

// RoleRepository implements authz.RoleRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

const roleSelect = `
	SELECT r.id, r.code, r.name, r.description, r.created_at, r.updated_at,
	       COALESCE(array_agg(p.code) FILTER (WHERE p.code IS NOT NULL), '{}')
	FROM roles r
	LEFT JOIN role_permissions rp ON r.id = rp.role_id
	LEFT JOIN permissions p ON rp.permission_id = p.id
`

const roleGroupBy = ` GROUP BY r.id, r.code, r.name, r.description, r.created_at, r.updated_at`

// Create creates a new role
func (r *RoleRepository) Create(ctx context.Context, role *authz.Role) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO roles (id, code, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, role.ID, role.Code, role.Name, role.Description, role.CreatedAt, role.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return authz.ErrDuplicateRole
		}
		return fmt.Errorf("failed to create role: %w", err)
	}

	return nil
}

// GetByID retrieves a role with its attached permission codes
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*authz.Role, error) {
	var role authz.Role

	err := r.db.pool.QueryRow(ctx, roleSelect+` WHERE r.id = $1`+roleGroupBy, id).Scan(
		&role.ID, &role.Code, &role.Name, &role.Description,
		&role.CreatedAt, &role.UpdatedAt, &role.Permissions,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &role, nil
}

// GetByCode retrieves a role by code with its attached permission codes
func (r *RoleRepository) GetByCode(ctx context.Context, code string) (*authz.Role, error) {
	var role authz.Role

	err := r.db.pool.QueryRow(ctx, roleSelect+` WHERE r.code = $1`+roleGroupBy, code).Scan(
		&role.ID, &role.Code, &role.Name, &role.Description,
		&role.CreatedAt, &role.UpdatedAt, &role.Permissions,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &role, nil
}

// List retrieves all roles with their attached permission codes
func (r *RoleRepository) List(ctx context.Context) ([]*authz.Role, error) {
	rows, err := r.db.pool.Query(ctx, roleSelect+roleGroupBy+` ORDER BY r.code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*authz.Role
	for rows.Next() {
		var role authz.Role
		if err := rows.Scan(
			&role.ID, &role.Code, &role.Name, &role.Description,
			&role.CreatedAt, &role.UpdatedAt, &role.Permissions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
	}

	return roles, nil
}

// Delete removes a role row
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return authz.ErrRoleNotFound
	}

	return nil
}

// AttachPermission links a permission to a role. Idempotent.
func (r *RoleRepository) AttachPermission(ctx context.Context, roleID, permissionID string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`, roleID, permissionID, time.Now())

	if err != nil {
		return fmt.Errorf("failed to attach permission: %w", err)
	}

	return nil
}

// ReplacePermissions atomically clears all attachments for the role and
// inserts the given permission codes. Runs in one transaction so a failure
// never leaves the role with a partial set.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionCodes []string) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}

	if len(permissionCodes) > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id, created_at)
			SELECT $1, p.id, $3 FROM permissions p WHERE p.code = ANY($2)
		`, roleID, permissionCodes, time.Now())
		if err != nil {
			return fmt.Errorf("failed to insert role permissions: %w", err)
		}
	}

	return tx.Commit(ctx)
}
