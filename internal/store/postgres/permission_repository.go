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

	"github.com/jackc/pgx/v5"
	"github.com/orgbase/orgbase/internal/authz"
)

// PermissionRepository implements authz.PermissionRepository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Create inserts a permission
func (r *PermissionRepository) Create(ctx context.Context, p *authz.Permission) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (id, code, description, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.Code, p.Description, p.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return authz.ErrDuplicatePermission
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}

	return nil
}

// Ensure inserts a permission if its code is absent
func (r *PermissionRepository) Ensure(ctx context.Context, p *authz.Permission) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (id, code, description, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO NOTHING
	`, p.ID, p.Code, p.Description, p.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to ensure permission: %w", err)
	}

	return nil
}

// GetByCode retrieves a permission by its code
func (r *PermissionRepository) GetByCode(ctx context.Context, code string) (*authz.Permission, error) {
	var p authz.Permission

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, code, description, created_at
		FROM permissions
		WHERE code = $1
	`, code).Scan(&p.ID, &p.Code, &p.Description, &p.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return &p, nil
}

// List retrieves the entire catalog ordered by code
func (r *PermissionRepository) List(ctx context.Context) ([]*authz.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, code, description, created_at
		FROM permissions
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var permissions []*authz.Permission
	for rows.Next() {
		var p authz.Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, &p)
	}

	return permissions, nil
}
