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
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/orgbase/orgbase/internal/authz"
)

// MembershipRepository implements authz.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

const membershipSelect = `
	SELECT m.id, m.user_id, m.org_id, m.role_id, r.code, m.granted_at, m.granted_by,
	       COALESCE(array_agg(p.code) FILTER (WHERE p.code IS NOT NULL), '{}')
	FROM memberships m
	JOIN roles r ON m.role_id = r.id
	LEFT JOIN role_permissions rp ON r.id = rp.role_id
	LEFT JOIN permissions p ON rp.permission_id = p.id
`

const membershipGroupBy = ` GROUP BY m.id, m.user_id, m.org_id, m.role_id, r.code, m.granted_at, m.granted_by`

func scanMembership(row pgx.Row) (*authz.Membership, error) {
	var m authz.Membership
	var grantedBy sql.NullString
	if err := row.Scan(
		&m.ID, &m.UserID, &m.OrgID, &m.RoleID, &m.RoleCode,
		&m.GrantedAt, &grantedBy, &m.Permissions,
	); err != nil {
		return nil, err
	}
	if grantedBy.Valid {
		m.GrantedBy = grantedBy.String
	}
	return &m, nil
}

// GetByUserAndOrg resolves the user's current membership joined with its
// role code and permission set. With healthy data there is at most one
// row; if legacy duplicates exist the most recent grant wins.
func (r *MembershipRepository) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*authz.Membership, error) {
	row := r.db.pool.QueryRow(ctx,
		membershipSelect+` WHERE m.user_id = $1 AND m.org_id = $2`+membershipGroupBy+` ORDER BY m.granted_at DESC LIMIT 1`,
		userID, orgID)

	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return m, nil
}

// ListByUserAndOrg returns all membership rows for the pair
func (r *MembershipRepository) ListByUserAndOrg(ctx context.Context, userID, orgID string) ([]*authz.Membership, error) {
	return r.list(ctx, membershipSelect+` WHERE m.user_id = $1 AND m.org_id = $2`+membershipGroupBy, userID, orgID)
}

// ListByOrg returns all memberships in an organization
func (r *MembershipRepository) ListByOrg(ctx context.Context, orgID string) ([]*authz.Membership, error) {
	return r.list(ctx, membershipSelect+` WHERE m.org_id = $1`+membershipGroupBy+` ORDER BY m.granted_at`, orgID)
}

func (r *MembershipRepository) list(ctx context.Context, query string, args ...any) ([]*authz.Membership, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*authz.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	return memberships, nil
}

// CountByOrg returns the total number of memberships in an organization
func (r *MembershipRepository) CountByOrg(ctx context.Context, orgID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships WHERE org_id = $1
	`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// CountByRoleAndOrg returns how many users hold the role in an
// organization. Always a direct query: the last-owner guard depends on
// this being fresh.
func (r *MembershipRepository) CountByRoleAndOrg(ctx context.Context, roleID, orgID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships WHERE role_id = $1 AND org_id = $2
	`, roleID, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count role memberships: %w", err)
	}
	return count, nil
}

// CountByRole returns how many memberships reference the role anywhere
func (r *MembershipRepository) CountByRole(ctx context.Context, roleID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM memberships WHERE role_id = $1
	`, roleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count role memberships: %w", err)
	}
	return count, nil
}

// Replace deletes every membership row for (m.UserID, m.OrgID) and inserts
// m inside a single transaction, so concurrent writers can never observe a
// user with zero or two roles in the organization.
func (r *MembershipRepository) Replace(ctx context.Context, m *authz.Membership) error {
	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM memberships WHERE user_id = $1 AND org_id = $2
	`, m.UserID, m.OrgID); err != nil {
		return fmt.Errorf("failed to delete prior memberships: %w", err)
	}

	var grantedBy sql.NullString
	if m.GrantedBy != "" {
		grantedBy = sql.NullString{String: m.GrantedBy, Valid: true}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO memberships (id, user_id, org_id, role_id, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.UserID, m.OrgID, m.RoleID, m.GrantedAt, grantedBy); err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}

	return tx.Commit(ctx)
}

// DeleteByUserAndOrg removes all membership rows for the pair
func (r *MembershipRepository) DeleteByUserAndOrg(ctx context.Context, userID, orgID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM memberships WHERE user_id = $1 AND org_id = $2
	`, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}
	return nil
}

// DeleteByUser removes all membership rows for a user
func (r *MembershipRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM memberships WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}
	return nil
}
