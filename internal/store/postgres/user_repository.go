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
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/orgbase/orgbase/internal/identity"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userSelect = `
	SELECT id, email, email_verified, given_name, family_name, full_name,
	       status, default_org_id, suspended_at, suspended_by, created_at, updated_at
	FROM users
`

func scanUser(row pgx.Row) (*identity.User, error) {
	var u identity.User
	var defaultOrg, suspendedBy sql.NullString
	var suspendedAt sql.NullTime
	if err := row.Scan(
		&u.ID, &u.Email, &u.EmailVerified,
		&u.Profile.GivenName, &u.Profile.FamilyName, &u.Profile.FullName,
		&u.Status, &defaultOrg, &suspendedAt, &suspendedBy,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if defaultOrg.Valid {
		u.DefaultOrgID = defaultOrg.String
	}
	if suspendedAt.Valid {
		t := suspendedAt.Time
		u.SuspendedAt = &t
	}
	if suspendedBy.Valid {
		u.SuspendedBy = suspendedBy.String
	}
	return &u, nil
}

// Create creates a new user identity
func (r *UserRepository) Create(ctx context.Context, user *identity.User) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (id, email, email_verified, given_name, family_name, full_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, user.ID, user.Email, user.EmailVerified,
		user.Profile.GivenName, user.Profile.FamilyName, user.Profile.FullName,
		user.Status, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return identity.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	u, err := scanUser(r.db.pool.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	u, err := scanUser(r.db.pool.QueryRow(ctx, userSelect+` WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

// Update updates user profile information
func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, email_verified = $3, given_name = $4, family_name = $5,
		    full_name = $6, updated_at = $7
		WHERE id = $1
	`, user.ID, user.Email, user.EmailVerified,
		user.Profile.GivenName, user.Profile.FamilyName, user.Profile.FullName,
		time.Now())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// UpdateSuspension updates the suspension state of a user
func (r *UserRepository) UpdateSuspension(ctx context.Context, userID, status string, suspendedAt *time.Time, suspendedBy string) error {
	var at sql.NullTime
	if suspendedAt != nil {
		at = sql.NullTime{Time: *suspendedAt, Valid: true}
	}
	var by sql.NullString
	if suspendedBy != "" {
		by = sql.NullString{String: suspendedBy, Valid: true}
	}

	tag, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET status = $2, suspended_at = $3, suspended_by = $4, updated_at = $5
		WHERE id = $1
	`, userID, status, at, by, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update suspension: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// SetDefaultOrg sets the user's default organization
func (r *UserRepository) SetDefaultOrg(ctx context.Context, userID, orgID string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE users SET default_org_id = $2, updated_at = $3 WHERE id = $1
	`, userID, orgID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set default org: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// HardDelete permanently removes a user row. Credentials go with it via
// the FK cascade.
func (r *UserRepository) HardDelete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM users WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// AddCredentials adds credentials for a user
func (r *UserRepository) AddCredentials(ctx context.Context, credentials *identity.Credentials) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO credentials (user_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET password_hash = $2, updated_at = $3
	`, credentials.UserID, credentials.PasswordHash, credentials.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add credentials: %w", err)
	}
	return nil
}

// GetCredentials retrieves user credentials
func (r *UserRepository) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	var c identity.Credentials
	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, password_hash, updated_at FROM credentials WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.PasswordHash, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return &c, nil
}
