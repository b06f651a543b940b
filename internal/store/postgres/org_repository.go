package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/orgbase/orgbase/internal/org"
)

// OrgRepository implements org.Repository
type OrgRepository struct {
	db *DB
}

// NewOrgRepository creates a new organization repository
func NewOrgRepository(db *DB) *OrgRepository {
	return &OrgRepository{db: db}
}

// Create creates a new organization
func (r *OrgRepository) Create(ctx context.Context, o *org.Organization) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, o.ID, o.Name, o.Status, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return org.ErrOrgAlreadyExists
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrgRepository) GetByID(ctx context.Context, id string) (*org.Organization, error) {
	var o org.Organization
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, status, created_at, updated_at FROM organizations WHERE id = $1
	`, id).Scan(&o.ID, &o.Name, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, org.ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &o, nil
}

// GetByName retrieves an organization by name
func (r *OrgRepository) GetByName(ctx context.Context, name string) (*org.Organization, error) {
	var o org.Organization
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, status, created_at, updated_at FROM organizations WHERE name = $1
	`, name).Scan(&o.ID, &o.Name, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, org.ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization by name: %w", err)
	}
	return &o, nil
}

// Update updates an organization
func (r *OrgRepository) Update(ctx context.Context, o *org.Organization) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE organizations SET name = $2, status = $3, updated_at = $4 WHERE id = $1
	`, o.ID, o.Name, o.Status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return org.ErrOrgNotFound
	}
	return nil
}

// Delete removes an organization. Memberships cascade.
func (r *OrgRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM organizations WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return org.ErrOrgNotFound
	}
	return nil
}

// List retrieves organizations with pagination
func (r *OrgRepository) List(ctx context.Context, limit, offset int) ([]*org.Organization, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM organizations
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*org.Organization
	for rows.Next() {
		var o org.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, &o)
	}

	return orgs, nil
}
