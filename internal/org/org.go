package org

import (
	"context"
	"errors"
	"time"
)

var (
	ErrOrgNotFound      = errors.New("organization not found")
	ErrOrgAlreadyExists = errors.New("organization already exists")
)

// Organization represents an isolated customer account. All role
// assignments are scoped to one organization.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Repository defines the interface for organization storage
type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	GetByName(ctx context.Context, name string) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Organization, error)
}
