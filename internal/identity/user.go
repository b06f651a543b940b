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

package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrUserSuspended      = errors.New("account is suspended")
)

// User account status
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User represents a user identity in the system.
// Authorization is never derived from fields on this struct: privileges
// come exclusively from membership rows resolved through the authz engine.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	Profile       Profile
	Status        string

	// DefaultOrgID is the organization used as tenant context when a
	// request does not name one explicitly.
	DefaultOrgID string

	// SuspendedAt and SuspendedBy record who suspended the account and
	// when. Cleared on restore.
	SuspendedAt *time.Time
	SuspendedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile represents user profile information
type Profile struct {
	GivenName  string
	FamilyName string
	FullName   string
}

// Credentials represents user authentication credentials
type Credentials struct {
	UserID       string
	PasswordHash string
	UpdatedAt    time.Time
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create creates a new user identity
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates user profile information
	Update(ctx context.Context, user *User) error

	// UpdateSuspension updates the suspension state of a user
	UpdateSuspension(ctx context.Context, userID, status string, suspendedAt *time.Time, suspendedBy string) error

	// SetDefaultOrg sets the user's default organization
	SetDefaultOrg(ctx context.Context, userID, orgID string) error

	// HardDelete permanently removes a user row. Membership cleanup is
	// the caller's responsibility and happens first.
	HardDelete(ctx context.Context, id string) error

	// AddCredentials adds credentials for a user
	AddCredentials(ctx context.Context, credentials *Credentials) error

	// GetCredentials retrieves user credentials
	GetCredentials(ctx context.Context, userID string) (*Credentials, error)
}
