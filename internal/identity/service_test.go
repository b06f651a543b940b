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
	"strings"
	"testing"
	"time"

	"github.com/orgbase/orgbase/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUserRepo struct {
	users       map[string]*User
	credentials map[string]*Credentials
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:       make(map[string]*User),
		credentials: make(map[string]*Credentials),
	}
}

func (m *memUserRepo) Create(ctx context.Context, user *User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUserRepo) Update(ctx context.Context, user *User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) UpdateSuspension(ctx context.Context, userID, status string, suspendedAt *time.Time, suspendedBy string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Status = status
	u.SuspendedAt = suspendedAt
	u.SuspendedBy = suspendedBy
	return nil
}

func (m *memUserRepo) SetDefaultOrg(ctx context.Context, userID, orgID string) error {
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.DefaultOrgID = orgID
	return nil
}

func (m *memUserRepo) HardDelete(ctx context.Context, id string) error {
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) AddCredentials(ctx context.Context, credentials *Credentials) error {
	m.credentials[credentials.UserID] = credentials
	return nil
}

func (m *memUserRepo) GetCredentials(ctx context.Context, userID string) (*Credentials, error) {
	if c, ok := m.credentials[userID]; ok {
		return c, nil
	}
	return nil, ErrInvalidCredentials
}

type nopAudit struct{}

func (nopAudit) Log(ctx context.Context, event audit.Event) {}

func testHasher() *PasswordHasher {
	// Minimal parameters to keep the test fast; production values come
	// from config.
	return NewPasswordHasher(8*1024, 1, 1, 16, 32)
}

func newTestService() (*Service, *memUserRepo) {
	repo := newMemUserRepo()
	return NewService(repo, testHasher(), nopAudit{}), repo
}

// TestPurpose: Validates Argon2id hashing roundtrip and rejection of wrong
// passwords and malformed hashes.
// Scope: Unit Test
// Security: Credential storage integrity
// Expected: Correct password verifies, wrong one does not, garbage errors.
// Test Case ID: IDN-01
func TestPasswordHasher_Roundtrip(t *testing.T) {
	hasher := testHasher()

	encoded, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := hasher.Verify("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("wrong password", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hasher.Verify("anything", "not-a-hash")
	assert.Error(t, err)
}

// TestPurpose: Validates user provisioning: input validation, duplicate
// rejection and credential creation.
// Scope: Unit Test
// Expected: Valid input creates an active user with stored credentials.
// Test Case ID: IDN-02
func TestService_ProvisionUser(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	_, err := svc.ProvisionUser(ctx, "not-an-email", "longenough", Profile{})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.ProvisionUser(ctx, "a@example.com", "short", Profile{})
	assert.ErrorIs(t, err, ErrWeakPassword)

	user, err := svc.ProvisionUser(ctx, "a@example.com", "longenough", Profile{GivenName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, user.Status)
	_, err = repo.GetCredentials(ctx, user.ID)
	assert.NoError(t, err)

	_, err = svc.ProvisionUser(ctx, "a@example.com", "longenough", Profile{})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

// TestPurpose: Validates authentication outcomes: success, wrong password,
// unknown user and suspended account.
// Scope: Unit Test
// Security: Suspended accounts must not authenticate
// Expected: ErrUserSuspended for suspended users regardless of password.
// Test Case ID: IDN-03
func TestService_Authenticate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.ProvisionUser(ctx, "b@example.com", "longenough", Profile{})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "b@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "b@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "ghost@example.com", "longenough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	now := time.Now()
	require.NoError(t, svc.repo.UpdateSuspension(ctx, user.ID, StatusSuspended, &now, "admin-1"))

	_, err = svc.Authenticate(ctx, "b@example.com", "longenough")
	assert.ErrorIs(t, err, ErrUserSuspended)
}
