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

package org

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/authz"
	"github.com/orgbase/orgbase/internal/id"
	"github.com/orgbase/orgbase/internal/identity"
	"github.com/orgbase/orgbase/internal/rbac"
)

// Service provides organization management business logic
type Service struct {
	repo        Repository
	engine      *authz.Engine
	memberships authz.MembershipRepository
	users       identity.UserRepository
	auditLogger audit.Logger
}

// NewService creates a new organization service
func NewService(
	repo Repository,
	engine *authz.Engine,
	memberships authz.MembershipRepository,
	users identity.UserRepository,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		repo:        repo,
		engine:      engine,
		memberships: memberships,
		users:       users,
		auditLogger: auditLogger,
	}
}

// CreateOrganization creates a new organization and seats ownerUserID as
// its initial OWNER. The owner assignment runs as the system actor: there
// is no prior membership in a brand-new organization, so the engine's
// hierarchy checks have nothing to act on. This is the only call path that
// uses the system actor.
func (s *Service) CreateOrganization(ctx context.Context, name, ownerUserID string) (*Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("organization name is required")
	}

	if existing, err := s.repo.GetByName(ctx, name); err == nil && existing != nil {
		return nil, ErrOrgAlreadyExists
	}

	owner, err := s.users.GetByID(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	o := &Organization{
		ID:        id.NewUUIDv7(),
		Name:      name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if _, err := s.engine.AssignRole(ctx, authz.SystemActor, ownerUserID, o.ID, rbac.RoleIDOwner); err != nil {
		return nil, fmt.Errorf("failed to seat initial owner: %w", err)
	}

	// First organization becomes the user's default tenant context.
	if owner.DefaultOrgID == "" {
		if err := s.users.SetDefaultOrg(ctx, ownerUserID, o.ID); err != nil {
			return nil, fmt.Errorf("failed to set default organization: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOrgCreated,
		OrgID:    o.ID,
		ActorID:  ownerUserID,
		Resource: name,
	})

	return o, nil
}

// GetOrganization retrieves an organization by ID
func (s *Service) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	return s.repo.GetByID(ctx, orgID)
}

// ListOrganizations lists organizations with pagination
func (s *Service) ListOrganizations(ctx context.Context, limit, offset int) ([]*Organization, error) {
	return s.repo.List(ctx, limit, offset)
}

// AddMember onboards a user into the organization with the default MEMBER
// role. The assignment goes through the engine so every hierarchy and
// self-protection rule applies.
func (s *Service) AddMember(ctx context.Context, actorID, userID, orgID string) (*authz.Membership, error) {
	if _, err := s.repo.GetByID(ctx, orgID); err != nil {
		return nil, err
	}

	m, err := s.engine.AssignRole(ctx, actorID, userID, orgID, rbac.RoleIDMember)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err == nil && user.DefaultOrgID == "" {
		if err := s.users.SetDefaultOrg(ctx, userID, orgID); err != nil {
			return nil, fmt.Errorf("failed to set default organization: %w", err)
		}
	}

	return m, nil
}

// ListMembers returns all memberships in an organization.
func (s *Service) ListMembers(ctx context.Context, orgID string) ([]*authz.Membership, error) {
	if _, err := s.repo.GetByID(ctx, orgID); err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	return s.memberships.ListByOrg(ctx, orgID)
}
