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
	"time"

	"github.com/orgbase/orgbase/internal/audit"
	"github.com/orgbase/orgbase/internal/id"
	"github.com/orgbase/orgbase/internal/identity"
	"github.com/orgbase/orgbase/internal/rbac"
)

// SystemActor is the actor ID used by trusted internal call paths
// (organization bootstrap) to seat the first OWNER. It bypasses the
// self-modification and hierarchy checks, so it must never be taken from
// request input: HTTP handlers always pass the authenticated user.
const SystemActor = ""

// Engine evaluates permission checks and enforces the hierarchy and
// self-protection invariants on membership mutations. It is the single
// canonical entry point for authorization decisions: call sites must not
// re-derive permission logic from raw role data.
type Engine struct {
	roles       RoleRepository
	memberships MembershipRepository
	users       identity.UserRepository
	auditLogger audit.Logger
}

// NewEngine creates a new authorization engine
func NewEngine(
	roles RoleRepository,
	memberships MembershipRepository,
	users identity.UserRepository,
	auditLogger audit.Logger,
) *Engine {
	return &Engine{
		roles:       roles,
		memberships: memberships,
		users:       users,
		auditLogger: auditLogger,
	}
}

// AssignRole sets the target user's single role within an organization,
// replacing any prior membership for that pair.
//
// Checks run in a fixed order and each failure is terminal: a rejected
// request leaves state untouched, because the destructive delete-then-insert
// happens only after every precondition has passed. Do not reorder.
func (e *Engine) AssignRole(ctx context.Context, actorID, targetUserID, orgID, newRoleID string) (*Membership, error) {
	// 1. Self-protection. The system actor (internal bootstrap path) is
	// exempt; there is no prior membership to protect during bootstrap.
	if actorID != SystemActor && actorID == targetUserID {
		return nil, ErrSelfModification
	}

	// 2. Referenced entities must exist.
	if _, err := e.users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load target user: %w", err)
	}
	newRole, err := e.roles.GetByID(ctx, newRoleID)
	if err != nil {
		return nil, err
	}

	// 3. Resolve the actor's own membership. Absence is not an error
	// here: it simply means no elevated rights.
	var actorMembership *Membership
	if actorID != SystemActor {
		m, err := e.memberships.GetByUserAndOrg(ctx, actorID, orgID)
		if err != nil && !errors.Is(err, ErrMembershipNotFound) {
			return nil, fmt.Errorf("failed to resolve actor membership: %w", err)
		}
		actorMembership = m
	}

	// 4. Creating an owner requires an owner.
	if newRole.IsOwner() && actorID != SystemActor {
		if actorMembership == nil || actorMembership.RoleCode != rbac.RoleCodeOwner {
			return nil, ErrPromotionRequiresOwner
		}
	}

	// 5. Current memberships of the target, as a set. Legacy data may
	// hold duplicates; the replace below self-heals them.
	existing, err := e.memberships.ListByUserAndOrg(ctx, targetUserID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list target memberships: %w", err)
	}

	// 6. Idempotent no-op: the target already holds exactly this role.
	// Must run before the demotion logic so re-assigning OWNER to a sole
	// owner does not trip the last-owner check.
	if len(existing) == 1 && existing[0].RoleID == newRoleID {
		return existing[0], nil
	}

	// 7. Demotion away from ownership: only an owner may do it, and never
	// to the last owner. The last-owner invariant binds the system actor
	// too; only the actor-hierarchy half is bypassed.
	for _, m := range existing {
		if m.RoleCode != rbac.RoleCodeOwner || newRole.IsOwner() {
			continue
		}
		if actorID != SystemActor {
			if actorMembership == nil || actorMembership.RoleCode != rbac.RoleCodeOwner {
				return nil, ErrDemotionRequiresOwner
			}
		}
		owners, err := e.memberships.CountByRoleAndOrg(ctx, m.RoleID, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to count owners: %w", err)
		}
		if owners <= 1 {
			return nil, ErrLastOwner
		}
		break
	}

	// 8-9. Destructive step: delete all rows for the pair and insert the
	// new membership in one transaction.
	grantedBy := actorID
	if grantedBy == SystemActor {
		grantedBy = audit.ActorSystem
	}
	membership := &Membership{
		ID:          id.NewUUIDv7(),
		UserID:      targetUserID,
		OrgID:       orgID,
		RoleID:      newRole.ID,
		RoleCode:    newRole.Code,
		Permissions: newRole.Permissions,
		GrantedAt:   time.Now(),
		GrantedBy:   grantedBy,
	}
	if err := e.memberships.Replace(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to replace membership: %w", err)
	}

	e.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		OrgID:    orgID,
		ActorID:  grantedBy,
		Resource: newRole.Code,
		Metadata: map[string]any{
			audit.AttrTargetID: targetUserID,
			audit.AttrRoleID:   newRole.ID,
		},
	})

	return membership, nil
}

// HasPermission reports whether the user, acting in the given organization,
// holds EVERY one of the required permission codes (AND semantics).
// An absent membership or empty user/org context is never implicitly
// granted. Each call reads the store fresh; permission sets can change
// between requests within the same session.
func (e *Engine) HasPermission(ctx context.Context, userID, orgID string, required []string) (bool, error) {
	if userID == "" || orgID == "" {
		return false, nil
	}

	m, err := e.memberships.GetByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve membership: %w", err)
	}

	granted := make(map[string]struct{}, len(m.Permissions))
	for _, p := range m.Permissions {
		granted[p] = struct{}{}
	}
	for _, code := range required {
		if _, ok := granted[code]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// MissingPermissions returns the subset of required codes the user does not
// hold in the organization. Used by the guard to name what blocked a
// request; an empty result means access is granted.
func (e *Engine) MissingPermissions(ctx context.Context, userID, orgID string, required []string) ([]string, error) {
	if userID == "" || orgID == "" {
		return append([]string(nil), required...), nil
	}

	m, err := e.memberships.GetByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return append([]string(nil), required...), nil
		}
		return nil, fmt.Errorf("failed to resolve membership: %w", err)
	}

	granted := make(map[string]struct{}, len(m.Permissions))
	for _, p := range m.Permissions {
		granted[p] = struct{}{}
	}
	var missing []string
	for _, code := range required {
		if _, ok := granted[code]; !ok {
			missing = append(missing, code)
		}
	}
	return missing, nil
}

// SuspendUser marks the target account suspended, recording who did it and
// when. Membership rows are not touched: suspension is user-level state.
//
// When orgID is supplied the target must be a member of that organization,
// and suspending an OWNER requires the actor to be an OWNER there too.
func (e *Engine) SuspendUser(ctx context.Context, targetUserID, actorID, orgID string) (*identity.User, error) {
	if targetUserID == actorID {
		return nil, ErrSelfSuspension
	}

	user, err := e.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load target user: %w", err)
	}

	if orgID != "" {
		if err := e.checkSuspendHierarchy(ctx, targetUserID, actorID, orgID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if err := e.users.UpdateSuspension(ctx, targetUserID, identity.StatusSuspended, &now, actorID); err != nil {
		return nil, fmt.Errorf("failed to suspend user: %w", err)
	}
	user.Status = identity.StatusSuspended
	user.SuspendedAt = &now
	user.SuspendedBy = actorID

	e.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserSuspended,
		OrgID:    orgID,
		ActorID:  actorID,
		Resource: "user",
		Metadata: map[string]any{audit.AttrTargetID: targetUserID},
	})

	return user, nil
}

// RestoreUser clears the suspension state of a user. The same
// self-protection and hierarchy rules apply as for SuspendUser.
func (e *Engine) RestoreUser(ctx context.Context, targetUserID, actorID, orgID string) (*identity.User, error) {
	if targetUserID == actorID {
		return nil, ErrSelfSuspension
	}

	user, err := e.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load target user: %w", err)
	}

	if orgID != "" {
		if err := e.checkSuspendHierarchy(ctx, targetUserID, actorID, orgID); err != nil {
			return nil, err
		}
	}

	if err := e.users.UpdateSuspension(ctx, targetUserID, identity.StatusActive, nil, ""); err != nil {
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}
	user.Status = identity.StatusActive
	user.SuspendedAt = nil
	user.SuspendedBy = ""

	e.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserRestored,
		OrgID:    orgID,
		ActorID:  actorID,
		Resource: "user",
		Metadata: map[string]any{audit.AttrTargetID: targetUserID},
	})

	return user, nil
}

// checkSuspendHierarchy enforces the org-scoped rules shared by suspend and
// restore: the target must be a member, and an OWNER target requires an
// OWNER actor.
func (e *Engine) checkSuspendHierarchy(ctx context.Context, targetUserID, actorID, orgID string) error {
	target, err := e.memberships.GetByUserAndOrg(ctx, targetUserID, orgID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrNotInOrganization
		}
		return fmt.Errorf("failed to resolve target membership: %w", err)
	}

	if target.RoleCode != rbac.RoleCodeOwner {
		return nil
	}

	actor, err := e.memberships.GetByUserAndOrg(ctx, actorID, orgID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return ErrInsufficientHierarchy
		}
		return fmt.Errorf("failed to resolve actor membership: %w", err)
	}
	if actor.RoleCode != rbac.RoleCodeOwner {
		return ErrInsufficientHierarchy
	}
	return nil
}

// HardDeleteUser permanently removes a user and all their memberships.
//
// Safety-critical guard: if the user holds OWNER in their default
// organization, deleting them must not leave that organization ownerless.
// The owner count is read fresh, never cached.
func (e *Engine) HardDeleteUser(ctx context.Context, userID string) error {
	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return identity.ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if user.DefaultOrgID != "" {
		m, err := e.memberships.GetByUserAndOrg(ctx, userID, user.DefaultOrgID)
		if err != nil && !errors.Is(err, ErrMembershipNotFound) {
			return fmt.Errorf("failed to resolve membership: %w", err)
		}
		if m != nil && m.RoleCode == rbac.RoleCodeOwner {
			owners, err := e.memberships.CountByRoleAndOrg(ctx, m.RoleID, user.DefaultOrgID)
			if err != nil {
				return fmt.Errorf("failed to count owners: %w", err)
			}
			if owners <= 1 {
				return ErrLastOwnerDeletion
			}
		}
	}

	if err := e.memberships.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}
	if err := e.users.HardDelete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	e.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserDeleted,
		ActorID:  audit.ActorSystem,
		Resource: "user",
		Metadata: map[string]any{audit.AttrTargetID: userID, audit.AttrEmail: user.Email},
	})

	return nil
}
