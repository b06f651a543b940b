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
	"errors"
	"fmt"
)

// Domain errors. All of these are expected, caller-recoverable rejections
// and map to 4xx responses at the HTTP boundary. Storage failures are
// wrapped separately and propagate as internal errors.
var (
	ErrPermissionNotFound  = errors.New("permission not found")
	ErrDuplicatePermission = errors.New("permission code already exists")
	ErrRoleNotFound        = errors.New("role not found")
	ErrDuplicateRole       = errors.New("role code already exists")
	ErrMembershipNotFound  = errors.New("membership not found")

	// ErrSelfModification rejects a user changing their own role.
	ErrSelfModification = errors.New("cannot modify your own role")

	// ErrSelfSuspension rejects a user suspending or restoring themselves.
	ErrSelfSuspension = errors.New("cannot suspend your own account")

	// ErrInsufficientHierarchy is the umbrella for owner-gated mutations
	// attempted by a non-owner actor. Both promotion and demotion errors
	// match it via errors.Is.
	ErrInsufficientHierarchy = errors.New("operation requires the owner role")

	ErrPromotionRequiresOwner = fmt.Errorf("%w: only an owner may grant the owner role", ErrInsufficientHierarchy)
	ErrDemotionRequiresOwner  = fmt.Errorf("%w: only an owner may demote an owner", ErrInsufficientHierarchy)

	// ErrLastOwner rejects a role change that would leave an organization
	// with zero owners.
	ErrLastOwner = errors.New("cannot demote the last owner of an organization")

	// ErrLastOwnerDeletion rejects a hard delete that would leave the
	// user's organization with zero owners.
	ErrLastOwnerDeletion = errors.New("cannot delete the last owner of an organization")

	// ErrNotInOrganization rejects an operation whose target holds no
	// membership in the stated organization.
	ErrNotInOrganization = errors.New("user has no membership in this organization")

	// ErrProtectedRole rejects deletion of the reserved OWNER, ADMIN and
	// MEMBER roles.
	ErrProtectedRole = errors.New("system role cannot be deleted")

	// ErrRoleInUse rejects deletion of a role that still has memberships.
	ErrRoleInUse = errors.New("role is assigned to one or more users")
)
