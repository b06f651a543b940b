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

package rbac

// System-defined Role IDs from initial schema migration (001_initial_schema.up.sql).
// These UUIDs are seeded during database initialization and must remain stable.
// DO NOT modify these values without a corresponding migration and data migration plan.
const (
	// RoleIDOwner is the reserved OWNER role.
	// OWNER holds every catalog permission within its organization and is the
	// only role allowed to create or demote other owners.
	RoleIDOwner = "20000000-0000-0000-0000-000000000001"

	// RoleIDAdmin is the reserved ADMIN role.
	RoleIDAdmin = "20000000-0000-0000-0000-000000000002"

	// RoleIDMember is the reserved MEMBER role assigned on user onboarding.
	RoleIDMember = "20000000-0000-0000-0000-000000000003"
)

// Reserved role codes. Roles with these codes are seeded at bootstrap and
// can never be deleted.
const (
	RoleCodeOwner  = "OWNER"
	RoleCodeAdmin  = "ADMIN"
	RoleCodeMember = "MEMBER"
)

// IsReservedRole reports whether code is one of the protected system roles.
func IsReservedRole(code string) bool {
	return code == RoleCodeOwner || code == RoleCodeAdmin || code == RoleCodeMember
}
