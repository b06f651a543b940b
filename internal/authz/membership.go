package authz

import (
	"context"
	"time"
)

// Membership binds one user to exactly one role within one organization.
// Business logic guarantees at most one membership per (user, org) pair;
// storage additionally enforces uniqueness at (user, org, role).
//
// Membership rows are deleted and recreated on role change, never updated
// in place, which keeps the single-role invariant enforceable with a plain
// delete-then-insert.
type Membership struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	RoleID string `json:"role_id"`

	// RoleCode and Permissions are joined in on read so the engine can
	// evaluate checks without a second round trip.
	RoleCode    string   `json:"role_code"`
	Permissions []string `json:"permissions,omitempty"`

	GrantedAt time.Time `json:"granted_at"`
	GrantedBy string    `json:"granted_by,omitempty"`
}

// MembershipRepository defines the interface for membership storage.
// Relationships are resolved by querying this store, never by traversing
// in-memory object graphs: rows reference users, orgs and roles by ID only.
type MembershipRepository interface {
	// GetByUserAndOrg resolves the user's current membership in an
	// organization, joined with its role code and permission set.
	// Returns ErrMembershipNotFound if none exists.
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*Membership, error)

	// ListByUserAndOrg returns all membership rows for the pair. There
	// should be 0 or 1, but legacy data may hold duplicates; callers
	// treat the result as a set.
	ListByUserAndOrg(ctx context.Context, userID, orgID string) ([]*Membership, error)

	// ListByOrg returns all memberships in an organization.
	ListByOrg(ctx context.Context, orgID string) ([]*Membership, error)

	// CountByOrg returns the total number of memberships in an
	// organization. Exposed for seat-limit enforcement by the
	// subscription collaborator.
	CountByOrg(ctx context.Context, orgID string) (int, error)

	// CountByRoleAndOrg returns how many users hold the given role in an
	// organization. Used for last-owner detection; implementations must
	// read fresh, never from a cache.
	CountByRoleAndOrg(ctx context.Context, roleID, orgID string) (int, error)

	// CountByRole returns how many memberships reference the role across
	// all organizations. Used by the role-in-use deletion check.
	CountByRole(ctx context.Context, roleID string) (int, error)

	// Replace deletes every membership row for (m.UserID, m.OrgID) and
	// inserts m, all inside a single transaction. The delete cleans up
	// any legacy multi-role state.
	Replace(ctx context.Context, m *Membership) error

	// DeleteByUserAndOrg removes all membership rows for the pair.
	DeleteByUserAndOrg(ctx context.Context, userID, orgID string) error

	// DeleteByUser removes all membership rows for a user across every
	// organization. Used by the hard-delete path.
	DeleteByUser(ctx context.Context, userID string) error
}
