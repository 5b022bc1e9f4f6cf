package rbac

import (
	"sort"
)

// Permission is an atomic named capability.
type Permission string

const (
	PermReadContent          Permission = "read:content"
	PermCreatePost           Permission = "create:post"
	PermEditOwnPost          Permission = "edit:own_post"
	PermDeleteOwnPost        Permission = "delete:own_post"
	PermCreateComment        Permission = "create:comment"
	PermEditOwnComment       Permission = "edit:own_comment"
	PermDeleteOwnComment     Permission = "delete:own_comment"
	PermVote                 Permission = "vote"
	PermBookmarkPost         Permission = "bookmark:post"
	PermApplyContributor     Permission = "apply:contributor"
	PermViewUserDashboard    Permission = "view:user_dashboard"
	PermPublishExpertContent Permission = "publish:expert_content"
	PermViewContributorBoard Permission = "view:contributor_dashboard"
	PermModerateContent      Permission = "moderate:content"
	PermEditAnyPost          Permission = "edit:any_post"
	PermDeleteAnyPost        Permission = "delete:any_post"
	PermEditAnyComment       Permission = "edit:any_comment"
	PermDeleteAnyComment     Permission = "delete:any_comment"
	PermApproveContributor   Permission = "approve:contributor"
	PermManageUsers          Permission = "manage:users"
	PermGenerateAIPost       Permission = "generate:ai_post"
	PermViewAdminDashboard   Permission = "view:admin_dashboard"
	PermManageRoles          Permission = "manage:roles"
	PermManageAISettings     Permission = "manage:ai_settings"
	PermViewSuperAdminBoard  Permission = "view:superadmin_dashboard"
)

// Each role lists its full set. Nothing is inherited: widening admin does not widen
// superadmin unless the permission is also listed there.
var rolePermissions = map[Role][]Permission{
	RoleUser: {
		PermReadContent,
		PermCreatePost,
		PermEditOwnPost,
		PermDeleteOwnPost,
		PermCreateComment,
		PermEditOwnComment,
		PermDeleteOwnComment,
		PermVote,
		PermBookmarkPost,
		PermApplyContributor,
		PermViewUserDashboard,
	},
	RoleContributor: {
		PermReadContent,
		PermCreatePost,
		PermEditOwnPost,
		PermDeleteOwnPost,
		PermCreateComment,
		PermEditOwnComment,
		PermDeleteOwnComment,
		PermVote,
		PermBookmarkPost,
		PermApplyContributor,
		PermViewUserDashboard,
		PermPublishExpertContent,
		PermViewContributorBoard,
	},
	RoleAdmin: {
		PermReadContent,
		PermCreatePost,
		PermEditOwnPost,
		PermDeleteOwnPost,
		PermCreateComment,
		PermEditOwnComment,
		PermDeleteOwnComment,
		PermVote,
		PermBookmarkPost,
		PermApplyContributor,
		PermViewUserDashboard,
		PermPublishExpertContent,
		PermViewContributorBoard,
		PermModerateContent,
		PermEditAnyPost,
		PermDeleteAnyPost,
		PermEditAnyComment,
		PermDeleteAnyComment,
		PermApproveContributor,
		PermManageUsers,
		PermGenerateAIPost,
		PermViewAdminDashboard,
	},
	RoleSuperAdmin: {
		PermReadContent,
		PermCreatePost,
		PermEditOwnPost,
		PermDeleteOwnPost,
		PermCreateComment,
		PermEditOwnComment,
		PermDeleteOwnComment,
		PermVote,
		PermBookmarkPost,
		PermApplyContributor,
		PermViewUserDashboard,
		PermPublishExpertContent,
		PermViewContributorBoard,
		PermModerateContent,
		PermEditAnyPost,
		PermDeleteAnyPost,
		PermEditAnyComment,
		PermDeleteAnyComment,
		PermApproveContributor,
		PermManageUsers,
		PermGenerateAIPost,
		PermViewAdminDashboard,
		PermManageRoles,
		PermManageAISettings,
		PermViewSuperAdminBoard,
	},
	RoleGuest: {},
}

// PermissionSet is a read-only view; callers get their own copy from a Table.
type PermissionSet map[Permission]struct{}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Slice returns the permissions sorted by name.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Table is the immutable role → permission mapping.
type Table struct {
	sets map[Role]PermissionSet
}

// NewTable copies the given mapping. Roles missing from it resolve to the empty set.
func NewTable(mapping map[Role][]Permission) *Table {
	t := &Table{sets: make(map[Role]PermissionSet, len(mapping))}
	for role, perms := range mapping {
		set := make(PermissionSet, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		t.sets[role] = set
	}
	return t
}

var defaultTable = NewTable(rolePermissions)

// DefaultTable returns the platform's permission table.
func DefaultTable() *Table {
	return defaultTable
}

// PermissionsFor never fails: unknown roles get an empty set.
func (t *Table) PermissionsFor(role Role) PermissionSet {
	src := t.sets[role]
	out := make(PermissionSet, len(src))
	for p := range src {
		out[p] = struct{}{}
	}
	return out
}

func (t *Table) Allows(role Role, p Permission) bool {
	return t.sets[role].Has(p)
}

// Defines reports whether role has an entry in the table.
func (t *Table) Defines(role Role) bool {
	_, ok := t.sets[role]
	return ok
}

// PermissionsFor looks role up in the default table.
func PermissionsFor(role string) PermissionSet {
	return defaultTable.PermissionsFor(Role(role))
}
