package rbac

import "strings"

// Role names a bundle of permissions.
type Role string

const (
	RoleSuperAdmin  Role = "superadmin"
	RoleAdmin       Role = "admin"
	RoleContributor Role = "contributor"
	RoleUser        Role = "user"
	RoleGuest       Role = "guest"
)

// definedRoles is ordered from most to least privileged.
var definedRoles = [...]Role{RoleSuperAdmin, RoleAdmin, RoleContributor, RoleUser, RoleGuest}

// Roles returns every defined role, most privileged first.
func Roles() []Role {
	out := make([]Role, len(definedRoles))
	copy(out, definedRoles[:])
	return out
}

// ParseRole normalizes admin input and reports whether it names a defined role.
// Stored roles are never normalized; see lookupRole.
func ParseRole(s string) (Role, bool) {
	return lookupRole(strings.ToLower(strings.TrimSpace(s)))
}

// lookupRole matches s exactly against the defined roles.
func lookupRole(s string) (Role, bool) {
	r := Role(s)
	for _, d := range definedRoles {
		if r == d {
			return r, true
		}
	}
	return r, false
}

// ContributorType is the specialization recorded for contributors.
type ContributorType string

const (
	ContributorSurgeon    ContributorType = "surgeon"
	ContributorPatient    ContributorType = "patient"
	ContributorInfluencer ContributorType = "influencer"
	ContributorBlogger    ContributorType = "blogger"
)

var contributorTypes = [...]ContributorType{ContributorSurgeon, ContributorPatient, ContributorInfluencer, ContributorBlogger}

func ParseContributorType(s string) (ContributorType, bool) {
	t := ContributorType(strings.ToLower(strings.TrimSpace(s)))
	for _, d := range contributorTypes {
		if t == d {
			return t, true
		}
	}
	return t, false
}

type roleSet map[Role]struct{}

func newRoleSet(roles ...Role) roleSet {
	s := make(roleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

func (s roleSet) has(r Role) bool {
	_, ok := s[r]
	return ok
}
