package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestResolver_EffectiveRole(t *testing.T) {
	r := NewResolver(nil, nil)

	tests := []struct {
		name  string
		actor *Actor
		want  Role
	}{
		{"anonymous", nil, RoleGuest},
		{"missing role", &Actor{ID: 1}, RoleUser},
		{"whitespace role", &Actor{ID: 1, Role: "  "}, Role("  ")},
		{"canonical role", &Actor{ID: 1, Role: "contributor"}, RoleContributor},
		{"case variant", &Actor{ID: 1, Role: "Admin"}, Role("Admin")},
		{"legacy admin flag", &Actor{ID: 1, LegacyIsAdmin: boolPtr(true)}, RoleSuperAdmin},
		{"legacy flag false", &Actor{ID: 1, LegacyIsAdmin: boolPtr(false)}, RoleUser},
		{"canonical wins over flag", &Actor{ID: 1, Role: "user", LegacyIsAdmin: boolPtr(true)}, RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.EffectiveRole(tt.actor))
		})
	}
}

func TestResolver_MalformedRoleIsFailClosed(t *testing.T) {
	r := NewResolver(nil, nil)
	a := &Actor{ID: 9, Role: "moderator"}

	role, err := r.Resolve(a)
	require.ErrorIs(t, err, ErrMalformedRole)
	assert.Equal(t, Role("moderator"), role)
	assert.Empty(t, r.PermissionsFor(a))
	assert.False(t, r.IsContributorOrAbove(a))
}

func TestResolver_Predicates(t *testing.T) {
	r := NewResolver(nil, nil)

	tests := []struct {
		role                      string
		super, admin, contributor bool
	}{
		{"superadmin", true, true, true},
		{"admin", false, true, true},
		{"contributor", false, false, true},
		{"user", false, false, false},
		{"guest", false, false, false},
		{"bogus", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			a := &Actor{ID: 1, Role: tt.role}
			assert.Equal(t, tt.super, r.IsSuperAdmin(a))
			assert.Equal(t, tt.admin, r.IsAdminOrAbove(a))
			assert.Equal(t, tt.contributor, r.IsContributorOrAbove(a))
		})
	}
	assert.False(t, r.IsSuperAdmin(nil))
}

func TestResolver_Capabilities(t *testing.T) {
	r := NewResolver(nil, nil)

	caps := r.Capabilities(&Actor{ID: 3, Role: "admin"})
	assert.True(t, caps.Authenticated)
	assert.True(t, caps.IsAdminOrAbove)
	assert.False(t, caps.IsSuperAdmin)
	assert.Contains(t, caps.Permissions, PermModerateContent)

	guest := r.Capabilities(nil)
	assert.False(t, guest.Authenticated)
	assert.Equal(t, RoleGuest, guest.Role)
	assert.Empty(t, guest.Permissions)
}

func TestResolver_CaseAndSpacingVariantsAreMalformed(t *testing.T) {
	r := NewResolver(nil, nil)
	for _, role := range []string{"ADMIN", " Admin ", "SuperAdmin", "user "} {
		t.Run(role, func(t *testing.T) {
			a := &Actor{ID: 3, Role: role}
			_, err := r.Resolve(a)
			assert.ErrorIs(t, err, ErrMalformedRole)
			assert.Empty(t, r.PermissionsFor(a))
			assert.False(t, r.IsAdminOrAbove(a))
		})
	}
}

func TestParseRole_NormalizesAdminInput(t *testing.T) {
	role, ok := ParseRole(" Admin ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)
}

func TestReconcileRole(t *testing.T) {
	assert.Equal(t, "admin", ReconcileRole("admin", boolPtr(true)))
	assert.Equal(t, "superadmin", ReconcileRole("", boolPtr(true)))
	assert.Equal(t, "user", ReconcileRole("", nil))
}
