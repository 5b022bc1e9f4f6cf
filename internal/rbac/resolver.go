package rbac

import (
	"go.uber.org/zap"
)

// Actor is the verified identity behind a request. A nil *Actor is an anonymous guest.
type Actor struct {
	ID              uint
	Role            string
	ContributorType string
	Verified        bool
	TrustScore      int

	// LegacyIsAdmin mirrors the deprecated users.is_admin column.
	LegacyIsAdmin *bool
}

// Membership sets behind the predicates. Inserting a role means editing these, not call sites.
var (
	superAdminRoles  = newRoleSet(RoleSuperAdmin)
	adminRoles       = newRoleSet(RoleSuperAdmin, RoleAdmin)
	contributorRoles = newRoleSet(RoleSuperAdmin, RoleAdmin, RoleContributor)
)

// Resolver derives the effective role of an actor and the predicates built on it.
type Resolver struct {
	table *Table
	log   *zap.Logger
}

func NewResolver(table *Table, log *zap.Logger) *Resolver {
	if table == nil {
		table = DefaultTable()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{table: table, log: log}
}

func (r *Resolver) Table() *Table {
	return r.table
}

// ReconcileRole maps a stored role and the legacy is_admin flag onto the canonical role
// string. The canonical field always wins when present.
func ReconcileRole(role string, legacyIsAdmin *bool) string {
	if role != "" {
		return role
	}
	// TODO: is_admin maps to superadmin, not admin; confirm with product before changing.
	if legacyIsAdmin != nil && *legacyIsAdmin {
		return string(RoleSuperAdmin)
	}
	return string(RoleUser)
}

// Resolve returns the effective role. A stored role must match a defined role exactly;
// anything else, including case or spacing variants, yields that string as the role
// (which holds no permissions) together with ErrMalformedRole.
func (r *Resolver) Resolve(a *Actor) (Role, error) {
	if a == nil {
		return RoleGuest, nil
	}
	role, ok := lookupRole(ReconcileRole(a.Role, a.LegacyIsAdmin))
	if !ok || !r.table.Defines(role) {
		return role, ErrMalformedRole
	}
	return role, nil
}

// EffectiveRole is Resolve with malformed roles logged and kept fail-closed.
func (r *Resolver) EffectiveRole(a *Actor) Role {
	role, err := r.Resolve(a)
	if err != nil {
		r.log.Warn("actor has malformed role",
			zap.Uint("actor_id", a.ID),
			zap.String("role", a.Role),
			zap.Error(err),
		)
	}
	return role
}

func (r *Resolver) IsSuperAdmin(a *Actor) bool {
	return superAdminRoles.has(r.EffectiveRole(a))
}

func (r *Resolver) IsAdminOrAbove(a *Actor) bool {
	return adminRoles.has(r.EffectiveRole(a))
}

func (r *Resolver) IsContributorOrAbove(a *Actor) bool {
	return contributorRoles.has(r.EffectiveRole(a))
}

// HasRole reports whether the actor's effective role is one of allowed.
func (r *Resolver) HasRole(a *Actor, allowed ...Role) bool {
	return newRoleSet(allowed...).has(r.EffectiveRole(a))
}

// PermissionsFor returns the actor's permission set.
func (r *Resolver) PermissionsFor(a *Actor) PermissionSet {
	return r.table.PermissionsFor(r.EffectiveRole(a))
}

// Capabilities is the UI-facing summary of what an actor may do.
type Capabilities struct {
	Role                 Role         `json:"role"`
	Authenticated        bool         `json:"authenticated"`
	IsSuperAdmin         bool         `json:"is_super_admin"`
	IsAdminOrAbove       bool         `json:"is_admin_or_above"`
	IsContributorOrAbove bool         `json:"is_contributor_or_above"`
	Permissions          []Permission `json:"permissions"`
}

func (r *Resolver) Capabilities(a *Actor) Capabilities {
	role := r.EffectiveRole(a)
	return Capabilities{
		Role:                 role,
		Authenticated:        a != nil,
		IsSuperAdmin:         superAdminRoles.has(role),
		IsAdminOrAbove:       adminRoles.has(role),
		IsContributorOrAbove: contributorRoles.has(role),
		Permissions:          r.table.PermissionsFor(role).Slice(),
	}
}
