package rbac

import (
	"go.uber.org/zap"
)

// Observer receives every authorization outcome. Implementations must not block.
type Observer interface {
	ObserveAuthorization(check string, allowed bool)
}

type GuardOption func(*Guard)

func WithObserver(o Observer) GuardOption {
	return func(g *Guard) { g.observer = o }
}

// Guard rejects actions before they reach persistence. It never mutates state.
type Guard struct {
	resolver *Resolver
	log      *zap.Logger
	observer Observer
}

func NewGuard(resolver *Resolver, log *zap.Logger, opts ...GuardOption) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Guard{resolver: resolver, log: log}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Resolver() *Resolver {
	return g.resolver
}

// Authorize returns nil when the actor's role holds p.
func (g *Guard) Authorize(a *Actor, p Permission) error {
	if a == nil {
		return g.outcome(string(p), unauthenticated(p), nil)
	}
	role := g.resolver.EffectiveRole(a)
	if !g.resolver.table.Allows(role, p) {
		return g.outcome(string(p), denied(p, role), a)
	}
	return g.outcome(string(p), nil, a)
}

// AuthorizeOwned allows ownPerm when the actor owns the resource, anyPerm otherwise.
func (g *Guard) AuthorizeOwned(a *Actor, ownerID uint, ownPerm, anyPerm Permission) error {
	if a != nil && a.ID == ownerID {
		if err := g.Authorize(a, ownPerm); err == nil {
			return nil
		}
	}
	return g.Authorize(a, anyPerm)
}

func (g *Guard) RequireSuperAdmin(a *Actor) error {
	return g.requireRoles(a, "require:superadmin", superAdminRoles)
}

func (g *Guard) RequireAdmin(a *Actor) error {
	return g.requireRoles(a, "require:admin", adminRoles)
}

func (g *Guard) RequireContributor(a *Actor) error {
	return g.requireRoles(a, "require:contributor", contributorRoles)
}

func (g *Guard) HasRole(a *Actor, allowed ...Role) error {
	return g.requireRoles(a, "require:role", newRoleSet(allowed...))
}

func (g *Guard) requireRoles(a *Actor, check string, allowed roleSet) error {
	if a == nil {
		return g.outcome(check, unauthenticated(""), nil)
	}
	role := g.resolver.EffectiveRole(a)
	if !allowed.has(role) {
		return g.outcome(check, denied("", role), a)
	}
	return g.outcome(check, nil, a)
}

func (g *Guard) outcome(check string, err error, a *Actor) error {
	if g.observer != nil {
		g.observer.ObserveAuthorization(check, err == nil)
	}
	if err != nil {
		fields := []zap.Field{zap.String("check", check), zap.Error(err)}
		if a != nil {
			fields = append(fields, zap.Uint("actor_id", a.ID))
		}
		g.log.Info("authorization denied", fields...)
	}
	return err
}
