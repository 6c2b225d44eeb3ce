// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package access

import (
	"github.com/forgesim/forgesim/internal/forge"
)

// Gate evaluates the boolean access predicates. Every predicate
// re-invokes the resolver; nothing is cached between calls. A nil user
// means "unauthenticated" and is handled uniformly: no admin flag is
// ever read through a nil user.
type Gate struct {
	resolver *Resolver
}

// Compile-time check that Gate implements forge.Gatekeeper.
var _ forge.Gatekeeper = (*Gate)(nil)

// NewGate creates a gate over the resolver.
func NewGate(resolver *Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// CanView reports whether the user may view the project.
// Public projects are viewable by anyone. Internal projects are
// viewable by any authenticated user. Otherwise the user must be an
// admin or hold any resolved level.
func (g *Gate) CanView(user *forge.User, project *forge.Project) (bool, error) {
	if project.Visibility == forge.VisibilityPublic {
		return g.decide("can_view", true, nil)
	}
	if user == nil {
		return g.decide("can_view", false, nil)
	}
	if project.Visibility == forge.VisibilityInternal {
		return g.decide("can_view", true, nil)
	}
	if user.Admin {
		return g.decide("can_view", true, nil)
	}
	_, member, err := g.EffectiveLevel(user, project)
	return g.decide("can_view", member, err)
}

// CanEdit reports whether the user may edit the project: admin, or a
// resolved level of at least Maintainer.
func (g *Gate) CanEdit(user *forge.User, project *forge.Project) (bool, error) {
	ok, err := g.MeetsLevel(user, project, forge.AccessLevelMaintainer)
	return g.decide("can_edit", ok, err)
}

// CanContribute reports whether the user may contribute to the project:
// admin, or a resolved level of at least Developer.
func (g *Gate) CanContribute(user *forge.User, project *forge.Project) (bool, error) {
	ok, err := g.MeetsLevel(user, project, forge.AccessLevelDeveloper)
	return g.decide("can_contribute", ok, err)
}

// CanDelete reports whether the user may delete the project: admin, or
// a resolved level of exactly Owner. A nil user is neither.
func (g *Gate) CanDelete(user *forge.User, project *forge.Project) (bool, error) {
	if user == nil {
		return g.decide("can_delete", false, nil)
	}
	if user.Admin {
		return g.decide("can_delete", true, nil)
	}
	level, ok, err := g.EffectiveLevel(user, project)
	if err != nil {
		return g.decide("can_delete", false, err)
	}
	return g.decide("can_delete", ok && level == forge.AccessLevelOwner, nil)
}

// IsOwner reports whether the user's resolved level is exactly Owner.
// Carries no admin bypass.
func (g *Gate) IsOwner(user *forge.User, project *forge.Project) (bool, error) {
	if user == nil {
		return g.decide("is_owner", false, nil)
	}
	level, ok, err := g.EffectiveLevel(user, project)
	if err != nil {
		return g.decide("is_owner", false, err)
	}
	return g.decide("is_owner", ok && level == forge.AccessLevelOwner, nil)
}

// IsMember reports whether the user holds any resolved level on the
// project. Carries no admin bypass.
func (g *Gate) IsMember(user *forge.User, project *forge.Project) (bool, error) {
	if user == nil {
		return g.decide("is_member", false, nil)
	}
	_, ok, err := g.EffectiveLevel(user, project)
	return g.decide("is_member", ok, err)
}

// MeetsLevel reports whether the user's resolved level on the node
// meets min. Admins pass regardless of grants; a nil user never does.
func (g *Gate) MeetsLevel(user *forge.User, node forge.Node, min forge.AccessLevel) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.Admin {
		return true, nil
	}
	level, ok, err := g.EffectiveLevel(user, node)
	if err != nil {
		return false, err
	}
	return ok && level.AtLeast(min), nil
}

// EffectiveLevel returns the user's resolved level on the node,
// without admin bypass. False when the user holds no level.
func (g *Gate) EffectiveLevel(user *forge.User, node forge.Node) (forge.AccessLevel, bool, error) {
	if user == nil {
		return 0, false, nil
	}
	perms, err := g.resolver.Resolve(node)
	if err != nil {
		return 0, false, err
	}
	level, ok := perms.GetAccessLevel(user.ID)
	return level, ok, nil
}

// decide records the decision metric and passes the result through.
func (g *Gate) decide(predicate string, allowed bool, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	recordDecision(predicate, allowed)
	return allowed, nil
}
