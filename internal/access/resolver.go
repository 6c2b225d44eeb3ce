// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package access computes effective permissions over the forge
// hierarchy and exposes the boolean gate predicates built on them.
package access

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/forgesim/forgesim/internal/forge"
)

// GroupDirectory looks up groups by ID during resolution.
// This mirrors the lookup surface of forge.Store so the resolver can be
// exercised against a bare map in tests.
type GroupDirectory interface {
	Group(id ulid.ULID) (*forge.Group, bool)
}

// EffectivePermissions is a transient snapshot mapping each user to the
// maximum access level derivable for them on one node. Snapshots are
// produced fresh on every Resolve call and never cached; treat them as
// immutable and discard after use.
type EffectivePermissions struct {
	levels map[ulid.ULID]forge.AccessLevel
}

// GetAccessLevel returns the user's resolved level, or false when the
// user holds no level on the node.
func (e EffectivePermissions) GetAccessLevel(userID ulid.ULID) (forge.AccessLevel, bool) {
	level, ok := e.levels[userID]
	return level, ok
}

// Users returns the IDs of all users holding a level, ordered by ID.
func (e EffectivePermissions) Users() []ulid.ULID {
	out := make([]ulid.ULID, 0, len(e.levels))
	for id := range e.levels {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b ulid.ULID) int { return a.Compare(b) })
	return out
}

// Len returns the number of users holding a level.
func (e EffectivePermissions) Len() int {
	return len(e.levels)
}

// merge inserts (user, level), keeping the maximum when the user is
// already present.
func (e EffectivePermissions) merge(userID ulid.ULID, level forge.AccessLevel) {
	if existing, ok := e.levels[userID]; ok && existing >= level {
		return
	}
	e.levels[userID] = level
}

// Resolver computes effective permissions by walking a node's ancestor
// group chain and the groups referenced by its grants.
type Resolver struct {
	groups GroupDirectory
}

// NewResolver creates a resolver over the given group directory.
func NewResolver(groups GroupDirectory) *Resolver {
	return &Resolver{groups: groups}
}

// Resolve computes the effective permissions for a node: the parent
// group's resolved pairs seed the result, then each local grant merges
// either its (user, level) directly or, for a group target, every pair
// of the target group's own resolution, unchanged. Merging keeps the
// maximum level per user. Nothing is memoized; every call walks the
// graph fresh.
//
// The grant and parent graph must be acyclic; a cycle is reported as an
// ACCESS_HIERARCHY_CYCLE error rather than walked forever. A grant or
// parent link naming a missing group fails with ACCESS_GROUP_NOT_FOUND.
func (r *Resolver) Resolve(node forge.Node) (EffectivePermissions, error) {
	start := time.Now()
	perms := EffectivePermissions{levels: make(map[ulid.ULID]forge.AccessLevel)}
	path := map[ulid.ULID]bool{node.NodeID(): true}
	err := r.resolveInto(node, perms, path)
	recordResolve(time.Since(start), err)
	if err != nil {
		return EffectivePermissions{}, err
	}
	return perms, nil
}

// resolveInto accumulates node's resolution into perms. path holds the
// IDs currently on the recursion stack; re-entering one is a cycle.
func (r *Resolver) resolveInto(node forge.Node, perms EffectivePermissions, path map[ulid.ULID]bool) error {
	if parentID, ok := node.ParentGroup(); ok {
		if err := r.resolveGroupInto(parentID, perms, path); err != nil {
			return err
		}
	}
	for _, grant := range node.Grants() {
		switch grant.Target.Kind {
		case forge.GrantTargetUser:
			perms.merge(grant.Target.ID, grant.Level)
		case forge.GrantTargetGroup:
			if err := r.resolveGroupInto(grant.Target.ID, perms, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) resolveGroupInto(id ulid.ULID, perms EffectivePermissions, path map[ulid.ULID]bool) error {
	if path[id] {
		return oops.Code("ACCESS_HIERARCHY_CYCLE").
			With("group_id", id.String()).
			Errorf("hierarchy cycle through group %s", id)
	}
	group, ok := r.groups.Group(id)
	if !ok {
		return oops.Code("ACCESS_GROUP_NOT_FOUND").
			With("group_id", id.String()).
			Errorf("group %s not found", id)
	}
	path[id] = true
	defer delete(path, id)
	return r.resolveInto(group, perms, path)
}
