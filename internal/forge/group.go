// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Group is a namespace node in the hierarchy. Groups nest through
// ParentID and own an ordered collection of projects. A user's personal
// namespace is a group with UserNamespace set.
type Group struct {
	ID          ulid.ULID
	Name        string
	Description string
	// ParentID is the owning group, nil for a root group.
	ParentID      *ulid.ULID
	UserNamespace bool
	CreatedAt     time.Time

	projects []ulid.ULID
	grants   []Grant
	badges   []Badge
	hooks    []Hook
}

// NewGroup creates a new Group with a generated ID.
// The group is validated before being returned.
func NewGroup(name string, parentID *ulid.ULID) (*Group, error) {
	return NewGroupWithID(NewID(), name, parentID)
}

// NewGroupWithID creates a new Group with the provided ID.
// The group is validated before being returned.
func NewGroupWithID(id ulid.ULID, name string, parentID *ulid.ULID) (*Group, error) {
	g := &Group{
		ID:        id,
		Name:      name,
		ParentID:  parentID,
		CreatedAt: time.Now(),
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that the group has required fields.
func (g *Group) Validate() error {
	if g.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "cannot be zero"}
	}
	if g.ParentID != nil && g.ParentID.IsZero() {
		return &ValidationError{Field: "parent_id", Message: "cannot be zero"}
	}
	if err := ValidateName(g.Name); err != nil {
		return err
	}
	return ValidateDescription(g.Description)
}

// Path returns the group's slug, derived from its name.
func (g *Group) Path() string {
	return Slugify(g.Name)
}

// NodeID implements Node.
func (g *Group) NodeID() ulid.ULID {
	return g.ID
}

// ParentGroup implements Node. Returns false for a root group.
func (g *Group) ParentGroup() (ulid.ULID, bool) {
	if g.ParentID == nil {
		return ulid.ULID{}, false
	}
	return *g.ParentID, true
}

// Grants implements Node. The returned slice is a copy.
func (g *Group) Grants() []Grant {
	return slices.Clone(g.grants)
}

// AddGrant attaches a grant to the group.
func (g *Group) AddGrant(grant Grant) error {
	return addGrant(&g.grants, grant)
}

// RemoveGrant removes every grant for the given target.
func (g *Group) RemoveGrant(target GrantTarget) error {
	return removeGrant(&g.grants, target)
}

// Projects returns the IDs of the group's projects in insertion order.
// The returned slice is a copy.
func (g *Group) Projects() []ulid.ULID {
	return slices.Clone(g.projects)
}

// AddProject appends a project ID to the group's collection.
func (g *Group) AddProject(id ulid.ULID) {
	g.projects = append(g.projects, id)
}

// RemoveProject detaches a project ID from the group's collection.
// Returns false if the ID is not present.
func (g *Group) RemoveProject(id ulid.ULID) bool {
	for i, pid := range g.projects {
		if pid == id {
			g.projects = slices.Delete(g.projects, i, i+1)
			return true
		}
	}
	return false
}

// addGrant inserts a grant into a node's grant collection. A node may
// hold several grants for the same target; resolution keeps the
// maximum level, whatever order the grants were added in.
func addGrant(grants *[]Grant, grant Grant) error {
	if grant.Target.Kind != GrantTargetUser && grant.Target.Kind != GrantTargetGroup {
		return &ValidationError{Field: "target", Message: "must name a user or a group"}
	}
	if grant.Target.ID.IsZero() {
		return &ValidationError{Field: "target", Message: "cannot be zero"}
	}
	if grant.Target.Kind == GrantTargetUser && !grant.Level.Valid() {
		return &ValidationError{Field: "level", Message: "invalid access level"}
	}
	*grants = append(*grants, grant)
	return nil
}

// removeGrant deletes every grant for target from a node's collection,
// so removal always revokes the target completely.
func removeGrant(grants *[]Grant, target GrantTarget) error {
	removed := false
	*grants = slices.DeleteFunc(*grants, func(g Grant) bool {
		if g.Target == target {
			removed = true
			return true
		}
		return false
	})
	if !removed {
		return oops.Code("FORGE_GRANT_NOT_FOUND").
			With("target", target.String()).
			Errorf("no grant for %s", target)
	}
	return nil
}
