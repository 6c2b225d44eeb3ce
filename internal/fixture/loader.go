// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package fixture

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/forgesim/forgesim/internal/forge"
	"github.com/forgesim/forgesim/internal/identity"
)

// World is a fixture document realized into live state.
type World struct {
	Store    *forge.Store
	Registry *identity.Registry
}

// grantNode is any hierarchy node grants can be attached to.
type grantNode interface {
	AddGrant(forge.Grant) error
}

// Load parses, validates, and realizes a fixture document in one step.
// The factory provides repositories for declared projects; it may be
// nil, in which case projects have no repository.
func Load(data []byte, factory forge.RepositoryFactory) (*World, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.Build(factory)
}

// Build realizes the document into a fresh store and registry,
// processing users, then groups, then projects in declaration order.
// The document is validated first; the first error aborts the build
// and the partially built world is discarded.
func (d *Document) Build(factory forge.RepositoryFactory) (*World, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	store := forge.NewStore(factory)
	registry := identity.NewRegistry(store, identity.NewArgon2idHasher())
	users := make(map[string]*forge.User, len(d.Users))

	for _, u := range d.Users {
		name := u.Name
		if name == "" {
			name = u.Username
		}
		var (
			created *forge.User
			err     error
		)
		if u.Password != "" {
			created, err = registry.Register(u.Username, name, u.Password, u.Admin)
		} else {
			created, err = store.AddUser(u.Username, name, u.Admin)
		}
		if err != nil {
			return nil, oops.With("username", u.Username).
				Wrapf(err, "fixture user %q", u.Username)
		}
		users[u.Username] = created
	}

	for _, g := range d.Groups {
		var parentID *ulid.ULID
		if g.Parent != "" {
			parent, ok := store.GroupByFullPath(g.Parent)
			if !ok {
				return nil, oops.Code("FIXTURE_UNKNOWN_GROUP").
					With("path", g.Parent).
					Errorf("group %q references undeclared parent %q", g.Name, g.Parent)
			}
			parentID = &parent.ID
		}
		group, err := store.CreateGroup(g.Name, parentID)
		if err != nil {
			return nil, oops.With("group", g.Name).
				Wrapf(err, "fixture group %q", g.Name)
		}
		if err := applyGrants(store, users, group, g.Name, g.Grants); err != nil {
			return nil, err
		}
	}

	for _, p := range d.Projects {
		group, ok := store.GroupByFullPath(p.Group)
		if !ok {
			return nil, oops.Code("FIXTURE_UNKNOWN_GROUP").
				With("path", p.Group).
				Errorf("project %q references unknown group %q", p.Name, p.Group)
		}
		visibility := forge.VisibilityPrivate
		if p.Visibility != "" {
			v, err := forge.ParseVisibility(p.Visibility)
			if err != nil {
				return nil, oops.With("project", p.Name).
					Wrapf(err, "fixture project %q", p.Name)
			}
			visibility = v
		}
		project, err := store.CreateProject(group.ID, p.Name, visibility)
		if err != nil {
			return nil, oops.With("project", p.Name).
				Wrapf(err, "fixture project %q", p.Name)
		}
		if p.Description != "" {
			if err := forge.ValidateDescription(p.Description); err != nil {
				return nil, oops.With("project", p.Name).
					Wrapf(err, "fixture project %q", p.Name)
			}
			project.Description = p.Description
		}
		if err := applyGrants(store, users, project, p.Name, p.Grants); err != nil {
			return nil, err
		}
		for _, pb := range p.ProtectedBranches {
			level, err := forge.ParseAccessLevel(pb.Level)
			if err != nil {
				return nil, oops.With("project", p.Name).
					With("pattern", pb.Pattern).
					Wrapf(err, "protected branch on %q", p.Name)
			}
			if _, err := project.ProtectBranch(pb.Pattern, level); err != nil {
				return nil, oops.With("project", p.Name).
					With("pattern", pb.Pattern).
					Wrapf(err, "protected branch on %q", p.Name)
			}
		}
	}

	return &World{Store: store, Registry: registry}, nil
}

// applyGrants attaches the declared grants to a node. Users resolve
// against the document's user list, groups against everything created
// so far (fixture groups and personal namespaces alike).
func applyGrants(store *forge.Store, users map[string]*forge.User, node grantNode, where string, grants []GrantDoc) error {
	for _, g := range grants {
		if err := g.validate(); err != nil {
			return oops.With("node", where).
				Wrapf(err, "grants of %q", where)
		}
		var grant forge.Grant
		switch {
		case g.User != "":
			u, ok := users[g.User]
			if !ok {
				return oops.Code("FIXTURE_UNKNOWN_USER").
					With("username", g.User).
					With("node", where).
					Errorf("grant on %q references undeclared user %q", where, g.User)
			}
			level, err := forge.ParseAccessLevel(g.Level)
			if err != nil {
				return oops.With("node", where).
					Wrapf(err, "grants of %q", where)
			}
			grant, err = forge.NewUserGrant(u.ID, level)
			if err != nil {
				return oops.With("node", where).
					Wrapf(err, "grants of %q", where)
			}
		case g.Group != "":
			shared, ok := store.GroupByFullPath(g.Group)
			if !ok {
				return oops.Code("FIXTURE_UNKNOWN_GROUP").
					With("path", g.Group).
					With("node", where).
					Errorf("grant on %q references unknown group %q", where, g.Group)
			}
			grant = forge.NewGroupGrant(shared.ID)
		}
		if err := node.AddGrant(grant); err != nil {
			return oops.With("node", where).
				Wrapf(err, "grants of %q", where)
		}
	}
	return nil
}
