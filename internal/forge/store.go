// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Store is the in-memory arena holding every user, group, and project,
// addressed by stable ID. Nodes reference each other by ID only, so
// traversal always goes through the store and a dangling or cyclic link
// surfaces as an error instead of undefined behavior.
//
// The store does no locking. Callers must serialize all access,
// including read-only resolver traversals (the API layer holds one
// lock around each request).
type Store struct {
	users     map[ulid.ULID]*User
	usernames map[string]ulid.ULID
	groups    map[ulid.ULID]*Group
	projects  map[ulid.ULID]*Project
	repos     RepositoryFactory
}

// NewStore creates an empty store. The factory provides a fresh
// repository for each new project; it may be nil, in which case
// projects have no repository and merge-request operations fail.
func NewStore(factory RepositoryFactory) *Store {
	return &Store{
		users:     make(map[ulid.ULID]*User),
		usernames: make(map[string]ulid.ULID),
		groups:    make(map[ulid.ULID]*Group),
		projects:  make(map[ulid.ULID]*Project),
		repos:     factory,
	}
}

// AddUser creates a user together with their personal namespace: a
// root group named after the username, marked as a user namespace,
// with an Owner grant for the user.
func (s *Store) AddUser(username, name string, admin bool) (*User, error) {
	u, err := NewUser(username, name, admin)
	if err != nil {
		return nil, err
	}
	if _, taken := s.usernames[u.Username]; taken {
		return nil, oops.Code("FORGE_USERNAME_TAKEN").
			With("username", u.Username).
			Errorf("username %q is taken", u.Username)
	}
	if s.slugTaken(nil, Slugify(u.Username)) {
		return nil, oops.Code("FORGE_PATH_TAKEN").
			With("path", Slugify(u.Username)).
			Errorf("path %q is taken", Slugify(u.Username))
	}
	ns, err := NewGroup(u.Username, nil)
	if err != nil {
		return nil, err
	}
	ns.UserNamespace = true
	owner, err := NewUserGrant(u.ID, AccessLevelOwner)
	if err != nil {
		return nil, err
	}
	if err := ns.AddGrant(owner); err != nil {
		return nil, err
	}
	u.NamespaceID = ns.ID
	s.users[u.ID] = u
	s.usernames[u.Username] = u.ID
	s.groups[ns.ID] = ns
	return u, nil
}

// User returns the user with the given ID.
func (s *Store) User(id ulid.ULID) (*User, bool) {
	u, ok := s.users[id]
	return u, ok
}

// UserByUsername returns the user with the given username.
func (s *Store) UserByUsername(username string) (*User, bool) {
	id, ok := s.usernames[username]
	if !ok {
		return nil, false
	}
	return s.users[id], true
}

// Users returns all users ordered by ID.
func (s *Store) Users() []*User {
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b *User) int { return a.ID.Compare(b.ID) })
	return out
}

// CreateGroup creates a group under the given parent (nil for a root
// group) and adds it to the arena. The group's slug must be free among
// its siblings.
func (s *Store) CreateGroup(name string, parentID *ulid.ULID) (*Group, error) {
	if parentID != nil {
		if _, ok := s.groups[*parentID]; !ok {
			return nil, oops.Code("FORGE_GROUP_NOT_FOUND").
				With("group_id", parentID.String()).
				Errorf("parent group %s not found", parentID)
		}
	}
	g, err := NewGroup(name, parentID)
	if err != nil {
		return nil, err
	}
	if s.slugTaken(parentID, g.Path()) {
		return nil, oops.Code("FORGE_PATH_TAKEN").
			With("path", g.Path()).
			Errorf("path %q is taken", g.Path())
	}
	s.groups[g.ID] = g
	return g, nil
}

// Group returns the group with the given ID.
func (s *Store) Group(id ulid.ULID) (*Group, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// Groups returns all groups ordered by ID.
func (s *Store) Groups() []*Group {
	out := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Group) int { return a.ID.Compare(b.ID) })
	return out
}

// CreateProject creates a project in the given group and appends it to
// the group's project collection. The project's slug must be free among
// the group's projects and subgroups. When the store has a repository
// factory, the project starts with a fresh repository.
func (s *Store) CreateProject(groupID ulid.ULID, name string, visibility Visibility) (*Project, error) {
	return s.createProject(NewID(), groupID, name, visibility)
}

// CreateProjectAuto creates a project with a generated name of the
// form "project-xxxxxx".
func (s *Store) CreateProjectAuto(groupID ulid.ULID, visibility Visibility) (*Project, error) {
	id := NewID()
	name := "project-" + strings.ToLower(id.String()[len(id.String())-6:])
	return s.createProject(id, groupID, name, visibility)
}

func (s *Store) createProject(id, groupID ulid.ULID, name string, visibility Visibility) (*Project, error) {
	group, ok := s.groups[groupID]
	if !ok {
		return nil, oops.Code("FORGE_GROUP_NOT_FOUND").
			With("group_id", groupID.String()).
			Errorf("group %s not found", groupID)
	}
	p, err := NewProjectWithID(id, name, groupID, visibility)
	if err != nil {
		return nil, err
	}
	if s.slugTaken(&groupID, p.Path()) {
		return nil, oops.Code("FORGE_PATH_TAKEN").
			With("path", p.Path()).
			Errorf("path %q is taken", p.Path())
	}
	if s.repos != nil {
		p.Repo = s.repos(p.DefaultBranch)
	}
	s.projects[p.ID] = p
	group.AddProject(p.ID)
	return p, nil
}

// Project returns the project with the given ID.
func (s *Store) Project(id ulid.ULID) (*Project, bool) {
	p, ok := s.projects[id]
	return p, ok
}

// Projects returns all projects ordered by ID.
func (s *Store) Projects() []*Project {
	out := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Project) int { return a.ID.Compare(b.ID) })
	return out
}

// RemoveProject detaches the project from its owning group's collection
// and destroys it.
func (s *Store) RemoveProject(id ulid.ULID) error {
	p, ok := s.projects[id]
	if !ok {
		return oops.Code("FORGE_PROJECT_NOT_FOUND").
			With("project_id", id.String()).
			Errorf("project %s not found", id)
	}
	if group, ok := s.groups[p.GroupID]; ok {
		group.RemoveProject(id)
	}
	delete(s.projects, id)
	return nil
}

// Node returns the group or project with the given ID.
func (s *Store) Node(id ulid.ULID) (Node, bool) {
	if g, ok := s.groups[id]; ok {
		return g, true
	}
	if p, ok := s.projects[id]; ok {
		return p, true
	}
	return nil, false
}

// GroupByFullPath resolves a slash-separated slug path like
// "engineering/backend" to a group.
func (s *Store) GroupByFullPath(path string) (*Group, bool) {
	segments := strings.Split(path, "/")
	var parent *ulid.ULID
	var cur *Group
	for _, segment := range segments {
		next, ok := s.groupWithSlug(parent, segment)
		if !ok {
			return nil, false
		}
		cur = next
		parent = &next.ID
	}
	return cur, cur != nil
}

// ProjectByPath resolves a slash-separated slug path like
// "engineering/backend/my-repo" to a project.
func (s *Store) ProjectByPath(path string) (*Project, bool) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return nil, false
	}
	group, ok := s.GroupByFullPath(path[:i])
	if !ok {
		return nil, false
	}
	slug := path[i+1:]
	for _, pid := range group.Projects() {
		if p, ok := s.projects[pid]; ok && p.Path() == slug {
			return p, true
		}
	}
	return nil, false
}

// groupWithSlug finds the group with the given slug under parent
// (nil parent means root groups).
func (s *Store) groupWithSlug(parentID *ulid.ULID, slug string) (*Group, bool) {
	for _, g := range s.groups {
		if !sameParent(g.ParentID, parentID) {
			continue
		}
		if g.Path() == slug {
			return g, true
		}
	}
	return nil, false
}

// slugTaken reports whether a slug is already used by a sibling group
// or, under a non-root parent, a sibling project.
func (s *Store) slugTaken(parentID *ulid.ULID, slug string) bool {
	if _, ok := s.groupWithSlug(parentID, slug); ok {
		return true
	}
	if parentID == nil {
		return false
	}
	group, ok := s.groups[*parentID]
	if !ok {
		return false
	}
	for _, pid := range group.Projects() {
		if p, ok := s.projects[pid]; ok && p.Path() == slug {
			return true
		}
	}
	return false
}

func sameParent(a, b *ulid.ULID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
