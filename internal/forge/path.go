// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"strings"
	"unicode"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Slugify derives a URL path component from a display name: lowercase,
// runs of non-alphanumeric characters become a single hyphen, leading
// and trailing hyphens are dropped. "My Repo!" becomes "my-repo".
func Slugify(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(name) {
		if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

// groupChain returns the ancestor chain of g from root to g itself.
// Fails if a parent link points at a missing group or the chain loops.
func (s *Store) groupChain(g *Group) ([]*Group, error) {
	visited := map[ulid.ULID]bool{g.ID: true}
	chain := []*Group{g}
	cur := g
	for {
		parentID, ok := cur.ParentGroup()
		if !ok {
			break
		}
		if visited[parentID] {
			return nil, oops.Code("FORGE_HIERARCHY_CYCLE").
				With("group_id", parentID.String()).
				Errorf("group hierarchy contains a cycle through %s", parentID)
		}
		parent, ok := s.Group(parentID)
		if !ok {
			return nil, oops.Code("FORGE_GROUP_NOT_FOUND").
				With("group_id", parentID.String()).
				Errorf("parent group %s not found", parentID)
		}
		visited[parentID] = true
		chain = append([]*Group{parent}, chain...)
		cur = parent
	}
	return chain, nil
}

// GroupFullPath derives the slash-joined slug path of a group,
// e.g. "engineering/backend". Pure function of current state.
func (s *Store) GroupFullPath(g *Group) (string, error) {
	chain, err := s.groupChain(g)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(chain))
	for i, anc := range chain {
		parts[i] = anc.Path()
	}
	return strings.Join(parts, "/"), nil
}

// GroupFullName derives the slash-joined display name of a group,
// e.g. "Engineering/Backend".
func (s *Store) GroupFullName(g *Group) (string, error) {
	chain, err := s.groupChain(g)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(chain))
	for i, anc := range chain {
		parts[i] = anc.Name
	}
	return strings.Join(parts, "/"), nil
}

// ProjectPathWithNamespace derives the full slug path of a project,
// e.g. "engineering/backend/my-repo".
func (s *Store) ProjectPathWithNamespace(p *Project) (string, error) {
	group, ok := s.Group(p.GroupID)
	if !ok {
		return "", oops.Code("FORGE_GROUP_NOT_FOUND").
			With("group_id", p.GroupID.String()).
			Errorf("owning group %s not found", p.GroupID)
	}
	prefix, err := s.GroupFullPath(group)
	if err != nil {
		return "", err
	}
	return prefix + "/" + p.Path(), nil
}

// ProjectFullName derives the full display name of a project,
// e.g. "Engineering/Backend/My Repo".
func (s *Store) ProjectFullName(p *Project) (string, error) {
	group, ok := s.Group(p.GroupID)
	if !ok {
		return "", oops.Code("FORGE_GROUP_NOT_FOUND").
			With("group_id", p.GroupID.String()).
			Errorf("owning group %s not found", p.GroupID)
	}
	prefix, err := s.GroupFullName(group)
	if err != nil {
		return "", err
	}
	return prefix + "/" + p.Name, nil
}
