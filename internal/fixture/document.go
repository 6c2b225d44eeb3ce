// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package fixture

import (
	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the constraint a document's format version must
// satisfy to be loaded.
const SupportedVersions = "^1"

var supportedVersions = mustConstraint(SupportedVersions)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Document is the root of a fixture file. Lists are realized in
// declaration order, so a group's parent and a grant's subject must
// be declared before they are referenced.
type Document struct {
	Version  string       `yaml:"version" json:"version" jsonschema:"title=Fixture format version"`
	Users    []UserDoc    `yaml:"users,omitempty" json:"users,omitempty"`
	Groups   []GroupDoc   `yaml:"groups,omitempty" json:"groups,omitempty"`
	Projects []ProjectDoc `yaml:"projects,omitempty" json:"projects,omitempty"`
}

// UserDoc declares one user. Users with a password become registry
// accounts and can authenticate; the rest exist only as subjects for
// grants.
type UserDoc struct {
	Username string `yaml:"username" json:"username" jsonschema:"minLength=3,maxLength=30,pattern=^[a-z][a-z0-9_-]*$"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"maxLength=255"`
	Admin    bool   `yaml:"admin,omitempty" json:"admin,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
}

// GroupDoc declares one group. Parent is the full slug path of a group
// declared earlier in the document; empty means a root group.
type GroupDoc struct {
	Name   string     `yaml:"name" json:"name" jsonschema:"minLength=1,maxLength=255"`
	Parent string     `yaml:"parent,omitempty" json:"parent,omitempty"`
	Grants []GrantDoc `yaml:"grants,omitempty" json:"grants,omitempty"`
}

// ProjectDoc declares one project inside the group named by its full
// slug path. Visibility defaults to private.
type ProjectDoc struct {
	Name              string               `yaml:"name" json:"name" jsonschema:"minLength=1,maxLength=255"`
	Group             string               `yaml:"group" json:"group" jsonschema:"minLength=1"`
	Description       string               `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"maxLength=2000"`
	Visibility        string               `yaml:"visibility,omitempty" json:"visibility,omitempty" jsonschema:"enum=private,enum=internal,enum=public"`
	Grants            []GrantDoc           `yaml:"grants,omitempty" json:"grants,omitempty"`
	ProtectedBranches []ProtectedBranchDoc `yaml:"protected_branches,omitempty" json:"protected_branches,omitempty"`
}

// GrantDoc attaches a member to the enclosing node: a user at a level,
// or a shared group whose resolved membership merges as-is. Exactly
// one of user and group must be set, and only user entries carry a
// level.
type GrantDoc struct {
	User  string `yaml:"user,omitempty" json:"user,omitempty"`
	Group string `yaml:"group,omitempty" json:"group,omitempty"`
	Level string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"enum=guest,enum=reporter,enum=developer,enum=maintainer,enum=owner"`
}

// ProtectedBranchDoc declares one protection rule on the enclosing
// project.
type ProtectedBranchDoc struct {
	Pattern string `yaml:"pattern" json:"pattern" jsonschema:"minLength=1"`
	Level   string `yaml:"level" json:"level" jsonschema:"enum=guest,enum=reporter,enum=developer,enum=maintainer,enum=owner"`
}

// ParseDocument validates fixture data against the JSON Schema and
// decodes it into a Document. Shape errors surface from the schema
// with their location; Validate then covers what the schema cannot
// express.
func ParseDocument(data []byte) (*Document, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("FIXTURE_INVALID_YAML").
			Wrapf(err, "invalid fixture YAML")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the cross-field rules the schema cannot: the version
// gate, username uniqueness, and grant target shape. Reference
// resolution (parents, grant subjects) happens at load time.
func (d *Document) Validate() error {
	if err := d.checkVersion(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(d.Users))
	for _, u := range d.Users {
		if _, dup := seen[u.Username]; dup {
			return oops.Code("FIXTURE_DUPLICATE_USER").
				With("username", u.Username).
				Errorf("user %q is declared twice", u.Username)
		}
		seen[u.Username] = struct{}{}
	}
	for _, g := range d.Groups {
		for _, grant := range g.Grants {
			if err := grant.validate(); err != nil {
				return oops.With("group", g.Name).
					Wrapf(err, "grants of group %q", g.Name)
			}
		}
	}
	for _, p := range d.Projects {
		for _, grant := range p.Grants {
			if err := grant.validate(); err != nil {
				return oops.With("project", p.Name).
					Wrapf(err, "grants of project %q", p.Name)
			}
		}
	}
	return nil
}

func (d *Document) checkVersion() error {
	if d.Version == "" {
		return oops.Code("FIXTURE_INVALID_VERSION").
			Errorf("version is required")
	}
	v, err := semver.StrictNewVersion(d.Version)
	if err != nil {
		return oops.Code("FIXTURE_INVALID_VERSION").
			With("version", d.Version).
			Wrapf(err, "version %q is not strict semver", d.Version)
	}
	// Constraint checks skip prerelease versions entirely; gate on the
	// release core so 1.x prereleases still load.
	core := semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	if !supportedVersions.Check(core) {
		return oops.Code("FIXTURE_UNSUPPORTED_VERSION").
			With("version", d.Version).
			With("supported", SupportedVersions).
			Errorf("version %s is outside the supported range %s", d.Version, SupportedVersions)
	}
	return nil
}

func (g GrantDoc) validate() error {
	switch {
	case g.User == "" && g.Group == "":
		return oops.Code("FIXTURE_INVALID_GRANT").
			Errorf("grant needs a user or a group")
	case g.User != "" && g.Group != "":
		return oops.Code("FIXTURE_INVALID_GRANT").
			With("user", g.User).
			With("group", g.Group).
			Errorf("grant cannot name both a user and a group")
	case g.User != "" && g.Level == "":
		return oops.Code("FIXTURE_INVALID_GRANT").
			With("user", g.User).
			Errorf("user grant needs a level")
	case g.Group != "" && g.Level != "":
		return oops.Code("FIXTURE_INVALID_GRANT").
			With("group", g.Group).
			Errorf("group share carries the group's own levels, not a level of its own")
	}
	return nil
}
