// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

// Import states reported on the wire.
const (
	ImportStatusNone     = "none"
	ImportStatusFinished = "finished"
)

// DefaultBuildTimeout is the CI build timeout a new project starts with.
const DefaultBuildTimeout = time.Hour

// DefaultBranchName is the branch a new project's repository starts on.
const DefaultBranchName = "main"

// Project is a leaf node in the hierarchy: it belongs to exactly one
// group, carries a grant collection, and owns its sub-collections
// (issues, merge requests, runners, and so on). Path fields are always
// derived from the current name, never stored.
type Project struct {
	ID          ulid.ULID
	Name        string
	Description string
	// GroupID is the owning group. A project always has one.
	GroupID       ulid.ULID
	Visibility    Visibility
	DefaultBranch string
	ImportStatus  string
	BuildTimeout  time.Duration
	// ForkedFromID records the fork source. Set once at creation and
	// never mutated; the source may be removed independently later.
	ForkedFromID *ulid.ULID
	CreatedAt    time.Time

	// Repo is the backing repository collaborator. Wired by the store
	// at creation when a repository factory is configured.
	Repo Repository

	grants        []Grant
	issues        []*Issue
	mergeRequests []*MergeRequest
	milestones    []*Milestone
	badges        []Badge
	hooks         []Hook
	runners       []*Runner
	protected     []*ProtectedBranch
	nextIssueIID  int
	nextMRIID     int
}

// NewProject creates a new Project with a generated ID.
// The project is validated before being returned; an invalid name
// fails immediately and no partially initialized project is produced.
func NewProject(name string, groupID ulid.ULID, visibility Visibility) (*Project, error) {
	return NewProjectWithID(NewID(), name, groupID, visibility)
}

// NewProjectWithID creates a new Project with the provided ID.
// The project is validated before being returned.
func NewProjectWithID(id ulid.ULID, name string, groupID ulid.ULID, visibility Visibility) (*Project, error) {
	p := &Project{
		ID:            id,
		Name:          name,
		GroupID:       groupID,
		Visibility:    visibility,
		DefaultBranch: DefaultBranchName,
		ImportStatus:  ImportStatusNone,
		BuildTimeout:  DefaultBuildTimeout,
		CreatedAt:     time.Now(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the project has required fields.
func (p *Project) Validate() error {
	if p.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "cannot be zero"}
	}
	if p.GroupID.IsZero() {
		return &ValidationError{Field: "group_id", Message: "cannot be zero"}
	}
	if !p.Visibility.Valid() {
		return &ValidationError{Field: "visibility", Message: "must be private, internal, or public"}
	}
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	return ValidateDescription(p.Description)
}

// Path returns the project's slug, derived from its name.
func (p *Project) Path() string {
	return Slugify(p.Name)
}

// NodeID implements Node.
func (p *Project) NodeID() ulid.ULID {
	return p.ID
}

// ParentGroup implements Node. A project always has an owning group.
func (p *Project) ParentGroup() (ulid.ULID, bool) {
	return p.GroupID, true
}

// Grants implements Node. The returned slice is a copy.
func (p *Project) Grants() []Grant {
	return slices.Clone(p.grants)
}

// AddGrant attaches a grant to the project.
func (p *Project) AddGrant(grant Grant) error {
	return addGrant(&p.grants, grant)
}

// RemoveGrant removes every grant for the given target.
func (p *Project) RemoveGrant(target GrantTarget) error {
	return removeGrant(&p.grants, target)
}

// BuildTimeoutMinutes returns the build timeout in whole minutes, as
// reported on the wire. The duration is rounded to the nearest minute.
func (p *Project) BuildTimeoutMinutes() int {
	return int(p.BuildTimeout.Round(time.Minute) / time.Minute)
}
