// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package repo provides the in-memory repository collaborator backing
// project branches and commits.
package repo

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/forgesim/forgesim/internal/forge"
)

// Memory is an in-memory forge.Repository. The default branch exists
// from creation but starts unborn: it has no commits until the first
// one lands, and cannot be branched from until then.
//
// Memory does no locking; callers serialize access the same way they
// do for the hierarchy store.
type Memory struct {
	defaultBranch string
	current       string
	branches      map[string][]forge.Commit
}

// Compile-time check that Memory implements forge.Repository.
var _ forge.Repository = (*Memory)(nil)

// NewMemory creates a repository with the given default branch, which
// becomes the current branch. An empty name means forge.DefaultBranchName.
func NewMemory(defaultBranch string) *Memory {
	if defaultBranch == "" {
		defaultBranch = forge.DefaultBranchName
	}
	return &Memory{
		defaultBranch: defaultBranch,
		current:       defaultBranch,
		branches:      map[string][]forge.Commit{defaultBranch: nil},
	}
}

// Factory is a forge.RepositoryFactory producing Memory repositories.
func Factory(defaultBranch string) forge.Repository {
	return NewMemory(defaultBranch)
}

// DefaultBranch returns the branch the repository was created with.
func (m *Memory) DefaultBranch() string {
	return m.defaultBranch
}

// CurrentBranch returns the branch the cursor is on.
func (m *Memory) CurrentBranch() string {
	return m.current
}

// Branches returns all branch names, sorted.
func (m *Memory) Branches() []string {
	out := make([]string, 0, len(m.branches))
	for name := range m.branches {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// TipCommit returns the newest commit on the branch, or false when the
// branch is missing or unborn.
func (m *Memory) TipCommit(branch string) (forge.Commit, bool) {
	commits := m.branches[branch]
	if len(commits) == 0 {
		return forge.Commit{}, false
	}
	return commits[len(commits)-1], true
}

// Commits returns the branch's history, oldest first. The returned
// slice is a copy.
func (m *Memory) Commits(branch string) ([]forge.Commit, error) {
	commits, ok := m.branches[branch]
	if !ok {
		return nil, branchNotFound(branch)
	}
	return slices.Clone(commits), nil
}

// Commit appends a commit to the branch.
func (m *Memory) Commit(branch string, authorID ulid.ULID, message string) (forge.Commit, error) {
	if message == "" {
		return forge.Commit{}, oops.Code("REPO_EMPTY_MESSAGE").
			Errorf("commit message cannot be empty")
	}
	if _, ok := m.branches[branch]; !ok {
		return forge.Commit{}, branchNotFound(branch)
	}
	commit := forge.Commit{
		ID:        forge.NewID(),
		Message:   message,
		AuthorID:  authorID,
		CreatedAt: time.Now(),
	}
	m.branches[branch] = append(m.branches[branch], commit)
	return commit, nil
}

// CreateBranch creates a branch carrying the current branch's history
// and switches to it. Fails when the name is taken, invalid, or the
// current branch has no commits to branch from.
func (m *Memory) CreateBranch(name string) error {
	if err := forge.ValidateBranchName(name); err != nil {
		return err
	}
	if _, exists := m.branches[name]; exists {
		return oops.Code("REPO_BRANCH_EXISTS").
			With("branch", name).
			Errorf("branch %q already exists", name)
	}
	base := m.branches[m.current]
	if len(base) == 0 {
		return oops.Code("REPO_UNBORN_BRANCH").
			With("branch", m.current).
			Errorf("cannot branch from %q: no commits", m.current)
	}
	m.branches[name] = slices.Clone(base)
	m.current = name
	return nil
}

// Checkout switches the cursor to an existing branch.
func (m *Memory) Checkout(name string) error {
	if _, ok := m.branches[name]; !ok {
		return branchNotFound(name)
	}
	m.current = name
	return nil
}

func branchNotFound(name string) error {
	return oops.Code("REPO_BRANCH_NOT_FOUND").
		With("branch", name).
		Errorf("branch %q not found", name)
}
