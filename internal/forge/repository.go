// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Commit is a single recorded change on a branch.
type Commit struct {
	ID        ulid.ULID
	Message   string
	AuthorID  ulid.ULID
	CreatedAt time.Time
}

// Repository is the branch/commit surface the forge consumes. It keeps
// a current-branch cursor the way a working copy does: CreateBranch
// branches from the current tip and switches to the new branch.
//
// Implementations are not safe for concurrent use; callers serialize.
type Repository interface {
	// DefaultBranch returns the branch the repository was created with.
	DefaultBranch() string
	// CurrentBranch returns the branch the cursor is on.
	CurrentBranch() string
	// Branches returns all branch names, sorted.
	Branches() []string
	// TipCommit returns the newest commit on the branch, or false when
	// the branch is missing or has no commits yet.
	TipCommit(branch string) (Commit, bool)
	// Commit appends a commit to the branch.
	Commit(branch string, authorID ulid.ULID, message string) (Commit, error)
	// CreateBranch creates a branch from the current tip and switches
	// to it. Fails if the name is taken or the current branch has no
	// commits to branch from.
	CreateBranch(name string) error
	// Checkout switches the cursor to an existing branch.
	Checkout(name string) error
}

// RepositoryFactory produces a fresh repository for a new project.
type RepositoryFactory func(defaultBranch string) Repository
