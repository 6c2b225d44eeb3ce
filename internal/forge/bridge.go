// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"slices"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Commit messages written by the bridge.
const (
	initialCommitMessage = "initial commit"
	editCommitMessage    = "edit"
)

// Bridge orchestrates the repository side effects behind opening a
// merge request: seed the base branch if the repository is empty,
// create and switch to the source branch, commit an edit, then record
// the merge request. The bridge performs no permission gating; callers
// check CanContribute first.
type Bridge struct {
	project *Project
	repo    Repository
}

// NewBridge creates a bridge for the project. Fails when the project
// has no repository.
func NewBridge(project *Project) (*Bridge, error) {
	if project == nil {
		return nil, &ValidationError{Field: "project", Message: "cannot be nil"}
	}
	if project.Repo == nil {
		return nil, oops.Code("FORGE_NO_REPOSITORY").
			With("project_id", project.ID.String()).
			Errorf("project %s has no repository", project.ID)
	}
	return &Bridge{project: project, repo: project.Repo}, nil
}

// OpenMergeRequest prepares sourceBranch relative to targetBranch and
// records a merge request authored by the user. An empty targetBranch
// means the repository's default branch. If the source branch has no
// tip commit yet, the base is seeded with an initial commit before
// branching; an edit commit is then placed on the source branch so it
// is always ahead of the target.
func (b *Bridge) OpenMergeRequest(userID ulid.ULID, sourceBranch, targetBranch, title, description string) (*MergeRequest, error) {
	if targetBranch == "" {
		targetBranch = b.repo.DefaultBranch()
	}
	if err := ValidateBranchName(sourceBranch); err != nil {
		return nil, err
	}
	if err := ValidateBranchName(targetBranch); err != nil {
		return nil, err
	}
	if sourceBranch == targetBranch {
		return nil, &ValidationError{Field: "source_branch", Message: "cannot be the same as target branch"}
	}
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}
	if !slices.Contains(b.repo.Branches(), targetBranch) {
		return nil, oops.Code("FORGE_BRANCH_NOT_FOUND").
			With("branch", targetBranch).
			Errorf("target branch %q not found", targetBranch)
	}

	if _, ok := b.repo.TipCommit(sourceBranch); !ok {
		if err := b.prepareSourceBranch(userID, sourceBranch, targetBranch); err != nil {
			return nil, err
		}
	} else if err := b.repo.Checkout(sourceBranch); err != nil {
		return nil, err
	}
	if _, err := b.repo.Commit(sourceBranch, userID, editCommitMessage); err != nil {
		return nil, err
	}

	return b.project.createMergeRequest(userID, sourceBranch, targetBranch, title, description), nil
}

// prepareSourceBranch makes sourceBranch exist with the target's
// history, seeding the target with an initial commit when it has none.
func (b *Bridge) prepareSourceBranch(userID ulid.ULID, sourceBranch, targetBranch string) error {
	if _, ok := b.repo.TipCommit(targetBranch); !ok {
		if _, err := b.repo.Commit(targetBranch, userID, initialCommitMessage); err != nil {
			return err
		}
	}
	if slices.Contains(b.repo.Branches(), sourceBranch) {
		return b.repo.Checkout(sourceBranch)
	}
	if err := b.repo.Checkout(targetBranch); err != nil {
		return err
	}
	return b.repo.CreateBranch(sourceBranch)
}
