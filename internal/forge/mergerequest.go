// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

// MergeRequestState is the lifecycle state of a merge request.
type MergeRequestState string

// Merge request states.
const (
	MergeRequestOpened MergeRequestState = "opened"
	MergeRequestMerged MergeRequestState = "merged"
	MergeRequestClosed MergeRequestState = "closed"
)

// MergeRequest proposes merging one branch into another. IIDs count up
// from 1 per project.
type MergeRequest struct {
	IID          int
	Title        string
	Description  string
	SourceBranch string
	TargetBranch string
	AuthorID     ulid.ULID
	State        MergeRequestState
	CreatedAt    time.Time
}

// createMergeRequest records a new merge request and assigns it the
// next IID. Branch and title validation happens in the bridge before
// this is called.
func (p *Project) createMergeRequest(authorID ulid.ULID, source, target, title, description string) *MergeRequest {
	p.nextMRIID++
	mr := &MergeRequest{
		IID:          p.nextMRIID,
		Title:        title,
		Description:  description,
		SourceBranch: source,
		TargetBranch: target,
		AuthorID:     authorID,
		State:        MergeRequestOpened,
		CreatedAt:    time.Now(),
	}
	p.mergeRequests = append(p.mergeRequests, mr)
	return mr
}

// MergeRequest returns the merge request with the given IID.
func (p *Project) MergeRequest(iid int) (*MergeRequest, bool) {
	for _, mr := range p.mergeRequests {
		if mr.IID == iid {
			return mr, true
		}
	}
	return nil, false
}

// MergeRequests returns the project's merge requests in creation order.
// The returned slice is a copy.
func (p *Project) MergeRequests() []*MergeRequest {
	return slices.Clone(p.mergeRequests)
}
