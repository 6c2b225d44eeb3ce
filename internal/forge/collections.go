// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Issue states.
const (
	IssueStateOpened = "opened"
	IssueStateClosed = "closed"
)

// Issue is a work item on a project. IIDs count up from 1 per project.
type Issue struct {
	IID       int
	Title     string
	AuthorID  ulid.ULID
	State     string
	CreatedAt time.Time
}

// Milestone is a titled deadline attached to a project.
type Milestone struct {
	ID        ulid.ULID
	Title     string
	DueDate   *time.Time
	CreatedAt time.Time
}

// Badge is a display badge on a project or group.
type Badge struct {
	ID       ulid.ULID
	LinkURL  string
	ImageURL string
}

// Hook is a webhook registration on a project or group.
type Hook struct {
	ID         ulid.ULID
	URL        string
	PushEvents bool
}

// CreateIssue opens a new issue and assigns it the next IID.
func (p *Project) CreateIssue(title string, authorID ulid.ULID) (*Issue, error) {
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	p.nextIssueIID++
	issue := &Issue{
		IID:       p.nextIssueIID,
		Title:     title,
		AuthorID:  authorID,
		State:     IssueStateOpened,
		CreatedAt: time.Now(),
	}
	p.issues = append(p.issues, issue)
	return issue, nil
}

// Issue returns the issue with the given IID.
func (p *Project) Issue(iid int) (*Issue, bool) {
	for _, issue := range p.issues {
		if issue.IID == iid {
			return issue, true
		}
	}
	return nil, false
}

// Issues returns the project's issues in creation order.
// The returned slice is a copy.
func (p *Project) Issues() []*Issue {
	return slices.Clone(p.issues)
}

// RemoveIssue deletes the issue with the given IID.
func (p *Project) RemoveIssue(iid int) error {
	for i, issue := range p.issues {
		if issue.IID == iid {
			p.issues = slices.Delete(p.issues, i, i+1)
			return nil
		}
	}
	return oops.Code("FORGE_ISSUE_NOT_FOUND").
		With("iid", iid).
		Errorf("issue %d not found", iid)
}

// AddMilestone attaches a milestone to the project.
func (p *Project) AddMilestone(title string, due *time.Time) (*Milestone, error) {
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	m := &Milestone{ID: NewID(), Title: title, DueDate: due, CreatedAt: time.Now()}
	p.milestones = append(p.milestones, m)
	return m, nil
}

// Milestones returns the project's milestones in creation order.
// The returned slice is a copy.
func (p *Project) Milestones() []*Milestone {
	return slices.Clone(p.milestones)
}

// AddBadge attaches a badge to the project.
func (p *Project) AddBadge(linkURL, imageURL string) Badge {
	b := Badge{ID: NewID(), LinkURL: linkURL, ImageURL: imageURL}
	p.badges = append(p.badges, b)
	return b
}

// Badges returns the project's badges. The returned slice is a copy.
func (p *Project) Badges() []Badge {
	return slices.Clone(p.badges)
}

// AddHook registers a webhook on the project.
func (p *Project) AddHook(url string, pushEvents bool) Hook {
	h := Hook{ID: NewID(), URL: url, PushEvents: pushEvents}
	p.hooks = append(p.hooks, h)
	return h
}

// Hooks returns the project's webhooks. The returned slice is a copy.
func (p *Project) Hooks() []Hook {
	return slices.Clone(p.hooks)
}

// AddBadge attaches a badge to the group.
func (g *Group) AddBadge(linkURL, imageURL string) Badge {
	b := Badge{ID: NewID(), LinkURL: linkURL, ImageURL: imageURL}
	g.badges = append(g.badges, b)
	return b
}

// Badges returns the group's badges. The returned slice is a copy.
func (g *Group) Badges() []Badge {
	return slices.Clone(g.badges)
}

// AddHook registers a webhook on the group.
func (g *Group) AddHook(url string, pushEvents bool) Hook {
	h := Hook{ID: NewID(), URL: url, PushEvents: pushEvents}
	g.hooks = append(g.hooks, h)
	return h
}

// Hooks returns the group's webhooks. The returned slice is a copy.
func (g *Group) Hooks() []Hook {
	return slices.Clone(g.hooks)
}
