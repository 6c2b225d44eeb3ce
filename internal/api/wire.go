// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package api

import (
	"net/url"
	"strconv"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/forgesim/forgesim/internal/forge"
)

// NamespacePayload is the wire shape of a project's owning namespace.
type NamespacePayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	FullPath string `json:"full_path"`
}

// ProjectPayload is the wire shape of a project. Field names and the
// build timeout rounding are part of the compatibility contract and
// must not change.
type ProjectPayload struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Path              string           `json:"path"`
	NameWithNamespace string           `json:"name_with_namespace"`
	PathWithNamespace string           `json:"path_with_namespace"`
	Namespace         NamespacePayload `json:"namespace"`
	WebURL            string           `json:"web_url"`
	HTTPURLToRepo     string           `json:"http_url_to_repo"`
	SSHURLToRepo      string           `json:"ssh_url_to_repo"`
	Visibility        string           `json:"visibility"`
	DefaultBranch     string           `json:"default_branch"`
	ImportStatus      string           `json:"import_status"`
	BuildTimeout      int              `json:"build_timeout"`
	ForkedFromID      string           `json:"forked_from_id,omitempty"`
}

// MergeRequestAuthor identifies who opened a merge request.
type MergeRequestAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// MergeRequestPayload is the wire shape of a merge request.
type MergeRequestPayload struct {
	IID          int                `json:"iid"`
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	State        string             `json:"state"`
	SourceBranch string             `json:"source_branch"`
	TargetBranch string             `json:"target_branch"`
	Author       MergeRequestAuthor `json:"author"`
	WebURL       string             `json:"web_url"`
}

// RunnerPayload is the wire shape of a registered CI runner.
type RunnerPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	Locked      bool   `json:"locked"`
	Shared      bool   `json:"shared"`
}

// MemberPayload is the wire shape of a project membership. AccessLevel
// carries the numeric level (guest 10 through owner 50).
type MemberPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	AccessLevel int    `json:"access_level"`
}

// DecisionPayload answers an authorization query.
type DecisionPayload struct {
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	ProjectID string `json:"project_id"`
	Allowed   bool   `json:"allowed"`
	// Level is the subject's resolved level on the project, without
	// admin bypass. Empty when the subject holds none.
	Level string `json:"level,omitempty"`
}

// NewProjectPayload projects a project into its wire shape. Paths are
// derived from current state on every call, never cached, so a renamed
// ancestor shows up immediately.
func NewProjectPayload(store *forge.Store, base *url.URL, p *forge.Project) (*ProjectPayload, error) {
	fullPath, err := store.ProjectPathWithNamespace(p)
	if err != nil {
		return nil, oops.Wrapf(err, "derive path for project %s", p.ID)
	}
	fullName, err := store.ProjectFullName(p)
	if err != nil {
		return nil, oops.Wrapf(err, "derive name for project %s", p.ID)
	}
	ns, err := newNamespacePayload(store, p.GroupID)
	if err != nil {
		return nil, oops.Wrapf(err, "derive namespace for project %s", p.ID)
	}

	webURL := base.JoinPath(fullPath).String()
	payload := &ProjectPayload{
		ID:                p.ID.String(),
		Name:              p.Name,
		Path:              p.Path(),
		NameWithNamespace: fullName,
		PathWithNamespace: fullPath,
		Namespace:         ns,
		WebURL:            webURL,
		HTTPURLToRepo:     webURL + ".git",
		SSHURLToRepo:      "git@" + base.Hostname() + ":" + fullPath + ".git",
		Visibility:        p.Visibility.String(),
		DefaultBranch:     p.DefaultBranch,
		ImportStatus:      p.ImportStatus,
		BuildTimeout:      p.BuildTimeoutMinutes(),
	}
	if p.ForkedFromID != nil {
		payload.ForkedFromID = p.ForkedFromID.String()
	}
	return payload, nil
}

func newNamespacePayload(store *forge.Store, groupID ulid.ULID) (NamespacePayload, error) {
	group, ok := store.Group(groupID)
	if !ok {
		return NamespacePayload{}, oops.
			With("group_id", groupID.String()).
			Errorf("namespace group %s not found", groupID)
	}
	fullPath, err := store.GroupFullPath(group)
	if err != nil {
		return NamespacePayload{}, err
	}
	kind := "group"
	if group.UserNamespace {
		kind = "user"
	}
	return NamespacePayload{
		ID:       group.ID.String(),
		Name:     group.Name,
		Path:     group.Path(),
		Kind:     kind,
		FullPath: fullPath,
	}, nil
}

// NewMergeRequestPayload projects a merge request into its wire shape.
func NewMergeRequestPayload(store *forge.Store, base *url.URL, p *forge.Project, mr *forge.MergeRequest) (*MergeRequestPayload, error) {
	fullPath, err := store.ProjectPathWithNamespace(p)
	if err != nil {
		return nil, oops.Wrapf(err, "derive path for project %s", p.ID)
	}
	author := MergeRequestAuthor{ID: mr.AuthorID.String()}
	if u, ok := store.User(mr.AuthorID); ok {
		author.Username = u.Username
		author.Name = u.Name
	}
	return &MergeRequestPayload{
		IID:          mr.IID,
		Title:        mr.Title,
		Description:  mr.Description,
		State:        string(mr.State),
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		Author:       author,
		WebURL:       base.JoinPath(fullPath, "-", "merge_requests", strconv.Itoa(mr.IID)).String(),
	}, nil
}

// NewRunnerPayload projects a runner into its wire shape.
func NewRunnerPayload(r *forge.Runner) *RunnerPayload {
	return &RunnerPayload{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		Active:      r.Active,
		Locked:      r.Locked,
		Shared:      r.Shared,
	}
}

// NewMemberPayload projects a membership into its wire shape.
func NewMemberPayload(u *forge.User, level forge.AccessLevel) *MemberPayload {
	return &MemberPayload{
		ID:          u.ID.String(),
		Username:    u.Username,
		Name:        u.Name,
		AccessLevel: int(level),
	}
}
