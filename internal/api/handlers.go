// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/forgesim/forgesim/internal/access"
	"github.com/forgesim/forgesim/internal/forge"
)

// forkParams carries the optional fork target. An empty namespace
// means the actor's personal namespace.
type forkParams struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// mergeRequestParams carries the merge request fields. An empty target
// branch means the repository's default branch.
type mergeRequestParams struct {
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

// runnerParams carries the runner registration fields. Active defaults
// to true when absent.
type runnerParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
	Locked      bool   `json:"locked"`
	Shared      bool   `json:"shared"`
}

// getProject serves GET /api/v4/projects/{id}.
func (s *Server) getProject(w http.ResponseWriter, r *http.Request, actor *forge.User) error {
	p, err := s.resolveProject(r.PathValue("id"), actor)
	if err != nil {
		return err
	}
	payload, err := NewProjectPayload(s.store, s.base, p)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, payload)
}

// forkProject serves POST /api/v4/projects/{id}/fork.
func (s *Server) forkProject(w http.ResponseWriter, r *http.Request, actor *forge.User) error {
	if actor == nil {
		return authenticationRequired()
	}
	src, err := s.resolveProject(r.PathValue("id"), actor)
	if err != nil {
		return err
	}
	var params forkParams
	if err := decodeParams(r, &params); err != nil {
		return err
	}

	var fork *forge.Project
	if params.Namespace == "" {
		fork, err = s.service.Fork(actor, src.ID)
	} else {
		var target *forge.Group
		target, err = s.resolveGroup(params.Namespace)
		if err != nil {
			return err
		}
		fork, err = s.service.ForkInto(actor, src.ID, target.ID, params.Name)
	}
	if err != nil {
		return err
	}

	payload, err := NewProjectPayload(s.store, s.base, fork)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, payload)
}

// openMergeRequest serves POST /api/v4/projects/{id}/merge_requests.
func (s *Server) openMergeRequest(w http.ResponseWriter, r *http.Request, actor *forge.User) error {
	if actor == nil {
		return authenticationRequired()
	}
	p, err := s.resolveProject(r.PathValue("id"), actor)
	if err != nil {
		return err
	}
	var params mergeRequestParams
	if err := decodeParams(r, &params); err != nil {
		return err
	}

	mr, err := s.service.OpenMergeRequest(actor, p.ID,
		params.SourceBranch, params.TargetBranch, params.Title, params.Description)
	if err != nil {
		return err
	}

	payload, err := NewMergeRequestPayload(s.store, s.base, p, mr)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, payload)
}

// getMember serves GET /api/v4/projects/{id}/members/all/{user_id}.
// It reports the user's resolved level on the project, including
// levels inherited from ancestor groups.
func (s *Server) getMember(w http.ResponseWriter, r *http.Request, actor *forge.User) error {
	p, err := s.resolveProject(r.PathValue("id"), actor)
	if err != nil {
		return err
	}
	userID, err := ulid.Parse(r.PathValue("user_id"))
	if err != nil {
		return oops.Code("API_BAD_REQUEST").
			With("user_id", r.PathValue("user_id")).
			Wrapf(err, "parse user id")
	}
	level, err := s.service.MemberLevel(actor, p.ID, userID)
	if err != nil {
		return err
	}
	member, ok := s.store.User(userID)
	if !ok {
		return userNotFound(userID.String())
	}
	return writeJSON(w, http.StatusOK, NewMemberPayload(member, level))
}

// registerRunner serves POST /api/v4/projects/{id}/runners.
func (s *Server) registerRunner(w http.ResponseWriter, r *http.Request, actor *forge.User) error {
	if actor == nil {
		return authenticationRequired()
	}
	p, err := s.resolveProject(r.PathValue("id"), actor)
	if err != nil {
		return err
	}
	var params runnerParams
	if err := decodeParams(r, &params); err != nil {
		return err
	}
	active := true
	if params.Active != nil {
		active = *params.Active
	}

	runner, err := s.service.RegisterRunner(actor, p.ID,
		params.Name, params.Description, active, params.Locked, params.Shared)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, NewRunnerPayload(runner))
}

// authorize serves GET /api/v4/authorize. It answers whether a subject
// may perform an action on a project, for simulation harnesses. The
// project is named by ID or full path; an empty subject asks about
// anonymous access. No hiding applies here: the caller is the harness,
// not the subject.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, _ *forge.User) error {
	q := r.URL.Query()
	action := q.Get("action")
	projectRef := q.Get("project")
	subjectName := q.Get("subject")

	if action == "" || projectRef == "" {
		return oops.Code("API_BAD_REQUEST").Errorf("action and project are required")
	}

	var subject *forge.User
	if subjectName != "" {
		u, ok := s.store.UserByUsername(subjectName)
		if !ok {
			return userNotFound(subjectName)
		}
		subject = u
	}

	p, err := s.lookupProject(projectRef)
	if err != nil {
		return err
	}

	allowed, err := Decide(s.gate, action, subject, p)
	if err != nil {
		return err
	}

	payload := DecisionPayload{
		Subject:   subjectName,
		Action:    action,
		ProjectID: p.ID.String(),
		Allowed:   allowed,
	}
	if level, ok, err := s.gate.EffectiveLevel(subject, p); err != nil {
		return err
	} else if ok {
		payload.Level = level.String()
	}
	return writeJSON(w, http.StatusOK, payload)
}

// Decide maps an action name to its gate predicate. The check command
// shares this vocabulary, so it lives here rather than on the server.
func Decide(gate *access.Gate, action string, subject *forge.User, p *forge.Project) (bool, error) {
	switch action {
	case "view":
		return gate.CanView(subject, p)
	case "edit":
		return gate.CanEdit(subject, p)
	case "contribute":
		return gate.CanContribute(subject, p)
	case "delete":
		return gate.CanDelete(subject, p)
	case "owner":
		return gate.IsOwner(subject, p)
	case "member":
		return gate.IsMember(subject, p)
	default:
		return false, oops.Code("API_BAD_REQUEST").
			With("action", action).
			Errorf("unknown action %q", action)
	}
}

// resolveProject finds a project by ULID or full path and applies view
// hiding: a project the actor cannot see answers exactly like one that
// does not exist.
func (s *Server) resolveProject(ref string, actor *forge.User) (*forge.Project, error) {
	p, err := s.lookupProject(ref)
	if err != nil {
		return nil, err
	}
	return s.service.ViewProject(actor, p.ID)
}

// lookupProject finds a project by ULID or full path without gating.
func (s *Server) lookupProject(ref string) (*forge.Project, error) {
	if id, err := ulid.Parse(ref); err == nil {
		if p, ok := s.store.Project(id); ok {
			return p, nil
		}
		return nil, projectNotFound(ref)
	}
	if p, ok := s.store.ProjectByPath(ref); ok {
		return p, nil
	}
	return nil, projectNotFound(ref)
}

// resolveGroup finds a group by ULID or full path.
func (s *Server) resolveGroup(ref string) (*forge.Group, error) {
	if id, err := ulid.Parse(ref); err == nil {
		if g, ok := s.store.Group(id); ok {
			return g, nil
		}
		return nil, groupNotFound(ref)
	}
	if g, ok := s.store.GroupByFullPath(ref); ok {
		return g, nil
	}
	return nil, groupNotFound(ref)
}

// decodeParams decodes an optional JSON request body. An empty body
// leaves the params at their zero values.
func decodeParams(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return oops.Code("API_BAD_REQUEST").Wrapf(err, "decode request body")
	}
	return nil
}

func authenticationRequired() error {
	return oops.Code("API_UNAUTHORIZED").Errorf("authentication required")
}

func projectNotFound(ref string) error {
	return oops.Code("API_PROJECT_NOT_FOUND").
		With("project", ref).
		Errorf("project %q not found", ref)
}

func userNotFound(ref string) error {
	return oops.Code("API_USER_NOT_FOUND").
		With("user", ref).
		Errorf("user %q not found", ref)
}

func groupNotFound(ref string) error {
	return oops.Code("API_GROUP_NOT_FOUND").
		With("group", ref).
		Errorf("group %q not found", ref)
}
