// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ErrPermissionDenied is returned when an operation is not authorized.
var ErrPermissionDenied = errors.New("permission denied")

// Gatekeeper defines the interface for authorization checks.
// This mirrors internal/access.Gate to avoid coupling forge to the
// access package.
type Gatekeeper interface {
	CanView(user *User, project *Project) (bool, error)
	CanContribute(user *User, project *Project) (bool, error)
	CanDelete(user *User, project *Project) (bool, error)
	// MeetsLevel reports whether the user's resolved level on the node
	// meets min, with admin bypass.
	MeetsLevel(user *User, node Node, min AccessLevel) (bool, error)
	// EffectiveLevel returns the user's resolved level on the node
	// without admin bypass; false when the user holds no level.
	EffectiveLevel(user *User, node Node) (AccessLevel, bool, error)
}

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Store *Store
	Gate  Gatekeeper
}

// Service provides authorized access to forge operations. All
// operations check authorization before mutating the store. A project
// the actor cannot view reads as absent, so denied view access and a
// missing project are indistinguishable to the caller.
type Service struct {
	store *Store
	gate  Gatekeeper
	forks *ForkEngine
}

// NewService creates a new Service with the given configuration.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		store: cfg.Store,
		gate:  cfg.Gate,
		forks: NewForkEngine(cfg.Store),
	}
}

// Store returns the underlying hierarchy store.
func (s *Service) Store() *Store {
	return s.store
}

// ViewProject retrieves a project by ID after checking view access.
func (s *Service) ViewProject(actor *User, id ulid.ULID) (*Project, error) {
	return s.visibleProject(actor, id)
}

// CreateGroup creates a group after checking that the actor may create
// it: any authenticated user can create a root group; subgroups require
// Maintainer on the parent.
func (s *Service) CreateGroup(actor *User, name string, parentID *ulid.ULID) (*Group, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	if parentID != nil {
		parent, ok := s.store.Group(*parentID)
		if !ok {
			return nil, groupNotFound(*parentID)
		}
		allowed, err := s.gate.MeetsLevel(actor, parent, AccessLevelMaintainer)
		if err != nil {
			return nil, oops.Wrapf(err, "check level on group %s", parent.ID)
		}
		if !allowed {
			return nil, ErrPermissionDenied
		}
	}
	g, err := s.store.CreateGroup(name, parentID)
	if err != nil {
		return nil, oops.Wrapf(err, "create group %q", name)
	}
	return g, nil
}

// CreateProject creates a project in the group after checking that the
// actor holds Developer there. An empty name is auto-generated.
func (s *Service) CreateProject(actor *User, groupID ulid.ULID, name string, visibility Visibility) (*Project, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	group, ok := s.store.Group(groupID)
	if !ok {
		return nil, groupNotFound(groupID)
	}
	allowed, err := s.gate.MeetsLevel(actor, group, AccessLevelDeveloper)
	if err != nil {
		return nil, oops.Wrapf(err, "check level on group %s", groupID)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}
	if name == "" {
		p, err := s.store.CreateProjectAuto(groupID, visibility)
		if err != nil {
			return nil, oops.Wrapf(err, "create project in group %s", groupID)
		}
		return p, nil
	}
	p, err := s.store.CreateProject(groupID, name, visibility)
	if err != nil {
		return nil, oops.Wrapf(err, "create project %q", name)
	}
	return p, nil
}

// RemoveProject destroys a project after checking delete access.
func (s *Service) RemoveProject(actor *User, id ulid.ULID) error {
	p, err := s.visibleProject(actor, id)
	if err != nil {
		return err
	}
	allowed, err := s.gate.CanDelete(actor, p)
	if err != nil {
		return oops.Wrapf(err, "check delete on project %s", id)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	if err := s.store.RemoveProject(id); err != nil {
		return oops.Wrapf(err, "remove project %s", id)
	}
	return nil
}

// Fork copies a project into the actor's personal namespace. The actor
// must be able to view the source; the fork then grants them Owner on
// the copy regardless of their rights on the source.
func (s *Service) Fork(actor *User, sourceID ulid.ULID) (*Project, error) {
	source, err := s.visibleProject(actor, sourceID)
	if err != nil {
		return nil, err
	}
	fork, err := s.forks.Fork(source, actor)
	if err != nil {
		return nil, oops.Wrapf(err, "fork project %s", sourceID)
	}
	return fork, nil
}

// ForkInto copies a project into the target group under an optional new
// name. The actor must be able to view the source and hold Developer in
// the target group.
func (s *Service) ForkInto(actor *User, sourceID, targetGroupID ulid.ULID, newName string) (*Project, error) {
	source, err := s.visibleProject(actor, sourceID)
	if err != nil {
		return nil, err
	}
	target, ok := s.store.Group(targetGroupID)
	if !ok {
		return nil, groupNotFound(targetGroupID)
	}
	allowed, err := s.gate.MeetsLevel(actor, target, AccessLevelDeveloper)
	if err != nil {
		return nil, oops.Wrapf(err, "check level on group %s", targetGroupID)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}
	fork, err := s.forks.ForkInto(source, targetGroupID, actor, newName)
	if err != nil {
		return nil, oops.Wrapf(err, "fork project %s into group %s", sourceID, targetGroupID)
	}
	return fork, nil
}

// OpenMergeRequest opens a merge request after checking contribute
// access. Pushing to a protected target branch additionally requires
// the protection's level.
func (s *Service) OpenMergeRequest(actor *User, projectID ulid.ULID, sourceBranch, targetBranch, title, description string) (*MergeRequest, error) {
	p, err := s.visibleProject(actor, projectID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.gate.CanContribute(actor, p)
	if err != nil {
		return nil, oops.Wrapf(err, "check contribute on project %s", projectID)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}
	effectiveTarget := targetBranch
	if effectiveTarget == "" && p.Repo != nil {
		effectiveTarget = p.Repo.DefaultBranch()
	}
	if required, protected := p.ProtectionFor(effectiveTarget); protected {
		allowed, err := s.gate.MeetsLevel(actor, p, required)
		if err != nil {
			return nil, oops.Wrapf(err, "check level on project %s", projectID)
		}
		if !allowed {
			return nil, ErrPermissionDenied
		}
	}
	bridge, err := NewBridge(p)
	if err != nil {
		return nil, err
	}
	mr, err := bridge.OpenMergeRequest(actor.ID, sourceBranch, targetBranch, title, description)
	if err != nil {
		return nil, oops.Wrapf(err, "open merge request on project %s", projectID)
	}
	return mr, nil
}

// CreateIssue opens an issue after checking view access.
func (s *Service) CreateIssue(actor *User, projectID ulid.ULID, title string) (*Issue, error) {
	if actor == nil {
		return nil, ErrPermissionDenied
	}
	p, err := s.visibleProject(actor, projectID)
	if err != nil {
		return nil, err
	}
	issue, err := p.CreateIssue(title, actor.ID)
	if err != nil {
		return nil, oops.Wrapf(err, "create issue on project %s", projectID)
	}
	return issue, nil
}

// RegisterRunner registers a CI executor after checking that the actor
// holds Maintainer on the project.
func (s *Service) RegisterRunner(actor *User, projectID ulid.ULID, name, description string, active, locked, shared bool) (*Runner, error) {
	p, err := s.visibleProject(actor, projectID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.gate.MeetsLevel(actor, p, AccessLevelMaintainer)
	if err != nil {
		return nil, oops.Wrapf(err, "check level on project %s", projectID)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}
	runner, err := p.RegisterRunner(name, description, active, locked, shared)
	if err != nil {
		return nil, oops.Wrapf(err, "register runner on project %s", projectID)
	}
	return runner, nil
}

// ProtectBranch adds a branch protection rule after checking that the
// actor holds Maintainer on the project.
func (s *Service) ProtectBranch(actor *User, projectID ulid.ULID, pattern string, requiredLevel AccessLevel) (*ProtectedBranch, error) {
	p, err := s.visibleProject(actor, projectID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.gate.MeetsLevel(actor, p, AccessLevelMaintainer)
	if err != nil {
		return nil, oops.Wrapf(err, "check level on project %s", projectID)
	}
	if !allowed {
		return nil, ErrPermissionDenied
	}
	rule, err := p.ProtectBranch(pattern, requiredLevel)
	if err != nil {
		return nil, oops.Wrapf(err, "protect branch on project %s", projectID)
	}
	return rule, nil
}

// grantHolder is satisfied by nodes whose grant collection can be
// edited (groups and projects both qualify).
type grantHolder interface {
	AddGrant(Grant) error
	RemoveGrant(GrantTarget) error
}

// AddGrant attaches a grant to a node after checking that the actor
// holds Maintainer there; conferring Owner requires Owner. The grant
// target must exist in the store.
func (s *Service) AddGrant(actor *User, nodeID ulid.ULID, grant Grant) error {
	node, err := s.visibleNode(actor, nodeID)
	if err != nil {
		return err
	}
	required := AccessLevelMaintainer
	if grant.Target.Kind == GrantTargetUser && grant.Level == AccessLevelOwner {
		required = AccessLevelOwner
	}
	allowed, err := s.gate.MeetsLevel(actor, node, required)
	if err != nil {
		return oops.Wrapf(err, "check level on node %s", nodeID)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	switch grant.Target.Kind {
	case GrantTargetUser:
		if _, ok := s.store.User(grant.Target.ID); !ok {
			return oops.Code("FORGE_USER_NOT_FOUND").
				With("user_id", grant.Target.ID.String()).
				Errorf("user %s not found", grant.Target.ID)
		}
	case GrantTargetGroup:
		if _, ok := s.store.Group(grant.Target.ID); !ok {
			return groupNotFound(grant.Target.ID)
		}
	}
	holder, ok := node.(grantHolder)
	if !ok {
		return oops.Errorf("node %s does not hold grants", nodeID)
	}
	if err := holder.AddGrant(grant); err != nil {
		return oops.Wrapf(err, "add grant on node %s", nodeID)
	}
	return nil
}

// RemoveGrant removes a grant from a node after checking that the actor
// holds Maintainer there; removing an Owner grant requires Owner.
func (s *Service) RemoveGrant(actor *User, nodeID ulid.ULID, target GrantTarget) error {
	node, err := s.visibleNode(actor, nodeID)
	if err != nil {
		return err
	}
	required := AccessLevelMaintainer
	for _, g := range node.Grants() {
		if g.Target == target && g.Target.Kind == GrantTargetUser && g.Level == AccessLevelOwner {
			required = AccessLevelOwner
		}
	}
	allowed, err := s.gate.MeetsLevel(actor, node, required)
	if err != nil {
		return oops.Wrapf(err, "check level on node %s", nodeID)
	}
	if !allowed {
		return ErrPermissionDenied
	}
	holder, ok := node.(grantHolder)
	if !ok {
		return oops.Errorf("node %s does not hold grants", nodeID)
	}
	if err := holder.RemoveGrant(target); err != nil {
		return oops.Wrapf(err, "remove grant on node %s", nodeID)
	}
	return nil
}

// MemberLevel returns a user's resolved level on a project the actor
// can view. Fails when the user holds no level there.
func (s *Service) MemberLevel(actor *User, projectID, userID ulid.ULID) (AccessLevel, error) {
	p, err := s.visibleProject(actor, projectID)
	if err != nil {
		return 0, err
	}
	member, ok := s.store.User(userID)
	if !ok {
		return 0, oops.Code("FORGE_USER_NOT_FOUND").
			With("user_id", userID.String()).
			Errorf("user %s not found", userID)
	}
	level, ok, err := s.gate.EffectiveLevel(member, p)
	if err != nil {
		return 0, oops.Wrapf(err, "resolve level on project %s", projectID)
	}
	if !ok {
		return 0, oops.Code("FORGE_MEMBER_NOT_FOUND").
			With("user_id", userID.String()).
			With("project_id", projectID.String()).
			Errorf("user %s is not a member of project %s", userID, projectID)
	}
	return level, nil
}

// visibleProject returns the project when the actor can view it.
// Denied view access reads as not found.
func (s *Service) visibleProject(actor *User, id ulid.ULID) (*Project, error) {
	p, ok := s.store.Project(id)
	if !ok {
		return nil, projectNotFound(id)
	}
	visible, err := s.gate.CanView(actor, p)
	if err != nil {
		return nil, oops.Wrapf(err, "check view on project %s", id)
	}
	if !visible {
		return nil, projectNotFound(id)
	}
	return p, nil
}

// visibleNode returns the group or project with the given ID, applying
// project view hiding. Groups carry no visibility of their own.
func (s *Service) visibleNode(actor *User, id ulid.ULID) (Node, error) {
	node, ok := s.store.Node(id)
	if !ok {
		return nil, oops.Code("FORGE_NODE_NOT_FOUND").
			With("node_id", id.String()).
			Errorf("node %s not found", id)
	}
	if p, isProject := node.(*Project); isProject {
		return s.visibleProject(actor, p.ID)
	}
	return node, nil
}

func projectNotFound(id ulid.ULID) error {
	return oops.Code("FORGE_PROJECT_NOT_FOUND").
		With("project_id", id.String()).
		Errorf("project %s not found", id)
}

func groupNotFound(id ulid.ULID) error {
	return oops.Code("FORGE_GROUP_NOT_FOUND").
		With("group_id", id.String()).
		Errorf("group %s not found", id)
}
