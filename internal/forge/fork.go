// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"github.com/oklog/ulid/v2"
)

// ForkEngine creates new projects seeded from existing ones. The engine
// itself performs no permission checks; the service layer gates view
// access on the source before calling in. Whatever the requester's
// rights on the source, the fork grants them Owner on the copy.
type ForkEngine struct {
	store *Store
}

// NewForkEngine creates a fork engine over the store.
func NewForkEngine(store *Store) *ForkEngine {
	return &ForkEngine{store: store}
}

// Fork copies source into the user's personal namespace, keeping the
// source's name.
func (e *ForkEngine) Fork(source *Project, user *User) (*Project, error) {
	if user == nil {
		return nil, &ValidationError{Field: "user", Message: "cannot be nil"}
	}
	return e.ForkInto(source, user.NamespaceID, user, "")
}

// ForkInto copies source into the target group. The fork keeps the
// source's name unless newName is non-empty, copies description and
// visibility, records the fork origin, starts with a fresh repository
// and empty sub-collections, and grants the user Owner.
func (e *ForkEngine) ForkInto(source *Project, targetGroupID ulid.ULID, user *User, newName string) (*Project, error) {
	if source == nil {
		return nil, &ValidationError{Field: "source", Message: "cannot be nil"}
	}
	if user == nil {
		return nil, &ValidationError{Field: "user", Message: "cannot be nil"}
	}
	name := newName
	if name == "" {
		name = source.Name
	}
	fork, err := e.store.CreateProject(targetGroupID, name, source.Visibility)
	if err != nil {
		return nil, err
	}
	fork.Description = source.Description
	fork.ForkedFromID = &source.ID
	fork.ImportStatus = ImportStatusFinished
	owner, err := NewUserGrant(user.ID, AccessLevelOwner)
	if err != nil {
		return nil, err
	}
	if err := fork.AddGrant(owner); err != nil {
		return nil, err
	}
	return fork, nil
}
