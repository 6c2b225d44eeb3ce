// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package forge contains the domain model: users, groups, projects, the
// grants attached to them, and the operations that mutate the hierarchy.
package forge

import "github.com/oklog/ulid/v2"

// Node is a vertex in the namespace hierarchy: a group or a project.
// Permission resolution walks nodes without caring which kind it has.
type Node interface {
	// NodeID returns the node's stable identifier.
	NodeID() ulid.ULID
	// ParentGroup returns the ID of the owning group, or false for a
	// root group with no parent.
	ParentGroup() (ulid.ULID, bool)
	// Grants returns a copy of the grants attached directly to this node.
	Grants() []Grant
}
