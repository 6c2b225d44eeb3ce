// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// GrantTargetKind identifies what a grant points at.
type GrantTargetKind string

// Grant target kinds.
const (
	GrantTargetUser  GrantTargetKind = "user"
	GrantTargetGroup GrantTargetKind = "group"
)

// GrantTarget names the user or group a grant applies to. The ID is
// interpreted according to Kind, so a grant always has exactly one
// target.
type GrantTarget struct {
	Kind GrantTargetKind
	ID   ulid.ULID
}

// UserTarget returns a target naming a user.
func UserTarget(id ulid.ULID) GrantTarget {
	return GrantTarget{Kind: GrantTargetUser, ID: id}
}

// GroupTarget returns a target naming a group.
func GroupTarget(id ulid.ULID) GrantTarget {
	return GrantTarget{Kind: GrantTargetGroup, ID: id}
}

// String returns "kind:id", e.g. "user:01J....".
func (t GrantTarget) String() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.ID)
}

// Grant attaches an access level to a user or group on a hierarchy
// node. For user targets, Level is the level conferred. For group
// targets, the target group's own resolved membership is merged as-is
// and Level is not consulted.
type Grant struct {
	Target GrantTarget
	Level  AccessLevel
}

// NewUserGrant builds a grant conferring level on the given user.
func NewUserGrant(userID ulid.ULID, level AccessLevel) (Grant, error) {
	if !level.Valid() {
		return Grant{}, oops.Code("FORGE_INVALID_LEVEL").
			With("level", int(level)).
			Errorf("invalid access level %d", int(level))
	}
	return Grant{Target: UserTarget(userID), Level: level}, nil
}

// NewGroupGrant builds a grant sharing the node with the given group's
// resolved membership.
func NewGroupGrant(groupID ulid.ULID) Grant {
	return Grant{Target: GroupTarget(groupID)}
}
