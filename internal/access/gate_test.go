// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgesim/forgesim/internal/access"
	"github.com/forgesim/forgesim/internal/forge"
	"github.com/forgesim/forgesim/pkg/errutil"
)

// gateFixture holds a store with one group and one project per
// visibility, plus users covering every membership shape.
type gateFixture struct {
	store *forge.Store
	gate  *access.Gate

	group    *forge.Group
	private  *forge.Project
	internal *forge.Project
	public   *forge.Project

	admin      *forge.User
	outsider   *forge.User
	guest      *forge.User
	reporter   *forge.User
	developer  *forge.User
	maintainer *forge.User
	owner      *forge.User
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	f := &gateFixture{store: forge.NewStore(nil)}

	var err error
	f.group, err = f.store.CreateGroup("Engineering", nil)
	require.NoError(t, err)
	f.private, err = f.store.CreateProject(f.group.ID, "Private App", forge.VisibilityPrivate)
	require.NoError(t, err)
	f.internal, err = f.store.CreateProject(f.group.ID, "Internal App", forge.VisibilityInternal)
	require.NoError(t, err)
	f.public, err = f.store.CreateProject(f.group.ID, "Public App", forge.VisibilityPublic)
	require.NoError(t, err)

	f.admin, err = f.store.AddUser("root", "Administrator", true)
	require.NoError(t, err)
	f.outsider, err = f.store.AddUser("oscar", "Oscar", false)
	require.NoError(t, err)

	members := []struct {
		user  **forge.User
		name  string
		level forge.AccessLevel
	}{
		{&f.guest, "gil", forge.AccessLevelGuest},
		{&f.reporter, "rex", forge.AccessLevelReporter},
		{&f.developer, "dana", forge.AccessLevelDeveloper},
		{&f.maintainer, "mara", forge.AccessLevelMaintainer},
		{&f.owner, "omar", forge.AccessLevelOwner},
	}
	for _, m := range members {
		u, err := f.store.AddUser(m.name, m.name, false)
		require.NoError(t, err)
		grantUser(t, f.group, u.ID, m.level)
		*m.user = u
	}

	f.gate = access.NewGate(access.NewResolver(f.store))
	return f
}

func TestCanView(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name    string
		user    *forge.User
		project *forge.Project
		want    bool
	}{
		{"nil user on private", nil, f.private, false},
		{"nil user on internal", nil, f.internal, false},
		{"nil user on public", nil, f.public, true},
		{"outsider on private", f.outsider, f.private, false},
		{"outsider on internal", f.outsider, f.internal, true},
		{"outsider on public", f.outsider, f.public, true},
		{"guest member on private", f.guest, f.private, true},
		{"admin on private", f.admin, f.private, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.gate.CanView(tt.user, tt.project)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanEdit(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name string
		user *forge.User
		want bool
	}{
		{"nil user", nil, false},
		{"outsider", f.outsider, false},
		{"developer", f.developer, false},
		{"maintainer", f.maintainer, true},
		{"owner", f.owner, true},
		{"admin without grants", f.admin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.gate.CanEdit(tt.user, f.private)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanContribute(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name string
		user *forge.User
		want bool
	}{
		{"nil user", nil, false},
		{"reporter", f.reporter, false},
		{"developer", f.developer, true},
		{"maintainer", f.maintainer, true},
		{"admin without grants", f.admin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.gate.CanContribute(tt.user, f.private)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanDelete(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name string
		user *forge.User
		want bool
	}{
		{"nil user", nil, false},
		{"outsider", f.outsider, false},
		{"maintainer", f.maintainer, false},
		{"owner", f.owner, true},
		{"admin without grants", f.admin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.gate.CanDelete(tt.user, f.private)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsOwner(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name string
		user *forge.User
		want bool
	}{
		{"nil user", nil, false},
		{"maintainer", f.maintainer, false},
		{"owner", f.owner, true},
		{"admin carries no bypass here", f.admin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.gate.IsOwner(tt.user, f.private)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsMember(t *testing.T) {
	f := newGateFixture(t)

	tests := []struct {
		name string
		user *forge.User
		want bool
	}{
		{"nil user", nil, false},
		{"outsider", f.outsider, false},
		{"guest", f.guest, true},
		{"owner", f.owner, true},
		{"admin carries no bypass here", f.admin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.gate.IsMember(tt.user, f.private)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaintainerPredicateProfile(t *testing.T) {
	f := newGateFixture(t)

	edit, err := f.gate.CanEdit(f.maintainer, f.private)
	require.NoError(t, err)
	assert.True(t, edit)

	del, err := f.gate.CanDelete(f.maintainer, f.private)
	require.NoError(t, err)
	assert.False(t, del)

	owner, err := f.gate.IsOwner(f.maintainer, f.private)
	require.NoError(t, err)
	assert.False(t, owner)
}

func TestMeetsLevel(t *testing.T) {
	f := newGateFixture(t)

	t.Run("nil user never meets", func(t *testing.T) {
		ok, err := f.gate.MeetsLevel(nil, f.private, forge.AccessLevelGuest)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("admin always meets", func(t *testing.T) {
		ok, err := f.gate.MeetsLevel(f.admin, f.private, forge.AccessLevelOwner)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("exact level meets", func(t *testing.T) {
		ok, err := f.gate.MeetsLevel(f.developer, f.private, forge.AccessLevelDeveloper)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("below the bar does not", func(t *testing.T) {
		ok, err := f.gate.MeetsLevel(f.developer, f.private, forge.AccessLevelMaintainer)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("works on groups too", func(t *testing.T) {
		ok, err := f.gate.MeetsLevel(f.owner, f.group, forge.AccessLevelMaintainer)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestEffectiveLevel(t *testing.T) {
	f := newGateFixture(t)

	t.Run("nil user holds nothing", func(t *testing.T) {
		_, ok, err := f.gate.EffectiveLevel(nil, f.private)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("member level comes from resolution", func(t *testing.T) {
		level, ok, err := f.gate.EffectiveLevel(f.reporter, f.private)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, forge.AccessLevelReporter, level)
	})

	t.Run("admin flag confers no level", func(t *testing.T) {
		_, ok, err := f.gate.EffectiveLevel(f.admin, f.private)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGatePropagatesResolverErrors(t *testing.T) {
	store := forge.NewStore(nil)
	group, err := store.CreateGroup("Engineering", nil)
	require.NoError(t, err)
	project, err := store.CreateProject(group.ID, "App", forge.VisibilityPrivate)
	require.NoError(t, err)
	grantGroup(t, group, forge.NewID())

	user, err := store.AddUser("uma", "Uma", false)
	require.NoError(t, err)

	gate := access.NewGate(access.NewResolver(store))

	_, err = gate.CanView(user, project)
	errutil.AssertErrorCode(t, err, "ACCESS_GROUP_NOT_FOUND")

	_, err = gate.CanDelete(user, project)
	errutil.AssertErrorCode(t, err, "ACCESS_GROUP_NOT_FOUND")
}
