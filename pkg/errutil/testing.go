// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err carries the given oops code.
func AssertErrorCode(t *testing.T, err error, want string) {
	t.Helper()
	require.Error(t, err)
	got := Code(err)
	require.NotEmptyf(t, got, "error carries no code: %v", err)
	assert.Equal(t, want, got)
}

// AssertErrorContext asserts that err carries the given context entry.
func AssertErrorContext(t *testing.T, err error, key string, want any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "error %T carries no context: %v", err, err)
	got, present := oopsErr.Context()[key]
	require.Truef(t, present, "error context lacks %q, has %v", key, oopsErr.Context())
	assert.Equal(t, want, got)
}
