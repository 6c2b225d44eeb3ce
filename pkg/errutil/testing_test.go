// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/forgesim/forgesim/pkg/errutil"
)

func TestAssertErrorCode(t *testing.T) {
	err := oops.Code("IDENTITY_WEAK_PASSWORD").Errorf("too short")
	errutil.AssertErrorCode(t, err, "IDENTITY_WEAK_PASSWORD")
}

func TestAssertErrorCode_WrappedError(t *testing.T) {
	inner := oops.Code("REPO_UNBORN_BRANCH").Errorf("branch has no commits")
	errutil.AssertErrorCode(t, oops.Wrapf(inner, "seed repository"), "REPO_UNBORN_BRANCH")
}

func TestAssertErrorContext(t *testing.T) {
	err := oops.With("path", "acme/widget").Errorf("path taken")
	errutil.AssertErrorContext(t, err, "path", "acme/widget")
}
