// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import "github.com/samber/oops"

// Visibility is the baseline view access of a project before any grants
// are considered.
type Visibility string

// Visibility values.
const (
	// VisibilityPrivate requires an explicit grant (or admin) to view.
	VisibilityPrivate Visibility = "private"
	// VisibilityInternal is viewable by any authenticated user.
	VisibilityInternal Visibility = "internal"
	// VisibilityPublic is viewable by anyone, authenticated or not.
	VisibilityPublic Visibility = "public"
)

// String returns the string representation of the visibility.
func (v Visibility) String() string {
	return string(v)
}

// Valid reports whether the visibility is one of the defined values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityInternal, VisibilityPublic:
		return true
	default:
		return false
	}
}

// ParseVisibility converts a visibility name to its Visibility value.
func ParseVisibility(s string) (Visibility, error) {
	v := Visibility(s)
	if !v.Valid() {
		return "", oops.Code("FORGE_INVALID_VISIBILITY").
			With("visibility", s).
			Errorf("unknown visibility %q", s)
	}
	return v, nil
}
