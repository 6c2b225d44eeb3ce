// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import "github.com/samber/oops"

// AccessLevel is an ordered authorization rank. Higher values grant
// strictly more than lower ones, so levels compare with plain integer
// comparison.
type AccessLevel int

// Access levels, lowest to highest. The numeric values are part of the
// wire format and must not change.
const (
	AccessLevelGuest      AccessLevel = 10
	AccessLevelReporter   AccessLevel = 20
	AccessLevelDeveloper  AccessLevel = 30
	AccessLevelMaintainer AccessLevel = 40
	AccessLevelOwner      AccessLevel = 50
)

// String returns the lowercase name of the level, or "unknown" for
// values outside the defined set.
func (l AccessLevel) String() string {
	switch l {
	case AccessLevelGuest:
		return "guest"
	case AccessLevelReporter:
		return "reporter"
	case AccessLevelDeveloper:
		return "developer"
	case AccessLevelMaintainer:
		return "maintainer"
	case AccessLevelOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// Valid reports whether the level is one of the defined ranks.
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessLevelGuest, AccessLevelReporter, AccessLevelDeveloper,
		AccessLevelMaintainer, AccessLevelOwner:
		return true
	default:
		return false
	}
}

// AtLeast reports whether the level meets or exceeds min.
func (l AccessLevel) AtLeast(min AccessLevel) bool {
	return l >= min
}

// ParseAccessLevel converts a level name ("guest", "reporter",
// "developer", "maintainer", "owner") to its AccessLevel.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch s {
	case "guest":
		return AccessLevelGuest, nil
	case "reporter":
		return AccessLevelReporter, nil
	case "developer":
		return AccessLevelDeveloper, nil
	case "maintainer":
		return AccessLevelMaintainer, nil
	case "owner":
		return AccessLevelOwner, nil
	default:
		return 0, oops.Code("FORGE_INVALID_LEVEL").
			With("level", s).
			Errorf("unknown access level %q", s)
	}
}
