// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"slices"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// ProtectedBranch is a branch-name pattern with a minimum access level
// required to push to matching branches. Patterns use glob syntax with
// '/' as the separator, so "release/*" matches "release/1.0" but not
// "release/1.0/hotfix".
type ProtectedBranch struct {
	Pattern       string
	RequiredLevel AccessLevel

	matcher glob.Glob
}

// Matches reports whether the branch name falls under this rule.
func (b *ProtectedBranch) Matches(branch string) bool {
	return b.matcher.Match(branch)
}

// ProtectBranch adds a protection rule to the project. The pattern is
// compiled once here; an invalid pattern is rejected up front.
func (p *Project) ProtectBranch(pattern string, requiredLevel AccessLevel) (*ProtectedBranch, error) {
	if pattern == "" {
		return nil, &ValidationError{Field: "pattern", Message: "cannot be empty"}
	}
	if !requiredLevel.Valid() {
		return nil, &ValidationError{Field: "required_level", Message: "invalid access level"}
	}
	for _, existing := range p.protected {
		if existing.Pattern == pattern {
			return nil, oops.Code("FORGE_PROTECTION_EXISTS").
				With("pattern", pattern).
				Errorf("branch protection %q already exists", pattern)
		}
	}
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, oops.Code("FORGE_INVALID_PATTERN").
			With("pattern", pattern).
			Wrapf(err, "invalid branch protection pattern %q", pattern)
	}
	rule := &ProtectedBranch{Pattern: pattern, RequiredLevel: requiredLevel, matcher: matcher}
	p.protected = append(p.protected, rule)
	return rule, nil
}

// UnprotectBranch removes the protection rule with the given pattern.
func (p *Project) UnprotectBranch(pattern string) error {
	for i, rule := range p.protected {
		if rule.Pattern == pattern {
			p.protected = slices.Delete(p.protected, i, i+1)
			return nil
		}
	}
	return oops.Code("FORGE_PROTECTION_NOT_FOUND").
		With("pattern", pattern).
		Errorf("no branch protection %q", pattern)
}

// ProtectedBranches returns the project's protection rules in creation
// order. The returned slice is a copy.
func (p *Project) ProtectedBranches() []*ProtectedBranch {
	return slices.Clone(p.protected)
}

// ProtectionFor returns the highest required level among rules matching
// the branch, and whether any rule matched.
func (p *Project) ProtectionFor(branch string) (AccessLevel, bool) {
	var level AccessLevel
	matched := false
	for _, rule := range p.protected {
		if !rule.Matches(branch) {
			continue
		}
		if !matched || rule.RequiredLevel > level {
			level = rule.RequiredLevel
		}
		matched = true
	}
	return level, matched
}
