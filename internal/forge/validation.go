// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation limits for domain types.
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 2000
	MaxBranchNameLength  = 255

	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateName checks that a group or project name is valid.
// Names must be non-empty, valid UTF-8, no control characters, within
// length limit, and contain at least one character that survives
// slugification (so the derived path is never empty).
func ValidateName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}
	if !utf8.ValidString(name) {
		return &ValidationError{Field: "name", Message: "must be valid UTF-8"}
	}
	if len(name) > MaxNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("exceeds maximum length of %d", MaxNameLength)}
	}
	if hasControlChars(name) {
		return &ValidationError{Field: "name", Message: "cannot contain control characters"}
	}
	if Slugify(name) == "" {
		return &ValidationError{Field: "name", Message: "must contain at least one alphanumeric character"}
	}
	return nil
}

// ValidateTitle checks that an issue, milestone, or merge request
// title is valid. Titles must be non-empty, valid UTF-8, no control
// characters, and within length limit; unlike names they need not
// produce a slug.
func ValidateTitle(title string) error {
	if title == "" {
		return &ValidationError{Field: "title", Message: "cannot be empty"}
	}
	if !utf8.ValidString(title) {
		return &ValidationError{Field: "title", Message: "must be valid UTF-8"}
	}
	if len(title) > MaxNameLength {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("exceeds maximum length of %d", MaxNameLength)}
	}
	if hasControlChars(title) {
		return &ValidationError{Field: "title", Message: "cannot contain control characters"}
	}
	return nil
}

// usernameRegex matches a lowercase letter followed by lowercase
// letters, digits, hyphens, and underscores.
var usernameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// ValidateUsername checks that a username is valid.
// Usernames are 3-30 characters, start with a lowercase letter, and
// contain only lowercase letters, digits, hyphens, and underscores.
func ValidateUsername(username string) error {
	if username == "" {
		return &ValidationError{Field: "username", Message: "cannot be empty"}
	}
	if len(username) < MinUsernameLength {
		return &ValidationError{Field: "username", Message: fmt.Sprintf("must be at least %d characters", MinUsernameLength)}
	}
	if len(username) > MaxUsernameLength {
		return &ValidationError{Field: "username", Message: fmt.Sprintf("must be at most %d characters", MaxUsernameLength)}
	}
	if !usernameRegex.MatchString(username) {
		return &ValidationError{Field: "username", Message: "must start with a lowercase letter and contain only lowercase letters, digits, hyphens, and underscores"}
	}
	return nil
}

// ValidateDescription checks that a description is valid.
// Descriptions may be empty, must be valid UTF-8, no control characters
// (except newline/tab), and within length limit.
func ValidateDescription(desc string) error {
	if desc == "" {
		return nil
	}
	if !utf8.ValidString(desc) {
		return &ValidationError{Field: "description", Message: "must be valid UTF-8"}
	}
	if len(desc) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("exceeds maximum length of %d", MaxDescriptionLength)}
	}
	if hasControlCharsExceptWhitespace(desc) {
		return &ValidationError{Field: "description", Message: "cannot contain control characters (except newline/tab)"}
	}
	return nil
}

// ValidateBranchName checks that a branch name is acceptable as a git
// ref component: non-empty, no whitespace or control characters, none
// of the ref-forbidden characters, no "..", and no leading or trailing
// slash or dot.
func ValidateBranchName(name string) error {
	if name == "" {
		return &ValidationError{Field: "branch", Message: "cannot be empty"}
	}
	if len(name) > MaxBranchNameLength {
		return &ValidationError{Field: "branch", Message: fmt.Sprintf("exceeds maximum length of %d", MaxBranchNameLength)}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{Field: "branch", Message: `cannot contain ".."`}
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") ||
		strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return &ValidationError{Field: "branch", Message: "cannot start or end with a slash or dot"}
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return &ValidationError{Field: "branch", Message: "cannot contain whitespace or control characters"}
		}
		if strings.ContainsRune(`~^:?*[\`, r) {
			return &ValidationError{Field: "branch", Message: fmt.Sprintf("cannot contain %q", r)}
		}
	}
	return nil
}

// hasControlChars returns true if the string contains control characters.
func hasControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// hasControlCharsExceptWhitespace returns true if the string contains
// control characters other than newline, carriage return, and tab.
func hasControlCharsExceptWhitespace(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return true
		}
	}
	return false
}
