// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// User is an identity that can hold grants and perform operations.
// A nil *User passed to a predicate means "unauthenticated".
type User struct {
	ID       ulid.ULID
	Username string
	Name     string
	Admin    bool
	// NamespaceID is the user's personal namespace group. Set by the
	// store when the user is added; zero for a detached User value.
	NamespaceID ulid.ULID
	CreatedAt   time.Time
}

// NewUser creates a new User with a generated ID.
// The user is validated before being returned.
func NewUser(username, name string, admin bool) (*User, error) {
	return NewUserWithID(NewID(), username, name, admin)
}

// NewUserWithID creates a new User with the provided ID.
// The user is validated before being returned.
func NewUserWithID(id ulid.ULID, username, name string, admin bool) (*User, error) {
	u := &User{
		ID:        id,
		Username:  username,
		Name:      name,
		Admin:     admin,
		CreatedAt: time.Now(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks that the user has required fields.
func (u *User) Validate() error {
	if u.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "cannot be zero"}
	}
	if err := ValidateUsername(u.Username); err != nil {
		return err
	}
	return ValidateName(u.Name)
}
