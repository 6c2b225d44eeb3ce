// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package forge

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

// Runner is a CI executor registered against a project. Shared runners
// are visible to pipeline simulation across projects; locked runners
// cannot be enabled elsewhere.
type Runner struct {
	ID          ulid.ULID
	Name        string
	Description string
	Active      bool
	Locked      bool
	Shared      bool
	CreatedAt   time.Time
}

// RegisterRunner registers a CI executor on the project.
func (p *Project) RegisterRunner(name, description string, active, locked, shared bool) (*Runner, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateDescription(description); err != nil {
		return nil, err
	}
	r := &Runner{
		ID:          NewID(),
		Name:        name,
		Description: description,
		Active:      active,
		Locked:      locked,
		Shared:      shared,
		CreatedAt:   time.Now(),
	}
	p.runners = append(p.runners, r)
	return r, nil
}

// Runners returns the project's runners in registration order.
// The returned slice is a copy.
func (p *Project) Runners() []*Runner {
	return slices.Clone(p.runners)
}
