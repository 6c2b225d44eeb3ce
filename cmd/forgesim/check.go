// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/forgesim/forgesim/internal/access"
	"github.com/forgesim/forgesim/internal/api"
	"github.com/forgesim/forgesim/internal/fixture"
	"github.com/forgesim/forgesim/internal/forge"
	"github.com/forgesim/forgesim/internal/repo"
	"github.com/forgesim/forgesim/internal/xdg"
)

// checkConfig holds configuration for the check command.
type checkConfig struct {
	fixturePath string
	subject     string
	action      string
	jsonOutput  bool
}

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	cfg := &checkConfig{}

	cmd := &cobra.Command{
		Use:   "check PROJECT",
		Short: "Evaluate one access decision against a fixture",
		Long: `Evaluates whether a subject may perform an action on a project,
using a world fixture instead of a running server. The project is
named by ID or full path; an empty subject asks about anonymous
access.

Actions: view, edit, contribute, delete, owner, member.

The decision is printed, not encoded in the exit code; a non-zero
exit means the query itself failed:
  forgesim check --subject alice --action contribute engineering/widget`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, cfg, args[0])
		},
	}

	cmd.Flags().StringVar(&cfg.fixturePath, "fixture", "", "world fixture to evaluate against (default: XDG_DATA_HOME/forgesim/world.yaml)")
	cmd.Flags().StringVar(&cfg.subject, "subject", "", "username asking for access (empty = anonymous)")
	cmd.Flags().StringVar(&cfg.action, "action", "view", "action to evaluate")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "print the decision as JSON")

	return cmd
}

func runCheck(cmd *cobra.Command, cfg *checkConfig, projectRef string) error {
	fixturePath := cfg.fixturePath
	if fixturePath == "" {
		defaultPath, err := xdg.DefaultFixturePath()
		if err != nil {
			return fmt.Errorf("failed to resolve fixture path: %w", err)
		}
		if !fileExists(defaultPath) {
			return fmt.Errorf("no fixture file at %s, use --fixture", defaultPath)
		}
		fixturePath = defaultPath
	}

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", fixturePath, err)
	}
	world, err := fixture.Load(data, repo.Factory)
	if err != nil {
		return fmt.Errorf("failed to load fixture %s: %w", fixturePath, err)
	}
	store := world.Store
	gate := access.NewGate(access.NewResolver(store))

	var subject *forge.User
	if cfg.subject != "" {
		u, ok := store.UserByUsername(cfg.subject)
		if !ok {
			return fmt.Errorf("unknown user %q", cfg.subject)
		}
		subject = u
	}

	project, err := findProject(store, projectRef)
	if err != nil {
		return err
	}

	allowed, err := api.Decide(gate, cfg.action, subject, project)
	if err != nil {
		return fmt.Errorf("failed to evaluate %q: %w", cfg.action, err)
	}

	decision := api.DecisionPayload{
		Subject:   cfg.subject,
		Action:    cfg.action,
		ProjectID: project.ID.String(),
		Allowed:   allowed,
	}
	if level, ok, err := gate.EffectiveLevel(subject, project); err != nil {
		return fmt.Errorf("failed to resolve level: %w", err)
	} else if ok {
		decision.Level = level.String()
	}

	if cfg.jsonOutput {
		out, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode decision: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	switch {
	case !allowed:
		cmd.Println("denied")
	case decision.Level != "":
		cmd.Printf("allowed (%s)\n", decision.Level)
	default:
		cmd.Println("allowed")
	}
	return nil
}

// findProject resolves a project by ULID or full path.
func findProject(store *forge.Store, ref string) (*forge.Project, error) {
	if id, err := ulid.Parse(ref); err == nil {
		if p, ok := store.Project(id); ok {
			return p, nil
		}
		return nil, fmt.Errorf("unknown project %q", ref)
	}
	if p, ok := store.ProjectByPath(ref); ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown project %q", ref)
}
