// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgesim/forgesim/internal/fixture"
	"github.com/forgesim/forgesim/internal/repo"
	"github.com/forgesim/forgesim/internal/xdg"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate world fixture files without starting the server",
		Long: `Validates world fixture files against the schema and builds each one,
so dangling references and duplicate paths are caught too. Without
arguments the default fixture location is checked.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch fixture errors early:
  forgesim validate world.yaml`,
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}
}

func runValidate(paths []string) error {
	if len(paths) == 0 {
		defaultPath, err := xdg.DefaultFixturePath()
		if err != nil {
			return fmt.Errorf("failed to resolve fixture path: %w", err)
		}
		if !fileExists(defaultPath) {
			return fmt.Errorf("no fixture files given and none at %s", defaultPath)
		}
		paths = []string{defaultPath}
	}

	var errors []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errors = append(errors, fmt.Sprintf("  %s: %v", path, err))
			continue
		}
		if _, err := fixture.Load(data, repo.Factory); err != nil {
			errors = append(errors, fmt.Sprintf("  %s: %v", path, err))
		}
	}

	if len(errors) > 0 {
		for _, e := range errors {
			slog.Error("fixture validation failed", "detail", e)
		}
		return fmt.Errorf("validation failed: %d of %d fixture files invalid", len(errors), len(paths))
	}

	slog.Info("all fixture files valid", "count", len(paths))
	return nil
}
