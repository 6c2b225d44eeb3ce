// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forgesim/forgesim/internal/fixture"
)

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for world fixture files",
		Long: `Prints the JSON Schema that fixture files are validated against,
so editors and CI can check world files without a running server:
  forgesim schema > fixture.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchema(cmd, out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "write the schema to a file instead of stdout")

	return cmd
}

func runSchema(cmd *cobra.Command, out string) error {
	data, err := fixture.GenerateSchema()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if out == "" || out == "-" {
		cmd.Println(string(data))
		return nil
	}

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0o600); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	cmd.Printf("wrote %s\n", out)
	return nil
}
