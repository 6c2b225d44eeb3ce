package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgesim/forgesim/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the ForgeSim CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forgesim",
		Short: "ForgeSim - a forge access-control simulator",
		Long: `ForgeSim models a GitLab-style forge in memory: nested groups and
projects, memberships, forks and merge requests, served over a
compatible REST API so access-control behavior can be simulated
without a real installation.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG config dir)")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewValidateCmd())

	return cmd
}

// resolveConfigFile picks the config file to load: the --config flag
// when set, otherwise the default location if a file is there, and
// otherwise nothing.
func resolveConfigFile() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	path, err := xdg.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	if fileExists(path) {
		return path, nil
	}
	return "", nil
}
