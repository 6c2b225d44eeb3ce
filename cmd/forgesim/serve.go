// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgesim/forgesim/internal/access"
	"github.com/forgesim/forgesim/internal/api"
	"github.com/forgesim/forgesim/internal/config"
	"github.com/forgesim/forgesim/internal/fixture"
	"github.com/forgesim/forgesim/internal/forge"
	"github.com/forgesim/forgesim/internal/identity"
	"github.com/forgesim/forgesim/internal/logging"
	"github.com/forgesim/forgesim/internal/observability"
	"github.com/forgesim/forgesim/internal/repo"
	"github.com/forgesim/forgesim/internal/xdg"
	"github.com/forgesim/forgesim/pkg/errutil"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the API server which loads the world fixture and serves the
GitLab-compatible REST endpoints over it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	cmd.Flags().String("listen-addr", defaults.ListenAddr, "API listen address")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("base-url", defaults.BaseURL, "external base URL projects derive their links from")
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().String("fixture", "", "world fixture to load (default: XDG_DATA_HOME/forgesim/world.yaml when present)")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	// Set up default factories
	if deps.FixtureReader == nil {
		deps.FixtureReader = os.ReadFile
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(cfg api.Config) (APIServer, error) {
			return api.NewServer(cfg)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	configPath, err := resolveConfigFile()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("forgesim", version, cfg.LogFormat)

	slog.Info("starting forgesim",
		"listen_addr", cfg.ListenAddr,
		"log_format", cfg.LogFormat,
	)

	world, fixturePath, err := loadWorld(cfg.Fixture, deps.FixtureReader)
	if err != nil {
		return err
	}
	store := world.Store
	if fixturePath != "" {
		slog.Info("world fixture loaded",
			"path", fixturePath,
			"users", len(store.Users()),
			"groups", len(store.Groups()),
			"projects", len(store.Projects()),
		)
	} else {
		slog.Info("starting with empty world")
	}

	gate := access.NewGate(access.NewResolver(store))
	service := forge.NewService(forge.ServiceConfig{Store: store, Gate: gate})
	observability.SetWorldSize(len(store.Users()), len(store.Groups()), len(store.Projects()))

	apiServer, err := deps.APIServerFactory(api.Config{
		Addr:     cfg.ListenAddr,
		BaseURL:  cfg.BaseURL,
		Store:    store,
		Service:  service,
		Gate:     gate,
		Registry: world.Registry,
	})
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiErrChan, err := apiServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start api server: %w", err)
	}
	// Monitor API server errors in background - cancel context on error
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Start observability server if configured
	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, apiServer.Running)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := apiServer.Stop(shutdownCtx); stopErr != nil {
				slog.Warn("failed to stop api server during cleanup", "error", stopErr)
			}
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("ForgeSim started")
	slog.Info("forgesim ready",
		"api_addr", apiServer.Addr(),
		"base_url", cfg.BaseURL,
	)

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	if err := apiServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping api server", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// loadWorld builds the world from the configured fixture. An empty
// path falls back to the default location when a file exists there,
// otherwise the world starts empty.
func loadWorld(fixturePath string, read func(string) ([]byte, error)) (*fixture.World, string, error) {
	if fixturePath == "" {
		defaultPath, err := xdg.DefaultFixturePath()
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve fixture path: %w", err)
		}
		if !fileExists(defaultPath) {
			store := forge.NewStore(repo.Factory)
			registry := identity.NewRegistry(store, identity.NewArgon2idHasher())
			return &fixture.World{Store: store, Registry: registry}, "", nil
		}
		fixturePath = defaultPath
	}

	data, err := read(fixturePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read fixture %s: %w", fixturePath, err)
	}
	world, err := fixture.Load(data, repo.Factory)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load fixture %s: %w", fixturePath, err)
	}
	return world, fixturePath, nil
}

// fileExists returns true if the file exists, false otherwise.
// Permission errors are treated as "file exists" to avoid silently
// ignoring files we can't read.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// This ensures that server failures trigger graceful shutdown of the entire process.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			errutil.LogError(slog.With("server", serverName), "server error, triggering shutdown", err)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
