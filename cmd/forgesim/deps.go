package main

import (
	"context"

	"github.com/forgesim/forgesim/internal/api"
	"github.com/forgesim/forgesim/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// FixtureReader reads the world fixture file.
	// Default: os.ReadFile
	FixtureReader func(path string) ([]byte, error)

	// APIServerFactory creates the API server.
	// Default: api.NewServer
	APIServerFactory func(cfg api.Config) (APIServer, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// APIServer interface wraps the methods used from api.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Running() bool
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
