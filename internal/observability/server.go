// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package observability serves the operational HTTP surface: the
// Prometheus metrics endpoint and Kubernetes-style health probes.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the service is ready to accept connections.
type ReadinessChecker func() bool

// World size gauges are package-level so the API layer can update them
// without holding a Server reference.
var (
	worldUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forgesim_users",
		Help: "Number of user accounts in the world",
	})
	worldGroups = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forgesim_groups",
		Help: "Number of groups in the world, including personal namespaces",
	})
	worldProjects = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "forgesim_projects",
		Help: "Number of projects in the world",
	})
)

// SetWorldSize records the current world size. The API layer calls
// this after every request while it still holds the store lock.
func SetWorldSize(users, groups, projects int) {
	worldUsers.Set(float64(users))
	worldGroups.Set(float64(groups))
	worldProjects.Set(float64(projects))
}

// Server exposes /metrics and /healthz endpoints on its own listener,
// kept off the API address so operational traffic never mixes with the
// emulated surface.
type Server struct {
	addr     string
	mux      *http.ServeMux
	registry *prometheus.Registry
	ready    ReadinessChecker

	listener net.Listener
	httpSrv  *http.Server
	running  atomic.Bool
}

// NewServer creates an observability server that listens on addr once
// started. A nil readiness checker reports ready.
func NewServer(addr string, ready ReadinessChecker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(worldUsers, worldGroups, worldProjects)

	s := &Server{
		addr:     addr,
		registry: registry,
		ready:    ready,
	}
	s.mux = s.routes()
	return s
}

// routes wires the operational endpoints. The metrics handler gathers
// the private registry plus the default one, where the Go runtime
// collectors and the promauto request metrics live; nothing is
// registered twice, so the union is safe.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	gatherers := prometheus.Gatherers{s.registry, prometheus.DefaultGatherer}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.liveness)
	mux.HandleFunc("/healthz/readiness", s.readiness)
	return mux
}

// Start listens and begins serving. The returned channel reports a
// serve failure after startup and is closed when the server stops
// gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpSrv = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop shuts the server down gracefully. Stopping a server that is not
// running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			// Still running as far as the caller is concerned.
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) liveness(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, "ok")
}

func (s *Server) readiness(w http.ResponseWriter, _ *http.Request) {
	if s.ready != nil && !s.ready() {
		writeProbe(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeProbe(w, http.StatusOK, "ok")
}

func writeProbe(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // probe body write failures leave nothing to do
	w.Write([]byte(body + "\n"))
}
