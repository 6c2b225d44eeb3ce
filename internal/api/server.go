// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Package api emulates the platform REST surface over the in-memory
// hierarchy: project lookup, forking, merge requests, membership
// queries, runner registration, and an authorization decision endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/forgesim/forgesim/internal/access"
	"github.com/forgesim/forgesim/internal/forge"
	"github.com/forgesim/forgesim/internal/identity"
	"github.com/forgesim/forgesim/internal/observability"
	"github.com/forgesim/forgesim/pkg/errutil"
)

var tracer = otel.Tracer("forgesim/api")

// Config holds dependencies for the API server.
type Config struct {
	// Addr is the listen address in "host:port" format.
	Addr string
	// BaseURL is the external URL reported in project payloads.
	BaseURL string

	Store   *forge.Store
	Service *forge.Service
	Gate    *access.Gate
	// Registry authenticates PRIVATE-TOKEN headers. Nil disables token
	// authentication; every request is then anonymous.
	Registry *identity.Registry
}

// Server serves the emulated REST endpoints. The store and everything
// above it are single-threaded, so the server funnels every request
// through one mutex; handlers never touch the store concurrently.
type Server struct {
	addr       string
	base       *url.URL
	store      *forge.Store
	service    *forge.Service
	gate       *access.Gate
	registry   *identity.Registry
	mux        *http.ServeMux
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool

	mu sync.Mutex
}

// NewServer creates an API server from the configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil || cfg.Service == nil || cfg.Gate == nil {
		return nil, oops.Errorf("api server requires store, service, and gate")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, oops.Code("API_INVALID_BASE_URL").
			With("base_url", cfg.BaseURL).
			Wrapf(err, "parse base URL")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, oops.Code("API_INVALID_BASE_URL").
			With("base_url", cfg.BaseURL).
			Errorf("base URL must include scheme and host")
	}

	s := &Server{
		addr:     cfg.Addr,
		base:     base,
		store:    cfg.Store,
		service:  cfg.Service,
		gate:     cfg.Gate,
		registry: cfg.Registry,
	}
	s.mux = s.routes()
	return s, nil
}

// routes wires the endpoint table.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v4/projects/{id}", s.endpoint("project.get", s.getProject))
	mux.HandleFunc("POST /api/v4/projects/{id}/fork", s.endpoint("project.fork", s.forkProject))
	mux.HandleFunc("POST /api/v4/projects/{id}/merge_requests", s.endpoint("merge_request.open", s.openMergeRequest))
	mux.HandleFunc("GET /api/v4/projects/{id}/members/all/{user_id}", s.endpoint("member.get", s.getMember))
	mux.HandleFunc("POST /api/v4/projects/{id}/runners", s.endpoint("runner.register", s.registerRunner))
	mux.HandleFunc("GET /api/v4/authorize", s.endpoint("authorize", s.authorize))
	return mux
}

// Handler returns the route table for serving. Exposed so tests can
// drive the server without a listener.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Running reports whether the server is accepting connections. Wired
// into the observability readiness probe.
func (s *Server) Running() bool {
	return s.running.Load()
}

// Start begins serving API endpoints.
// It returns an error channel that will receive any errors from the
// HTTP server after it starts. The channel is closed when the server
// stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
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
	s.httpServer = httpSrv

	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	slog.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on.
// Returns empty string if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// endpointFunc handles one authenticated request. The acting user is
// nil for anonymous requests. A returned error is mapped to the wire
// by the endpoint wrapper.
type endpointFunc func(w http.ResponseWriter, r *http.Request, actor *forge.User) error

// endpoint wraps a handler with the shared request machinery: tracing,
// the store mutex, token authentication, error mapping, metrics, and
// outcome logging.
func (s *Server) endpoint(name string, fn endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := tracer.Start(r.Context(), "api."+name,
			trace.WithAttributes(
				attribute.String("endpoint", name),
				attribute.String("http.method", r.Method),
			),
		)
		defer span.End()
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		err := s.serve(rec, r, fn)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			writeError(rec, err)
		}
		span.SetAttributes(attribute.Int("http.status_code", rec.status))

		duration := time.Since(start)
		recordRequest(name, r.Method, rec.status, duration)
		if err != nil {
			attrs := append([]any{
				"endpoint", name,
				"method", r.Method,
				"status", rec.status,
			}, errutil.Attrs(err)...)
			slog.WarnContext(ctx, "api request failed", attrs...)
			return
		}
		slog.InfoContext(ctx, "api request",
			"endpoint", name,
			"method", r.Method,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// serve runs one request under the store mutex.
func (s *Server) serve(w http.ResponseWriter, r *http.Request, fn endpointFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, err := s.authenticate(r)
	if err != nil {
		return err
	}
	if err := fn(w, r, actor); err != nil {
		return err
	}
	observability.SetWorldSize(len(s.store.Users()), len(s.store.Groups()), len(s.store.Projects()))
	return nil
}

// authenticate resolves the acting user from the PRIVATE-TOKEN header.
// A missing header means an anonymous request; a header that does not
// resolve to a user fails the request.
func (s *Server) authenticate(r *http.Request) (*forge.User, error) {
	token := r.Header.Get("PRIVATE-TOKEN")
	if token == "" {
		return nil, nil
	}
	if s.registry == nil {
		return nil, oops.Code("API_UNAUTHORIZED").Errorf("token authentication is not configured")
	}
	user, err := s.registry.UserForToken(token)
	if err != nil {
		return nil, oops.Wrapf(err, "authenticate request")
	}
	return user, nil
}

// statusRecorder captures the response status for metrics and logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// errorResponse is the wire shape of an error.
type errorResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return oops.Wrapf(err, "encode response")
	}
	return nil
}

// writeError maps an error to its HTTP status and message.
func writeError(w http.ResponseWriter, err error) {
	status, message := httpError(err)
	//nolint:errcheck // nothing left to do if the error response fails
	writeJSON(w, status, errorResponse{Message: message})
}

// httpError translates domain errors into wire status lines. A project
// the actor cannot view produces the same answer as a missing one, so
// both spellings of not-found map identically.
func httpError(err error) (int, string) {
	var verr *forge.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, "400 Bad Request - " + verr.Error()
	}
	if errors.Is(err, forge.ErrPermissionDenied) {
		return http.StatusForbidden, "403 Forbidden"
	}
	switch errutil.Code(err) {
	case "API_UNAUTHORIZED", "IDENTITY_TOKEN_UNKNOWN", "IDENTITY_TOKEN_EMPTY":
		return http.StatusUnauthorized, "401 Unauthorized"
	case "API_BAD_REQUEST":
		return http.StatusBadRequest, "400 Bad Request"
	case "API_PROJECT_NOT_FOUND", "FORGE_PROJECT_NOT_FOUND":
		return http.StatusNotFound, "404 Project Not Found"
	case "API_GROUP_NOT_FOUND", "FORGE_GROUP_NOT_FOUND":
		return http.StatusNotFound, "404 Group Not Found"
	case "API_USER_NOT_FOUND", "FORGE_USER_NOT_FOUND":
		return http.StatusNotFound, "404 User Not Found"
	case "FORGE_MEMBER_NOT_FOUND":
		return http.StatusNotFound, "404 Member Not Found"
	case "FORGE_NODE_NOT_FOUND":
		return http.StatusNotFound, "404 Not Found"
	case "FORGE_PATH_TAKEN":
		return http.StatusConflict, "409 Conflict - path has already been taken"
	case "FORGE_BRANCH_NOT_FOUND":
		return http.StatusBadRequest, "400 Bad Request - branch not found"
	case "FORGE_NO_REPOSITORY":
		return http.StatusBadRequest, "400 Bad Request - project has no repository"
	case "REPO_BRANCH_EXISTS", "REPO_BRANCH_NOT_FOUND", "REPO_UNBORN_BRANCH", "REPO_EMPTY_MESSAGE",
		"FORGE_INVALID_LEVEL", "FORGE_INVALID_VISIBILITY", "FORGE_INVALID_PATTERN":
		return http.StatusBadRequest, "400 Bad Request"
	default:
		return http.StatusInternalServerError, "500 Internal Server Error"
	}
}
