// Package server provides the quiverkit HTTP API.
//
// The API exposes the same import and export pipeline as the CLI, plus a
// small diagram store so that diagrams too large for a share URL can be
// shared by id:
//
//	POST   /v1/import         tikz-cd source → compact diagram + diagnostics
//	POST   /v1/export         compact diagram → tikz-cd and other formats
//	POST   /v1/diagrams       save a compact diagram
//	GET    /v1/diagrams/{id}  fetch a saved diagram
//	DELETE /v1/diagrams/{id}  delete a saved diagram
//	GET    /healthz           liveness probe
//
// Errors are returned as {"error": CODE, "message": ...} with a status
// derived from the error code.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/quiverkit/pkg/pipeline"
	"github.com/matzehuels/quiverkit/pkg/store"
)

const (
	// maxBodyBytes bounds request bodies; sources are limited separately by
	// the pipeline.
	maxBodyBytes = 2 << 20

	// requestTimeout bounds the time spent on one request.
	requestTimeout = 30 * time.Second

	// shutdownTimeout bounds how long in-flight requests may finish after
	// the server is asked to stop.
	shutdownTimeout = 10 * time.Second
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Runner executes imports and exports. Required.
	Runner *pipeline.Runner

	// Store holds saved diagrams. Defaults to a MemoryStore.
	Store store.Store

	// Defaults supplies export settings that requests do not override,
	// typically taken from the config file.
	Defaults pipeline.Options

	// DiagramTTL is the lifetime of saved diagrams. Zero keeps them forever.
	DiagramTTL time.Duration

	Logger *log.Logger
}

// Server serves the HTTP API.
type Server struct {
	addr       string
	runner     *pipeline.Runner
	store      store.Store
	defaults   pipeline.Options
	diagramTTL time.Duration
	logger     *log.Logger
}

// New creates a Server from opts.
func New(opts Options) *Server {
	s := &Server{
		addr:       opts.Addr,
		runner:     opts.Runner,
		store:      opts.Store,
		defaults:   opts.Defaults,
		diagramTTL: opts.DiagramTTL,
		logger:     opts.Logger,
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	return s
}

// Handler returns the router with all routes and middleware registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/import", s.importDiagram)
		r.Post("/export", s.exportDiagram)

		r.Route("/diagrams", func(r chi.Router) {
			r.Post("/", s.createDiagram)
			r.Get("/{id}", s.getDiagram)
			r.Delete("/{id}", s.deleteDiagram)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully. Expired diagrams are removed hourly while it runs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.cleanupLoop(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// cleanupLoop removes expired diagrams every hour until ctx is done.
func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.store.Cleanup(ctx); err != nil {
				s.logger.Warn("diagram cleanup failed", "err", err)
			}
		}
	}
}

// Close releases the store and the runner's cache.
func (s *Server) Close() error {
	return errors.Join(s.store.Close(), s.runner.Close())
}
