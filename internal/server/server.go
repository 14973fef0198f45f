// Package server exposes dream sessions over websocket, plus health and
// metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/raphaelgruber/dreamer/internal/metrics"
	"github.com/raphaelgruber/dreamer/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Dependencies holds what every session needs. Interpreter is shared by all
// sessions; each session gets its own journal.
type Dependencies struct {
	Interpreter service.Interpreter
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// Server serves dream sessions over HTTP.
type Server struct {
	deps     Dependencies
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates a server with its routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}

	s := &Server{
		deps:   deps,
		logger: deps.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(deps.Logger))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/ws", s.handleSession)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
// Open sessions are closed when ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.deps.Metrics.Snapshot()); err != nil {
		s.logger.Warn("failed to encode stats", "error", err)
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.deps.Metrics.SessionOpened()
	defer s.deps.Metrics.SessionClosed()

	sess := newSession(conn, s.deps, s.logger.With("request_id", middleware.GetReqID(r.Context())))
	sess.run(r.Context())
}
