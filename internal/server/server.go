// Package server exposes the recorder over HTTP. Every route is a thin
// pass-through: the core never yields a 5xx, so responses are always
// well-formed JSON even when the underlying reading is degraded.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"set-index-snapshots/internal/recorder"
	"set-index-snapshots/internal/snapshot"
)

// RecorderAPI is the slice of the recorder the serving layer consumes.
type RecorderAPI interface {
	Record(ctx context.Context) recorder.Result
	Live(ctx context.Context) recorder.LiveSnapshot
	Daily(ctx context.Context) snapshot.Daily
	History(ctx context.Context) snapshot.History
}

// Options tune the HTTP server.
type Options struct {
	Port            int
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server wraps the router and lifecycle.
type Server struct {
	opts     Options
	recorder RecorderAPI
	logger   zerolog.Logger
}

// New constructs the server.
func New(opts Options, rec RecorderAPI, logger zerolog.Logger) *Server {
	return &Server{
		opts:     opts,
		recorder: rec,
		logger:   logger.With().Str("component", "server").Logger(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleLive)
	r.Get("/live", s.handleLive)
	r.Get("/daily", s.handleDaily)
	r.Get("/history", s.handleHistory)
	r.Post("/record", s.handleRecord)
	r.Get("/healthz", s.handleHealth)

	return r
}

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.opts.Port),
		Handler:     s.Handler(),
		ReadTimeout: s.opts.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info().Int("port", s.opts.Port).Msg("http server listening")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info().Msg("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.recorder.Live(r.Context()))
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.recorder.Daily(r.Context()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.recorder.History(r.Context()))
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.recorder.Record(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
