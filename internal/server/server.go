// Package server exposes the HTTP API: creating analyses, uploading export
// files, and reading back statistics, word clouds and progress.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chatlens/chatlens/internal/config"
	"github.com/chatlens/chatlens/internal/database"
	"github.com/chatlens/chatlens/internal/logger"
	"github.com/chatlens/chatlens/internal/progress"
	"github.com/chatlens/chatlens/internal/runner"
)

// Server wires the HTTP handlers to the store, runner and progress cache.
type Server struct {
	log      *slog.Logger
	cfg      config.ServerConfig
	store    database.Store
	runner   *runner.Runner
	progress *progress.Cache
	language string
	http     *http.Server
}

func New(log *slog.Logger, cfg config.ServerConfig, store database.Store, run *runner.Runner, cache *progress.Cache, defaultLanguage string) *Server {
	s := &Server{
		log:      log.With("component", "server"),
		cfg:      cfg,
		store:    store,
		runner:   run,
		progress: cache,
		language: defaultLanguage,
	}

	router := mux.NewRouter()
	router.Use(logger.Middleware(s.log))

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/analyses", s.handleCreateAnalysis).Methods(http.MethodPost)
	api.HandleFunc("/analyses/{id}", s.handleGetAnalysis).Methods(http.MethodGet)
	api.HandleFunc("/analyses/{id}/file", s.handleUploadFile).Methods(http.MethodPost)
	api.HandleFunc("/analyses/{id}/wordcloud", s.handleGetWordcloud).Methods(http.MethodGet)
	api.HandleFunc("/analyses/{id}/progress", s.handleGetProgress).Methods(http.MethodGet)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("Shutting down HTTP server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
