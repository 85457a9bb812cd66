// Package api exposes the conversation pipeline and the saved-recipes
// collection over a JSON HTTP API, with per-session conversation histories
// kept in an in-process registry.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/saved"
	"github.com/cartsmith/cartsmith/internal/turn"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger   log.Logger
	Pipeline Processor

	// Saved is optional; nil disables the saved-recipes routes.
	Saved *saved.Service

	// Pool is optional; nil disables the database readiness check.
	Pool *pgxpool.Pool

	// HistoryWindow bounds each session's retained exchanges.
	HistoryWindow int
}

// Server is the JSON API HTTP server.
type Server struct {
	mux      *http.ServeMux
	sessions *sessionRegistry
}

// NewServer creates the API server with all routes configured. ctx controls
// the lifetime of the session-cleanup goroutine.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	sessions := newSessionRegistry(cfg.HistoryWindow, logger)
	go sessions.startCleanup(ctx)

	ch := &chatHandler{
		pipeline: cfg.Pipeline,
		sessions: sessions,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/send-message", ch.send)

	if cfg.Saved != nil {
		sh := &savedHandler{service: cfg.Saved, logger: logger}
		mux.HandleFunc("GET /api/v1/saved-recipes", sh.list)
		mux.HandleFunc("POST /api/v1/saved-recipes", sh.save)
		mux.HandleFunc("DELETE /api/v1/saved-recipes/{id}", sh.remove)
	}

	// Middleware stack, outermost first: Recovery → RequestID → Logging.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes stay outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux, sessions: sessions}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

var _ Processor = (*turn.MultiTurn)(nil)
