package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"library_backend/logging"
)

// Server is the HTTP server wiring the API handlers, routes and middleware.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     ServerConfig
	handlers   *Handlers
	logger     *logging.Logger
}

// ServerConfig configures the Server.
type ServerConfig struct {
	// Port to listen on (default: 8080)
	Port int

	// Host to bind to (default: "0.0.0.0")
	Host string

	// ReadTimeout for HTTP requests (default: 60s, uploads can be large)
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses (default: 60s)
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections (default: 120s)
	IdleTimeout time.Duration

	// ShutdownTimeout for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration

	// LogSkipPaths are paths excluded from request logging
	LogSkipPaths []string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		Host:            "0.0.0.0",
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogSkipPaths:    []string{"/health"},
	}
}

// NewServer creates a Server with the given handlers and configuration.
func NewServer(config ServerConfig, handlers *Handlers, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	mux := http.NewServeMux()
	server := &Server{
		mux:      mux,
		config:   config,
		handlers: handlers,
		logger:   logger.Named("server"),
	}
	server.setupRoutes()

	loggingMw := NewLoggingMiddleware(logger, LoggingMiddlewareConfig{
		SkipPaths: config.LogSkipPaths,
	})

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server.httpServer = &http.Server{
		Addr:         addr,
		Handler:      loggingMw.Handler(mux),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server
}

// setupRoutes configures all the HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handlers.HandleHealth)

	s.mux.HandleFunc("POST /api/summaries", s.handlers.HandleSummarize)

	s.mux.HandleFunc("POST /api/manga/{mangaID}/chapters", s.handlers.HandleIngestChapter)
	s.mux.HandleFunc("GET /api/manga/{mangaID}/chapters", s.handlers.HandleListChapters)
	s.mux.HandleFunc("DELETE /api/manga/{mangaID}/chapters/{chapterNumber}", s.handlers.HandleDeleteChapter)

	s.mux.HandleFunc("POST /api/admin/summary-cache/purge", s.handlers.HandlePurgeSummaryCache)
}

// Handler returns the root handler with middleware applied, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down.
func (s *Server) Start() error {
	s.logger.Infow("server starting", "addr", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}
	return nil
}
