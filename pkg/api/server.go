package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host           string        // host to bind to (default "localhost")
	Port           int           // port to listen on (default 8080)
	ReadTimeout    time.Duration // read timeout (default 30s)
	WriteTimeout   time.Duration // write timeout (default 30s)
	IdleTimeout    time.Duration // idle timeout (default 60s)
	MaxFastWorkers int           // max concurrent game operations (default 100)
	MaxSlowWorkers int           // max concurrent rollouts (default 4)
	SessionMaxAge  time.Duration // idle session lifetime (default 24h)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxFastWorkers: 100,
		MaxSlowWorkers: 4,
		SessionMaxAge:  24 * time.Hour,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	engine   *engine.Engine
	registry *Registry
	handlers *Handlers
	server   *http.Server
	pool     *WorkerPool
	log      zerolog.Logger
	version  string

	pruneStop chan struct{}
}

// NewServer creates an API server. store may be nil to disable game
// archiving.
func NewServer(e *engine.Engine, config ServerConfig, version string, store Archiver, log zerolog.Logger) *Server {
	poolConfig := PoolConfig{
		MaxFastWorkers: config.MaxFastWorkers,
		MaxSlowWorkers: config.MaxSlowWorkers,
	}
	pool := NewWorkerPool(poolConfig)
	registry := NewRegistry()
	handlers := NewHandlers(e, registry, version, pool, store, log)

	return &Server{
		config:    config,
		engine:    e,
		registry:  registry,
		handlers:  handlers,
		pool:      pool,
		log:       log,
		version:   version,
		pruneStop: make(chan struct{}),
	}
}

// Pool returns the worker pool for monitoring.
func (s *Server) Pool() *WorkerPool {
	return s.pool
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handlers.Health)

	// Game sessions
	mux.HandleFunc("POST /api/games", s.handlers.CreateGame)
	mux.HandleFunc("GET /api/games/{id}", s.handlers.GetGame)
	mux.HandleFunc("POST /api/games/{id}/roll", s.handlers.Roll)
	mux.HandleFunc("GET /api/games/{id}/moves", s.handlers.Moves)
	mux.HandleFunc("POST /api/games/{id}/move", s.handlers.Move)
	mux.HandleFunc("POST /api/games/{id}/ai-move", s.handlers.AIMove)
	mux.HandleFunc("GET /api/games/{id}/ws", s.handlers.WebSocket)

	// Stateless analysis
	mux.HandleFunc("POST /api/analyze/moves", s.handlers.AnalyzeMoves)
	mux.HandleFunc("POST /api/analyze/rollout", s.handlers.AnalyzeRollout)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// pruneLoop drops idle sessions once an hour.
func (s *Server) pruneLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.registry.Prune(s.config.SessionMaxAge); n > 0 {
				s.log.Info().Int("sessions", n).Msg("pruned idle sessions")
			}
		case <-s.pruneStop:
			return
		}
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	go s.pruneLoop()

	s.log.Info().
		Str("addr", addr).
		Str("version", s.version).
		Msg("starting Parcheesi API server")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.pruneStop)
	return s.server.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and handles
// shutdown signals.
func (s *Server) ListenAndServeWithGracefulShutdown() error {
	errChan := make(chan error, 1)

	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		s.log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("server stopped")
	return nil
}
