// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and routes,
// and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go loads config.Config → server.New
//	server.New: sqlite.DB → ProfileService / QueryService → handlers → routes
//
// All dependencies are wired in one place (New/setupRoutes), the
// "composition root", rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/profile-store/internal/handler"
	"github.com/sakif/profile-store/internal/middleware"
	sqliteRepo "github.com/sakif/profile-store/internal/repository/sqlite"
	"github.com/sakif/profile-store/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port               int
	DBPath             string
	CORSAllowedOrigins []string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it on the way out
// so pending WAL writes are checkpointed and the file lock is released.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
}

// New creates a new Server with the given config.
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` so it is not confused with
// the modernc.org/sqlite driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	if cfg.DBPath != sqliteRepo.MemoryPath {
		// os.MkdirAll is `mkdir -p`: a no-op when the directory exists.
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it itself; callers that only
// use Handler must call it.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health              → liveness + database ping
// GET    /metrics             → Prometheus exposition
// POST   /profiles            → Create profile (201)
// GET    /profiles            → List profiles
// GET    /profiles/{id}       → Get profile
// PUT    /profiles/{id}       → Replace profile and children
// DELETE /profiles/{id}       → Delete profile (cascades)
// GET    /projects?skill=     → List projects, optionally by owner skill
// GET    /skills/top?limit=   → Most common skill names
// GET    /search?q=           → Profiles by name / project text
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns the id everything below logs with
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Metrics: counts and times each request by route pattern
// 5. Recoverer: catches panics and returns 500 instead of crashing
// 6. CORS: answers preflights and sets Access-Control-* headers
func (s *Server) setupRoutes() error {
	// === Global Middleware ===
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.NewMetrics(s.registry).Handler)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// === Services & Handlers ===
	// s.db implements both repository.ProfileRepository and
	// repository.QueryRepository; each service sees only its interface.
	profileService := service.NewProfileService(s.db, s.logger)
	queryService := service.NewQueryService(s.db, s.logger)

	profileHandler := handler.NewProfileHandler(profileService, s.logger)
	queryHandler := handler.NewQueryHandler(queryService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	// === Metrics ===
	if err := s.registerCollectors(profileService); err != nil {
		return err
	}
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	// === API Routes ===
	s.router.Get("/health", healthHandler.HandleHealth)

	s.router.Route("/profiles", func(r chi.Router) {
		r.Post("/", profileHandler.HandleCreate)
		r.Get("/", profileHandler.HandleList)
		r.Get("/{id}", profileHandler.HandleGetByID)
		r.Put("/{id}", profileHandler.HandleUpdate)
		r.Delete("/{id}", profileHandler.HandleDelete)
	})

	s.router.Get("/projects", queryHandler.HandleListProjects)
	s.router.Get("/skills/top", queryHandler.HandleTopSkills)
	s.router.Get("/search", queryHandler.HandleSearch)

	return nil
}

// registerCollectors adds the runtime collectors and a gauge that counts
// stored profiles at scrape time.
func (s *Server) registerCollectors(profiles *service.ProfileService) error {
	profileCount := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "profilestore",
		Name:      "profiles",
		Help:      "Number of stored profiles.",
	}, func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := profiles.Count(ctx)
		if err != nil {
			s.logger.Warn("profile count for metrics failed", slog.String("error", err.Error()))
			return 0
		}
		return float64(n)
	})

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		profileCount,
	} {
		if err := s.registry.Register(c); err != nil {
			return fmt.Errorf("registering metrics collector: %w", err)
		}
	}
	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	// Runs after everything else in this function finishes.
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
