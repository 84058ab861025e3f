// Package main is the entry point for the profile store HTTP server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (env vars, .env, config.yaml)
// 2. Create dependencies (logger)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is the Go convention for executable entry points. This
// project has two: cmd/server (the API) and cmd/seed (sample data).
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/profile-store/internal/config"
	"github.com/sakif/profile-store/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_FORMAT=json for log shippers, text (default) for terminals.
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(server.Config{
		Port:               cfg.Server.Port,
		DBPath:             cfg.DB.Path,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
