// Command seed wipes the profile store and inserts one sample profile.
//
// It reads the same configuration as the server (DB_PATH etc.), so
//
//	DB_PATH=data/dev.db go run ./cmd/seed
//
// prepares the database a local server will then use.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/profile-store/internal/config"
	"github.com/sakif/profile-store/internal/model"
	sqliteRepo "github.com/sakif/profile-store/internal/repository/sqlite"
	"github.com/sakif/profile-store/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	profile, err := run(ctx, cfg.DB.Path, logger)
	if err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("seed complete",
		slog.String("database", cfg.DB.Path),
		slog.Int64("profile_id", profile.ID),
	)
}

// run resets the store at dbPath and creates the sample profile.
func run(ctx context.Context, dbPath string, logger *slog.Logger) (*model.Profile, error) {
	if dbPath != sqliteRepo.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	profiles := service.NewProfileService(db, logger)
	if err := profiles.Reset(ctx); err != nil {
		return nil, err
	}
	return profiles.Create(ctx, sampleProfile())
}

func sampleProfile() model.ProfileInput {
	str := func(s string) *string { return &s }
	return model.ProfileInput{
		Name:      "Your Name",
		Email:     "you@example.com",
		Education: str("B.Tech in CS"),
		GitHub:    str("github.com/your"),
		LinkedIn:  str("linkedin.com/in/your"),
		Portfolio: str("your.site"),
		Skills: []model.SkillInput{
			{Name: "Python"},
			{Name: "FastAPI"},
			{Name: "SQL"},
			{Name: "Docker"},
		},
		Projects: []model.ProjectInput{{
			Title:       "Portfolio API",
			Description: str("Small FastAPI backend"),
			Link:        str("https://github.com/you/repo"),
		}},
		Work: []model.WorkInput{{
			Company:  "ABC Corp",
			Role:     str("Intern"),
			Duration: str("6 months"),
		}},
	}
}
