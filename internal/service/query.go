package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/profile-store/internal/apperror"
	"github.com/sakif/profile-store/internal/model"
	"github.com/sakif/profile-store/internal/repository"
)

// DefaultTopSkillsLimit is used when the caller does not pass a limit.
const DefaultTopSkillsLimit = 10

// QueryService exposes the read-only cross-table queries.
type QueryService struct {
	repo   repository.QueryRepository
	logger *slog.Logger
}

func NewQueryService(repo repository.QueryRepository, logger *slog.Logger) *QueryService {
	return &QueryService{repo: repo, logger: logger}
}

// ListProjects returns all projects, or with a skill name, only the
// projects of profiles that list that skill (ignoring case).
func (s *QueryService) ListProjects(ctx context.Context, skill string) ([]model.Project, error) {
	skill = strings.TrimSpace(skill)

	projects, err := s.repo.ListProjects(ctx, skill)
	if err != nil {
		s.logger.Error("failed to list projects",
			slog.String("skill", skill),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// TopSkills returns up to limit skill names ordered by how many times they
// occur, ranked from 1.
func (s *QueryService) TopSkills(ctx context.Context, limit int) ([]model.SkillRank, error) {
	if limit <= 0 {
		return nil, apperror.ValidationFailed("limit",
			fmt.Sprintf("limit must be a positive integer, got %d", limit))
	}

	ranks, err := s.repo.TopSkills(ctx, limit)
	if err != nil {
		s.logger.Error("failed to rank skills", slog.String("error", err.Error()))
		return nil, fmt.Errorf("ranking skills: %w", err)
	}
	return ranks, nil
}

// Search finds profiles by case-insensitive substring on the profile name
// and on project titles and descriptions. Each profile appears once.
func (s *QueryService) Search(ctx context.Context, q string) ([]model.Profile, error) {
	if strings.TrimSpace(q) == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}

	profiles, err := s.repo.Search(ctx, q)
	if err != nil {
		s.logger.Error("search failed",
			slog.String("q", q),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("searching profiles: %w", err)
	}

	s.logger.Debug("search completed", slog.String("q", q), slog.Int("results", len(profiles)))
	return profiles, nil
}
