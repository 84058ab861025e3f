// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can
// inject in-memory fakes and the service never imports the storage package.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/profile-store/internal/model"
	"github.com/sakif/profile-store/internal/repository"
)

// ProfileService handles create/update/delete of a profile and its
// children as single profile-shaped operations.
type ProfileService struct {
	repo     repository.ProfileRepository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewProfileService(repo repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		repo:     repo,
		validate: newValidator(),
		logger:   logger,
	}
}

// Create validates the payload and stores the profile with its children.
// The returned profile carries every generated id, children in the order
// they were submitted.
func (s *ProfileService) Create(ctx context.Context, in model.ProfileInput) (*model.Profile, error) {
	normalizeInput(&in)
	if err := s.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	profile := in.ToProfile()
	if err := s.repo.Create(ctx, profile); err != nil {
		s.logger.Error("failed to create profile",
			slog.String("email", profile.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	s.logger.Info("profile created",
		slog.Int64("id", profile.ID),
		slog.Int("skills", len(profile.Skills)),
		slog.Int("projects", len(profile.Projects)),
		slog.Int("work", len(profile.Work)),
	)
	return profile, nil
}

// Get returns one profile. Missing ids yield apperror.ErrNotFound.
func (s *ProfileService) Get(ctx context.Context, id int64) (*model.Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every profile in insertion order.
func (s *ProfileService) List(ctx context.Context) ([]model.Profile, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list profiles", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	return profiles, nil
}

// Update overwrites an existing profile with the payload.
//
// This is a full replacement, not a patch: optional fields absent from the
// payload are cleared, and the three child collections are replaced by the
// submitted lists (empty when omitted). Child ids change on every update.
func (s *ProfileService) Update(ctx context.Context, id int64, in model.ProfileInput) (*model.Profile, error) {
	normalizeInput(&in)
	if err := s.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	// Fetch first so a missing id is reported as NotFound even when the
	// payload would also collide on email.
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := in.ToProfile()
	profile.ID = id
	profile.CreatedAt = existing.CreatedAt

	if err := s.repo.Update(ctx, profile); err != nil {
		s.logger.Error("failed to update profile",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Info("profile updated", slog.Int64("id", id))
	return profile, nil
}

// Delete removes the profile and, through the store's cascade, all of its
// children. It returns a confirmation naming the deleted id.
func (s *ProfileService) Delete(ctx context.Context, id int64) (string, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		return "", err
	}

	s.logger.Info("profile deleted", slog.Int64("id", id))
	return fmt.Sprintf("Profile with id %d has been deleted", id), nil
}

// Reset deletes every profile. Only the seed command calls it.
func (s *ProfileService) Reset(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("resetting profiles: %w", err)
	}
	s.logger.Warn("all profiles deleted")
	return nil
}

// Count returns the number of stored profiles.
func (s *ProfileService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
