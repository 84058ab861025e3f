// Package repository declares the storage contracts the service layer
// depends on. The sqlite subpackage is the only production implementation;
// service tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/profile-store/internal/model"
)

// ProfileRepository stores profiles and their owned children.
//
// Every mutating method is atomic: either all rows it touches are
// committed before it returns, or none are.
type ProfileRepository interface {
	// Create inserts the profile and all of its children, filling in the
	// generated ids in place.
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id int64) (*model.Profile, error)
	// List returns every profile in ascending id order.
	List(ctx context.Context) ([]model.Profile, error)
	// Update overwrites every scalar field of an existing profile and
	// replaces its children in the same transaction.
	Update(ctx context.Context, profile *model.Profile) error
	// ReplaceChildren deletes all skills, projects and work entries of the
	// profile and inserts the given sets. New rows get new ids.
	ReplaceChildren(ctx context.Context, profileID int64, skills []model.Skill, projects []model.Project, work []model.Work) error
	Delete(ctx context.Context, id int64) error
	// DeleteAll removes every profile; children go with them.
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// QueryRepository holds the read-only queries that span several tables.
// None of them report an empty result as an error.
type QueryRepository interface {
	// ListProjects returns all projects, or only those owned by a profile
	// holding a skill equal to skill ignoring case, when skill is non-empty.
	ListProjects(ctx context.Context, skill string) ([]model.Project, error)
	// TopSkills groups skills by their stored name and returns the limit
	// most frequent ones, ranked 1..N by position.
	TopSkills(ctx context.Context, limit int) ([]model.SkillRank, error)
	// Search returns each profile whose name, or any of whose project
	// titles or descriptions, contains q ignoring case.
	Search(ctx context.Context, q string) ([]model.Profile, error)
}
