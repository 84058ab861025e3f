package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/profile-store/internal/apperror"
	"github.com/sakif/profile-store/internal/model"
)

// =========================================================================
// MOCK REPOSITORY
// =========================================================================
//
// mockProfileRepo keeps profiles in a map and reproduces the contract the
// service relies on: generated ids, unique emails, NotFound on missing ids.

type mockProfileRepo struct {
	profiles map[int64]*model.Profile
	nextID   int64
	failWith error // returned by every method when set
}

func newMockRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[int64]*model.Profile)}
}

func (m *mockProfileRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockProfileRepo) emailTaken(email string, except int64) bool {
	for id, p := range m.profiles {
		if id != except && p.Email == email {
			return true
		}
	}
	return false
}

func (m *mockProfileRepo) assignChildIDs(p *model.Profile) {
	for i := range p.Skills {
		p.Skills[i].ID, p.Skills[i].ProfileID = m.id(), p.ID
	}
	for i := range p.Projects {
		p.Projects[i].ID, p.Projects[i].ProfileID = m.id(), p.ID
	}
	for i := range p.Work {
		p.Work[i].ID, p.Work[i].ProfileID = m.id(), p.ID
	}
}

func (m *mockProfileRepo) Create(_ context.Context, p *model.Profile) error {
	if m.failWith != nil {
		return m.failWith
	}
	if m.emailTaken(p.Email, 0) {
		return apperror.Conflict("profile", "email", p.Email)
	}
	p.ID = m.id()
	m.assignChildIDs(p)
	stored := *p
	m.profiles[p.ID] = &stored
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id int64) (*model.Profile, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperror.NotFound("profile", strconv.FormatInt(id, 10))
	}
	result := *p
	return &result, nil
}

func (m *mockProfileRepo) List(_ context.Context) ([]model.Profile, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	result := make([]model.Profile, 0, len(m.profiles))
	for id := int64(1); id <= m.nextID; id++ {
		if p, ok := m.profiles[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockProfileRepo) Update(_ context.Context, p *model.Profile) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.profiles[p.ID]; !ok {
		return apperror.NotFound("profile", strconv.FormatInt(p.ID, 10))
	}
	if m.emailTaken(p.Email, p.ID) {
		return apperror.Conflict("profile", "email", p.Email)
	}
	m.assignChildIDs(p)
	stored := *p
	m.profiles[p.ID] = &stored
	return nil
}

func (m *mockProfileRepo) ReplaceChildren(_ context.Context, profileID int64,
	skills []model.Skill, projects []model.Project, work []model.Work) error {
	p, ok := m.profiles[profileID]
	if !ok {
		return apperror.NotFound("profile", strconv.FormatInt(profileID, 10))
	}
	p.Skills, p.Projects, p.Work = skills, projects, work
	m.assignChildIDs(p)
	return nil
}

func (m *mockProfileRepo) Delete(_ context.Context, id int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.profiles[id]; !ok {
		return apperror.NotFound("profile", strconv.FormatInt(id, 10))
	}
	delete(m.profiles, id)
	return nil
}

func (m *mockProfileRepo) DeleteAll(_ context.Context) error {
	m.profiles = make(map[int64]*model.Profile)
	return nil
}

func (m *mockProfileRepo) Count(_ context.Context) (int, error) {
	return len(m.profiles), nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(t *testing.T) (*ProfileService, *mockProfileRepo) {
	t.Helper()
	repo := newMockRepo()
	return NewProfileService(repo, quietLogger()), repo
}

func validInput() model.ProfileInput {
	edu := "B.Tech in CS"
	return model.ProfileInput{
		Name:      "Your Name",
		Email:     "you@example.com",
		Education: &edu,
		Skills:    []model.SkillInput{{Name: "Python"}, {Name: "SQL"}},
		Projects:  []model.ProjectInput{{Title: "Portfolio API"}},
		Work:      []model.WorkInput{{Company: "ABC Corp"}},
	}
}

// =========================================================================
// CREATE
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc, repo := newTestService(t)

	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotZero(t, p.ID)
	assert.Equal(t, "Your Name", p.Name)
	require.Len(t, p.Skills, 2)
	assert.Equal(t, "Python", p.Skills[0].Name)
	assert.Equal(t, "SQL", p.Skills[1].Name)
	assert.Equal(t, p.ID, p.Projects[0].ProfileID)
	assert.Len(t, repo.profiles, 1)
}

func TestCreate_TrimsRequiredFields(t *testing.T) {
	svc, _ := newTestService(t)
	in := validInput()
	in.Name = "  spaced out  "
	in.Skills = []model.SkillInput{{Name: " Go "}}

	p, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "spaced out", p.Name)
	assert.Equal(t, "Go", p.Skills[0].Name)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(in *model.ProfileInput)
		wantField string
	}{
		{"missing name", func(in *model.ProfileInput) { in.Name = "" }, "name"},
		{"blank name", func(in *model.ProfileInput) { in.Name = "   " }, "name"},
		{"missing email", func(in *model.ProfileInput) { in.Email = "" }, "email"},
		{"name too long", func(in *model.ProfileInput) { in.Name = strings.Repeat("x", 201) }, "name"},
		{"skill without name", func(in *model.ProfileInput) {
			in.Skills = append(in.Skills, model.SkillInput{})
		}, "skills[2].name"},
		{"project without title", func(in *model.ProfileInput) {
			in.Projects = []model.ProjectInput{{}}
		}, "projects[0].title"},
		{"work without company", func(in *model.ProfileInput) {
			in.Work = []model.WorkInput{{Company: " "}}
		}, "work[0].company"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Empty(t, repo.profiles, "invalid payload must not reach the store")
		})
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestCreate_StoreFailure(t *testing.T) {
	svc, repo := newTestService(t)
	repo.failWith = errors.New("disk on fire")

	_, err := svc.Create(context.Background(), validInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

// =========================================================================
// GET / LIST
// =========================================================================

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 42)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestList_InsertionOrder(t *testing.T) {
	svc, _ := newTestService(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		in := validInput()
		in.Email = email
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}

	profiles, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, "a@example.com", profiles[0].Email)
	assert.Equal(t, "c@example.com", profiles[2].Email)
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdate_FullReplacement(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	update := model.ProfileInput{
		Name:   "New Name",
		Email:  "you@example.com",
		Skills: []model.SkillInput{{Name: "Rust"}},
	}
	updated, err := svc.Update(context.Background(), created.ID, update)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "New Name", updated.Name)
	assert.Nil(t, updated.Education, "omitted optional field must be cleared")
	require.Len(t, updated.Skills, 1)
	assert.Equal(t, "Rust", updated.Skills[0].Name)
	assert.Empty(t, updated.Projects)
	assert.Empty(t, updated.Work)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), 99, validInput())
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestUpdate_ValidationBeforeLookup(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), 99, model.ProfileInput{})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestUpdate_EmailConflict(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	other := validInput()
	other.Email = "other@example.com"
	second, err := svc.Create(context.Background(), other)
	require.NoError(t, err)

	other.Email = "you@example.com"
	_, err = svc.Update(context.Background(), second.ID, other)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

// =========================================================================
// DELETE / RESET
// =========================================================================

func TestDelete_ReturnsConfirmation(t *testing.T) {
	svc, repo := newTestService(t)
	p, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	msg, err := svc.Delete(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Profile with id 1 has been deleted", msg)
	assert.Empty(t, repo.profiles)
}

func TestDelete_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Delete(context.Background(), 5)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestReset(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Reset(context.Background()))

	n, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
