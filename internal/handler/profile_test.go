package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/profile-store/internal/handler"
	"github.com/sakif/profile-store/internal/model"
	sqliteRepo "github.com/sakif/profile-store/internal/repository/sqlite"
	"github.com/sakif/profile-store/internal/service"
)

// newTestRouter wires the real services over an in-memory database, the
// same way the server does, so these tests exercise the full stack below
// the middleware.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(sqliteRepo.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	profiles := handler.NewProfileHandler(service.NewProfileService(db, logger), logger)
	queries := handler.NewQueryHandler(service.NewQueryService(db, logger), logger)
	health := handler.NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/health", health.HandleHealth)
	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", profiles.HandleList)
		r.Post("/", profiles.HandleCreate)
		r.Get("/{id}", profiles.HandleGetByID)
		r.Put("/{id}", profiles.HandleUpdate)
		r.Delete("/{id}", profiles.HandleDelete)
	})
	r.Get("/projects", queries.HandleListProjects)
	r.Get("/skills/top", queries.HandleTopSkills)
	r.Get("/search", queries.HandleSearch)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

const adaJSON = `{
	"name": "Ada Lovelace",
	"email": "ada@example.com",
	"education": "Analytical Engines",
	"skills": [{"name": "Python"}, {"name": "SQL"}],
	"projects": [{"title": "Notes on the Engine", "description": "First program", "link": "https://example.com"}],
	"work": [{"company": "Babbage & Co", "role": "Analyst"}]
}`

func createProfile(t *testing.T, h http.Handler, body string) model.Profile {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/profiles", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Profile](t, rr)
}

func TestProfileHandler_Create(t *testing.T) {
	h := newTestRouter(t)

	t.Run("created with children", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/profiles", adaJSON)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		p := decode[model.Profile](t, rr)
		assert.NotZero(t, p.ID)
		require.NotNil(t, p.Education)
		assert.Equal(t, "Analytical Engines", *p.Education)
		assert.Nil(t, p.GitHub)
		require.Len(t, p.Skills, 2)
		assert.Equal(t, "Python", p.Skills[0].Name)
		assert.Equal(t, p.ID, p.Skills[0].ProfileID)
		require.Len(t, p.Projects, 1)
		assert.NotZero(t, p.Projects[0].ID)
		require.Len(t, p.Work, 1)
		assert.Nil(t, p.Work[0].Duration)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/profiles", adaJSON)
		assert.Equal(t, http.StatusConflict, rr.Code)

		e := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, "conflict", e.Error)
		assert.Equal(t, "email", e.Field)
	})

	t.Run("missing required field", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/profiles", `{"email":"x@example.com"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		e := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, "validation_error", e.Error)
		assert.Equal(t, "name", e.Field)
	})

	t.Run("child without required field", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/profiles",
			`{"name":"B","email":"b@example.com","projects":[{"description":"no title"}]}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "projects[0].title", decode[handler.ErrorResponse](t, rr).Field)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/profiles", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		rr := do(t, h, http.MethodPost, "/profiles", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "request body is required", decode[handler.ErrorResponse](t, rr).Message)
	})
}

func TestProfileHandler_GetAndList(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/profiles", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	ada := createProfile(t, h, adaJSON)
	createProfile(t, h, `{"name":"Grace","email":"grace@example.com"}`)

	rr = do(t, h, http.MethodGet, "/profiles", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]model.Profile](t, rr)
	require.Len(t, list, 2)
	assert.Equal(t, "Ada Lovelace", list[0].Name)
	assert.Len(t, list[0].Skills, 2)
	assert.NotNil(t, list[1].Skills)

	rr = do(t, h, http.MethodGet, "/profiles/"+itoa(ada.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, ada.Email, decode[model.Profile](t, rr).Email)

	rr = do(t, h, http.MethodGet, "/profiles/9999", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[handler.ErrorResponse](t, rr).Error)

	rr = do(t, h, http.MethodGet, "/profiles/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "id", decode[handler.ErrorResponse](t, rr).Field)
}

func TestProfileHandler_Update(t *testing.T) {
	h := newTestRouter(t)
	ada := createProfile(t, h, adaJSON)

	rr := do(t, h, http.MethodPut, "/profiles/"+itoa(ada.ID),
		`{"name":"Ada King","email":"ada@example.com","skills":[{"name":"Go"}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	p := decode[model.Profile](t, rr)
	assert.Equal(t, ada.ID, p.ID)
	assert.Equal(t, "Ada King", p.Name)
	assert.Nil(t, p.Education)
	require.Len(t, p.Skills, 1)
	assert.Equal(t, "Go", p.Skills[0].Name)
	assert.Empty(t, p.Projects)
	assert.Empty(t, p.Work)

	// The stored state matches the response.
	rr = do(t, h, http.MethodGet, "/profiles/"+itoa(ada.ID), "")
	stored := decode[model.Profile](t, rr)
	assert.Equal(t, p.Skills, stored.Skills)
	assert.Empty(t, stored.Projects)

	rr = do(t, h, http.MethodPut, "/profiles/9999", `{"name":"X","email":"x@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPut, "/profiles/"+itoa(ada.ID), `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProfileHandler_Delete(t *testing.T) {
	h := newTestRouter(t)
	ada := createProfile(t, h, adaJSON)

	rr := do(t, h, http.MethodDelete, "/profiles/"+itoa(ada.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"detail":"Profile with id `+itoa(ada.ID)+` has been deleted"}`, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/profiles/"+itoa(ada.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// Children went with it.
	rr = do(t, h, http.MethodGet, "/projects", "")
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(t, h, http.MethodDelete, "/profiles/"+itoa(ada.ID), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	h := newTestRouter(t)

	rr := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, rr.Body.String())
}
