package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/profile-store/internal/apperror"
	"github.com/sakif/profile-store/internal/service"
)

// QueryHandler serves the read-only cross-profile queries.
type QueryHandler struct {
	queries *service.QueryService
	logger  *slog.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queries *service.QueryService, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{queries: queries, logger: logger}
}

// HandleListProjects lists projects, optionally only those whose owner has
// a given skill.
//
// HTTP: GET /projects
// HTTP: GET /projects?skill=python
func (h *QueryHandler) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.queries.ListProjects(r.Context(), r.URL.Query().Get("skill"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// HandleTopSkills ranks skill names by occurrence.
//
// HTTP: GET /skills/top?limit=5
// RESPONSE: [{"id":1,"name":"Python","count":4}, ...]
//
// An absent limit means service.DefaultTopSkillsLimit. A present but
// non-numeric or non-positive limit is rejected with 400.
func (h *QueryHandler) HandleTopSkills(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultTopSkillsLimit
	if raw, ok := r.URL.Query()["limit"]; ok {
		n, err := strconv.Atoi(raw[0])
		if err != nil {
			writeError(w, r, apperror.ValidationFailed("limit",
				"limit must be a positive integer, got "+strconv.Quote(raw[0])))
			return
		}
		limit = n
	}

	ranks, err := h.queries.TopSkills(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranks)
}

// HandleSearch finds profiles whose name, or any project title or
// description, contains q (ignoring case).
//
// HTTP: GET /search?q=alice
func (h *QueryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.queries.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}
