// Package handler contains the HTTP request handlers of the profile API.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query params, body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers contain no business rules. Validation, not-found and conflict
// decisions come back from the service as apperror values and are turned
// into status codes by writeError.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/profile-store/internal/apperror"
	"github.com/sakif/profile-store/internal/model"
	"github.com/sakif/profile-store/internal/service"
)

// maxBodyBytes bounds a profile payload.
const maxBodyBytes = 1 << 20

// ProfileHandler serves the profile CRUD routes.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleCreate stores a new profile.
//
// HTTP: POST /profiles
// REQUEST BODY:
//
//	{"name":"Ada","email":"ada@example.com","skills":[{"name":"Go"}],
//	 "projects":[{"title":"Engine","link":"https://..."}],"work":[{"company":"ACME"}]}
//
// Responds 201 with the stored profile, including generated ids.
func (h *ProfileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeProfileInput(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.profiles.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// HandleList returns every profile with its children.
//
// HTTP: GET /profiles
func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// HandleGetByID returns a single profile.
//
// HTTP: GET /profiles/{id}
func (h *ProfileHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdate replaces a profile and all of its children.
//
// HTTP: PUT /profiles/{id}
// The body has the same shape as for HandleCreate.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	in, err := decodeProfileInput(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := h.profiles.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleDelete removes a profile and its children.
//
// HTTP: DELETE /profiles/{id}
// RESPONSE: {"detail": "Profile with id 3 has been deleted"}
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := profileID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := h.profiles.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Detail: msg})
}

// profileID reads the {id} URL parameter.
//
// chi.URLParam returns "" when the route has no such parameter, which also
// fails ParseInt, so a mis-wired route surfaces as a 400 rather than a panic.
func profileID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed("id", "id must be an integer, got "+strconv.Quote(raw))
	}
	return id, nil
}

// decodeProfileInput reads a JSON profile payload. Unknown keys are ignored.
func decodeProfileInput(w http.ResponseWriter, r *http.Request) (model.ProfileInput, error) {
	var in model.ProfileInput

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return in, apperror.ValidationFailed("", "request body too large")
		case errors.Is(err, io.EOF):
			return in, apperror.ValidationFailed("", "request body is required")
		default:
			return in, apperror.ValidationFailed("", "invalid JSON body: "+err.Error())
		}
	}
	return in, nil
}
