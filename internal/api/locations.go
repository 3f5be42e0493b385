package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/odeje/internal/model"
	"github.com/erazemk/odeje/internal/store"
)

// LocationsHandler handles location CRUD endpoints.
type LocationsHandler struct {
	DB *sql.DB
}

type locationRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListLocations(r.Context(), h.DB, r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, err, 0, "failed to list locations")
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	location, err := store.CreateLocation(r.Context(), h.DB, req.Name, req.Kind)
	if err != nil {
		writeError(w, err, 0, "failed to create location")
		return
	}

	slog.Info("location created", "location", req.Name, "kind", req.Kind)
	jsonResponse(w, http.StatusCreated, location)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	location, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err, 0, "failed to get location")
		return
	}
	if location == nil || location.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	jsonResponse(w, http.StatusOK, location)
}

// Update handles PUT /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.UpdateLocation(r.Context(), h.DB, id, req.Name); err != nil {
		writeError(w, err, 0, "failed to update location")
		return
	}

	location, _ := store.GetLocation(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, location)
}

// Delete handles DELETE /api/locations/{id}.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	if err := store.DeleteLocation(r.Context(), h.DB, id); err != nil {
		slog.Warn("failed to delete location", "location", id, "error", err)
		writeError(w, err, 0, "failed to delete location")
		return
	}

	slog.Info("location deleted", "location", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "location deleted"})
}
