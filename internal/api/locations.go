package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// LocationsHandler handles storage location endpoints.
type LocationsHandler struct {
	DB *sql.DB
}

type locationRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Address     string `json:"address" validate:"max=500"`
	Zone        string `json:"zone" validate:"max=100"`
	Active      *bool  `json:"active"`
}

// List handles GET /api/locations. Inactive locations are included with
// all=true.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	locations, err := store.ListLocations(r.Context(), h.DB, activeOnly)
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list locations")
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
	if !bindAndValidate(w, r, &req) {
		return
	}

	location, err := store.CreateLocation(r.Context(), h.DB, model.Location{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Address:     req.Address,
		Zone:        req.Zone,
		Active:      req.Active == nil || *req.Active,
	}, time.Now())
	if err != nil {
		slog.Error("failed to create location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create location")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("location created", "user", claims.Username, "location", location.Name)
	jsonResponse(w, http.StatusCreated, location)
}

// Get handles GET /api/locations/{id}.
func (h *LocationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "location")
	if !ok {
		return
	}

	location, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get location")
		return
	}
	if location == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}
	jsonResponse(w, http.StatusOK, location)
}

// Update handles PUT /api/locations/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "location")
	if !ok {
		return
	}

	var req locationRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	location, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update location")
		return
	}
	if location == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}

	location.Name = strings.TrimSpace(req.Name)
	location.Description = req.Description
	location.Address = req.Address
	location.Zone = req.Zone
	if req.Active != nil {
		location.Active = *req.Active
	}

	if err := store.UpdateLocation(r.Context(), h.DB, *location, time.Now()); err != nil {
		slog.Error("failed to update location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update location")
		return
	}

	updated, _ := store.GetLocation(r.Context(), h.DB, id)
	claims := GetClaims(r.Context())
	slog.Info("location updated", "user", claims.Username, "location", location.Name)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/locations/{id}. Locations that hold items or
// appear in the ledger can only be deactivated.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "location")
	if !ok {
		return
	}

	location, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete location")
		return
	}
	if location == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}

	if err := store.DeleteLocation(r.Context(), h.DB, id); err != nil {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("location deleted", "user", claims.Username, "location", location.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "location deleted"})
}
