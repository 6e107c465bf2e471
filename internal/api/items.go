package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// ItemsHandler handles stock intake and item listing.
type ItemsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Manager
}

type addItemsRequest struct {
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	LocationID int64  `json:"location_id" validate:"required,gt=0"`
	Quantity   int    `json:"quantity" validate:"required,gt=0,lte=500"`
	Labeled    *bool  `json:"labeled"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type pregenerateRequest struct {
	Count int `json:"count" validate:"required,gt=0,lte=500"`
}

type bindRequest struct {
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
	LocationID int64 `json:"location_id" validate:"required,gt=0"`
}

// maxListLimit caps GET /api/items.
const maxListLimit = 1000

// Create handles POST /api/items. Items are labeled unless labeled is false.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req addItemsRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	labeled := req.Labeled == nil || *req.Labeled
	claims := GetClaims(r.Context())
	items, err := h.Inventory.AddItems(r.Context(), inventory.AddItemsInput{
		ProductID:  req.ProductID,
		LocationID: req.LocationID,
		Quantity:   req.Quantity,
		Labeled:    labeled,
		Notes:      req.Notes,
	}, claims.UserID)
	if err != nil {
		inventoryError(w, "add items", err)
		return
	}

	slog.Info("items added", "user", claims.Username, "product_id", req.ProductID,
		"location_id", req.LocationID, "quantity", len(items), "labeled", labeled)
	jsonResponse(w, http.StatusCreated, items)
}

// Pregenerate handles POST /api/items/pregenerate.
func (h *ItemsHandler) Pregenerate(w http.ResponseWriter, r *http.Request) {
	var req pregenerateRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	claims := GetClaims(r.Context())
	items, err := h.Inventory.PregenerateItems(r.Context(), req.Count, claims.UserID)
	if err != nil {
		inventoryError(w, "pregenerate items", err)
		return
	}

	slog.Info("labels pregenerated", "user", claims.Username, "count", len(items))
	jsonResponse(w, http.StatusCreated, items)
}

// Bind handles POST /api/items/{uuid}/bind.
func (h *ItemsHandler) Bind(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Inventory.BindProduct(r.Context(), r.PathValue("uuid"), req.ProductID, req.LocationID, claims.UserID)
	if err != nil {
		inventoryError(w, "bind item", err)
		return
	}

	slog.Info("item bound", "user", claims.Username, "uuid", res.Item.UUID, "product_id", req.ProductID)
	jsonResponse(w, http.StatusOK, res)
}

// List handles GET /api/items with optional product_id, location_id,
// user_id, status and limit filters.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.ItemFilter
	var err error
	if f.ProductID, err = queryInt64(r, "product_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.LocationID, err = queryInt64(r, "location_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if f.UserID, err = queryInt64(r, "user_id"); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt64(r, "limit")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Limit = int(min(limit, maxListLimit))
	if f.Limit == 0 {
		f.Limit = maxListLimit
	}

	if f.Status = r.URL.Query().Get("status"); f.Status != "" && !model.ValidItemStatus(f.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}
