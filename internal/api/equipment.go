package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
)

// EquipmentHandler handles per-item endpoints addressed by UUID.
type EquipmentHandler struct {
	Inventory *inventory.Manager
}

type assignRequest struct {
	UserID     int64  `json:"user_id" validate:"gte=0"`
	LocationID int64  `json:"location_id" validate:"gte=0"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type conditionRequest struct {
	Condition string `json:"condition" validate:"omitempty,oneof=excellent good fair poor"`
	Status    string `json:"status" validate:"omitempty,oneof=available maintenance damaged lost"`
	Notes     string `json:"notes" validate:"max=1000"`
}

type removeRequest struct {
	Notes  string `json:"notes" validate:"max=1000"`
	Method string `json:"method" validate:"omitempty,oneof=qr_scan emergency_upc manual"`
}

// Get handles GET /api/equipment/{uuid}.
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.Inventory.GetEquipmentDetails(r.Context(), r.PathValue("uuid"))
	if err != nil {
		inventoryError(w, "get equipment", err)
		return
	}
	jsonResponse(w, http.StatusOK, details)
}

// Assign handles POST /api/equipment/{uuid}/assign. A user_id checks the
// item out, a location_id puts it there, and neither leaves it in transit.
func (h *EquipmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !bindAndValidate(w, r, &req) {
		return
	}
	if req.UserID > 0 && req.LocationID > 0 {
		jsonError(w, http.StatusBadRequest, "user_id and location_id are mutually exclusive")
		return
	}

	uuid := r.PathValue("uuid")
	claims := GetClaims(r.Context())

	var (
		res *inventory.Result
		err error
	)
	switch {
	case req.UserID > 0:
		res, err = h.Inventory.AssignToUser(r.Context(), uuid, req.UserID, claims.UserID, req.Notes)
	case req.LocationID > 0:
		res, err = h.Inventory.AssignToLocation(r.Context(), uuid, req.LocationID, claims.UserID, req.Notes)
	default:
		res, err = h.Inventory.UnassignEquipment(r.Context(), uuid, claims.UserID, req.Notes)
	}
	if err != nil {
		inventoryError(w, "assign equipment", err)
		return
	}

	if res.Transaction != nil {
		slog.Info("equipment assigned", "user", claims.Username, "uuid", res.Item.UUID,
			"type", res.Transaction.Type, "status", res.Item.Status)
	}
	jsonResponse(w, http.StatusOK, res)
}

// UpdateNotes handles PUT /api/equipment/{uuid}/notes.
func (h *EquipmentHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	res, err := h.Inventory.UpdateEquipmentNotes(r.Context(), r.PathValue("uuid"), req.Notes, actor(r))
	if err != nil {
		inventoryError(w, "update equipment notes", err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// ChangeCondition handles PUT /api/equipment/{uuid}/condition.
func (h *EquipmentHandler) ChangeCondition(w http.ResponseWriter, r *http.Request) {
	var req conditionRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Inventory.ChangeCondition(r.Context(), r.PathValue("uuid"), inventory.ConditionChange{
		Condition: req.Condition,
		Status:    req.Status,
		Notes:     req.Notes,
	}, claims.UserID)
	if err != nil {
		inventoryError(w, "change condition", err)
		return
	}

	if res.Transaction != nil {
		slog.Info("equipment condition changed", "user", claims.Username, "uuid", res.Item.UUID,
			"condition", res.Item.ConditionStatus, "status", res.Item.Status)
	}
	jsonResponse(w, http.StatusOK, res)
}

// Remove handles POST /api/equipment/{uuid}/remove.
func (h *EquipmentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	claims := GetClaims(r.Context())
	res, err := h.Inventory.RemoveItem(r.Context(), r.PathValue("uuid"), claims.UserID, req.Notes, req.Method)
	if err != nil {
		inventoryError(w, "remove equipment", err)
		return
	}

	slog.Info("equipment removed", "user", claims.Username, "uuid", res.Item.UUID, "method", res.Item.RemovalMethod)
	jsonResponse(w, http.StatusOK, res)
}

// ReassignUUID handles POST /api/equipment/{uuid}/reassign-uuid.
func (h *EquipmentHandler) ReassignUUID(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	claims := GetClaims(r.Context())
	old := r.PathValue("uuid")
	res, err := h.Inventory.ReassignUUID(r.Context(), old, claims.UserID, req.Notes)
	if err != nil {
		inventoryError(w, "reassign uuid", err)
		return
	}

	slog.Info("equipment uuid reassigned", "user", claims.Username, "old_uuid", old, "new_uuid", res.Item.UUID)
	jsonResponse(w, http.StatusOK, res)
}
