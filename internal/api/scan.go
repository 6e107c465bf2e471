package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
)

// ScanHandler serves the scanning station.
type ScanHandler struct {
	Inventory *inventory.Manager
}

type scanRequest struct {
	Payload    string `json:"payload" validate:"required,max=256"`
	Type       string `json:"type" validate:"max=16"`
	Action     string `json:"action" validate:"required,oneof=lookup add remove checkout checkin"`
	UserID     int64  `json:"user_id" validate:"gte=0"`
	LocationID int64  `json:"location_id" validate:"gte=0"`
	ProductID  int64  `json:"product_id" validate:"gte=0"`
	Notes      string `json:"notes" validate:"max=1000"`
}

// Scan handles POST /api/scan. Business failures come back as 200 with
// success false and an error code; only internal errors change the status.
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	claims := GetClaims(r.Context())
	result := h.Inventory.Scan(r.Context(), inventory.ScanRequest{
		Payload:    req.Payload,
		Type:       req.Type,
		Action:     inventory.Action(req.Action),
		ActorID:    claims.UserID,
		UserID:     req.UserID,
		LocationID: req.LocationID,
		ProductID:  req.ProductID,
		Notes:      req.Notes,
	})

	status := http.StatusOK
	if result.ErrorCode == inventory.CodeInternal {
		status = http.StatusInternalServerError
	}
	if result.Success && req.Action != string(inventory.ActionLookup) {
		slog.Info("scan", "user", claims.Username, "action", req.Action, "type", result.BarcodeType)
	}
	jsonResponse(w, status, result)
}
