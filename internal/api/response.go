package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/inventory"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// inventoryError writes an inventory error with the status matching its kind
// and its stable error code. Persistence failures are logged and reported
// without detail.
func inventoryError(w http.ResponseWriter, op string, err error) {
	kind := inventory.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case inventory.KindNotFound:
		status = http.StatusNotFound
	case inventory.KindInvalidInput:
		status = http.StatusBadRequest
	case inventory.KindInvalidTransition, inventory.KindAmbiguous:
		status = http.StatusConflict
	}

	message := err.Error()
	if kind == inventory.KindPersistence {
		slog.Error("failed to "+op, "error", err)
		message = "internal error"
	}
	jsonResponse(w, status, map[string]string{
		"error": message,
		"code":  inventory.Code(err),
	})
}
