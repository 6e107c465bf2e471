package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// TransactionsHandler serves the ledger.
type TransactionsHandler struct {
	DB *sql.DB
}

const defaultTransactionLimit = 100

// List handles GET /api/transactions with optional item_id, user_id,
// location_id, processed_by, type, since (RFC 3339) and limit filters.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.TransactionFilter
	var err error
	for name, dst := range map[string]*int64{
		"item_id":      &f.ItemID,
		"user_id":      &f.UserID,
		"location_id":  &f.LocationID,
		"processed_by": &f.ProcessedBy,
	} {
		if *dst, err = queryInt64(r, name); err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if v := r.URL.Query().Get("type"); v != "" {
		f.Type = model.TransactionType(v)
		if !f.Type.Valid() {
			jsonError(w, http.StatusBadRequest, "invalid type")
			return
		}
	}
	if v := r.URL.Query().Get("since"); v != "" {
		if f.Since, err = time.Parse(time.RFC3339, v); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid since")
			return
		}
	}

	limit, err := queryInt64(r, "limit")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 {
		limit = defaultTransactionLimit
	}

	txs, err := store.ListRecentTransactions(r.Context(), h.DB, f, int(min(limit, maxListLimit)))
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txs)
}
