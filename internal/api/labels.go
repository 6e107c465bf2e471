package api

import (
	"bytes"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/inventory"
	"github.com/erazemk/izposoja/internal/labels"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// LabelsHandler handles the QR label print queue.
type LabelsHandler struct {
	DB        *sql.DB
	Inventory *inventory.Manager
	Layout    labels.Layout
}

type queueLabelRequest struct {
	ItemID int64  `json:"item_id" validate:"required,gt=0"`
	UUID   string `json:"uuid" validate:"omitempty,uuid"`
	Note   string `json:"note" validate:"max=500"`
}

type markPrintedRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,max=500,dive,gt=0"`
}

// Queue handles POST /api/labels/queue.
func (h *LabelsHandler) Queue(w http.ResponseWriter, r *http.Request) {
	var req queueLabelRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	claims := GetClaims(r.Context())
	entry, err := h.Inventory.AddItemToQueue(r.Context(), req.ItemID, req.UUID, claims.UserID, req.Note)
	if err != nil {
		inventoryError(w, "queue label", err)
		return
	}

	slog.Info("label queued", "user", claims.Username, "uuid", entry.UUID)
	jsonResponse(w, http.StatusCreated, entry)
}

// List handles GET /api/labels/queue.
func (h *LabelsHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Inventory.ListQueue(r.Context())
	if err != nil {
		inventoryError(w, "list label queue", err)
		return
	}
	if entries == nil {
		entries = []model.QueueEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Count handles GET /api/labels/queue/count.
func (h *LabelsHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.Inventory.GetQueueCount(r.Context())
	if err != nil {
		inventoryError(w, "count label queue", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"count": n})
}

// Sheet handles GET /api/labels/sheet.pdf. With ids=1,2,3 only those pending
// labels are printed; otherwise the whole queue is. Printing does not mark
// labels printed.
func (h *LabelsHandler) Sheet(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.Inventory.ListQueue(r.Context(), ids...)
	if err != nil {
		inventoryError(w, "list label queue", err)
		return
	}

	var buf bytes.Buffer
	pages, err := labels.Render(&buf, labels.FromQueue(entries, h.thumbnails(r, entries)), h.Layout)
	if errors.Is(err, labels.ErrNoLabels) {
		jsonError(w, http.StatusNotFound, "no pending labels")
		return
	}
	if err != nil {
		slog.Error("failed to render labels", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render labels")
		return
	}

	slog.Info("label sheet rendered", "user", GetClaims(r.Context()).Username, "labels", len(entries), "pages", pages)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="labels.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// thumbnails loads a grayscale thumbnail for each product with a photo.
// A photo that fails to load is left off its labels.
func (h *LabelsHandler) thumbnails(r *http.Request, entries []model.QueueEntry) map[int64][]byte {
	thumbs := make(map[int64][]byte)
	for _, e := range entries {
		if e.ProductID == nil {
			continue
		}
		pid := *e.ProductID
		if _, done := thumbs[pid]; done {
			continue
		}
		thumbs[pid] = nil

		data, _, err := store.GetProductImage(r.Context(), h.DB, pid)
		if err != nil || data == nil {
			if err != nil {
				slog.Warn("failed to load product photo", "product_id", pid, "error", err)
			}
			continue
		}
		thumb, err := imaging.Thumbnail(data)
		if err != nil {
			slog.Warn("failed to make label thumbnail", "product_id", pid, "error", err)
			continue
		}
		thumbs[pid] = thumb
	}
	return thumbs
}

// MarkPrinted handles POST /api/labels/printed.
func (h *LabelsHandler) MarkPrinted(w http.ResponseWriter, r *http.Request) {
	var req markPrintedRequest
	if !bindAndValidate(w, r, &req) {
		return
	}

	claims := GetClaims(r.Context())
	if err := h.Inventory.MarkItemsPrinted(r.Context(), req.IDs, claims.UserID); err != nil {
		inventoryError(w, "mark labels printed", err)
		return
	}

	slog.Info("labels marked printed", "user", claims.Username, "count", len(req.IDs))
	jsonResponse(w, http.StatusOK, map[string]int{"printed": len(req.IDs)})
}

func parseIDList(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("invalid ids")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
