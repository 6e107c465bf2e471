package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/erazemk/izposoja/internal/barcode"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Action is what a scan asks for.
type Action string

// Scan actions.
const (
	ActionLookup   Action = "lookup"
	ActionAdd      Action = "add"
	ActionRemove   Action = "remove"
	ActionCheckout Action = "checkout"
	ActionCheckin  Action = "checkin"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionLookup, ActionAdd, ActionRemove, ActionCheckout, ActionCheckin:
		return true
	}
	return false
}

// ScanRequest is one scanned payload and what to do with it.
type ScanRequest struct {
	Payload string
	// Type is the declared barcode type; empty, "auto" and "unknown"
	// classify the payload.
	Type    string
	Action  Action
	ActorID int64

	// UserID is the borrower for checkout.
	UserID int64
	// LocationID is where added or checked-in items go. A checkin without
	// one leaves the item in transit.
	LocationID int64
	// ProductID binds a pre-generated QR item on add.
	ProductID int64
	Notes     string
}

// ScanResult is the outcome of a scan. ErrorCode is set when Success is false.
type ScanResult struct {
	Success     bool               `json:"success"`
	ErrorCode   string             `json:"error_code,omitempty"`
	Message     string             `json:"message"`
	Warning     string             `json:"warning,omitempty"`
	BarcodeType barcode.Kind       `json:"barcode_type,omitempty"`
	Item        *model.Item        `json:"item,omitempty"`
	Product     *model.Product     `json:"product,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

// Scan resolves a payload to an item or product and performs the requested
// action. Failures are reported in the result, never returned.
func (m *Manager) Scan(ctx context.Context, req ScanRequest) ScanResult {
	res, err := m.scan(ctx, req)
	if err == nil {
		res.Success = true
		return res
	}

	res.Success = false
	res.ErrorCode = Code(err)
	if KindOf(err) == KindPersistence {
		slog.Error("scan failed", "payload", req.Payload, "action", req.Action, "error", err)
		res.Message = "internal error"
		return res
	}
	res.Message = errorMessage(err)
	return res
}

func errorMessage(err error) string {
	msg := err.Error()
	msg = strings.TrimPrefix(msg, "inventory: ")
	return strings.TrimPrefix(msg, "barcode: ")
}

func (m *Manager) scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	action := req.Action
	if action == "" {
		action = ActionLookup
	}
	if !action.Valid() {
		return ScanResult{}, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, req.Action)
	}

	declared, err := barcode.ParseKind(req.Type)
	if err != nil {
		return ScanResult{}, err
	}
	payload := strings.TrimSpace(req.Payload)
	kind, err := barcode.Resolve(payload, declared)
	if err != nil {
		return ScanResult{}, fmt.Errorf("%w: cannot classify %q", ErrInvalidBarcodeType, payload)
	}

	req.Action = action
	req.Payload = payload
	if kind == barcode.KindUUID {
		res, err := m.scanUUID(ctx, req)
		res.BarcodeType = kind
		return res, err
	}
	res, err := m.scanUPC(ctx, req)
	res.BarcodeType = kind
	return res, err
}

func (m *Manager) scanUUID(ctx context.Context, req ScanRequest) (ScanResult, error) {
	if !barcode.IsUUID(req.Payload) {
		return ScanResult{}, fmt.Errorf("%w: %q is not a uuid", ErrInvalidBarcodeType, req.Payload)
	}
	id := barcode.NormalizeUUID(req.Payload)

	var res *Result
	var err error
	var msg string

	switch req.Action {
	case ActionLookup:
		item, err := loadItem(ctx, m.db, id)
		if err != nil {
			return ScanResult{}, err
		}
		out := ScanResult{Item: item, Message: "item found"}
		if item.Removed() {
			out.Message = "item already removed"
			out.Warning = "item has been removed from inventory"
		}
		out.Product, err = m.productOf(ctx, item)
		return out, err

	case ActionRemove:
		res, err = m.RemoveItem(ctx, id, req.ActorID, req.Notes, model.RemovalQRScan)
		msg = "item removed"

	case ActionCheckout:
		if req.UserID <= 0 {
			return ScanResult{}, fmt.Errorf("%w: checkout requires a user", ErrInvalidInput)
		}
		res, err = m.AssignToUser(ctx, id, req.UserID, req.ActorID, req.Notes)
		msg = "item checked out"

	case ActionCheckin:
		if req.LocationID > 0 {
			res, err = m.AssignToLocation(ctx, id, req.LocationID, req.ActorID, req.Notes)
		} else {
			res, err = m.UnassignEquipment(ctx, id, req.ActorID, req.Notes)
		}
		msg = "item checked in"

	case ActionAdd:
		if req.ProductID <= 0 || req.LocationID <= 0 {
			return ScanResult{}, fmt.Errorf("%w: binding a qr label requires a product and a location", ErrInvalidInput)
		}
		res, err = m.BindProduct(ctx, id, req.ProductID, req.LocationID, req.ActorID)
		msg = "item added"
	}
	if err != nil {
		return ScanResult{}, err
	}

	out := ScanResult{Item: res.Item, Transaction: res.Transaction, Warning: res.Warning, Message: msg}
	out.Product, err = m.productOf(ctx, res.Item)
	return out, err
}

func (m *Manager) scanUPC(ctx context.Context, req ScanRequest) (ScanResult, error) {
	switch req.Action {
	case ActionCheckout, ActionCheckin:
		return ScanResult{}, fmt.Errorf("%w: %s needs the item's qr code", ErrInvalidBarcodeType, req.Action)
	case ActionRemove:
		res, product, err := m.RemoveByUPC(ctx, req.Payload, req.ActorID, req.Notes)
		if err != nil {
			return ScanResult{}, err
		}
		return ScanResult{
			Item:        res.Item,
			Product:     product,
			Transaction: res.Transaction,
			Warning:     res.Warning,
			Message:     "item removed by upc",
		}, nil
	}

	upc, err := barcode.NormalizeUPC(req.Payload)
	if err != nil {
		return ScanResult{}, err
	}
	product, err := store.GetProductByUPC(ctx, m.db, upc.Code)
	if err != nil {
		return ScanResult{}, err
	}
	if product == nil {
		return ScanResult{}, fmt.Errorf("%w: upc %s", ErrProductNotFound, upc.Code)
	}

	if req.Action == ActionLookup {
		return ScanResult{Product: product, Warning: upc.Warning(), Message: "product found"}, nil
	}

	if req.LocationID <= 0 {
		return ScanResult{}, fmt.Errorf("%w: adding an item requires a location", ErrInvalidInput)
	}
	items, err := m.AddItems(ctx, AddItemsInput{
		ProductID:  product.ID,
		LocationID: req.LocationID,
		Quantity:   1,
		Labeled:    true,
		Notes:      req.Notes,
	}, req.ActorID)
	if err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Item: &items[0], Product: product, Warning: upc.Warning(), Message: "item added"}, nil
}

func (m *Manager) productOf(ctx context.Context, item *model.Item) (*model.Product, error) {
	if item == nil || item.ProductID == nil {
		return nil, nil
	}
	return store.GetProduct(ctx, m.db, *item.ProductID)
}

// RemoveByUPC removes one unit of a product when no QR label can be scanned.
// The oldest label-less unit is chosen; it gets a UUID before removal so the
// ledger and history can refer to it.
func (m *Manager) RemoveByUPC(ctx context.Context, rawUPC string, actorID int64, notes string) (*Result, *model.Product, error) {
	upc, err := barcode.NormalizeUPC(rawUPC)
	if err != nil {
		return nil, nil, err
	}

	now := m.now()
	res := &Result{Warning: upc.Warning()}
	var product *model.Product
	var events []Event

	err = db.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		product, err = store.GetProductByUPC(ctx, tx, upc.Code)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: upc %s", ErrProductNotFound, upc.Code)
		}

		candidates, err := store.ListItemsByProduct(ctx, tx, product.ID, model.ItemStatusRemoved)
		if err != nil {
			return err
		}
		item, err := selectEmergencyCandidate(candidates)
		if err != nil {
			return err
		}

		item.UUID = m.newUUID()
		if err := store.RecordUUID(ctx, tx, item.ID, item.UUID, actorID, now); err != nil {
			return err
		}

		if strings.TrimSpace(notes) == "" {
			notes = "emergency removal by upc " + upc.Code
		}
		t, err := removeItem(item, notes, model.RemovalEmergencyUPC, now)
		if err != nil {
			return err
		}
		if err := record(ctx, tx, item, t, actorID, now); err != nil {
			return err
		}

		res.Item = item
		res.Transaction = t
		events = append(events, newEvent(*item, t))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.publish(ctx, events)
	return res, product, nil
}

// selectEmergencyCandidate picks the unit to remove from a product's items,
// which must be ordered oldest first. Label-less units go first; QR-labeled
// units are never picked because the wrong physical unit could be retired.
func selectEmergencyCandidate(items []model.Item) (*model.Item, error) {
	labeled := 0
	for i := range items {
		item := &items[i]
		if item.Removed() {
			continue
		}
		if item.Labeled() {
			labeled++
			continue
		}
		if item.Status == model.ItemStatusCheckedOut || item.CurrentUserID != nil {
			return nil, fmt.Errorf("%w: oldest unlabeled unit %d is checked out", ErrItemCheckedOut, item.ID)
		}
		return item, nil
	}

	if labeled > 0 {
		return nil, fmt.Errorf("%w: %d labeled units remain", ErrAmbiguousRemoval, labeled)
	}
	return nil, ErrNoEmergencyCandidates
}
