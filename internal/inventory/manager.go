package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/izposoja/internal/barcode"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// MaxBatch caps how many items one intake or pre-generation call creates.
const MaxBatch = 500

const recentTransactionLimit = 10

// Manager coordinates item state changes. Every mutation runs in a single
// database transaction that updates the item and appends its ledger row.
type Manager struct {
	db        *sql.DB
	observers []Observer

	now     func() time.Time
	newUUID func() string
}

// NewManager builds a Manager. Observers are called after each commit.
func NewManager(database *sql.DB, observers ...Observer) *Manager {
	return &Manager{
		db:        database,
		observers: observers,
		now:       func() time.Time { return time.Now().UTC() },
		newUUID:   uuid.NewString,
	}
}

// Result is the outcome of a single item mutation. Transaction is nil when the
// item was already in the requested state; Warning then says so.
type Result struct {
	Item        *model.Item        `json:"item"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	Warning     string             `json:"warning,omitempty"`
}

// change is what a mutation decided to do with a loaded item.
type change struct {
	tx      *model.Transaction
	warning string
}

type mutation func(tx *sql.Tx, item *model.Item, now time.Time) (change, error)

// mutateItem loads the item carrying uuid, applies fn and, unless fn reports
// a no-op, writes the item together with its ledger row.
func (m *Manager) mutateItem(ctx context.Context, rawUUID string, actorID int64, fn mutation) (*Result, error) {
	id, err := checkUUID(rawUUID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	res := &Result{}
	var events []Event

	err = db.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		item, err := loadItem(ctx, tx, id)
		if err != nil {
			return err
		}

		c, err := fn(tx, item, now)
		if err != nil {
			return err
		}
		res.Item = item
		res.Warning = c.warning
		if c.tx == nil {
			return nil
		}

		if err := record(ctx, tx, item, c.tx, actorID, now); err != nil {
			return err
		}
		res.Transaction = c.tx
		events = append(events, newEvent(*item, c.tx))
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, events)
	return res, nil
}

// record saves item and appends t for it.
func record(ctx context.Context, tx *sql.Tx, item *model.Item, t *model.Transaction, actorID int64, now time.Time) error {
	item.TimeModified = now
	if err := store.UpdateItem(ctx, tx, item); err != nil {
		return err
	}

	t.ItemID = item.ID
	t.ProcessedBy = actorID
	t.Timestamp = now
	_, err := store.AppendTransaction(ctx, tx, t)
	return err
}

func checkUUID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: uuid required", ErrInvalidInput)
	}
	if !barcode.IsUUID(s) {
		return "", fmt.Errorf("%w: %q is not a uuid", ErrInvalidInput, s)
	}
	return barcode.NormalizeUUID(s), nil
}

// loadItem resolves a normalized UUID, telling retired labels apart from
// unknown ones.
func loadItem(ctx context.Context, q store.Querier, id string) (*model.Item, error) {
	item, err := store.GetItemByUUID(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if item != nil {
		return item, nil
	}

	h, err := store.GetUUIDHistory(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if h != nil && !h.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrUUIDReassigned, id)
	}
	return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

func activeLocation(ctx context.Context, q store.Querier, id int64) (*model.Location, error) {
	loc, err := store.GetLocation(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if loc == nil || !loc.Active {
		return nil, fmt.Errorf("%w: %d", ErrLocationNotFound, id)
	}
	return loc, nil
}

func activeProduct(ctx context.Context, q store.Querier, id int64) (*model.Product, error) {
	p, err := store.GetProduct(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Active {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return p, nil
}

func noteRow(item *model.Item, typ model.TransactionType, notes string) *model.Transaction {
	return &model.Transaction{
		Type:            typ,
		Notes:           notes,
		ConditionBefore: item.ConditionStatus,
		ConditionAfter:  item.ConditionStatus,
	}
}

// AssignToUser checks an item out to a borrower.
func (m *Manager) AssignToUser(ctx context.Context, uuid string, userID, actorID int64, notes string) (*Result, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	return m.mutateItem(ctx, uuid, actorID, func(tx *sql.Tx, item *model.Item, _ time.Time) (change, error) {
		u, err := store.GetUser(ctx, tx, userID)
		if err != nil {
			return change{}, err
		}
		if u == nil || u.DeletedAt != nil {
			return change{}, fmt.Errorf("%w: %d", ErrUserNotFound, userID)
		}

		switch item.Status {
		case model.ItemStatusRemoved:
			return change{}, fmt.Errorf("%w: item %s is removed", ErrInvalidTransition, item.UUID)
		case model.ItemStatusMaintenance, model.ItemStatusDamaged, model.ItemStatusLost:
			return change{}, fmt.Errorf("%w: item %s is %s", ErrInvalidTransition, item.UUID, item.Status)
		case model.ItemStatusCheckedOut:
			if item.CurrentUserID != nil && *item.CurrentUserID == userID {
				return change{warning: "item is already checked out to this user"}, nil
			}
			return change{}, fmt.Errorf("%w: %s", ErrAlreadyCheckedOut, item.UUID)
		}

		t := noteRow(item, model.TransactionCheckout, notes)
		t.FromLocationID = item.LocationID
		t.ToUserID = model.Int64(userID)

		item.CurrentUserID = model.Int64(userID)
		item.LocationID = nil
		item.Status = model.ItemStatusCheckedOut
		return change{tx: t}, nil
	})
}

// AssignToLocation puts an item at a storage location. Items coming back from
// a borrower are checked in; items moved between locations are transferred.
func (m *Manager) AssignToLocation(ctx context.Context, uuid string, locationID, actorID int64, notes string) (*Result, error) {
	if locationID <= 0 {
		return nil, fmt.Errorf("%w: location id required", ErrInvalidInput)
	}

	return m.mutateItem(ctx, uuid, actorID, func(tx *sql.Tx, item *model.Item, _ time.Time) (change, error) {
		if _, err := activeLocation(ctx, tx, locationID); err != nil {
			return change{}, err
		}
		if item.Removed() {
			return change{}, fmt.Errorf("%w: item %s is removed", ErrInvalidTransition, item.UUID)
		}
		if item.LocationID != nil && *item.LocationID == locationID {
			return change{warning: "item is already at this location"}, nil
		}

		t := noteRow(item, model.TransactionCheckin, notes)
		t.ToLocationID = model.Int64(locationID)
		switch {
		case item.CurrentUserID != nil:
			t.FromUserID = item.CurrentUserID
		case item.LocationID != nil:
			t.Type = model.TransactionTransfer
			t.FromLocationID = item.LocationID
		}

		item.CurrentUserID = nil
		item.LocationID = model.Int64(locationID)
		if item.Status == model.ItemStatusCheckedOut || item.Status == model.ItemStatusInTransit {
			item.Status = model.ItemStatusAvailable
		}
		return change{tx: t}, nil
	})
}

// UnassignEquipment clears an item's holder without naming a new one, for
// returns whose storage location is not yet known.
func (m *Manager) UnassignEquipment(ctx context.Context, uuid string, actorID int64, notes string) (*Result, error) {
	return m.mutateItem(ctx, uuid, actorID, func(_ *sql.Tx, item *model.Item, _ time.Time) (change, error) {
		if item.Removed() {
			return change{}, fmt.Errorf("%w: item %s is removed", ErrInvalidTransition, item.UUID)
		}
		if item.CurrentUserID == nil && item.LocationID == nil {
			return change{warning: "item has no holder"}, nil
		}

		var t *model.Transaction
		if item.CurrentUserID != nil {
			t = noteRow(item, model.TransactionCheckin, notes)
			t.FromUserID = item.CurrentUserID
		} else {
			t = noteRow(item, model.TransactionTransfer, notes)
			t.FromLocationID = item.LocationID
		}

		item.CurrentUserID = nil
		item.LocationID = nil
		if item.Status == model.ItemStatusAvailable || item.Status == model.ItemStatusCheckedOut {
			item.Status = model.ItemStatusInTransit
		}
		return change{tx: t}, nil
	})
}

// UpdateEquipmentNotes replaces an item's condition notes. Status, holders and
// removal data are left alone, so removed items can still be annotated.
func (m *Manager) UpdateEquipmentNotes(ctx context.Context, uuid, notes string, actorID int64) (*Result, error) {
	notes = strings.TrimSpace(notes)
	return m.mutateItem(ctx, uuid, actorID, func(_ *sql.Tx, item *model.Item, _ time.Time) (change, error) {
		t := noteRow(item, model.TransactionNoteUpdate, notes)
		item.ConditionNotes = notes
		return change{tx: t}, nil
	})
}

// ConditionChange is a requested condition and/or status change. Empty
// fields are left as they are.
type ConditionChange struct {
	Condition string
	Status    string
	Notes     string
}

// settableStatuses are the statuses ChangeCondition may move an item into.
var settableStatuses = map[string]bool{
	model.ItemStatusAvailable:   true,
	model.ItemStatusMaintenance: true,
	model.ItemStatusDamaged:     true,
	model.ItemStatusLost:        true,
}

// ChangeCondition records a condition assessment and optionally moves the
// item between available, maintenance, damaged and lost.
func (m *Manager) ChangeCondition(ctx context.Context, uuid string, c ConditionChange, actorID int64) (*Result, error) {
	if c.Condition == "" && c.Status == "" {
		return nil, fmt.Errorf("%w: condition or status required", ErrInvalidInput)
	}
	if c.Condition != "" && !model.ValidCondition(c.Condition) {
		return nil, fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, c.Condition)
	}
	if c.Status != "" && !settableStatuses[c.Status] {
		return nil, fmt.Errorf("%w: status %q cannot be set directly", ErrInvalidInput, c.Status)
	}

	return m.mutateItem(ctx, uuid, actorID, func(_ *sql.Tx, item *model.Item, _ time.Time) (change, error) {
		if item.Removed() {
			return change{}, fmt.Errorf("%w: item %s is removed", ErrInvalidTransition, item.UUID)
		}

		condition, status := item.ConditionStatus, item.Status
		if c.Condition != "" {
			condition = c.Condition
		}
		if c.Status != "" {
			status = c.Status
		}
		if status != item.Status && item.CurrentUserID != nil {
			return change{}, fmt.Errorf("%w: check %s in before changing its status", ErrItemCheckedOut, item.UUID)
		}
		if condition == item.ConditionStatus && status == item.Status {
			return change{warning: "condition and status are unchanged"}, nil
		}

		notes := strings.TrimSpace(c.Notes)
		if notes == "" {
			notes = describeCondition(item, condition, status)
		}
		t := noteRow(item, model.TransactionNoteUpdate, notes)
		t.ConditionAfter = condition

		item.ConditionStatus = condition
		item.Status = status
		return change{tx: t}, nil
	})
}

func describeCondition(item *model.Item, condition, status string) string {
	var parts []string
	if condition != item.ConditionStatus {
		parts = append(parts, fmt.Sprintf("condition %s -> %s", item.ConditionStatus, condition))
	}
	if status != item.Status {
		parts = append(parts, fmt.Sprintf("status %s -> %s", item.Status, status))
	}
	return strings.Join(parts, ", ")
}

func validRemovalMethod(method string) bool {
	switch method {
	case model.RemovalQRScan, model.RemovalEmergencyUPC, model.RemovalManual:
		return true
	}
	return false
}

// RemoveItem retires an item for good. method defaults to manual.
func (m *Manager) RemoveItem(ctx context.Context, uuid string, actorID int64, notes, method string) (*Result, error) {
	if method == "" {
		method = model.RemovalManual
	}
	if !validRemovalMethod(method) {
		return nil, fmt.Errorf("%w: unknown removal method %q", ErrInvalidInput, method)
	}

	return m.mutateItem(ctx, uuid, actorID, func(tx *sql.Tx, item *model.Item, now time.Time) (change, error) {
		t, err := removeItem(item, notes, method, now)
		if err != nil {
			return change{}, err
		}
		if err := store.DropPendingLabel(ctx, tx, item.ID); err != nil {
			return change{}, err
		}
		return change{tx: t}, nil
	})
}

// removeItem applies the terminal transition to item and returns its ledger
// row. removal_date is set together with the status.
func removeItem(item *model.Item, notes, method string, now time.Time) (*model.Transaction, error) {
	if item.Removed() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRemoved, item.UUID)
	}
	if item.Status == model.ItemStatusCheckedOut || item.CurrentUserID != nil {
		return nil, fmt.Errorf("%w: %s", ErrItemCheckedOut, item.UUID)
	}

	t := noteRow(item, model.TransactionRemoval, notes)
	t.FromLocationID = item.LocationID

	item.Status = model.ItemStatusRemoved
	item.LocationID = nil
	item.CurrentUserID = nil
	item.RemovalDate = &now
	item.RemovalMethod = method
	return t, nil
}

// EquipmentDetails is everything known about one item.
type EquipmentDetails struct {
	Item               *model.Item         `json:"item"`
	Product            *model.Product      `json:"product,omitempty"`
	Location           *model.Location     `json:"location,omitempty"`
	CurrentUser        *model.User         `json:"current_user,omitempty"`
	RecentTransactions []model.Transaction `json:"recent_transactions"`
	UUIDHistory        []model.UUIDHistory `json:"uuid_history,omitempty"`
	CheckoutCount      int                 `json:"checkout_count"`
	DaysInService      int                 `json:"days_in_service"`
	LabelQueued        bool                `json:"label_queued"`
}

// GetEquipmentDetails returns an item with its product, holder and recent
// history. A UUID that only survives in history yields ErrUUIDReassigned.
func (m *Manager) GetEquipmentDetails(ctx context.Context, uuid string) (*EquipmentDetails, error) {
	id, err := checkUUID(uuid)
	if err != nil {
		return nil, err
	}

	item, err := loadItem(ctx, m.db, id)
	if err != nil {
		return nil, err
	}
	d := &EquipmentDetails{Item: item}

	if item.ProductID != nil {
		if d.Product, err = store.GetProduct(ctx, m.db, *item.ProductID); err != nil {
			return nil, err
		}
	}
	if item.LocationID != nil {
		if d.Location, err = store.GetLocation(ctx, m.db, *item.LocationID); err != nil {
			return nil, err
		}
	}
	if item.CurrentUserID != nil {
		if d.CurrentUser, err = store.GetUser(ctx, m.db, *item.CurrentUserID); err != nil {
			return nil, err
		}
	}
	if d.RecentTransactions, err = store.ListItemTransactions(ctx, m.db, item.ID, recentTransactionLimit); err != nil {
		return nil, err
	}
	if d.UUIDHistory, err = store.ListItemUUIDs(ctx, m.db, item.ID); err != nil {
		return nil, err
	}
	if d.CheckoutCount, err = store.CountCheckouts(ctx, m.db, item.ID); err != nil {
		return nil, err
	}
	if d.DaysInService, err = store.DaysInService(ctx, m.db, item.ID, m.now()); err != nil {
		return nil, err
	}
	if d.LabelQueued, err = store.IsItemQueued(ctx, m.db, item.ID); err != nil {
		return nil, err
	}
	return d, nil
}

// AddItemsInput describes a stock intake.
type AddItemsInput struct {
	ProductID  int64
	LocationID int64
	Quantity   int
	// Labeled items get a UUID and a queued QR label. Unlabeled stock is
	// tracked by product only.
	Labeled bool
	Notes   string
}

// AddItems creates Quantity available items of a product at a location, each
// with its own checkin row.
func (m *Manager) AddItems(ctx context.Context, in AddItemsInput, actorID int64) ([]model.Item, error) {
	if in.Quantity < 1 || in.Quantity > MaxBatch {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidInput, MaxBatch)
	}

	now := m.now()
	var items []model.Item
	var events []Event

	err := db.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		product, err := activeProduct(ctx, tx, in.ProductID)
		if err != nil {
			return err
		}
		if _, err := activeLocation(ctx, tx, in.LocationID); err != nil {
			return err
		}

		for range in.Quantity {
			item, t, err := m.createItem(ctx, tx, model.Int64(product.ID), model.Int64(in.LocationID), in.Labeled, actorID, in.Notes, now)
			if err != nil {
				return err
			}
			items = append(items, *item)
			events = append(events, newEvent(*item, t))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, events)
	return items, nil
}

// PregenerateItems creates count labeled items with no product or location
// yet. Their labels are queued for printing; BindProduct ties them to stock.
func (m *Manager) PregenerateItems(ctx context.Context, count int, actorID int64) ([]model.Item, error) {
	if count < 1 || count > MaxBatch {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidInput, MaxBatch)
	}

	now := m.now()
	var items []model.Item
	var events []Event

	err := db.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		for range count {
			item, t, err := m.createItem(ctx, tx, nil, nil, true, actorID, "QR label pre-generated", now)
			if err != nil {
				return err
			}
			items = append(items, *item)
			events = append(events, newEvent(*item, t))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, events)
	return items, nil
}

// createItem inserts a new available item with its checkin row. Labeled items
// also get a UUID history row and a queued label.
func (m *Manager) createItem(ctx context.Context, tx *sql.Tx, productID, locationID *int64, labeled bool, actorID int64, notes string, now time.Time) (*model.Item, *model.Transaction, error) {
	item := &model.Item{
		ProductID:       productID,
		LocationID:      locationID,
		Status:          model.ItemStatusAvailable,
		ConditionStatus: model.ConditionGood,
		TimeCreated:     now,
		TimeModified:    now,
	}
	if labeled {
		item.UUID = m.newUUID()
	}
	if _, err := store.CreateItem(ctx, tx, item); err != nil {
		return nil, nil, err
	}

	if labeled {
		if err := store.RecordUUID(ctx, tx, item.ID, item.UUID, actorID, now); err != nil {
			return nil, nil, err
		}
		if _, err := store.EnqueueLabel(ctx, tx, item.ID, item.UUID, actorID, "", now); err != nil {
			return nil, nil, err
		}
	}

	t := noteRow(item, model.TransactionCheckin, notes)
	t.ConditionBefore = ""
	t.ItemID = item.ID
	t.ToLocationID = locationID
	t.ProcessedBy = actorID
	t.Timestamp = now
	if _, err := store.AppendTransaction(ctx, tx, t); err != nil {
		return nil, nil, err
	}
	return item, t, nil
}

// BindProduct ties a pre-generated item to a product and puts it at a
// location. It is the scan-in step for pre-printed labels.
func (m *Manager) BindProduct(ctx context.Context, uuid string, productID, locationID, actorID int64) (*Result, error) {
	return m.mutateItem(ctx, uuid, actorID, func(tx *sql.Tx, item *model.Item, _ time.Time) (change, error) {
		if item.Removed() {
			return change{}, fmt.Errorf("%w: item %s is removed", ErrInvalidTransition, item.UUID)
		}
		if item.ProductID != nil {
			return change{}, fmt.Errorf("%w: item %s is already bound to product %d", ErrInvalidTransition, item.UUID, *item.ProductID)
		}
		if item.CurrentUserID != nil {
			return change{}, fmt.Errorf("%w: %s", ErrItemCheckedOut, item.UUID)
		}
		product, err := activeProduct(ctx, tx, productID)
		if err != nil {
			return change{}, err
		}
		if _, err := activeLocation(ctx, tx, locationID); err != nil {
			return change{}, err
		}

		t := noteRow(item, model.TransactionCheckin, "bound to product "+product.Name)
		t.ToLocationID = model.Int64(locationID)
		if item.LocationID != nil {
			t.Type = model.TransactionTransfer
			t.FromLocationID = item.LocationID
		}

		item.ProductID = model.Int64(product.ID)
		item.LocationID = model.Int64(locationID)
		if item.Status == model.ItemStatusInTransit {
			item.Status = model.ItemStatusAvailable
		}
		return change{tx: t}, nil
	})
}

// ReassignUUID gives an item a fresh UUID to replace a damaged label. The old
// UUID stays in history as inactive and a new label is queued.
func (m *Manager) ReassignUUID(ctx context.Context, uuid string, actorID int64, notes string) (*Result, error) {
	return m.mutateItem(ctx, uuid, actorID, func(tx *sql.Tx, item *model.Item, now time.Time) (change, error) {
		if item.Removed() {
			return change{}, fmt.Errorf("%w: item %s is removed", ErrInvalidTransition, item.UUID)
		}

		old := item.UUID
		h, err := store.GetUUIDHistory(ctx, tx, old)
		if err != nil {
			return change{}, err
		}
		if h == nil {
			// Items labeled before history was kept.
			if err := store.RecordUUID(ctx, tx, item.ID, old, actorID, item.TimeCreated); err != nil {
				return change{}, err
			}
		}

		item.UUID = m.newUUID()
		if err := store.RecordUUID(ctx, tx, item.ID, item.UUID, actorID, now); err != nil {
			return change{}, err
		}

		queued, err := store.RelabelPending(ctx, tx, item.ID, item.UUID)
		if err != nil {
			return change{}, err
		}
		if !queued {
			if _, err := store.EnqueueLabel(ctx, tx, item.ID, item.UUID, actorID, "replacement label", now); err != nil {
				return change{}, err
			}
		}

		msg := fmt.Sprintf("label replaced, previous uuid %s", old)
		if notes = strings.TrimSpace(notes); notes != "" {
			msg += ": " + notes
		}
		return change{tx: noteRow(item, model.TransactionNoteUpdate, msg)}, nil
	})
}
