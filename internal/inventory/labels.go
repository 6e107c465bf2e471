package inventory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/barcode"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// AddItemToQueue queues a QR label for an item. uuid may be empty, in which
// case the item's own UUID is used; a non-empty uuid must match it.
func (m *Manager) AddItemToQueue(ctx context.Context, itemID int64, uuid string, actorID int64, note string) (*model.QueueEntry, error) {
	if itemID <= 0 {
		return nil, fmt.Errorf("%w: item id required", ErrInvalidInput)
	}

	var entryID int64
	err := db.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		item, err := store.GetItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
		}
		if !item.Labeled() {
			return fmt.Errorf("%w: item %d has no uuid", ErrInvalidInput, itemID)
		}
		if uuid != "" && barcode.NormalizeUUID(uuid) != item.UUID {
			return fmt.Errorf("%w: uuid %s does not belong to item %d", ErrInvalidInput, uuid, itemID)
		}
		if item.Status != model.ItemStatusAvailable {
			return fmt.Errorf("%w: item %d is %s", ErrItemNotAvailable, itemID, item.Status)
		}

		queued, err := store.IsItemQueued(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if queued {
			return fmt.Errorf("%w: item %d", ErrAlreadyQueued, itemID)
		}

		entryID, err = store.EnqueueLabel(ctx, tx, item.ID, item.UUID, actorID, note, m.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	entries, err := store.ListPendingLabels(ctx, m.db, []int64{entryID})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("queued label %d disappeared", entryID)
	}
	return &entries[0], nil
}

// IsItemInQueue reports whether an item has a pending label.
func (m *Manager) IsItemInQueue(ctx context.Context, itemID int64) (bool, error) {
	return store.IsItemQueued(ctx, m.db, itemID)
}

// GetQueueCount returns the number of pending labels.
func (m *Manager) GetQueueCount(ctx context.Context) (int, error) {
	return store.CountPendingLabels(ctx, m.db)
}

// ListQueue returns pending labels oldest first. With ids, only those
// entries are returned.
func (m *Manager) ListQueue(ctx context.Context, ids ...int64) ([]model.QueueEntry, error) {
	return store.ListPendingLabels(ctx, m.db, ids)
}

// MarkItemsPrinted marks pending labels printed. Either every id is marked or
// none is: an unknown or already printed id fails the whole batch.
func (m *Manager) MarkItemsPrinted(ctx context.Context, ids []int64, actorID int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no labels given", ErrInvalidInput)
	}

	seen := make(map[int64]bool, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: bad label id %d", ErrInvalidInput, id)
		}
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	return db.WithTx(ctx, m.db, func(tx *sql.Tx) error {
		n, err := store.MarkLabelsPrinted(ctx, tx, unique, actorID, m.now())
		if err != nil {
			return err
		}
		if n != len(unique) {
			return fmt.Errorf("%w: %d of %d labels", ErrQueueEntryNotFound, len(unique)-n, len(unique))
		}
		return nil
	})
}
