package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// RecordUUID appends a history row marking uuid as the item's active UUID.
// Earlier rows for the item are deactivated first.
func RecordUUID(ctx context.Context, tx *sql.Tx, itemID int64, uuid string, createdBy int64, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE uuid_history SET is_active = 0 WHERE itemid = ? AND is_active = 1`, itemID,
	); err != nil {
		return fmt.Errorf("deactivating uuid history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO uuid_history (itemid, uuid, is_active, created_by, timecreated) VALUES (?, ?, 1, ?, ?)`,
		itemID, uuid, createdBy, unix(now),
	); err != nil {
		return fmt.Errorf("recording uuid history: %w", err)
	}
	return nil
}

// GetUUIDHistory returns the history row for uuid, active or not.
func GetUUIDHistory(ctx context.Context, q Querier, uuid string) (*model.UUIDHistory, error) {
	h := &model.UUIDHistory{}
	var created int64
	err := q.QueryRowContext(ctx,
		`SELECT id, itemid, uuid, is_active, created_by, timecreated FROM uuid_history WHERE uuid = ?`, uuid,
	).Scan(&h.ID, &h.ItemID, &h.UUID, &h.IsActive, &h.CreatedBy, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting uuid history: %w", err)
	}
	h.TimeCreated = fromUnix(created)
	return h, nil
}

// ListItemUUIDs returns every UUID an item has carried, oldest first.
func ListItemUUIDs(ctx context.Context, q Querier, itemID int64) ([]model.UUIDHistory, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, itemid, uuid, is_active, created_by, timecreated
		 FROM uuid_history WHERE itemid = ? ORDER BY timecreated, id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing uuid history: %w", err)
	}
	defer rows.Close()

	var history []model.UUIDHistory
	for rows.Next() {
		var h model.UUIDHistory
		var created int64
		if err := rows.Scan(&h.ID, &h.ItemID, &h.UUID, &h.IsActive, &h.CreatedBy, &created); err != nil {
			return nil, fmt.Errorf("scanning uuid history: %w", err)
		}
		h.TimeCreated = fromUnix(created)
		history = append(history, h)
	}
	return history, rows.Err()
}
