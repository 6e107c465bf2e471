package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// EnqueueLabel adds a pending label row for an item.
func EnqueueLabel(ctx context.Context, tx *sql.Tx, itemID int64, uuid string, queuedBy int64, note string, now time.Time) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO print_queue (item_id, uuid, queued_by, note, timequeued) VALUES (?, ?, ?, ?, ?)`,
		itemID, uuid, queuedBy, note, unix(now),
	)
	if err != nil {
		return 0, fmt.Errorf("queueing label: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting queue id: %w", err)
	}
	return id, nil
}

// IsItemQueued reports whether the item has a pending label.
func IsItemQueued(ctx context.Context, q Querier, itemID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM print_queue WHERE item_id = ? AND printed = 0`, itemID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking print queue: %w", err)
	}
	return n > 0, nil
}

// CountPendingLabels returns the number of labels waiting to be printed.
func CountPendingLabels(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM print_queue WHERE printed = 0`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting print queue: %w", err)
	}
	return n, nil
}

// ListPendingLabels returns pending labels, oldest first. When ids is
// non-empty only those entries are returned.
func ListPendingLabels(ctx context.Context, q Querier, ids []int64) ([]model.QueueEntry, error) {
	query := `SELECT pq.id, pq.item_id, pq.uuid, pq.queued_by, pq.note, pq.timequeued,
	                 pq.printed, pq.timeprinted, pq.printed_by,
	                 COALESCE(p.name, ''), i.student_label, i.product_id
	          FROM print_queue pq
	          JOIN items i ON i.id = pq.item_id
	          LEFT JOIN products p ON p.id = i.product_id
	          WHERE pq.printed = 0`
	var args []any
	if len(ids) > 0 {
		query += ` AND pq.id IN (` + placeholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY pq.timequeued, pq.id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing print queue: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		var e model.QueueEntry
		var queued int64
		var printedAt, printedBy, productID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.ItemID, &e.UUID, &e.QueuedBy, &e.Note, &queued,
			&e.Printed, &printedAt, &printedBy, &e.ProductName, &e.StudentLabel, &productID); err != nil {
			return nil, fmt.Errorf("scanning print queue: %w", err)
		}
		e.TimeQueued = fromUnix(queued)
		e.TimePrinted = timePtr(printedAt)
		e.PrintedBy = int64Ptr(printedBy)
		e.ProductID = int64Ptr(productID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkLabelsPrinted marks the given pending entries printed and returns how
// many rows changed.
func MarkLabelsPrinted(ctx context.Context, tx *sql.Tx, ids []int64, printedBy int64, now time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{unix(now), printedBy}
	for _, id := range ids {
		args = append(args, id)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE print_queue SET printed = 1, timeprinted = ?, printed_by = ?
		 WHERE printed = 0 AND id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("marking labels printed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("marking labels printed: %w", err)
	}
	return int(n), nil
}

// RelabelPending points an item's pending label at a new UUID. It reports
// whether a pending entry existed.
func RelabelPending(ctx context.Context, tx *sql.Tx, itemID int64, uuid string) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE print_queue SET uuid = ? WHERE item_id = ? AND printed = 0`, uuid, itemID)
	if err != nil {
		return false, fmt.Errorf("relabeling pending label: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("relabeling pending label: %w", err)
	}
	return n > 0, nil
}

// DropPendingLabel discards an item's pending label, if any.
func DropPendingLabel(ctx context.Context, tx *sql.Tx, itemID int64) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM print_queue WHERE item_id = ? AND printed = 0`, itemID); err != nil {
		return fmt.Errorf("dropping pending label: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
