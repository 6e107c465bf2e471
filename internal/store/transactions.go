package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

// ErrInvalidTransaction is returned when a ledger entry's holder fields do
// not fit its type.
var ErrInvalidTransaction = errors.New("store: invalid ledger entry")

// ValidateTransaction checks the from/to holder fields against the
// transaction type.
func ValidateTransaction(t *model.Transaction) error {
	if t.ItemID <= 0 {
		return fmt.Errorf("%w: item required", ErrInvalidTransaction)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, t.Type)
	}
	if t.FromUserID != nil && t.FromLocationID != nil {
		return fmt.Errorf("%w: both from_user_id and from_location_id set", ErrInvalidTransaction)
	}
	if t.ToUserID != nil && t.ToLocationID != nil {
		return fmt.Errorf("%w: both to_user_id and to_location_id set", ErrInvalidTransaction)
	}

	switch t.Type {
	case model.TransactionCheckout:
		if t.ToUserID == nil {
			return fmt.Errorf("%w: checkout requires to_user_id", ErrInvalidTransaction)
		}
	case model.TransactionCheckin:
		if t.ToUserID != nil {
			return fmt.Errorf("%w: checkin cannot set to_user_id", ErrInvalidTransaction)
		}
	case model.TransactionTransfer:
		if t.FromLocationID == nil {
			return fmt.Errorf("%w: transfer requires from_location_id", ErrInvalidTransaction)
		}
		if t.ToUserID != nil {
			return fmt.Errorf("%w: transfer cannot set to_user_id", ErrInvalidTransaction)
		}
	case model.TransactionRemoval, model.TransactionNoteUpdate:
		if t.ToUserID != nil || t.ToLocationID != nil {
			return fmt.Errorf("%w: %s cannot set a destination", ErrInvalidTransaction, t.Type)
		}
	}
	return nil
}

// AppendTransaction validates and inserts a ledger row. Existing rows are
// never touched.
func AppendTransaction(ctx context.Context, tx *sql.Tx, t *model.Transaction) (int64, error) {
	if err := ValidateTransaction(t); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (item_id, transaction_type, from_user_id, to_user_id,
		                           from_location_id, to_location_id, processed_by, notes,
		                           condition_before, condition_after, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ItemID, string(t.Type), nullInt64(t.FromUserID), nullInt64(t.ToUserID),
		nullInt64(t.FromLocationID), nullInt64(t.ToLocationID), t.ProcessedBy, t.Notes,
		t.ConditionBefore, t.ConditionAfter, unix(t.Timestamp),
	)
	if err != nil {
		return 0, fmt.Errorf("recording transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	t.ID = id
	return id, nil
}

// TransactionFilter narrows ListRecentTransactions. Zero values mean no filter.
type TransactionFilter struct {
	ItemID      int64
	UserID      int64
	LocationID  int64
	Type        model.TransactionType
	ProcessedBy int64
	Since       time.Time
}

const transactionSelect = `SELECT t.id, t.item_id, t.transaction_type, t.from_user_id, t.to_user_id,
	       t.from_location_id, t.to_location_id, t.processed_by, t.notes,
	       t.condition_before, t.condition_after, t.timestamp,
	       COALESCE(i.uuid, '') AS item_uuid, COALESCE(p.name, '') AS product_name
	FROM transactions t
	JOIN items i ON i.id = t.item_id
	LEFT JOIN products p ON p.id = i.product_id
	WHERE 1=1`

// ListRecentTransactions returns ledger rows matching filter, newest first.
func ListRecentTransactions(ctx context.Context, q Querier, f TransactionFilter, limit int) ([]model.Transaction, error) {
	query := transactionSelect
	var args []any

	if f.ItemID > 0 {
		query += ` AND t.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.UserID > 0 {
		query += ` AND (t.from_user_id = ? OR t.to_user_id = ?)`
		args = append(args, f.UserID, f.UserID)
	}
	if f.LocationID > 0 {
		query += ` AND (t.from_location_id = ? OR t.to_location_id = ?)`
		args = append(args, f.LocationID, f.LocationID)
	}
	if f.Type != "" {
		query += ` AND t.transaction_type = ?`
		args = append(args, string(f.Type))
	}
	if f.ProcessedBy > 0 {
		query += ` AND t.processed_by = ?`
		args = append(args, f.ProcessedBy)
	}
	if !f.Since.IsZero() {
		query += ` AND t.timestamp >= ?`
		args = append(args, unix(f.Since))
	}

	query += ` ORDER BY t.timestamp DESC, t.id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListItemTransactions returns an item's ledger rows, newest first.
func ListItemTransactions(ctx context.Context, q Querier, itemID int64, limit int) ([]model.Transaction, error) {
	return ListRecentTransactions(ctx, q, TransactionFilter{ItemID: itemID}, limit)
}

// CountTransactions returns the number of ledger rows for an item.
func CountTransactions(ctx context.Context, q Querier, itemID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE item_id = ?`, itemID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}
	return n, nil
}

// CountCheckouts returns how many times an item has been checked out.
func CountCheckouts(ctx context.Context, q Querier, itemID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE item_id = ? AND transaction_type = ?`,
		itemID, string(model.TransactionCheckout),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting checkouts: %w", err)
	}
	return n, nil
}

// DaysInService returns whole days between the item's creation and its
// removal_date, or now when the item has not been removed.
func DaysInService(ctx context.Context, q Querier, itemID int64, now time.Time) (int, error) {
	var created int64
	var removed sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT timecreated, removal_date FROM items WHERE id = ?`, itemID,
	).Scan(&created, &removed)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("days in service: item %d not found", itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("days in service: %w", err)
	}

	end := unix(now)
	if removed.Valid {
		end = removed.Int64
	}
	if end < created {
		return 0, nil
	}
	return int((end - created) / int64(24*time.Hour/time.Second)), nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var typ string
		var fromUser, toUser, fromLoc, toLoc sql.NullInt64
		var ts int64
		if err := rows.Scan(&t.ID, &t.ItemID, &typ, &fromUser, &toUser, &fromLoc, &toLoc,
			&t.ProcessedBy, &t.Notes, &t.ConditionBefore, &t.ConditionAfter, &ts,
			&t.ItemUUID, &t.ProductName); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.Type = model.TransactionType(typ)
		t.FromUserID = int64Ptr(fromUser)
		t.ToUserID = int64Ptr(toUser)
		t.FromLocationID = int64Ptr(fromLoc)
		t.ToLocationID = int64Ptr(toLoc)
		t.Timestamp = fromUnix(ts)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
