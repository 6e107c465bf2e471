package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/izposoja/internal/model"
)

const itemColumns = `i.id, i.uuid, i.product_id, i.location_id, i.current_user_id, i.status,
	i.condition_status, i.condition_notes, i.serial_number, i.student_label,
	i.removal_date, i.removal_method, i.timecreated, i.timemodified`

// CreateItem inserts an item and returns its ID.
func CreateItem(ctx context.Context, tx *sql.Tx, item *model.Item) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (uuid, product_id, location_id, current_user_id, status, condition_status,
		                    condition_notes, serial_number, student_label, timecreated, timemodified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(item.UUID), nullInt64(item.ProductID), nullInt64(item.LocationID),
		nullInt64(item.CurrentUserID), item.Status, item.ConditionStatus,
		item.ConditionNotes, item.SerialNumber, item.StudentLabel,
		unix(item.TimeCreated), unix(item.TimeModified),
	)
	if err != nil {
		return 0, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting item id: %w", err)
	}
	item.ID = id
	return id, nil
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, q Querier, id int64) (*model.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetItemByUUID returns the item currently carrying uuid.
func GetItemByUUID(ctx context.Context, q Querier, uuid string) (*model.Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.uuid = ?`, uuid)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by uuid: %w", err)
	}
	return item, nil
}

// ListItemsByProduct returns a product's items oldest first. When
// excludeStatus is non-empty, items in that status are left out.
func ListItemsByProduct(ctx context.Context, q Querier, productID int64, excludeStatus string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE i.product_id = ?`
	args := []any{productID}
	if excludeStatus != "" {
		query += ` AND i.status != ?`
		args = append(args, excludeStatus)
	}
	query += ` ORDER BY i.timecreated ASC, i.id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing product items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ItemFilter narrows ListItems. Zero values mean no filter.
type ItemFilter struct {
	ProductID  int64
	LocationID int64
	UserID     int64
	Status     string
	Limit      int
}

// ListItems returns items matching filter, newest first.
func ListItems(ctx context.Context, q Querier, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE 1=1`
	var args []any

	if f.ProductID > 0 {
		query += ` AND i.product_id = ?`
		args = append(args, f.ProductID)
	}
	if f.LocationID > 0 {
		query += ` AND i.location_id = ?`
		args = append(args, f.LocationID)
	}
	if f.UserID > 0 {
		query += ` AND i.current_user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, f.Status)
	}

	query += ` ORDER BY i.timecreated DESC, i.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateItem replaces all mutable fields of an item.
func UpdateItem(ctx context.Context, tx *sql.Tx, item *model.Item) error {
	var removalDate sql.NullInt64
	if item.RemovalDate != nil {
		removalDate = sql.NullInt64{Int64: unix(*item.RemovalDate), Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET uuid = ?, product_id = ?, location_id = ?, current_user_id = ?, status = ?,
		        condition_status = ?, condition_notes = ?, serial_number = ?, student_label = ?,
		        removal_date = ?, removal_method = ?, timemodified = ?
		 WHERE id = ?`,
		nullString(item.UUID), nullInt64(item.ProductID), nullInt64(item.LocationID),
		nullInt64(item.CurrentUserID), item.Status, item.ConditionStatus,
		item.ConditionNotes, item.SerialNumber, item.StudentLabel,
		removalDate, nullString(item.RemovalMethod), unix(item.TimeModified), item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("updating item: %d rows affected", n)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var uuid, method sql.NullString
	var productID, locationID, userID, removalDate sql.NullInt64
	var created, modified int64
	if err := s.Scan(&item.ID, &uuid, &productID, &locationID, &userID, &item.Status,
		&item.ConditionStatus, &item.ConditionNotes, &item.SerialNumber, &item.StudentLabel,
		&removalDate, &method, &created, &modified); err != nil {
		return nil, err
	}
	item.UUID = uuid.String
	item.ProductID = int64Ptr(productID)
	item.LocationID = int64Ptr(locationID)
	item.CurrentUserID = int64Ptr(userID)
	item.RemovalDate = timePtr(removalDate)
	item.RemovalMethod = method.String
	item.TimeCreated = fromUnix(created)
	item.TimeModified = fromUnix(modified)
	return item, nil
}
