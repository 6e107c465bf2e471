package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/izposoja/internal/model"
)

const locationColumns = `id, name, description, address, zone, active, timecreated, timemodified`

// CreateLocation creates a storage location.
func CreateLocation(ctx context.Context, q Querier, l model.Location, now time.Time) (*model.Location, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO locations (name, description, address, zone, active, timecreated, timemodified)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.Name, l.Description, l.Address, l.Zone, boolInt(l.Active), unix(now), unix(now),
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting location id: %w", err)
	}

	return GetLocation(ctx, q, id)
}

// GetLocation returns a location by ID.
func GetLocation(ctx context.Context, q Querier, id int64) (*model.Location, error) {
	l := &model.Location{}
	var created, modified int64
	err := q.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM locations WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Description, &l.Address, &l.Zone, &l.Active, &created, &modified)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	l.TimeCreated = fromUnix(created)
	l.TimeModified = fromUnix(modified)
	return l, nil
}

// ListLocations returns locations ordered by name, optionally only active ones.
func ListLocations(ctx context.Context, q Querier, activeOnly bool) ([]model.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name, id`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		var created, modified int64
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.Address, &l.Zone, &l.Active, &created, &modified); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		l.TimeCreated = fromUnix(created)
		l.TimeModified = fromUnix(modified)
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateLocation updates a location's fields.
func UpdateLocation(ctx context.Context, q Querier, l model.Location, now time.Time) error {
	_, err := q.ExecContext(ctx,
		`UPDATE locations SET name = ?, description = ?, address = ?, zone = ?, active = ?, timemodified = ?
		 WHERE id = ?`,
		l.Name, l.Description, l.Address, l.Zone, boolInt(l.Active), unix(now), l.ID,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	return nil
}

// DeleteLocation deletes a location. Fails if any item references it.
func DeleteLocation(ctx context.Context, q Querier, id int64) error {
	count, err := CountItemsByLocation(ctx, q, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("cannot delete location: still holds %d items", count)
	}

	// Ledger rows keep pointing at the location; deactivate it instead.
	err = q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE from_location_id = ? OR to_location_id = ?`, id, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking location history: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("cannot delete location: referenced by %d transactions", count)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}

// CountItemsByLocation returns how many items currently sit at a location.
func CountItemsByLocation(ctx context.Context, q Querier, locationID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE location_id = ?`, locationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting location items: %w", err)
	}
	return count, nil
}
