package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: removed items never hold anything. Older rows written
	// before removal cleared the holders are fixed up here.
	`UPDATE items SET location_id = NULL, current_user_id = NULL
	     WHERE status = 'removed' AND (location_id IS NOT NULL OR current_user_id IS NOT NULL)`,
	// Migration 2: removal_date was introduced after timemodified had been
	// used for it; backfill once.
	`UPDATE items SET removal_date = timemodified
	     WHERE status = 'removed' AND removal_date IS NULL`,
}

// Migrate creates the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
