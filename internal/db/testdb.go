package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns a migrated in-memory database that is closed when the
// test ends. Open limits the pool to one connection, so every query sees
// the same in-memory schema.
func NewTestDB(tb testing.TB) *sql.DB {
	tb.Helper()

	database, err := Open(":memory:")
	if err != nil {
		tb.Fatalf("opening in-memory database: %v", err)
	}
	tb.Cleanup(func() { _ = database.Close() })

	if err := Migrate(database); err != nil {
		tb.Fatalf("migrating in-memory database: %v", err)
	}
	return database
}
