package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Timestamps on inventory tables are unix
// seconds; status and transaction_type are stored as strings so the ledger
// stays readable without the application.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    email         TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
    id           INTEGER PRIMARY KEY,
    name         TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    address      TEXT NOT NULL DEFAULT '',
    zone         TEXT NOT NULL DEFAULT '',
    active       INTEGER NOT NULL DEFAULT 1,
    timecreated  INTEGER NOT NULL,
    timemodified INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    manufacturer  TEXT NOT NULL DEFAULT '',
    model         TEXT NOT NULL DEFAULT '',
    category      TEXT NOT NULL DEFAULT '',
    upc           TEXT UNIQUE,
    is_consumable INTEGER NOT NULL DEFAULT 0,
    active        INTEGER NOT NULL DEFAULT 1,
    image         BLOB,
    image_mime    TEXT,
    timecreated   INTEGER NOT NULL,
    timemodified  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    id               INTEGER PRIMARY KEY,
    uuid             TEXT UNIQUE,
    product_id       INTEGER REFERENCES products(id),
    location_id      INTEGER REFERENCES locations(id),
    current_user_id  INTEGER,
    status           TEXT NOT NULL DEFAULT 'available' CHECK (status IN
                         ('available', 'checked_out', 'in_transit', 'maintenance', 'damaged', 'lost', 'removed')),
    condition_status TEXT NOT NULL DEFAULT 'good' CHECK (condition_status IN ('excellent', 'good', 'fair', 'poor')),
    condition_notes  TEXT NOT NULL DEFAULT '',
    serial_number    TEXT NOT NULL DEFAULT '',
    student_label    TEXT NOT NULL DEFAULT '',
    removal_date     INTEGER,
    removal_method   TEXT,
    timecreated      INTEGER NOT NULL,
    timemodified     INTEGER NOT NULL,
    CHECK (location_id IS NULL OR current_user_id IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_items_product ON items(product_id, status, timecreated);
CREATE INDEX IF NOT EXISTS idx_items_location ON items(location_id);

CREATE TABLE IF NOT EXISTS transactions (
    id               INTEGER PRIMARY KEY,
    item_id          INTEGER NOT NULL REFERENCES items(id),
    transaction_type TEXT NOT NULL CHECK (transaction_type IN
                         ('checkin', 'checkout', 'transfer', 'removal', 'note_update')),
    from_user_id     INTEGER,
    to_user_id       INTEGER,
    from_location_id INTEGER REFERENCES locations(id),
    to_location_id   INTEGER REFERENCES locations(id),
    processed_by     INTEGER NOT NULL,
    notes            TEXT NOT NULL DEFAULT '',
    condition_before TEXT NOT NULL DEFAULT '',
    condition_after  TEXT NOT NULL DEFAULT '',
    timestamp        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_id, timestamp);

CREATE TABLE IF NOT EXISTS uuid_history (
    id          INTEGER PRIMARY KEY,
    itemid      INTEGER NOT NULL REFERENCES items(id),
    uuid        TEXT NOT NULL UNIQUE,
    is_active   INTEGER NOT NULL DEFAULT 1,
    created_by  INTEGER NOT NULL,
    timecreated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS print_queue (
    id          INTEGER PRIMARY KEY,
    item_id     INTEGER NOT NULL REFERENCES items(id),
    uuid        TEXT NOT NULL,
    queued_by   INTEGER NOT NULL,
    note        TEXT NOT NULL DEFAULT '',
    timequeued  INTEGER NOT NULL,
    printed     INTEGER NOT NULL DEFAULT 0,
    timeprinted INTEGER,
    printed_by  INTEGER
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_print_queue_pending
    ON print_queue(item_id) WHERE printed = 0;
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
