package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *sql.DB
	m      *Manager
	clock  time.Time
	seq    int
	events []Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db.NewTestDB(t),
		clock: time.Unix(1_700_000_000, 0).UTC(),
	}
	f.m = NewManager(f.db, ObserverFunc(func(_ context.Context, evt Event) error {
		f.events = append(f.events, evt)
		return nil
	}))
	f.m.now = func() time.Time { return f.clock }
	f.m.newUUID = func() string {
		f.seq++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", f.seq)
	}
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) product(name, upc string) *model.Product {
	f.t.Helper()
	p, err := store.CreateProduct(f.ctx, f.db, model.Product{Name: name, UPC: upc, Active: true}, f.clock)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) location(name string) *model.Location {
	f.t.Helper()
	l, err := store.CreateLocation(f.ctx, f.db, model.Location{Name: name, Active: true}, f.clock)
	require.NoError(f.t, err)
	return l
}

func (f *fixture) user(id int64) {
	f.t.Helper()
	_, err := f.db.ExecContext(f.ctx,
		`INSERT INTO users (id, username, password_hash, role) VALUES (?, ?, 'x', 'user')`,
		id, fmt.Sprintf("student%d", id))
	require.NoError(f.t, err)
}

// item inserts an item directly, bypassing the manager, for setting up
// legacy or label-less stock.
func (f *fixture) item(item model.Item) *model.Item {
	f.t.Helper()
	if item.Status == "" {
		item.Status = model.ItemStatusAvailable
	}
	if item.ConditionStatus == "" {
		item.ConditionStatus = model.ConditionGood
	}
	if item.TimeCreated.IsZero() {
		item.TimeCreated = f.clock
	}
	item.TimeModified = item.TimeCreated
	err := db.WithTx(f.ctx, f.db, func(tx *sql.Tx) error {
		_, err := store.CreateItem(f.ctx, tx, &item)
		return err
	})
	require.NoError(f.t, err)
	return &item
}

// stocked adds one labeled item of a new product at a new location.
func (f *fixture) stocked() (*model.Item, *model.Location) {
	f.t.Helper()
	p := f.product("Arduino Kit", "")
	loc := f.location("Storage")
	items, err := f.m.AddItems(f.ctx, AddItemsInput{ProductID: p.ID, LocationID: loc.ID, Quantity: 1, Labeled: true}, 1)
	require.NoError(f.t, err)
	require.Len(f.t, items, 1)
	return &items[0], loc
}

func (f *fixture) get(id int64) *model.Item {
	f.t.Helper()
	item, err := store.GetItem(f.ctx, f.db, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, item)
	return item
}

func (f *fixture) ledger(itemID int64) []model.Transaction {
	f.t.Helper()
	txs, err := store.ListItemTransactions(f.ctx, f.db, itemID, 0)
	require.NoError(f.t, err)
	return txs
}

func (f *fixture) ledgerCount() int {
	f.t.Helper()
	var n int
	require.NoError(f.t, f.db.QueryRowContext(f.ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n))
	return n
}

// requireHolderInvariant checks every item has at most one holder and that
// removed items have none.
func (f *fixture) requireHolderInvariant() {
	f.t.Helper()
	items, err := store.ListItems(f.ctx, f.db, store.ItemFilter{})
	require.NoError(f.t, err)
	for _, item := range items {
		require.False(f.t, item.LocationID != nil && item.CurrentUserID != nil, "item %d has two holders", item.ID)
		if item.Removed() {
			require.Nil(f.t, item.LocationID, "removed item %d has a location", item.ID)
			require.Nil(f.t, item.CurrentUserID, "removed item %d has a user", item.ID)
		}
	}
}
