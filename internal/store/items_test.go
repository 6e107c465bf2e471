package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	product := mustProduct(t, database, "Arduino Kit", "012345678905")
	loc := mustLocation(t, database, "Storage")

	item := mustItem(t, database, model.Item{
		UUID:       "3f2504e0-4f89-11d3-9a0c-0305e82c3301",
		ProductID:  &product.ID,
		LocationID: &loc.ID,
	})
	if item.Status != model.ItemStatusAvailable {
		t.Errorf("expected status available, got %q", item.Status)
	}
	if item.LocationID == nil || *item.LocationID != loc.ID {
		t.Errorf("expected location %d, got %v", loc.ID, item.LocationID)
	}
	if item.CurrentUserID != nil {
		t.Errorf("expected no current user, got %v", *item.CurrentUserID)
	}

	got, err := GetItemByUUID(ctx, database, item.UUID)
	if err != nil {
		t.Fatalf("GetItemByUUID: %v", err)
	}
	if got == nil || got.ID != item.ID {
		t.Fatalf("expected item %d, got %v", item.ID, got)
	}

	missing, err := GetItemByUUID(ctx, database, "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("GetItemByUUID: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown uuid")
	}
}

func TestItemWithoutUUIDOrProduct(t *testing.T) {
	database := db.NewTestDB(t)

	a := mustItem(t, database, model.Item{})
	b := mustItem(t, database, model.Item{})
	if a.UUID != "" || b.UUID != "" {
		t.Error("expected unlabeled items")
	}
	if a.ProductID != nil {
		t.Error("expected no product binding")
	}
}

func TestItemHolderConstraint(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	loc := mustLocation(t, database, "Storage")

	item := model.Item{
		Status:          model.ItemStatusAvailable,
		ConditionStatus: model.ConditionGood,
		LocationID:      &loc.ID,
		CurrentUserID:   model.Int64(42),
		TimeCreated:     testNow,
		TimeModified:    testNow,
	}
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		_, err := CreateItem(ctx, tx, &item)
		return err
	})
	if err == nil {
		t.Error("expected error for item with two holders")
	}
}

func TestListItemsByProductOrderAndExclude(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	product := mustProduct(t, database, "Servo", "")

	newer := mustItem(t, database, model.Item{ProductID: &product.ID, TimeCreated: time.Unix(200, 0)})
	older := mustItem(t, database, model.Item{ProductID: &product.ID, TimeCreated: time.Unix(100, 0)})
	mustItem(t, database, model.Item{ProductID: &product.ID, TimeCreated: time.Unix(50, 0), Status: model.ItemStatusRemoved})

	all, err := ListItemsByProduct(ctx, database, product.ID, "")
	if err != nil {
		t.Fatalf("ListItemsByProduct: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}

	live, err := ListItemsByProduct(ctx, database, product.ID, model.ItemStatusRemoved)
	if err != nil {
		t.Fatalf("ListItemsByProduct: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("expected 2 non-removed items, got %d", len(live))
	}
	if live[0].ID != older.ID || live[1].ID != newer.ID {
		t.Errorf("expected oldest first, got %d then %d", live[0].ID, live[1].ID)
	}
}

func TestUpdateItemReplacesFields(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	loc := mustLocation(t, database, "Storage")
	item := mustItem(t, database, model.Item{LocationID: &loc.ID})

	removedAt := testNow.Add(48 * time.Hour)
	item.LocationID = nil
	item.Status = model.ItemStatusRemoved
	item.RemovalDate = &removedAt
	item.RemovalMethod = model.RemovalManual
	item.ConditionNotes = "cracked case"
	item.TimeModified = removedAt

	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		return UpdateItem(ctx, tx, item)
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Status != model.ItemStatusRemoved || got.LocationID != nil {
		t.Errorf("unexpected item after update: %+v", got)
	}
	if got.RemovalDate == nil || !got.RemovalDate.Equal(removedAt) {
		t.Errorf("expected removal date %v, got %v", removedAt, got.RemovalDate)
	}
	if got.ConditionNotes != "cracked case" {
		t.Errorf("expected notes to be saved, got %q", got.ConditionNotes)
	}

	count, _ := CountItemsByLocation(ctx, database, loc.ID)
	if count != 0 {
		t.Errorf("expected 0 items at location, got %d", count)
	}
}

func TestListItemsFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	loc := mustLocation(t, database, "Storage")

	mustItem(t, database, model.Item{LocationID: &loc.ID})
	mustItem(t, database, model.Item{CurrentUserID: model.Int64(7), Status: model.ItemStatusCheckedOut})

	atLoc, _ := ListItems(ctx, database, ItemFilter{LocationID: loc.ID})
	if len(atLoc) != 1 {
		t.Errorf("expected 1 item at location, got %d", len(atLoc))
	}
	withUser, _ := ListItems(ctx, database, ItemFilter{UserID: 7})
	if len(withUser) != 1 {
		t.Errorf("expected 1 item with user, got %d", len(withUser))
	}
	out, _ := ListItems(ctx, database, ItemFilter{Status: model.ItemStatusCheckedOut})
	if len(out) != 1 {
		t.Errorf("expected 1 checked out item, got %d", len(out))
	}
}

func TestUUIDHistory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, model.Item{})

	first := "11111111-1111-1111-1111-111111111111"
	second := "22222222-2222-2222-2222-222222222222"
	for _, u := range []string{first, second} {
		err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
			return RecordUUID(ctx, tx, item.ID, u, 1, testNow)
		})
		if err != nil {
			t.Fatalf("RecordUUID: %v", err)
		}
	}

	old, _ := GetUUIDHistory(ctx, database, first)
	if old == nil || old.IsActive {
		t.Errorf("expected inactive history row for first uuid, got %+v", old)
	}
	cur, _ := GetUUIDHistory(ctx, database, second)
	if cur == nil || !cur.IsActive || cur.ItemID != item.ID {
		t.Errorf("expected active history row for second uuid, got %+v", cur)
	}

	all, _ := ListItemUUIDs(ctx, database, item.ID)
	if len(all) != 2 {
		t.Errorf("expected 2 history rows, got %d", len(all))
	}
}
