package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
)

var testNow = time.Unix(1_700_000_000, 0).UTC()

func mustProduct(t *testing.T, q Querier, name, upc string) *model.Product {
	t.Helper()
	p, err := CreateProduct(context.Background(), q, model.Product{Name: name, UPC: upc, Active: true}, testNow)
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	return p
}

func mustLocation(t *testing.T, q Querier, name string) *model.Location {
	t.Helper()
	l, err := CreateLocation(context.Background(), q, model.Location{Name: name, Active: true}, testNow)
	if err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	return l
}

func mustItem(t *testing.T, database *sql.DB, item model.Item) *model.Item {
	t.Helper()
	ctx := context.Background()
	if item.Status == "" {
		item.Status = model.ItemStatusAvailable
	}
	if item.ConditionStatus == "" {
		item.ConditionStatus = model.ConditionGood
	}
	if item.TimeCreated.IsZero() {
		item.TimeCreated = testNow
	}
	item.TimeModified = item.TimeCreated

	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		_, err := CreateItem(ctx, tx, &item)
		return err
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	got, err := GetItem(ctx, database, item.ID)
	if err != nil || got == nil {
		t.Fatalf("GetItem: %v", err)
	}
	return got
}
