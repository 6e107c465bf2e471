package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/barcode"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func TestEmergencyRemovalPrefersOldestUnlabeled(t *testing.T) {
	f := newFixture(t)
	p := f.product("P1", "012345678905")
	loc := f.location("Storage")

	unlabeled := f.item(model.Item{ProductID: &p.ID, LocationID: &loc.ID, TimeCreated: time.Unix(100, 0).UTC()})
	labeled := f.item(model.Item{UUID: "b2b2b2b2-0000-4000-8000-000000000000", ProductID: &p.ID, LocationID: &loc.ID, TimeCreated: time.Unix(200, 0).UTC()})

	res := f.m.Scan(f.ctx, ScanRequest{Payload: "012345678905", Action: ActionRemove, ActorID: 1})
	require.True(t, res.Success, res.Message)
	require.Equal(t, barcode.KindUPC, res.BarcodeType)
	require.Equal(t, unlabeled.ID, res.Item.ID)
	require.Equal(t, p.ID, res.Product.ID)

	got := f.get(unlabeled.ID)
	require.Equal(t, model.ItemStatusRemoved, got.Status)
	require.Equal(t, model.RemovalEmergencyUPC, got.RemovalMethod)
	require.True(t, got.Labeled(), "removed item should carry a synthesized uuid")
	require.NotNil(t, got.RemovalDate)

	h, err := store.GetUUIDHistory(f.ctx, f.db, got.UUID)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, unlabeled.ID, h.ItemID)

	txs := f.ledger(unlabeled.ID)
	require.Len(t, txs, 1)
	require.Equal(t, model.TransactionRemoval, txs[0].Type)

	require.Equal(t, model.ItemStatusAvailable, f.get(labeled.ID).Status)
	f.requireHolderInvariant()
}

func TestEmergencyRemovalOnlyLabeledLeft(t *testing.T) {
	f := newFixture(t)
	p := f.product("P1", "012345678905")
	f.item(model.Item{UUID: "b2b2b2b2-0000-4000-8000-000000000000", ProductID: &p.ID})

	res := f.m.Scan(f.ctx, ScanRequest{Payload: "012345678905", Action: ActionRemove, ActorID: 1})
	require.False(t, res.Success)
	require.Equal(t, CodeUPCWithQRExists, res.ErrorCode)
	require.Equal(t, 0, f.ledgerCount())
}

func TestEmergencyRemovalNoCandidates(t *testing.T) {
	f := newFixture(t)
	f.product("P1", "012345678905")

	res := f.m.Scan(f.ctx, ScanRequest{Payload: "012345678905", Action: ActionRemove, ActorID: 1})
	require.Equal(t, CodeNoEmergencyCandidates, res.ErrorCode)
}

func TestEmergencyRemovalCheckedOut(t *testing.T) {
	f := newFixture(t)
	p := f.product("P1", "012345678905")
	f.item(model.Item{ProductID: &p.ID, CurrentUserID: model.Int64(42), Status: model.ItemStatusCheckedOut, TimeCreated: time.Unix(100, 0).UTC()})
	f.item(model.Item{ProductID: &p.ID, TimeCreated: time.Unix(200, 0).UTC()})

	res := f.m.Scan(f.ctx, ScanRequest{Payload: "012345678905", Action: ActionRemove, ActorID: 1})
	require.Equal(t, CodeItemCheckedOut, res.ErrorCode)
	require.Equal(t, 0, f.ledgerCount())
}

func TestEmergencyRemovalNormalizesPayload(t *testing.T) {
	f := newFixture(t)
	p := f.product("P1", "012345678905")
	f.item(model.Item{ProductID: &p.ID})

	// EAN-13 form of the same code.
	res := f.m.Scan(f.ctx, ScanRequest{Payload: "0012345678905", Type: "upc", Action: ActionRemove, ActorID: 1})
	require.True(t, res.Success, res.Message)
	require.Empty(t, res.Warning)
}

func TestSelectEmergencyCandidate(t *testing.T) {
	uuid := "b2b2b2b2-0000-4000-8000-000000000000"
	tests := []struct {
		name    string
		items   []model.Item
		wantID  int64
		wantErr error
	}{
		{"empty", nil, 0, ErrNoEmergencyCandidates},
		{"only labeled", []model.Item{{ID: 1, UUID: uuid}}, 0, ErrAmbiguousRemoval},
		{"unlabeled after labeled", []model.Item{{ID: 1, UUID: uuid}, {ID: 2}, {ID: 3}}, 2, nil},
		{"skips removed", []model.Item{{ID: 1, Status: model.ItemStatusRemoved}, {ID: 2}}, 2, nil},
		{"oldest checked out", []model.Item{{ID: 1, Status: model.ItemStatusCheckedOut}, {ID: 2}}, 0, ErrItemCheckedOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectEmergencyCandidate(tt.items)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestScanErrorCodes(t *testing.T) {
	f := newFixture(t)
	f.product("Kit", "012345678905")

	tests := []struct {
		name string
		req  ScanRequest
		code string
	}{
		{"unclassifiable", ScanRequest{Payload: "hello"}, CodeInvalidBarcodeType},
		{"too short", ScanRequest{Payload: "1234"}, CodeInvalidBarcodeType},
		{"declared upc too short", ScanRequest{Payload: "1234", Type: "upc"}, CodeInvalidUPCFormat},
		{"declared unknown type", ScanRequest{Payload: "012345678905", Type: "code128"}, CodeInvalidBarcodeType},
		{"declared uuid but upc", ScanRequest{Payload: "012345678905", Type: "uuid"}, CodeInvalidBarcodeType},
		{"unknown product", ScanRequest{Payload: "036000291452"}, CodeProductNotFound},
		{"unknown item", ScanRequest{Payload: "9b2d6c1e-0000-4000-8000-000000000000"}, CodeItemNotFound},
		{"checkout by upc", ScanRequest{Payload: "012345678905", Action: ActionCheckout, UserID: 42}, CodeInvalidBarcodeType},
		{"unknown action", ScanRequest{Payload: "012345678905", Action: "juggle"}, CodeInvalidInput},
		{"add without location", ScanRequest{Payload: "012345678905", Action: ActionAdd}, CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.m.Scan(f.ctx, tt.req)
			require.False(t, res.Success)
			require.Equal(t, tt.code, res.ErrorCode)
			require.NotEmpty(t, res.Message)
		})
	}
}

func TestScanLookup(t *testing.T) {
	f := newFixture(t)
	item, _ := f.stocked()

	res := f.m.Scan(f.ctx, ScanRequest{Payload: item.UUID})
	require.True(t, res.Success)
	require.Equal(t, barcode.KindUUID, res.BarcodeType)
	require.Equal(t, item.ID, res.Item.ID)
	require.Equal(t, "Arduino Kit", res.Product.Name)

	// Upper-case payloads from some scanners resolve too.
	upper := f.m.Scan(f.ctx, ScanRequest{Payload: "  " + toUpper(item.UUID) + " "})
	require.True(t, upper.Success, upper.Message)

	_, err := f.m.RemoveItem(f.ctx, item.UUID, 1, "", "")
	require.NoError(t, err)

	res = f.m.Scan(f.ctx, ScanRequest{Payload: item.UUID, Action: ActionLookup})
	require.True(t, res.Success)
	require.NotEmpty(t, res.Warning)
	require.Equal(t, model.ItemStatusRemoved, res.Item.Status)

	res = f.m.Scan(f.ctx, ScanRequest{Payload: item.UUID, Action: ActionRemove, ActorID: 1})
	require.False(t, res.Success)
	require.Equal(t, CodeAlreadyRemoved, res.ErrorCode)
}

func TestScanUPCLookupWarnsForNonUS(t *testing.T) {
	f := newFixture(t)
	f.product("Imported", "4006381333931")

	res := f.m.Scan(f.ctx, ScanRequest{Payload: "4006381333931"})
	require.True(t, res.Success, res.Message)
	require.NotEmpty(t, res.Warning)
	require.Equal(t, "Imported", res.Product.Name)
}

func TestScanAddByUPC(t *testing.T) {
	f := newFixture(t)
	p := f.product("Kit", "012345678905")
	loc := f.location("Storage")

	res := f.m.Scan(f.ctx, ScanRequest{Payload: "0-12345-67890-5", Action: ActionAdd, LocationID: loc.ID, ActorID: 1})
	require.True(t, res.Success, res.Message)
	require.True(t, res.Item.Labeled())
	require.Equal(t, p.ID, *res.Item.ProductID)
	require.Equal(t, loc.ID, *res.Item.LocationID)

	txs := f.ledger(res.Item.ID)
	require.Len(t, txs, 1)
	require.Equal(t, model.TransactionCheckin, txs[0].Type)

	h, err := store.GetUUIDHistory(f.ctx, f.db, res.Item.UUID)
	require.NoError(t, err)
	require.True(t, h.IsActive)

	queued, err := f.m.IsItemInQueue(f.ctx, res.Item.ID)
	require.NoError(t, err)
	require.True(t, queued)
}

func TestScanCheckoutAndCheckin(t *testing.T) {
	f := newFixture(t)
	item, loc := f.stocked()
	f.user(42)

	res := f.m.Scan(f.ctx, ScanRequest{Payload: item.UUID, Action: ActionCheckout, UserID: 42, ActorID: 1})
	require.True(t, res.Success, res.Message)
	require.Equal(t, model.ItemStatusCheckedOut, res.Item.Status)
	require.Equal(t, model.TransactionCheckout, res.Transaction.Type)

	res = f.m.Scan(f.ctx, ScanRequest{Payload: item.UUID, Action: ActionCheckout, ActorID: 1})
	require.Equal(t, CodeInvalidInput, res.ErrorCode)

	res = f.m.Scan(f.ctx, ScanRequest{Payload: item.UUID, Action: ActionCheckin, ActorID: 1})
	require.True(t, res.Success, res.Message)
	require.Equal(t, model.ItemStatusInTransit, res.Item.Status)

	res = f.m.Scan(f.ctx, ScanRequest{Payload: item.UUID, Action: ActionCheckin, LocationID: loc.ID, ActorID: 1})
	require.True(t, res.Success, res.Message)
	require.Equal(t, model.ItemStatusAvailable, res.Item.Status)
	require.Equal(t, loc.ID, *res.Item.LocationID)
}

func TestScanAddBindsPregenerated(t *testing.T) {
	f := newFixture(t)
	p := f.product("Kit", "")
	loc := f.location("Storage")
	items, err := f.m.PregenerateItems(f.ctx, 1, 1)
	require.NoError(t, err)

	res := f.m.Scan(f.ctx, ScanRequest{Payload: items[0].UUID, Action: ActionAdd, ProductID: p.ID, LocationID: loc.ID, ActorID: 1})
	require.True(t, res.Success, res.Message)
	require.Equal(t, p.ID, res.Product.ID)
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
