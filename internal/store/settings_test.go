package store

import (
	"context"
	"testing"

	"github.com/erazemk/izposoja/internal/db"
)

func TestGetJWTSecretIsStable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, ok, err := GetSetting(ctx, database, settingJWTSecret); err != nil || ok {
		t.Fatalf("expected no secret on a fresh database, got ok=%v err=%v", ok, err)
	}

	first, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(first))
	}

	second, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatalf("GetJWTSecret again: %v", err)
	}
	if first != second {
		t.Error("secret changed between calls")
	}

	stored, ok, err := GetSetting(ctx, database, settingJWTSecret)
	if err != nil || !ok || stored != first {
		t.Errorf("expected stored secret %q, got %q ok=%v err=%v", first, stored, ok, err)
	}
}

func TestInitSettingKeepsFirstValue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	v, err := initSetting(ctx, database, "label_layout", "avery-l7160")
	if err != nil {
		t.Fatalf("initSetting: %v", err)
	}
	if v != "avery-l7160" {
		t.Errorf("expected first value, got %q", v)
	}

	v, err = initSetting(ctx, database, "label_layout", "other")
	if err != nil {
		t.Fatalf("initSetting again: %v", err)
	}
	if v != "avery-l7160" {
		t.Errorf("expected existing value kept, got %q", v)
	}
}
