package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewDatabase_Types(t *testing.T) {
	ctx := context.Background()

	jsonStore, err := NewDatabase(ctx, TypeJSON, filepath.Join(t.TempDir(), "results.json"))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if _, ok := jsonStore.(*JSONFileDatabase); !ok {
		t.Errorf("expected *JSONFileDatabase, got %T", jsonStore)
	}

	sqliteStore, err := NewDatabase(ctx, TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer sqliteStore.Close()
	if _, ok := sqliteStore.(*SQLiteDatabase); !ok {
		t.Errorf("expected *SQLiteDatabase, got %T", sqliteStore)
	}

	if _, err := NewDatabase(ctx, "mongodb", "whatever"); err == nil {
		t.Error("expected error for unsupported type")
	}
	if _, err := NewDatabase(ctx, TypeJSON, ""); err == nil {
		t.Error("expected error for empty json path")
	}
}
