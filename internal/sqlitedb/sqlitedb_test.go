package sqlitedb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

const testSchema = `CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`

func TestOpenReadOnlyRequiresFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"), Options{ReadOnly: true})
	if !errors.Is(err, ErrMissingDatabase) {
		t.Fatalf("expected ErrMissingDatabase, got %v", err)
	}
}

func TestEnsureSchemaCreatesAndVerifies(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "store.db")

	db, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := EnsureSchema(ctx, db, "widgets", 1, testSchema, false); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := EnsureSchema(ctx, db, "widgets", 1, testSchema, false); err != nil {
		t.Fatalf("EnsureSchema second call: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO widgets (name) VALUES ('a')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := EnsureSchema(ctx, db, "widgets", 2, testSchema, false); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, err := Open(path, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Open read-only: %v", err)
	}
	defer ro.Close()
	if err := EnsureSchema(ctx, ro, "widgets", 1, testSchema, true); err != nil {
		t.Fatalf("EnsureSchema read-only: %v", err)
	}
	if err := EnsureSchema(ctx, ro, "gadgets", 1, "", true); !errors.Is(err, ErrSchemaMissing) {
		t.Fatalf("expected ErrSchemaMissing, got %v", err)
	}
	if _, err := ro.ExecContext(ctx, "INSERT INTO widgets (name) VALUES ('b')"); err == nil {
		t.Fatal("expected write on read-only connection to fail")
	}
	var count int
	if err := ro.QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestRetryOnBusy(t *testing.T) {
	ctx := context.Background()
	calls := 0
	err := RetryOnBusy(ctx, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("RetryOnBusy = %v after %d calls", err, calls)
	}

	calls = 0
	permanent := errors.New("constraint failed")
	err = RetryOnBusy(ctx, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("non-busy errors must not retry: %v after %d calls", err, calls)
	}
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("SQLITE_BUSY: locked"), true},
		{fmt.Errorf("exec: %w", errors.New("database is locked")), true},
		{errors.New("no such table"), false},
	}
	for _, tt := range tests {
		if got := IsBusy(tt.err); got != tt.want {
			t.Errorf("IsBusy(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
