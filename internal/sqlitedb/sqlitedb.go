package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyTimeoutMillis       = 5000
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

var (
	// ErrMissingDatabase reports a read-only open of a file that does not exist.
	ErrMissingDatabase = errors.New("database file not found")
	// ErrSchemaMismatch indicates the stored schema version differs from the
	// version the code expects.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrSchemaMissing reports a read-only open of a database that was never
	// initialized for a component.
	ErrSchemaMissing = errors.New("schema not initialized")
)

// Options controls how a database is opened.
type Options struct {
	ReadOnly bool
}

// Open connects to the database at path. Writable opens create the file and
// its directory; read-only opens require the file to exist and reject writes
// on every connection.
func Open(path string, opts Options) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if opts.ReadOnly {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrMissingDatabase, path)
			}
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	return db, nil
}

func dsn(path string, opts Options) string {
	pragmas := []string{
		fmt.Sprintf("busy_timeout(%d)", busyTimeoutMillis),
	}
	if opts.ReadOnly {
		pragmas = append(pragmas, "query_only(1)")
	} else {
		pragmas = append(pragmas, "journal_mode(WAL)", "synchronous(NORMAL)")
	}
	params := make([]string, len(pragmas))
	for i, pragma := range pragmas {
		params[i] = "_pragma=" + pragma
	}
	return path + "?" + strings.Join(params, "&")
}

// EnsureSchema creates the component's schema when absent and verifies its
// version otherwise. Read-only callers pass readOnly so a missing schema is
// reported instead of created.
func EnsureSchema(ctx context.Context, db *sql.DB, component string, version int, schemaSQL string, readOnly bool) error {
	stored, found, err := schemaVersion(ctx, db, component)
	if err != nil {
		return err
	}
	if found {
		if stored != version {
			return fmt.Errorf("%w: %s has version %d, expected %d (rebuild the database)",
				ErrSchemaMismatch, component, stored, version)
		}
		return nil
	}
	if readOnly {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, component)
	}
	return RetryOnBusy(ctx, func() error {
		return createSchema(ctx, db, component, version, schemaSQL)
	})
}

func schemaVersion(ctx context.Context, db *sql.DB, component string) (int, bool, error) {
	var tableExists int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_versions'",
	).Scan(&tableExists)
	if err != nil {
		return 0, false, fmt.Errorf("check schema_versions table: %w", err)
	}
	if tableExists == 0 {
		return 0, false, nil
	}
	var version int
	err = db.QueryRowContext(ctx,
		"SELECT version FROM schema_versions WHERE component = ?", component,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, true, nil
}

func createSchema(ctx context.Context, db *sql.DB, component string, version int, schemaSQL string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_versions (
			component TEXT PRIMARY KEY,
			version INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create %s schema: %w", component, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_versions (component, version) VALUES (?, ?)", component, version,
	); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// IsBusy reports whether err is SQLITE_BUSY or a locked-database error.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// RetryOnBusy runs op, retrying with exponential backoff while it fails with
// a busy error.
func RetryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
