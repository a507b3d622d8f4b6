package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"cardmatch/internal/docstore"
	"cardmatch/internal/index"
	"cardmatch/internal/sqlitedb"
)

// CheckDatabaseFile verifies that path is an existing, readable regular file.
func CheckDatabaseFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is a writable directory or can be
// created under its nearest existing ancestor.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckIndex opens the index read-only and reports its size.
func CheckIndex(ctx context.Context, path string) Result {
	const name = "Index schema"
	searcher, err := index.OpenSearcher(ctx, path, nil)
	if err != nil {
		return Result{Name: name, Detail: summarizeStoreError(err)}
	}
	defer searcher.Close()
	stats := searcher.Stats()
	if stats.Documents == 0 {
		return Result{Name: name, Detail: "index is empty (run 'cardmatch import records')"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d records, %d terms", stats.Documents, stats.Terms)}
}

// CheckDocstore opens a document store read-only and reports the number of
// documents in the table the run reads from it.
func CheckDocstore(ctx context.Context, name, path string, ocr bool) Result {
	store, err := docstore.Open(ctx, path, true)
	if err != nil {
		return Result{Name: name, Detail: summarizeStoreError(err)}
	}
	defer store.Close()
	counts, err := store.Counts(ctx)
	if err != nil {
		return Result{Name: name, Detail: summarizeStoreError(err)}
	}
	n, what := counts.Records, "records"
	if ocr {
		n, what = counts.OCR, "card texts"
	}
	if n == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("no %s stored", what)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d %s", n, what)}
}

func summarizeStoreError(err error) string {
	switch {
	case errors.Is(err, sqlitedb.ErrMissingDatabase):
		return "database file missing"
	case errors.Is(err, sqlitedb.ErrSchemaMissing):
		return "database not initialized (run 'cardmatch import')"
	case errors.Is(err, sqlitedb.ErrSchemaMismatch):
		return "schema version mismatch (rebuild with 'cardmatch import')"
	default:
		return err.Error()
	}
}
