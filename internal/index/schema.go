package index

import (
	"context"
	"database/sql"
	_ "embed"

	"cardmatch/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes; older indexes must be
// rebuilt.
const schemaVersion = 1

const schemaComponent = "index"

func ensureSchema(ctx context.Context, db *sql.DB, readOnly bool) error {
	return sqlitedb.EnsureSchema(ctx, db, schemaComponent, schemaVersion, schemaSQL, readOnly)
}
