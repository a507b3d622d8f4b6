package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"cardmatch/internal/logging"
	"cardmatch/internal/records"
	"cardmatch/internal/sqlitedb"
	"cardmatch/internal/textutil"
)

// Writer adds records to an index database.
type Writer struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenWriter opens or creates the index at path for writing.
func OpenWriter(ctx context.Context, path string, logger *slog.Logger) (*Writer, error) {
	db, err := sqlitedb.Open(path, sqlitedb.Options{})
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, db, false); err != nil {
		_ = db.Close()
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{db: db, logger: logging.NewComponentLogger(logger, "index")}, nil
}

// Close closes the underlying database.
func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

// Add indexes recs in one transaction. A record already in the index is
// replaced.
func (w *Writer) Add(ctx context.Context, recs []records.Record) error {
	if len(recs) == 0 {
		return nil
	}
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		tx, err := w.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin index tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, rec := range recs {
			if err := removeDocument(ctx, tx, rec.ID); err != nil {
				return err
			}
			if err := addDocument(ctx, tx, rec); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM terms WHERE doc_freq <= 0"); err != nil {
			return fmt.Errorf("prune terms: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return err
	}
	w.logger.Debug("records indexed", logging.Int("count", len(recs)))
	return nil
}

func addDocument(ctx context.Context, tx *sql.Tx, rec records.Record) error {
	res, err := tx.ExecContext(ctx, "INSERT INTO documents (record_id) VALUES (?)", rec.ID)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", rec.ID, err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("document id %s: %w", rec.ID, err)
	}

	fields := documentFields(rec)
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		tokens := fields[name]
		freqs := make(map[string]int, len(tokens))
		order := make([]string, 0, len(tokens))
		for _, token := range tokens {
			if freqs[token] == 0 {
				order = append(order, token)
			}
			freqs[token]++
		}
		for _, term := range order {
			var termID int64
			err := tx.QueryRowContext(ctx,
				`INSERT INTO terms (field, term, term_len, doc_freq) VALUES (?, ?, ?, 1)
				 ON CONFLICT (field, term) DO UPDATE SET doc_freq = doc_freq + 1
				 RETURNING term_id`,
				name, term, textutil.RuneLen(term),
			).Scan(&termID)
			if err != nil {
				return fmt.Errorf("upsert term %s:%s: %w", name, term, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO postings (term_id, doc_id, freq) VALUES (?, ?, ?)",
				termID, docID, freqs[term],
			); err != nil {
				return fmt.Errorf("insert posting %s:%s: %w", name, term, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO field_lengths (doc_id, field, length) VALUES (?, ?, ?)",
			docID, name, len(tokens),
		); err != nil {
			return fmt.Errorf("insert field length: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO field_stats (field, doc_count, total_length) VALUES (?, 1, ?)
			 ON CONFLICT (field) DO UPDATE SET
			     doc_count = doc_count + 1,
			     total_length = total_length + excluded.total_length`,
			name, len(tokens),
		); err != nil {
			return fmt.Errorf("update field stats: %w", err)
		}
	}
	return nil
}

func removeDocument(ctx context.Context, tx *sql.Tx, recordID string) error {
	var docID int64
	err := tx.QueryRowContext(ctx, "SELECT doc_id FROM documents WHERE record_id = ?", recordID).Scan(&docID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup document %s: %w", recordID, err)
	}

	statements := []string{
		`UPDATE terms SET doc_freq = doc_freq - 1
		 WHERE term_id IN (SELECT term_id FROM postings WHERE doc_id = ?1)`,
		`UPDATE field_stats SET
		     doc_count = doc_count - 1,
		     total_length = total_length - (
		         SELECT length FROM field_lengths
		         WHERE doc_id = ?1 AND field_lengths.field = field_stats.field)
		 WHERE field IN (SELECT field FROM field_lengths WHERE doc_id = ?1)`,
		"DELETE FROM postings WHERE doc_id = ?1",
		"DELETE FROM field_lengths WHERE doc_id = ?1",
		"DELETE FROM documents WHERE doc_id = ?1",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, docID); err != nil {
			return fmt.Errorf("remove document %s: %w", recordID, err)
		}
	}
	return nil
}
