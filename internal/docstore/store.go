package docstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"cardmatch/internal/records"
	"cardmatch/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

const (
	schemaComponent = "docstore"
	schemaVersion   = 1
)

// ErrNotFound reports a key with no stored document.
var ErrNotFound = errors.New("document not found")

// OCRText is one card's transcription.
type OCRText struct {
	Path string
	Text string
}

// Counts reports the number of stored documents per table.
type Counts struct {
	Records int
	OCR     int
}

// Store manages document persistence backed by SQLite.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Open connects to the store at path. Read-only stores reject writes and
// require an initialized database.
func Open(ctx context.Context, path string, readOnly bool) (*Store, error) {
	db, err := sqlitedb.Open(path, sqlitedb.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, err
	}
	if err := sqlitedb.EnsureSchema(ctx, db, schemaComponent, schemaVersion, schemaSQL, readOnly); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, readOnly: readOnly}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Conn binds a dedicated connection for one worker.
func (s *Store) Conn(ctx context.Context) (*Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire docstore connection: %w", err)
	}
	return &Conn{conn: conn}, nil
}

// PutRecords stores recs in one transaction, replacing existing ids.
func (s *Store) PutRecords(ctx context.Context, recs []records.Record) error {
	return s.putAll(ctx, "INSERT OR REPLACE INTO records (record_id, document) VALUES (?, ?)", len(recs),
		func(i int) (string, string, error) {
			doc, err := records.MarshalDocument(recs[i])
			if err != nil {
				return "", "", fmt.Errorf("encode record %s: %w", recs[i].ID, err)
			}
			return recs[i].ID, string(doc), nil
		})
}

// PutOCR stores card texts in one transaction, replacing existing paths.
func (s *Store) PutOCR(ctx context.Context, texts []OCRText) error {
	return s.putAll(ctx, "INSERT OR REPLACE INTO ocr_texts (card_path, content) VALUES (?, ?)", len(texts),
		func(i int) (string, string, error) {
			return strings.TrimSpace(texts[i].Path), texts[i].Text, nil
		})
}

func (s *Store) putAll(ctx context.Context, stmt string, n int, row func(int) (string, string, error)) error {
	if s.readOnly {
		return errors.New("docstore opened read-only")
	}
	if n == 0 {
		return nil
	}
	return sqlitedb.RetryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin docstore tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		prepared, err := tx.PrepareContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer prepared.Close()
		for i := 0; i < n; i++ {
			key, value, err := row(i)
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("document %d has an empty key", i)
			}
			if _, err := prepared.ExecContext(ctx, key, value); err != nil {
				return fmt.Errorf("insert %s: %w", key, err)
			}
		}
		return tx.Commit()
	})
}

// Counts returns the number of stored records and OCR texts.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var counts Counts
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&counts.Records); err != nil {
		return Counts{}, fmt.Errorf("count records: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ocr_texts").Scan(&counts.OCR); err != nil {
		return Counts{}, fmt.Errorf("count ocr texts: %w", err)
	}
	return counts, nil
}

// Conn serves lookups on one connection.
type Conn struct {
	conn *sql.Conn
}

// Close releases the connection.
func (c *Conn) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Record loads and decodes the record stored under id.
func (c *Conn) Record(ctx context.Context, id string) (records.Record, error) {
	var doc string
	err := c.conn.QueryRowContext(ctx, "SELECT document FROM records WHERE record_id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Record{}, fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	if err != nil {
		return records.Record{}, fmt.Errorf("load record %s: %w", id, err)
	}
	return records.ParseDocument(id, []byte(doc))
}

// OCRText loads the transcription stored for a card path.
func (c *Conn) OCRText(ctx context.Context, path string) (string, error) {
	var text string
	err := c.conn.QueryRowContext(ctx, "SELECT content FROM ocr_texts WHERE card_path = ?", strings.TrimSpace(path)).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: ocr %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("load ocr %s: %w", path, err)
	}
	return text, nil
}
