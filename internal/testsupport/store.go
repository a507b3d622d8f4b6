package testsupport

import (
	"context"
	"testing"

	"cardmatch/internal/config"
	"cardmatch/internal/docstore"
	"cardmatch/internal/index"
	"cardmatch/internal/records"
)

// SeedRecords writes recs to both the record store and the index named by cfg.
func SeedRecords(t testing.TB, cfg *config.Config, recs ...records.Record) {
	t.Helper()
	ctx := context.Background()

	store, err := docstore.Open(ctx, cfg.Paths.RecordsDB, false)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	defer store.Close()
	if err := store.PutRecords(ctx, recs); err != nil {
		t.Fatalf("PutRecords: %v", err)
	}

	writer, err := index.OpenWriter(ctx, cfg.Paths.IndexDB, nil)
	if err != nil {
		t.Fatalf("index.OpenWriter: %v", err)
	}
	defer writer.Close()
	if err := writer.Add(ctx, recs); err != nil {
		t.Fatalf("index Add: %v", err)
	}
}

// SeedOCR writes card texts to the OCR store named by cfg.
func SeedOCR(t testing.TB, cfg *config.Config, texts ...docstore.OCRText) {
	t.Helper()
	ctx := context.Background()

	store, err := docstore.Open(ctx, cfg.Paths.OCRDB, false)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	defer store.Close()
	if err := store.PutOCR(ctx, texts); err != nil {
		t.Fatalf("PutOCR: %v", err)
	}
}
