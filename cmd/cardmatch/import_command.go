package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cardmatch/internal/config"
	"cardmatch/internal/docstore"
	"cardmatch/internal/index"
	"cardmatch/internal/logging"
	"cardmatch/internal/ocrtext"
	"cardmatch/internal/records"
)

const (
	defaultImportBatch = 500
	maxImportLine      = 16 * 1024 * 1024
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load reference records or card texts into the local stores",
	}
	importCmd.AddCommand(newImportRecordsCommand(ctx))
	importCmd.AddCommand(newImportOCRCommand(ctx))
	return importCmd
}

func newImportRecordsCommand(ctx *commandContext) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "records <file.jsonl>",
		Short: "Index reference records from a JSON Lines file",
		Long: "Each line is a JSON object with a record_id key and field values keyed by\n" +
			"field name (Author, Title, ...). Values may be strings, numbers, or lists.\n" +
			"Records are written to paths.records_db and indexed in paths.index_db.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			n, err := importRecords(cmd.Context(), cfg, args[0], batchSize, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", defaultImportBatch, "Records per transaction")
	return cmd
}

func newImportOCRCommand(ctx *commandContext) *cobra.Command {
	var prefix string
	var compose bool

	cmd := &cobra.Command{
		Use:   "ocr <dir|file.jsonl>",
		Short: "Store normalized card texts",
		Long: "A directory is walked for *.txt files keyed by their path relative to the\n" +
			"directory (joined to --prefix). A .jsonl file holds {\"path\": ..., \"text\": ...}\n" +
			"objects. Texts are normalized before they are stored in paths.ocr_db.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.commandLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			texts, err := collectOCR(args[0], prefix, ocrtext.Options{Compose: compose})
			if err != nil {
				return err
			}
			if err := storeOCR(cmd.Context(), cfg, texts, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d card texts\n", len(texts))
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix joined to directory-relative card paths")
	cmd.Flags().BoolVar(&compose, "compose", false, "Apply NFC composition before glyph substitution")
	return cmd
}

func importRecords(ctx context.Context, cfg *config.Config, source string, batchSize int, logger *slog.Logger) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultImportBatch
	}
	file, err := os.Open(source)
	if err != nil {
		return 0, fmt.Errorf("open records: %w", err)
	}
	defer file.Close()

	store, err := docstore.Open(ctx, cfg.Paths.RecordsDB, false)
	if err != nil {
		return 0, fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()
	writer, err := index.OpenWriter(ctx, cfg.Paths.IndexDB, logger)
	if err != nil {
		return 0, fmt.Errorf("open index: %w", err)
	}
	defer writer.Close()

	total := 0
	pending := make([]records.Record, 0, batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := storeRecordBatch(ctx, writer, store, pending); err != nil {
			return err
		}
		total += len(pending)
		logger.Info("records imported", logging.Int("total", total), logging.String("store", store.Path()))
		pending = pending[:0]
		return nil
	}

	err = scanJSONLines(file, func(lineNo int, data []byte) error {
		rec, err := records.ParseDocument("", data)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
		pending = append(pending, rec)
		if len(pending) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, flush()
}

type recordIndexer interface {
	Add(ctx context.Context, recs []records.Record) error
}

type recordStorer interface {
	PutRecords(ctx context.Context, recs []records.Record) error
}

// storeRecordBatch indexes recs and then stores them. An id that reaches the
// index without its document is reported as a missing record at match time;
// rerunning the import replaces both by id.
func storeRecordBatch(ctx context.Context, idx recordIndexer, store recordStorer, recs []records.Record) error {
	if err := idx.Add(ctx, recs); err != nil {
		return fmt.Errorf("index records: %w", err)
	}
	if err := store.PutRecords(ctx, recs); err != nil {
		return fmt.Errorf("store records: %w", err)
	}
	return nil
}

type ocrLine struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

func collectOCR(source, prefix string, opts ocrtext.Options) ([]docstore.OCRText, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("open OCR source: %w", err)
	}
	if !info.IsDir() {
		file, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("open OCR source: %w", err)
		}
		defer file.Close()
		var texts []docstore.OCRText
		err = scanJSONLines(file, func(lineNo int, data []byte) error {
			var line ocrLine
			if err := json.Unmarshal(data, &line); err != nil {
				return fmt.Errorf("%s:%d: %w", source, lineNo, err)
			}
			if strings.TrimSpace(line.Path) == "" {
				return fmt.Errorf("%s:%d: missing path", source, lineNo)
			}
			texts = append(texts, docstore.OCRText{Path: line.Path, Text: ocrtext.Normalize(line.Text, opts)})
			return nil
		})
		return texts, err
	}

	var texts []docstore.OCRText
	err = filepath.WalkDir(source, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".txt") {
			return nil
		}
		rel, err := filepath.Rel(source, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		key := path.Join(filepath.ToSlash(prefix), filepath.ToSlash(rel))
		texts = append(texts, docstore.OCRText{Path: key, Text: ocrtext.Normalize(string(data), opts)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", source, err)
	}
	return texts, nil
}

func storeOCR(ctx context.Context, cfg *config.Config, texts []docstore.OCRText, logger *slog.Logger) error {
	store, err := docstore.Open(ctx, cfg.Paths.OCRDB, false)
	if err != nil {
		return fmt.Errorf("open OCR store: %w", err)
	}
	defer store.Close()
	decomposed := 0
	for _, t := range texts {
		if !ocrtext.IsComposed(t.Text) {
			decomposed++
		}
	}
	if decomposed > 0 {
		logger.Debug("card texts contain decomposed characters",
			logging.Int("count", decomposed),
			logging.String(logging.FieldErrorHint, "pass --compose only if the NER stage saw NFC text"),
		)
	}
	for start := 0; start < len(texts); start += defaultImportBatch {
		end := min(start+defaultImportBatch, len(texts))
		if err := store.PutOCR(ctx, texts[start:end]); err != nil {
			return err
		}
		logger.Info("card texts imported", logging.Int("total", end), logging.String("store", store.Path()))
	}
	return nil
}

// scanJSONLines calls fn for every non-blank line with its 1-based number.
func scanJSONLines(r io.Reader, fn func(lineNo int, data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		data := scanner.Bytes()
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}
		if err := fn(lineNo, data); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("line %d exceeds %d bytes", lineNo+1, maxImportLine)
		}
		return err
	}
	return nil
}
