package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cardmatch/internal/batch"
	"cardmatch/internal/cards"
	"cardmatch/internal/config"
	"cardmatch/internal/docstore"
	"cardmatch/internal/index"
	"cardmatch/internal/logging"
	"cardmatch/internal/matching"
	"cardmatch/internal/preflight"
	"cardmatch/internal/results"
)

const lockFileName = "cardmatch.lock"

type matchOptions struct {
	input   string
	offset  int
	limit   int
	workers int
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var opts matchOptions

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match NER inference lines to reference records",
		Long: "Reads card_path<TAB>label start end<TAB>... lines from --input (or stdin),\n" +
			"retrieves candidate records, verifies them against the card text, and writes\n" +
			"matching.txt and alignment.txt to paths.output_dir.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runMatch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Inference file (default stdin)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Skip this many input lines")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Match at most this many lines (0 for all)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Override matching.workers")
	return cmd
}

func runMatch(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, cfg *config.Config, opts matchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.offset < 0 || opts.limit < 0 {
		return errors.New("--offset and --limit must be >= 0")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(filepath.Join(cfg.Paths.OutputDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another cardmatch run is writing to %s", cfg.Paths.OutputDir)
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	logPath := logging.RunLogPath(cfg.Paths.LogDir, runID)
	logger, logFiles, err := logging.Open(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{logPath},
		Writer:      stderr,
		SessionID:   runID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logFiles.Close() }()
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "cardmatch-*.log", Exclude: []string{logPath}},
	)

	lines, err := readInput(stdin, opts.input)
	if err != nil {
		return err
	}
	window := cards.Window(lines, opts.offset, opts.limit)

	if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
		details := make([]string, 0, len(failed))
		for _, r := range failed {
			details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		logging.ErrorWithContext(logger, "preflight failed", "preflight_failed",
			logging.Int("failed_checks", len(failed)),
			logging.String(logging.FieldErrorHint, "run 'cardmatch check' for details"),
			logging.String(logging.FieldImpact, "no cards were matched"),
		)
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}

	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := openStores(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	workers := cfg.Matching.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}
	policy := cfg.Policy()

	logger.Info("match run started",
		logging.String("input", displayInput(opts.input)),
		logging.Int("lines", len(lines)),
		logging.Int("cards", len(window)),
		logging.Int("offset", opts.offset),
		logging.Int("workers", workers),
		logging.Int("indexed_records", pool.searcher.Stats().Documents),
		logging.Duration("retrieval_timeout", policy.RetrievalTimeout),
		logging.String("log_path", logPath),
	)

	writer, err := results.Create(cfg.Paths.OutputDir)
	if err != nil {
		return err
	}
	stats, runErr := batch.Run(signalCtx, window, pool.factory(policy, logger), writer, batch.Options{
		Workers:       workers,
		ProgressEvery: cfg.Logging.ProgressEvery,
		Logger:        logger,
	})
	closeErr := writer.Close()
	if err := errors.Join(runErr, closeErr); err != nil {
		logging.ErrorWithContext(logger, "match run failed", "match_run_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store paths and output directory permissions"),
			logging.String(logging.FieldImpact, "results may be incomplete"),
		)
		return err
	}

	logger.Info("match run finished",
		logging.Int("decided", stats.Decided),
		logging.Int("matched", stats.Count(matching.OutcomeMatched)),
		logging.Int("written", writer.Written()),
		logging.Duration("elapsed", stats.Elapsed),
		logging.Bool("interrupted", stats.Interrupted),
	)
	fmt.Fprintln(stdout, renderSectionHeader("Run summary", shouldColorize(stdout)))
	fmt.Fprintln(stdout, renderSummary(stats, writer.Written()))
	fmt.Fprintf(stdout, "Results written to %s\n", writer.Dir())
	if stats.Interrupted {
		return context.Canceled
	}
	return nil
}

func readInput(stdin io.Reader, path string) ([]string, error) {
	if path == "" || path == "-" {
		lines, err := cards.ReadLines(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return lines, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	lines, err := cards.ReadLines(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

func displayInput(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}

// storePool holds the shared read-only handles each worker derives its own
// connections from.
type storePool struct {
	searcher *index.Searcher
	records  *docstore.Store
	ocr      *docstore.Store
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storePool, error) {
	searcher, err := index.OpenSearcher(ctx, cfg.Paths.IndexDB, logger)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	recs, err := docstore.Open(ctx, cfg.Paths.RecordsDB, true)
	if err != nil {
		_ = searcher.Close()
		return nil, fmt.Errorf("open record store: %w", err)
	}
	ocr := recs
	if cfg.Paths.OCRDB != cfg.Paths.RecordsDB {
		ocr, err = docstore.Open(ctx, cfg.Paths.OCRDB, true)
		if err != nil {
			_ = searcher.Close()
			_ = recs.Close()
			return nil, fmt.Errorf("open OCR store: %w", err)
		}
	}
	return &storePool{searcher: searcher, records: recs, ocr: ocr}, nil
}

func (p *storePool) Close() error {
	errs := []error{p.searcher.Close(), p.records.Close()}
	if p.ocr != p.records {
		errs = append(errs, p.ocr.Close())
	}
	return errors.Join(errs...)
}

func (p *storePool) factory(policy matching.Policy, logger *slog.Logger) batch.WorkerFactory {
	return func(ctx context.Context, id int) (batch.Worker, error) {
		session, err := p.searcher.Session(ctx)
		if err != nil {
			return batch.Worker{}, fmt.Errorf("worker %d: %w", id, err)
		}
		recConn, err := p.records.Conn(ctx)
		if err != nil {
			_ = session.Close()
			return batch.Worker{}, fmt.Errorf("worker %d: %w", id, err)
		}
		ocrConn, err := p.ocr.Conn(ctx)
		if err != nil {
			_ = session.Close()
			_ = recConn.Close()
			return batch.Worker{}, fmt.Errorf("worker %d: %w", id, err)
		}
		retriever := index.Bounded{Session: session, Budget: policy.RetrievalTimeout}
		return batch.Worker{
			Matcher: matching.NewMatcher(policy, retriever, recConn, ocrConn, logger),
			Close: func() error {
				return errors.Join(session.Close(), recConn.Close(), ocrConn.Close())
			},
		}, nil
	}
}

func renderSummary(stats batch.Stats, written int) string {
	rows := [][]string{
		{"Cards", strconv.Itoa(stats.Cards)},
		{"Decided", strconv.Itoa(stats.Decided)},
	}
	if stats.Interrupted {
		rows = append(rows, []string{"Undecided (interrupted)", strconv.Itoa(stats.Undecided())})
	}
	for _, outcome := range matching.Outcomes {
		rows = append(rows, []string{"  " + string(outcome), strconv.Itoa(stats.Count(outcome))})
	}
	rows = append(rows,
		[]string{"Missing records", strconv.Itoa(stats.MissingRecords)},
		[]string{"Resolver failures", strconv.Itoa(stats.ResolverFailures)},
		[]string{"Searched", strconv.Itoa(stats.Searched)},
		[]string{"Mean search", stats.MeanSearch().Round(time.Millisecond).String()},
		[]string{"Per card", stats.PerCard().Round(time.Millisecond).String()},
		[]string{"Elapsed", stats.Elapsed.Round(time.Millisecond).String()},
		[]string{"Results written", strconv.Itoa(written)},
	)
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}
