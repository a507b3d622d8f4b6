package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"cardmatch/internal/logging"
	"cardmatch/internal/matching"
)

// LineMatcher decides one inference line.
type LineMatcher interface {
	MatchLine(ctx context.Context, raw string) (matching.Report, error)
}

// Worker is one pool member: its matcher and the resources to release when
// the pool drains.
type Worker struct {
	Matcher LineMatcher
	Close   func() error
}

// WorkerFactory builds the worker with the given number. It runs on the
// worker's own goroutine.
type WorkerFactory func(ctx context.Context, id int) (Worker, error)

// Sink receives accepted matches in input order.
type Sink interface {
	Write(matching.Result) error
}

// Options tunes a run.
type Options struct {
	Workers int
	// ProgressEvery is the percentage step between progress log lines.
	ProgressEvery float64
	Logger        *slog.Logger
}

type job struct {
	seq  int
	line string
}

type decided struct {
	seq    int
	report matching.Report
}

// Run matches every line with a pool of workers and writes accepted matches
// to sink in input order. Cancelling ctx stops the run early without error;
// Stats.Interrupted is then set. Errors are returned only for failures that
// make the whole run unusable: a worker that cannot be built or a sink that
// cannot be written.
func Run(ctx context.Context, lines []string, factory WorkerFactory, sink Sink, opts Options) (Stats, error) {
	started := time.Now()
	logger := logging.NewComponentLogger(opts.Logger, "batch")
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(min(workers, len(lines)), 1)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	reports := make(chan decided, workers)
	perWorker := make([]Stats, workers)

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		defer close(jobs)
		for seq, line := range lines {
			select {
			case jobs <- job{seq: seq, line: line}:
			case <-groupCtx.Done():
				return nil
			}
		}
		return nil
	})
	for id := range workers {
		group.Go(func() error {
			return runWorker(groupCtx, id, factory, jobs, reports, &perWorker[id])
		})
	}

	var poolErr error
	go func() {
		poolErr = group.Wait()
		close(reports)
	}()

	logger.Info("batch started", logging.Int("cards", len(lines)), logging.Int("workers", workers))
	sinkErr := collect(reports, sink, len(lines), opts.ProgressEvery, logger, cancel)

	stats := Stats{Cards: len(lines)}
	for _, s := range perWorker {
		stats.Merge(s)
	}
	stats.Elapsed = time.Since(started)
	stats.Interrupted = ctx.Err() != nil && stats.Decided < stats.Cards

	if err := errors.Join(poolErr, sinkErr); err != nil {
		return stats, err
	}
	if stats.Interrupted {
		logging.WarnWithContext(logger, "batch interrupted", "batch_interrupted",
			logging.Int("decided", stats.Decided),
			logging.Int("undecided", stats.Undecided()),
			logging.String(logging.FieldErrorHint, "rerun with --offset to continue after the last decided card"),
			logging.String(logging.FieldImpact, "remaining cards were not matched"),
		)
	}
	return stats, nil
}

func runWorker(ctx context.Context, id int, factory WorkerFactory, jobs <-chan job, reports chan<- decided, stats *Stats) (err error) {
	worker, err := factory(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("start worker %d: %w", id, err)
	}
	defer func() {
		if worker.Close != nil {
			if cerr := worker.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close worker %d: %w", id, cerr)
			}
		}
	}()

	ctx = logging.WithWorker(ctx, id)
	for j := range jobs {
		report, err := worker.Matcher.MatchLine(ctx, j.line)
		if err != nil {
			// Only cancellation surfaces here; the card stays undecided.
			return nil
		}
		stats.Add(report)
		// The collector drains until every worker exits, so this never blocks
		// for long.
		reports <- decided{seq: j.seq, report: report}
	}
	return nil
}

// collect releases reports in input order. Reports that arrive after a gap
// that can no longer be filled are flushed in order once the pool drains.
func collect(reports <-chan decided, sink Sink, total int, progressEvery float64, logger *slog.Logger, abort context.CancelFunc) error {
	pending := make(map[int]matching.Report)
	next := 0
	done := 0
	var sinkErr error
	sampler := logging.NewProgressSampler(progressEvery)

	emit := func(r matching.Report) {
		if sinkErr != nil || r.Outcome != matching.OutcomeMatched {
			return
		}
		if err := sink.Write(r.Result); err != nil {
			sinkErr = fmt.Errorf("write result for %s: %w", r.CardPath, err)
			abort()
		}
	}

	for d := range reports {
		pending[d.seq] = d.report
		done++
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			emit(r)
			next++
		}
		if sampler.ShouldLog(done, total) {
			logger.Info("batch progress", logging.Int("decided", done), logging.Int("cards", total))
		}
	}

	rest := make([]int, 0, len(pending))
	for seq := range pending {
		rest = append(rest, seq)
	}
	slices.Sort(rest)
	for _, seq := range rest {
		emit(pending[seq])
	}
	return sinkErr
}
