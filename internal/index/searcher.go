package index

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hbollon/go-edlib"

	"cardmatch/internal/logging"
	"cardmatch/internal/query"
	"cardmatch/internal/sqlitedb"
)

// ErrTimeout reports a retrieval that exceeded its time budget.
var ErrTimeout = errors.New("retrieval timed out")

// Hit is a candidate record returned by a search.
type Hit struct {
	RecordID string
	// Rank is the zero-based position in the ranked result list.
	Rank  int
	Score float64
}

// Stats summarizes index contents.
type Stats struct {
	Documents int
	Terms     int
	Fields    map[string]FieldStats
}

// FieldStats holds the length statistics of one field.
type FieldStats struct {
	Documents   int
	TotalLength int
}

// AverageLength returns the mean token count of the field among documents
// that have it.
func (f FieldStats) AverageLength() float64 {
	if f.Documents == 0 {
		return 0
	}
	return float64(f.TotalLength) / float64(f.Documents)
}

// Searcher is a read-only handle on an index database.
type Searcher struct {
	db     *sql.DB
	stats  Stats
	logger *slog.Logger
}

// OpenSearcher opens the index at path read-only and loads its statistics.
func OpenSearcher(ctx context.Context, path string, logger *slog.Logger) (*Searcher, error) {
	db, err := sqlitedb.Open(path, sqlitedb.Options{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, db, true); err != nil {
		_ = db.Close()
		return nil, err
	}
	stats, err := loadStats(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Searcher{db: db, stats: stats, logger: logging.NewComponentLogger(logger, "index")}, nil
}

// Close closes the underlying database.
func (s *Searcher) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats returns the statistics loaded when the searcher was opened.
func (s *Searcher) Stats() Stats {
	return s.stats
}

// Session binds a dedicated connection for one worker.
func (s *Searcher) Session(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire index connection: %w", err)
	}
	return &Session{
		conn:   conn,
		stats:  s.stats,
		logger: s.logger,
		busy:   make(chan struct{}, 1),
	}, nil
}

func loadStats(ctx context.Context, db *sql.DB) (Stats, error) {
	stats := Stats{Fields: make(map[string]FieldStats)}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&stats.Documents); err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM terms").Scan(&stats.Terms); err != nil {
		return Stats{}, fmt.Errorf("count terms: %w", err)
	}
	rows, err := db.QueryContext(ctx, "SELECT field, doc_count, total_length FROM field_stats")
	if err != nil {
		return Stats{}, fmt.Errorf("load field stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name  string
			field FieldStats
		)
		if err := rows.Scan(&name, &field.Documents, &field.TotalLength); err != nil {
			return Stats{}, fmt.Errorf("scan field stats: %w", err)
		}
		stats.Fields[name] = field
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate field stats: %w", err)
	}
	return stats, nil
}

// Session runs searches on one connection, one at a time.
type Session struct {
	conn   *sql.Conn
	stats  Stats
	logger *slog.Logger
	// busy holds a token while a search, possibly an abandoned one, is
	// running on conn.
	busy chan struct{}

	// beforeSearch runs at the start of every search; tests use it to stall.
	beforeSearch func(context.Context)
}

// Close waits for any running search and releases the connection.
func (s *Session) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	s.busy <- struct{}{}
	err := s.conn.Close()
	<-s.busy
	return err
}

func (s *Session) acquire(ctx context.Context) error {
	select {
	case s.busy <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) release() {
	<-s.busy
}

// Search ranks every record matching at least one term of q. Hits are ordered
// by descending score, then by record id. An empty query returns no hits.
func (s *Session) Search(ctx context.Context, q query.Query) ([]Hit, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()
	return s.search(ctx, q, s.beforeSearch)
}

// Retrieve runs a search bounded by budget. When the budget expires first,
// Retrieve returns ErrTimeout at once and the search is abandoned. A budget
// of zero or less disables the bound. Cancellation of ctx itself is returned
// as the context error.
func Retrieve(ctx context.Context, s *Session, q query.Query, budget time.Duration) ([]Hit, error) {
	if budget <= 0 {
		return s.Search(ctx, q)
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if err := s.acquire(ctx); err != nil {
		return nil, timeoutOr(ctx, err)
	}
	type outcome struct {
		hits []Hit
		err  error
	}
	done := make(chan outcome, 1)
	hook := s.beforeSearch
	go func() {
		defer s.release()
		hits, err := s.search(ctx, q, hook)
		done <- outcome{hits: hits, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, timeoutOr(ctx, out.err)
		}
		return out.hits, nil
	case <-ctx.Done():
		return nil, timeoutOr(ctx, ctx.Err())
	}
}

// timeoutOr maps an expired budget to ErrTimeout and passes every other
// error through.
func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

type termMatch struct {
	field   string
	termID  int64
	term    string
	docFreq int
}

func (s *Session) search(ctx context.Context, q query.Query, hook func(context.Context)) ([]Hit, error) {
	if hook != nil {
		hook(ctx)
	}
	if q.Empty() || s.stats.Documents == 0 {
		return nil, nil
	}

	seen := make(map[int64]struct{})
	var matches []termMatch
	for _, term := range q.Terms {
		expanded, err := s.expand(ctx, term)
		if err != nil {
			return nil, err
		}
		for _, match := range expanded {
			if _, dup := seen[match.termID]; dup {
				continue
			}
			seen[match.termID] = struct{}{}
			matches = append(matches, match)
		}
	}

	scores := make(map[string]float64)
	for _, match := range matches {
		if err := s.accumulate(ctx, match, scores); err != nil {
			return nil, err
		}
	}

	hits := make([]Hit, 0, len(scores))
	for recordID, score := range scores {
		hits = append(hits, Hit{RecordID: recordID, Score: score})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.RecordID, b.RecordID)
	})
	for i := range hits {
		hits[i].Rank = i
	}
	s.logger.Debug("index search complete",
		logging.Int("terms", len(q.Terms)),
		logging.Int("expanded_terms", len(matches)),
		logging.Int("hits", len(hits)),
	)
	return hits, nil
}

// expand finds vocabulary terms of the term's field within MaxEdits edits.
func (s *Session) expand(ctx context.Context, term query.FuzzyTerm) ([]termMatch, error) {
	want := []rune(term.Text)
	edits := max(term.MaxEdits, 0)
	rows, err := s.conn.QueryContext(ctx,
		`SELECT term_id, term, doc_freq FROM terms
		 WHERE field = ? AND term_len BETWEEN ? AND ? AND doc_freq > 0`,
		term.Field, len(want)-edits, len(want)+edits,
	)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", term, err)
	}
	defer rows.Close()

	prefix := string(want[:min(max(term.PrefixLength, 0), len(want))])
	var out []termMatch
	for rows.Next() {
		match := termMatch{field: term.Field}
		if err := rows.Scan(&match.termID, &match.term, &match.docFreq); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		if !hasRunePrefix(match.term, prefix) {
			continue
		}
		if match.term != term.Text && edlib.LevenshteinDistance(match.term, term.Text) > edits {
			continue
		}
		out = append(out, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("expand %s: %w", term, err)
	}
	return out, nil
}

func hasRunePrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (s *Session) accumulate(ctx context.Context, match termMatch, scores map[string]float64) error {
	field := s.stats.Fields[match.field]
	termIDF := idf(match.docFreq, s.stats.Documents)
	avg := field.AverageLength()

	rows, err := s.conn.QueryContext(ctx,
		`SELECT d.record_id, p.freq, l.length
		 FROM postings p
		 JOIN documents d ON d.doc_id = p.doc_id
		 JOIN field_lengths l ON l.doc_id = p.doc_id AND l.field = ?
		 WHERE p.term_id = ?`,
		match.field, match.termID,
	)
	if err != nil {
		return fmt.Errorf("postings %s:%s: %w", match.field, match.term, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			recordID string
			freq     int
			length   int
		)
		if err := rows.Scan(&recordID, &freq, &length); err != nil {
			return fmt.Errorf("scan posting: %w", err)
		}
		scores[recordID] += bm25(freq, length, avg, termIDF)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postings %s:%s: %w", match.field, match.term, err)
	}
	return nil
}

// Bounded applies a fixed retrieval budget to every search on a session.
type Bounded struct {
	Session *Session
	Budget  time.Duration
}

// Retrieve runs Retrieve on the wrapped session with the fixed budget.
func (b Bounded) Retrieve(ctx context.Context, q query.Query) ([]Hit, error) {
	return Retrieve(ctx, b.Session, q, b.Budget)
}
