package index

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"cardmatch/internal/query"
	"cardmatch/internal/records"
)

var fixtureRecords = []records.Record{
	{ID: "r1", Raw: map[string]string{"author1": "Smith, John", "title": "Hamlet, Prince of Denmark"}},
	{ID: "r2", Raw: map[string]string{"author1": "Smyth, Jane", "title": "Macbeth"}},
	{ID: "r3", Raw: map[string]string{"author1": "Novak, Karel", "title": "Zahrada a les", "date": "1931"}},
}

func buildIndex(t *testing.T, recs []records.Record) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	w, err := OpenWriter(ctx, path, nil)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if err := w.Add(ctx, recs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close writer: %v", err)
	}
	return path
}

func openSession(t *testing.T, path string) (*Searcher, *Session) {
	t.Helper()
	ctx := context.Background()
	s, err := OpenSearcher(ctx, path, nil)
	if err != nil {
		t.Fatalf("OpenSearcher: %v", err)
	}
	sess, err := s.Session(ctx)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	t.Cleanup(func() {
		_ = sess.Close()
		_ = s.Close()
	})
	return s, sess
}

func hitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.RecordID
	}
	return ids
}

func TestSearchRanksFuzzyMatches(t *testing.T) {
	_, sess := openSession(t, buildIndex(t, fixtureRecords))
	q := query.Build(map[string][]string{"Author": {"Smith John"}}, query.DefaultOptions())

	hits, err := sess.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := hitIDs(hits); !slices.Equal(got, []string{"r1", "r2"}) {
		t.Fatalf("hits = %v, want [r1 r2]", got)
	}
	for i, hit := range hits {
		if hit.Rank != i {
			t.Fatalf("hit %d has rank %d", i, hit.Rank)
		}
		if hit.Score <= 0 {
			t.Fatalf("hit %s has non-positive score %f", hit.RecordID, hit.Score)
		}
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("exact author match should outrank fuzzy match: %+v", hits)
	}
}

func TestSearchEqualScoresOrderByRecordID(t *testing.T) {
	_, sess := openSession(t, buildIndex(t, fixtureRecords))
	q := query.Query{Terms: []query.FuzzyTerm{{Field: "author1", Text: "smith", MaxEdits: 1}}}

	hits, err := sess.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := hitIDs(hits); !slices.Equal(got, []string{"r1", "r2"}) {
		t.Fatalf("hits = %v, want [r1 r2]", got)
	}
	if hits[0].Score != hits[1].Score {
		t.Fatalf("expected tied scores, got %+v", hits)
	}
}

func TestSearchPrefixLengthAndEdits(t *testing.T) {
	_, sess := openSession(t, buildIndex(t, fixtureRecords))
	ctx := context.Background()

	tests := []struct {
		name string
		term query.FuzzyTerm
		want []string
	}{
		{"within edits", query.FuzzyTerm{Field: "author1", Text: "snith", MaxEdits: 2}, []string{"r1", "r2"}},
		{"prefix excludes", query.FuzzyTerm{Field: "author1", Text: "snith", MaxEdits: 2, PrefixLength: 2}, []string{}},
		{"exact only", query.FuzzyTerm{Field: "author1", Text: "smyth", MaxEdits: 0}, []string{"r2"}},
		{"other field", query.FuzzyTerm{Field: "title", Text: "zahrada", MaxEdits: 2}, []string{"r3"}},
		{"unknown field", query.FuzzyTerm{Field: "publisher", Text: "orbis", MaxEdits: 2}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := sess.Search(ctx, query.Query{Terms: []query.FuzzyTerm{tt.term}})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got := hitIDs(hits); !slices.Equal(got, tt.want) {
				t.Fatalf("hits = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	_, sess := openSession(t, buildIndex(t, fixtureRecords))
	hits, err := sess.Search(context.Background(), query.Query{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}

func TestWriterReplacesRecords(t *testing.T) {
	path := buildIndex(t, fixtureRecords)
	ctx := context.Background()
	w, err := OpenWriter(ctx, path, nil)
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	replacement := records.Record{ID: "r2", Raw: map[string]string{"author1": "Dvorak, Petr"}}
	if err := w.Add(ctx, []records.Record{replacement}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, sess := openSession(t, path)
	if got := s.Stats().Documents; got != 3 {
		t.Fatalf("Documents = %d, want 3", got)
	}
	if got := s.Stats().Fields["title"].Documents; got != 2 {
		t.Fatalf("title documents = %d, want 2", got)
	}
	hits, err := sess.Search(ctx, query.Query{Terms: []query.FuzzyTerm{{Field: "author1", Text: "smyth", MaxEdits: 0}}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("replaced record still indexed: %+v", hits)
	}
}

func TestRetrieveTimesOut(t *testing.T) {
	_, sess := openSession(t, buildIndex(t, fixtureRecords))
	q := query.Build(map[string][]string{"Author": {"Smith John"}}, query.DefaultOptions())
	ctx := context.Background()

	sess.beforeSearch = func(ctx context.Context) { <-ctx.Done() }
	start := time.Now()
	_, err := Retrieve(ctx, sess, q, time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took %s", elapsed)
	}

	sess.beforeSearch = nil
	hits, err := Retrieve(ctx, sess, q, 10*time.Second)
	if err != nil {
		t.Fatalf("session unusable after timeout: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected two hits after timeout, got %+v", hits)
	}
}

func TestRetrieveMatchesSearch(t *testing.T) {
	_, sess := openSession(t, buildIndex(t, fixtureRecords))
	q := query.Build(map[string][]string{"Title": {"Zahrada lesni"}}, query.DefaultOptions())
	ctx := context.Background()

	direct, err := sess.Search(ctx, q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	bounded, err := Retrieve(ctx, sess, q, time.Minute)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	unbounded, err := Retrieve(ctx, sess, q, 0)
	if err != nil {
		t.Fatalf("Retrieve unbounded: %v", err)
	}
	if !slices.Equal(direct, bounded) || !slices.Equal(direct, unbounded) {
		t.Fatalf("results differ: %+v / %+v / %+v", direct, bounded, unbounded)
	}
}

func TestRetrieveCanceledParent(t *testing.T) {
	_, sess := openSession(t, buildIndex(t, fixtureRecords))
	q := query.Build(map[string][]string{"Author": {"Smith John"}}, query.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Retrieve(ctx, sess, q, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenSearcherMissingIndex(t *testing.T) {
	_, err := OpenSearcher(context.Background(), filepath.Join(t.TempDir(), "none.db"), nil)
	if err == nil {
		t.Fatal("expected error for missing index")
	}
}

func TestDocumentFields(t *testing.T) {
	rec := records.Record{ID: "r", Raw: map[string]string{
		"author1": "Novak, Jan",
		"author2": "Novakova, Eva | Dvorak, Karel",
		"title":   "Zahrada a les",
		"notes":   "ignored",
	}}
	fields := documentFields(rec)
	want := map[string][]string{
		"author1": {"novak", "jan"},
		"author2": {"novakova", "eva", "dvorak", "karel"},
		"title":   {"zahrada", "les"},
	}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for name, tokens := range want {
		if !slices.Equal(fields[name], tokens) {
			t.Errorf("%s = %v, want %v", name, fields[name], tokens)
		}
	}
}

func TestBM25(t *testing.T) {
	if got := idf(1, 1); got <= 0 {
		t.Fatalf("idf must stay positive, got %f", got)
	}
	if idf(1, 100) <= idf(50, 100) {
		t.Fatal("rarer terms must weigh more")
	}
	base := bm25(1, 4, 4, 1)
	if bm25(2, 4, 4, 1) <= base {
		t.Fatal("higher term frequency must score higher")
	}
	if bm25(1, 2, 4, 1) <= base {
		t.Fatal("shorter fields must score higher")
	}
	if bm25(0, 4, 4, 1) != 0 {
		t.Fatal("absent term must score zero")
	}
	want := 1 * 2.2 / (1 + 1.2)
	if math.Abs(bm25(1, 4, 4, 1)-want) > 1e-12 {
		t.Fatalf("bm25 at average length = %f, want %f", bm25(1, 4, 4, 1), want)
	}
}
