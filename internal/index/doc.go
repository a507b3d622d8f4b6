// Package index stores reference records in a field-aware inverted index on
// SQLite and ranks them against fuzzy queries with BM25.
//
// Writer maintains the vocabulary, postings, and per-field length statistics.
// Searcher opens the same database read-only and hands out Sessions, each
// bound to its own connection so concurrent workers never share one. Fuzzy
// terms expand against the field vocabulary by Levenshtein distance before
// postings are scored.
//
// Retrieve wraps a search in a time budget. A query that overruns is
// abandoned and reported as ErrTimeout; its session finishes unwinding the
// abandoned query before serving the next one.
package index
