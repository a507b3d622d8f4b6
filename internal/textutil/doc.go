// Package textutil provides the tokenization and case folding shared by the
// index writer, the index searcher, and the query builder.
//
// Tokens are case-folded runs of letters and digits. Folding uses
// golang.org/x/text/cases so non-ASCII catalog text (diacritics, ß, Greek)
// folds the same way at index and query time.
package textutil
