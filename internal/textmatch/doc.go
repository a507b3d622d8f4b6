// Package textmatch locates reference strings inside noisy OCR text.
//
// Matching is approximate by construction: a pattern is accepted anywhere in
// the haystack as long as the Levenshtein distance between the pattern and
// the matched window stays within a budget. The budget grows with pattern
// length through a Schedule so short strings tolerate one or two edits while
// long titles can absorb realistic OCR damage without matching unrelated
// text.
//
// All offsets are rune offsets. Callers that hold byte strings must convert
// the haystack with []rune before searching so results line up with the
// character offsets produced by the NER stage.
package textmatch
