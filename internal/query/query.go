package query

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cardmatch/internal/records"
	"cardmatch/internal/textutil"
)

// Index field names used for author values.
const (
	FieldAuthorPrimary   = "author1"
	FieldAuthorSecondary = "author2"
)

// Defaults used when Options fields are zero.
const (
	DefaultMinTokenLength = 4
	DefaultMaxEdits       = 2
)

// Options tunes query construction.
type Options struct {
	// MinTokenLength is the shortest token, in runes, that becomes a term.
	MinTokenLength int
	MaxEdits       int
	PrefixLength   int
}

// DefaultOptions returns the options used by the matching pipeline.
func DefaultOptions() Options {
	return Options{MinTokenLength: DefaultMinTokenLength, MaxEdits: DefaultMaxEdits}
}

func (o Options) normalized() Options {
	if o.MinTokenLength <= 0 {
		o.MinTokenLength = DefaultMinTokenLength
	}
	if o.MaxEdits < 0 {
		o.MaxEdits = DefaultMaxEdits
	}
	if o.PrefixLength < 0 {
		o.PrefixLength = 0
	}
	return o
}

// FuzzyTerm matches any indexed token in Field within MaxEdits Levenshtein
// edits of Text whose first PrefixLength runes equal Text's.
type FuzzyTerm struct {
	Field        string
	Text         string
	MaxEdits     int
	PrefixLength int
}

func (t FuzzyTerm) String() string {
	return fmt.Sprintf("%s:%s~%d", t.Field, t.Text, t.MaxEdits)
}

// Query is a disjunction of fuzzy terms. An empty query matches nothing.
type Query struct {
	Terms []FuzzyTerm
}

// Empty reports whether the query has no terms.
func (q Query) Empty() bool {
	return len(q.Terms) == 0
}

func (q Query) String() string {
	if q.Empty() {
		return "()"
	}
	parts := make([]string, len(q.Terms))
	for i, term := range q.Terms {
		parts[i] = term.String()
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// FieldsFor returns the index fields that store values of label.
func FieldsFor(label string) []string {
	if parsed, ok := records.ParseLabel(label); ok && parsed == records.LabelAuthor {
		return []string{FieldAuthorPrimary, FieldAuthorSecondary}
	}
	return []string{cases.Lower(language.Und).String(strings.TrimSpace(label))}
}

// Build creates a query from label → field texts. Labels are visited in
// sorted order and tokens in text order, so equal input yields an equal
// query. Duplicate (field, text) terms are emitted once.
func Build(fields map[string][]string, opts Options) Query {
	opts = opts.normalized()
	labels := make([]string, 0, len(fields))
	for label := range fields {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	type key struct{ field, text string }
	seen := make(map[key]struct{})
	var q Query
	for _, label := range labels {
		targets := FieldsFor(label)
		for _, text := range fields[label] {
			for _, token := range strings.Fields(text) {
				if textutil.RuneLen(token) < opts.MinTokenLength {
					continue
				}
				term := textutil.Fold(textutil.TrimPunct(token))
				if term == "" {
					continue
				}
				for _, field := range targets {
					k := key{field, term}
					if _, dup := seen[k]; dup {
						continue
					}
					seen[k] = struct{}{}
					q.Terms = append(q.Terms, FuzzyTerm{
						Field:        field,
						Text:         term,
						MaxEdits:     opts.MaxEdits,
						PrefixLength: opts.PrefixLength,
					})
				}
			}
		}
	}
	return q
}
