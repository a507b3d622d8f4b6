package overlap

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidSpan reports a span whose range cannot exist inside the text.
var ErrInvalidSpan = errors.New("invalid span")

// Span is a labeled hypothesis that a reference field occurs at [Start, End)
// of a card's text with edit distance Distance.
type Span struct {
	Label    string
	Start    int
	End      int
	Distance int
	Text     string
}

// Len returns the number of runes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one rune.
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// Alignment is a resolved, non-overlapping sequence of spans ordered by Start.
type Alignment []Span

// Resolve reduces spans to a pairwise-disjoint alignment over text.
//
// Spans are admitted in priority order: lower distance, then wider range, then
// earlier start. A span that collides with already admitted spans is truncated
// to its longest free fragment (earliest on ties) and dropped when nothing is
// left. Surviving spans take their Text from text at the final range.
func Resolve(text []rune, spans []Span) (Alignment, error) {
	for _, span := range spans {
		if span.Start < 0 || span.End < span.Start || span.End > len(text) || span.Distance < 0 {
			return nil, fmt.Errorf("%w: %s [%d,%d) distance %d over %d runes",
				ErrInvalidSpan, span.Label, span.Start, span.End, span.Distance, len(text))
		}
	}

	ordered := slices.Clone(spans)
	slices.SortStableFunc(ordered, comparePriority)

	var claimed []interval
	resolved := make(Alignment, 0, len(ordered))
	for _, span := range ordered {
		free, ok := longestFree(claimed, interval{span.Start, span.End})
		if !ok {
			continue
		}
		span.Start, span.End = free.start, free.end
		claimed = insertInterval(claimed, free)
		resolved = append(resolved, span)
	}

	slices.SortFunc(resolved, func(a, b Span) int {
		return cmp.Compare(a.Start, b.Start)
	})
	for i := range resolved {
		resolved[i].Text = string(text[resolved[i].Start:resolved[i].End])
	}
	return resolved, nil
}

func comparePriority(a, b Span) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Len(), a.Len()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.Label, b.Label)
}

type interval struct {
	start int
	end   int
}

// longestFree returns the longest part of want not covered by claimed, which
// must be sorted and disjoint.
func longestFree(claimed []interval, want interval) (interval, bool) {
	var best interval
	cursor := want.start
	consider := func(gap interval) {
		if gap.end-gap.start > best.end-best.start {
			best = gap
		}
	}
	for _, c := range claimed {
		if c.end <= cursor {
			continue
		}
		if c.start >= want.end {
			break
		}
		if c.start > cursor {
			consider(interval{cursor, c.start})
		}
		cursor = max(cursor, c.end)
		if cursor >= want.end {
			break
		}
	}
	if cursor < want.end {
		consider(interval{cursor, want.end})
	}
	return best, best.end > best.start
}

func insertInterval(claimed []interval, iv interval) []interval {
	idx, _ := slices.BinarySearchFunc(claimed, iv, func(a, b interval) int {
		return cmp.Compare(a.start, b.start)
	})
	return slices.Insert(claimed, idx, iv)
}
