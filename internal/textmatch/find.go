package textmatch

import "strings"

// Occurrence is an approximate match of a pattern inside a haystack.
// [Start, End) is a rune range; Distance is the Levenshtein distance between
// the pattern and haystack[Start:End].
type Occurrence struct {
	Start    int
	End      int
	Distance int
	Matched  string
}

// Len returns the number of runes covered by the occurrence.
func (o Occurrence) Len() int {
	return o.End - o.Start
}

// FindBest returns the occurrence of pattern in haystack with the lowest edit
// distance not exceeding maxDistance. Ties go to the earliest start, then to
// the earliest end.
//
// Degenerate input reports no match instead of an error: a blank pattern, an
// empty haystack, a negative budget, or a budget at least as long as the
// pattern (which would accept every position).
func FindBest(pattern string, haystack []rune, maxDistance int) (Occurrence, bool) {
	if strings.TrimSpace(pattern) == "" || len(haystack) == 0 || maxDistance < 0 {
		return Occurrence{}, false
	}
	needle := []rune(pattern)
	if maxDistance >= len(needle) {
		return Occurrence{}, false
	}

	ends := endDistances(needle, haystack)
	best := maxDistance + 1
	for end := 1; end < len(ends); end++ {
		if ends[end] < best {
			best = ends[end]
		}
	}
	if best > maxDistance {
		return Occurrence{}, false
	}

	var (
		found Occurrence
		ok    bool
	)
	for end := 1; end < len(ends); end++ {
		if ends[end] != best {
			continue
		}
		start := windowStart(needle, haystack, end, best)
		if start < 0 {
			continue
		}
		if !ok || start < found.Start || (start == found.Start && end < found.End) {
			found = Occurrence{Start: start, End: end, Distance: best}
			ok = true
		}
	}
	if !ok {
		return Occurrence{}, false
	}
	found.Matched = string(haystack[found.Start:found.End])
	return found, true
}

// endDistances returns, for every end offset j of the haystack, the smallest
// edit distance between needle and any haystack window ending at j. A window
// may start anywhere, so the first row is all zeroes (Sellers' algorithm).
func endDistances(needle, haystack []rune) []int {
	m := len(needle)
	column := make([]int, m+1)
	for i := range column {
		column[i] = i
	}
	ends := make([]int, len(haystack)+1)
	ends[0] = column[m]

	for j, r := range haystack {
		diagonal := column[0]
		column[0] = 0
		for i := 1; i <= m; i++ {
			above := column[i]
			cost := 1
			if needle[i-1] == r {
				cost = 0
			}
			column[i] = min(diagonal+cost, above+1, column[i-1]+1)
			diagonal = above
		}
		ends[j+1] = column[m]
	}
	return ends
}

// windowStart walks backwards from end and returns the earliest start offset
// of a window whose edit distance to needle equals distance, or -1.
func windowStart(needle, haystack []rune, end, distance int) int {
	m := len(needle)
	span := min(end, m+distance)

	// row[k] holds the distance between the last i needle runes and the
	// k haystack runes preceding end.
	row := make([]int, span+1)
	for k := range row {
		row[k] = k
	}
	for i := 1; i <= m; i++ {
		diagonal := row[0]
		row[0] = i
		p := needle[m-i]
		for k := 1; k <= span; k++ {
			above := row[k]
			cost := 1
			if haystack[end-k] == p {
				cost = 0
			}
			row[k] = min(diagonal+cost, above+1, row[k-1]+1)
			diagonal = above
		}
	}
	for k := span; k >= 0; k-- {
		if row[k] == distance {
			return end - k
		}
	}
	return -1
}
