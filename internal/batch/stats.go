package batch

import (
	"time"

	"cardmatch/internal/matching"
)

// Stats accumulates run counters. A zero Stats is ready to use.
type Stats struct {
	// Cards is the number of input lines in the run window.
	Cards int
	// Decided is the number of cards that reached an outcome.
	Decided int
	// Searched counts cards that reached the index, including timeouts.
	Searched         int
	SearchTime       time.Duration
	Outcomes         map[matching.Outcome]int
	MissingRecords   int
	ResolverFailures int
	Elapsed          time.Duration
	Interrupted      bool
}

// Add records one card report.
func (s *Stats) Add(r matching.Report) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[matching.Outcome]int)
	}
	s.Decided++
	s.Outcomes[r.Outcome]++
	s.MissingRecords += r.MissingRecords
	s.ResolverFailures += r.ResolverFailures
	if r.Searched {
		s.Searched++
		s.SearchTime += r.SearchDuration
	}
}

// Merge folds another accumulator into s. Cards, Elapsed, and Interrupted
// describe the whole run and are left to the caller.
func (s *Stats) Merge(other Stats) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[matching.Outcome]int)
	}
	s.Decided += other.Decided
	s.Searched += other.Searched
	s.SearchTime += other.SearchTime
	s.MissingRecords += other.MissingRecords
	s.ResolverFailures += other.ResolverFailures
	for outcome, n := range other.Outcomes {
		s.Outcomes[outcome] += n
	}
}

// Count returns the number of cards that ended with outcome.
func (s Stats) Count(outcome matching.Outcome) int {
	return s.Outcomes[outcome]
}

// Undecided returns the number of cards in the window left without an
// outcome, which only happens on interrupt.
func (s Stats) Undecided() int {
	return max(s.Cards-s.Decided, 0)
}

// PerCard returns the mean wall time per searched card.
func (s Stats) PerCard() time.Duration {
	if s.Searched == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Searched)
}

// MeanSearch returns the mean index search time per searched card.
func (s Stats) MeanSearch() time.Duration {
	if s.Searched == 0 {
		return 0
	}
	return s.SearchTime / time.Duration(s.Searched)
}
