package matching

import (
	"cardmatch/internal/index"
	"cardmatch/internal/overlap"
)

// Result is the accepted match for a card.
type Result struct {
	CardPath  string
	RecordID  string
	Score     int
	Alignment overlap.Alignment
}

// Candidate is a retrieved record with its verified alignment. A candidate
// whose record was missing or whose alignment failed carries an empty
// alignment.
type Candidate struct {
	Hit       index.Hit
	Alignment overlap.Alignment
}

// Score is the number of fields that survived verification.
func (c Candidate) Score() int {
	return len(c.Alignment)
}

// Select returns the highest-scoring candidate when its score reaches
// minMatched. Candidates are taken in retrieval order and ties keep the
// earlier one. A candidate with no matched field is never selected.
func Select(cardPath string, candidates []Candidate, minMatched int) (Result, bool) {
	best := -1
	for i, candidate := range candidates {
		if best < 0 || candidate.Score() > candidates[best].Score() {
			best = i
		}
	}
	if best < 0 {
		return Result{}, false
	}
	winner := candidates[best]
	if winner.Score() == 0 || winner.Score() < minMatched {
		return Result{}, false
	}
	return Result{
		CardPath:  cardPath,
		RecordID:  winner.Hit.RecordID,
		Score:     winner.Score(),
		Alignment: winner.Alignment,
	}, true
}

// BestScore returns the highest candidate score, or zero without candidates.
func BestScore(candidates []Candidate) int {
	best := 0
	for _, candidate := range candidates {
		best = max(best, candidate.Score())
	}
	return best
}
