package textmatch

import "unicode/utf8"

const (
	shortTextLength  = 6
	mediumTextLength = 11
	shortTextBudget  = 1
	mediumTextBudget = 2
)

// Schedule converts a text length into the largest tolerated edit distance.
// Texts under 6 runes tolerate one edit and texts under 11 runes tolerate two;
// longer texts tolerate floor(length*Threshold) edits capped at Limit.
type Schedule struct {
	Threshold float64
	Limit     int
}

// DefaultSchedule returns the tuned OCR schedule (25% of the length, at most 6).
func DefaultSchedule() Schedule {
	return Schedule{Threshold: 0.25, Limit: 6}
}

func (s Schedule) normalized() Schedule {
	d := DefaultSchedule()
	if s.Threshold <= 0 || s.Threshold >= 1 {
		s.Threshold = d.Threshold
	}
	if s.Limit < mediumTextBudget {
		s.Limit = d.Limit
	}
	return s
}

// MaxDistance returns the edit budget for text. The result never decreases as
// text grows and never exceeds the schedule limit.
func (s Schedule) MaxDistance(text string) int {
	length := utf8.RuneCountInString(text)
	switch {
	case length < shortTextLength:
		return shortTextBudget
	case length < mediumTextLength:
		return mediumTextBudget
	}
	s = s.normalized()
	budget := int(float64(length) * s.Threshold)
	// Long texts never get a tighter budget than medium ones.
	budget = max(budget, mediumTextBudget)
	return min(budget, s.Limit)
}

// MaxDistance applies DefaultSchedule.
func MaxDistance(text string) int {
	return DefaultSchedule().MaxDistance(text)
}
