package matching

import (
	"context"
	"log/slog"

	"cardmatch/internal/logging"
	"cardmatch/internal/overlap"
	"cardmatch/internal/records"
	"cardmatch/internal/textmatch"
)

// Verifier locates a record's field values inside card text.
type Verifier struct {
	schedule textmatch.Schedule
	logger   *slog.Logger
	resolve  func(text []rune, spans []overlap.Span) (overlap.Alignment, error)
}

// NewVerifier constructs a verifier using schedule for per-field edit budgets.
func NewVerifier(schedule textmatch.Schedule, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Verifier{schedule: schedule, logger: logger, resolve: overlap.Resolve}
}

// Verify searches text for every atomic field of rec and resolves the found
// occurrences into one disjoint alignment. Fields that cannot be found within
// their budget contribute nothing. An error means the occurrences could not be
// resolved; the candidate should then be treated as scoring zero.
func (v *Verifier) Verify(ctx context.Context, text []rune, rec records.Record) (overlap.Alignment, error) {
	logger := logging.WithContext(ctx, v.logger)
	fields := records.Expand(rec)
	spans := make([]overlap.Span, 0, len(fields))
	for _, field := range fields {
		budget := v.schedule.MaxDistance(field.Text)
		occ, ok := textmatch.FindBest(field.Text, text, budget)
		if !ok {
			logger.Debug("field not found on card",
				logging.String(logging.FieldRecordID, rec.ID),
				logging.String("label", string(field.Label)),
				logging.Int("budget", budget),
			)
			continue
		}
		spans = append(spans, overlap.Span{
			Label:    string(field.Label),
			Start:    occ.Start,
			End:      occ.End,
			Distance: occ.Distance,
			Text:     occ.Matched,
		})
	}
	return v.resolve(text, spans)
}
