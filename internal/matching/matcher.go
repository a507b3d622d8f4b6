package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cardmatch/internal/cards"
	"cardmatch/internal/docstore"
	"cardmatch/internal/index"
	"cardmatch/internal/logging"
	"cardmatch/internal/query"
	"cardmatch/internal/records"
)

// Outcome classifies how processing of one card ended.
type Outcome string

const (
	OutcomeMatched        Outcome = "matched"
	OutcomeBelowThreshold Outcome = "below_threshold"
	OutcomeNoCandidates   Outcome = "no_candidates"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeMalformedLine  Outcome = "malformed_line"
	OutcomeMissingOCR     Outcome = "missing_ocr"
	OutcomeFailed         Outcome = "failed"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{
	OutcomeMatched,
	OutcomeBelowThreshold,
	OutcomeNoCandidates,
	OutcomeTimeout,
	OutcomeMalformedLine,
	OutcomeMissingOCR,
	OutcomeFailed,
}

// Retriever returns ranked candidate records for a query.
type Retriever interface {
	Retrieve(ctx context.Context, q query.Query) ([]index.Hit, error)
}

// RecordSource loads reference records by id.
type RecordSource interface {
	Record(ctx context.Context, id string) (records.Record, error)
}

// OCRSource loads card transcriptions by card path.
type OCRSource interface {
	OCRText(ctx context.Context, path string) (string, error)
}

// Report describes the processing of one card.
type Report struct {
	CardPath string
	Outcome  Outcome
	// Result is set only when Outcome is OutcomeMatched.
	Result           Result
	Query            string
	Candidates       int
	BestScore        int
	MissingRecords   int
	ResolverFailures int
	SearchDuration   time.Duration
	Searched         bool
	Err              error
}

// Matcher runs the per-card pipeline. A Matcher is not safe for concurrent
// use; give each worker its own.
type Matcher struct {
	policy    Policy
	verifier  *Verifier
	retriever Retriever
	records   RecordSource
	ocr       OCRSource
	logger    *slog.Logger
	now       func() time.Time
}

// NewMatcher constructs a matcher over the supplied collaborators.
func NewMatcher(policy Policy, retriever Retriever, recs RecordSource, ocr OCRSource, logger *slog.Logger) *Matcher {
	logger = logging.NewComponentLogger(logger, "matching")
	policy = policy.normalized()
	return &Matcher{
		policy:    policy,
		verifier:  NewVerifier(policy.Schedule, logger),
		retriever: retriever,
		records:   recs,
		ocr:       ocr,
		logger:    logger,
		now:       time.Now,
	}
}

// MatchLine parses one inference line, loads the card's OCR text, and
// matches it. The returned error is non-nil only when ctx ends before the
// card is decided; every other problem is reported through the Report.
func (m *Matcher) MatchLine(ctx context.Context, raw string) (Report, error) {
	line, err := cards.ParseLine(raw)
	if err != nil {
		logging.WarnWithContext(m.logger, "inference line skipped", "malformed_line",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the NER output format: path<TAB>label start end"),
			logging.String(logging.FieldImpact, "card not matched"),
		)
		return Report{Outcome: OutcomeMalformedLine, Err: err}, nil
	}
	ctx = logging.WithCard(ctx, line.Path)
	logger := logging.WithContext(ctx, m.logger)

	text, err := m.ocr.OCRText(ctx, line.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Report{}, ctxErr
		}
		if errors.Is(err, docstore.ErrNotFound) {
			logging.WarnWithContext(logger, "card has no OCR text", "missing_ocr",
				logging.String(logging.FieldErrorHint, "import the card transcription into the OCR store"),
				logging.String(logging.FieldImpact, "card not matched"),
			)
			return Report{CardPath: line.Path, Outcome: OutcomeMissingOCR, Err: err}, nil
		}
		return m.failed(logger, line.Path, err), nil
	}
	return m.Match(ctx, cards.Card{Path: line.Path, Text: []rune(text)}, line.Alignments)
}

// Match decides the best record for a card whose NER alignments are given.
func (m *Matcher) Match(ctx context.Context, card cards.Card, alignments []cards.FieldAlignment) (Report, error) {
	ctx = logging.WithCard(ctx, card.Path)
	logger := logging.WithContext(ctx, m.logger)
	report := Report{CardPath: card.Path}

	q := query.Build(cards.GroupTexts(card.Text, alignments), m.policy.Query)
	report.Query = q.String()
	logger.Debug("query built", logging.String("query", report.Query), logging.Int("terms", len(q.Terms)))
	if q.Empty() {
		report.Outcome = OutcomeNoCandidates
		return report, nil
	}

	started := m.now()
	hits, err := m.retriever.Retrieve(ctx, q)
	report.SearchDuration = m.now().Sub(started)
	report.Searched = true
	if err != nil {
		switch {
		case errors.Is(err, index.ErrTimeout):
			logging.WarnWithContext(logger, "candidate retrieval timed out", "retrieval_timeout",
				logging.Duration("budget", m.policy.RetrievalTimeout),
				logging.String(logging.FieldErrorHint, "raise matching.retrieval_timeout_seconds or shorten the query"),
				logging.String(logging.FieldImpact, "card skipped"),
			)
			report.Outcome = OutcomeTimeout
			report.Err = err
			return report, nil
		case ctx.Err() != nil:
			return Report{}, ctx.Err()
		default:
			return m.failed(logger, card.Path, err), nil
		}
	}
	report.Candidates = len(hits)
	logger.Debug("candidates retrieved",
		logging.Int("candidates", len(hits)),
		logging.Duration("search_duration", report.SearchDuration),
	)
	if len(hits) == 0 {
		report.Outcome = OutcomeNoCandidates
		return report, nil
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		candidate := Candidate{Hit: hit}
		rec, err := m.records.Record(ctx, hit.RecordID)
		switch {
		case err == nil:
			alignment, verr := m.verifier.Verify(ctx, card.Text, rec)
			if verr != nil {
				report.ResolverFailures++
				logging.WarnWithContext(logger, "candidate alignment rejected", "resolver_failed",
					logging.String(logging.FieldRecordID, hit.RecordID),
					logging.Error(verr),
					logging.String(logging.FieldImpact, "candidate scored zero"),
				)
			} else {
				candidate.Alignment = alignment
			}
		case ctx.Err() != nil:
			return Report{}, ctx.Err()
		case errors.Is(err, docstore.ErrNotFound):
			report.MissingRecords++
			logging.WarnWithContext(logger, "candidate record missing from store", "missing_record",
				logging.String(logging.FieldRecordID, hit.RecordID),
				logging.String(logging.FieldErrorHint, "rebuild the index from the same records as the record store"),
				logging.String(logging.FieldImpact, "candidate scored zero"),
			)
		default:
			return m.failed(logger, card.Path, fmt.Errorf("load record %s: %w", hit.RecordID, err)), nil
		}
		logger.Debug("candidate verified",
			logging.String(logging.FieldRecordID, hit.RecordID),
			logging.Int("rank", hit.Rank),
			logging.Float64("bm25", hit.Score),
			logging.Int("score", candidate.Score()),
		)
		candidates = append(candidates, candidate)
	}

	report.BestScore = BestScore(candidates)
	result, ok := Select(card.Path, candidates, m.policy.MinMatchedFields)
	if !ok {
		report.Outcome = OutcomeBelowThreshold
		logger.Info("no candidate reached the field threshold",
			logging.Int("best_score", report.BestScore),
			logging.Int("min_matched_fields", m.policy.MinMatchedFields),
		)
		return report, nil
	}
	report.Outcome = OutcomeMatched
	report.Result = result
	logger.Info("card matched",
		logging.String(logging.FieldRecordID, result.RecordID),
		logging.Int("score", result.Score),
	)
	return report, nil
}

func (m *Matcher) failed(logger *slog.Logger, path string, err error) Report {
	logging.ErrorWithContext(logger, "card processing failed", "card_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the record and OCR stores"),
	)
	return Report{CardPath: path, Outcome: OutcomeFailed, Err: err}
}
