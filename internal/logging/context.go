package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCard is the standardized structured logging key for card paths.
	FieldCard = "card"
	// FieldRecordID is the standardized structured logging key for reference record ids.
	FieldRecordID = "record_id"
	// FieldWorker is the standardized structured logging key for worker numbers.
	FieldWorker = "worker"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldSessionID is the standardized structured logging key for run identifiers.
	FieldSessionID = "session_id"
)

type contextKey int

const (
	cardKey contextKey = iota
	workerKey
)

// WithCard returns a context tagged with the card being processed.
func WithCard(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, cardKey, path)
}

// WithWorker returns a context tagged with a worker number.
func WithWorker(ctx context.Context, worker int) context.Context {
	return context.WithValue(ctx, workerKey, worker)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if worker, ok := ctx.Value(workerKey).(int); ok {
		fields = append(fields, slog.Int(FieldWorker, worker))
	}
	if path, ok := ctx.Value(cardKey).(string); ok && path != "" {
		fields = append(fields, slog.String(FieldCard, path))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
