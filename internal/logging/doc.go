// Package logging assembles structured slog loggers and formatting helpers used
// across cardmatch.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so matching code can tag log
// lines with the card being processed and the worker handling it. Every record
// written during a run carries the run's session id. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
