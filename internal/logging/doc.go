// Package logging assembles the structured slog loggers used across
// videotools.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers so batch code can tag log lines with the run
// ID, job kind and source being processed. NewNop provides a silent logger for
// tests and wiring code that cannot fail.
package logging
