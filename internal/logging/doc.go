// Package logging assembles structured slog loggers and formatting helpers used
// across the cbir client.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing (including the rotating log file), and exposes context-aware
// helpers so controller code can automatically tag log lines with request
// correlation IDs, query sequence numbers, and component names. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
