// Package logging assembles structured slog loggers and formatting helpers
// used across shuttle components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so protocol code can tag log
// lines with session IDs, asset names, and request correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape and routing as the rest of the system.
package logging
