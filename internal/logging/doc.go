// Package logging assembles structured slog loggers and formatting helpers used
// across proxyoda.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so submission code can tag log
// lines with run IDs, job indexes, and correlation IDs. Each submission run
// also gets its own JSON log through NewRunLogger. The package provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
