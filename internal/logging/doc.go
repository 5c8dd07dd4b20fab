// Package logging assembles the structured slog loggers used across tunepress.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers plus standard field names so every
// component emits log lines with the same shape. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
