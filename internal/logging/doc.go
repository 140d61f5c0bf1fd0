// Package logging builds the process-wide slog logger.
//
// Console output is a single line per event with a colorized level when the
// destination is a terminal; JSON output is available for log shippers. Attr
// helpers keep call sites terse, and NewNop gives components a safe default
// when no logger is injected.
package logging
