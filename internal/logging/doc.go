// Package logging builds the slog loggers used across the daemon and CLI.
//
// It supports console and JSON output, multiple output paths, component child
// loggers, and typed attribute helpers so call sites never import log/slog
// directly. Tests use NewNop to silence output.
package logging
