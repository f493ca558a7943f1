// Package log provides structured lifecycle tracing for livesub.
//
// This package defines the Logger interface and Event types for capturing
// subscription lifecycle events at several layers (component, hook,
// transport). It is separate from operational logging (slog): the trace is a
// complete machine-readable record of when subscriptions were opened, which
// events they delivered, and when they were torn down.
//
// Tracing is opt-in. Components and hooks default to NoopLogger and never
// report transport errors through a logger on their own; errors surface
// through hook results. A Logger only observes.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For later analysis: write to a binary file
//	fileLogger, _ := log.NewFileLogger("/tmp/session.lslog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fileLogger)
//
// # File Format
//
// Trace files use CBOR encoding with .lslog extension. The livesub CLI
// provides a "log view" command for reading them.
package log
