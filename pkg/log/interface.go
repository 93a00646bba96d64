// Package log provides the structured logging interface used across grf.
//
// The Logger interface is a small slog-compatible surface so that the training
// and prediction code does not depend on a concrete backend. Two providers are
// included: a log/slog JSON provider (the default) and a zerolog provider.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("forest.trainer").With(
//	    log.ModelNameKey, "RegressionForest",
//	)
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.NumTreesKey, 2000,
//	    log.SamplesKey, 1000,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with log/slog.
//
// Fields are alternating key/value pairs. An error passed as a value is
// rendered with its message, and by providers that support it, its stack trace.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs a potentially problematic situation.
	Warn(msg string, fields ...any)

	// Error logs an error condition. If the first field is an error it is
	// attached under the "error" key.
	Error(msg string, fields ...any)

	// With returns a Logger that includes fields in every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. Implementations must be safe for concurrent use.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for all loggers created by this provider.
	SetLevel(level Level)
}
