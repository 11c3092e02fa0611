package slotmap

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with slot map specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithName adds a name field to the logger (useful for telling slot maps apart).
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("slotmap", name),
	}
}

// LogGrow logs a storage growth.
func (l *Logger) LogGrow(oldCap, newCap int, err error) {
	if err != nil {
		l.Error("grow failed",
			"old_capacity", oldCap,
			"new_capacity", newCap,
			"error", err,
		)
	} else {
		l.Debug("grow completed",
			"old_capacity", oldCap,
			"new_capacity", newCap,
		)
	}
}

// LogOptimize logs a compaction.
func (l *Logger) LogOptimize(reclaimed, remaining, touched int) {
	l.Debug("optimize completed",
		"reclaimed", reclaimed,
		"free_remaining", remaining,
		"touched", touched,
	)
}

// LogReset logs a full reset of the bookkeeping.
func (l *Logger) LogReset(reason string) {
	l.Debug("reset", "reason", reason)
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"op", op,
			"bytes", bytes,
		)
	}
}
