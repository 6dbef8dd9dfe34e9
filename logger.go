package recgo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with recgo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogAdd logs a single item add operation.
func (l *Logger) LogAdd(ctx context.Context, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"id", id,
		)
	}
}

// LogBulkAdd logs a bulk add operation.
func (l *Logger) LogBulkAdd(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "bulk add failed",
			"count", count,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "bulk add completed",
			"count", count,
		)
	}
}

// LogRetrieval logs a retrieval operation.
func (l *Logger) LogRetrieval(ctx context.Context, topK, resultsFound int, cacheHit bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "retrieval failed",
			"top_k", topK,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "retrieval completed",
			"top_k", topK,
			"results", resultsFound,
			"cache_hit", cacheHit,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"id", id,
		)
	}
}
