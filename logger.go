package kea

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with kea-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithBand adds a band field to the logger.
func (l *Logger) WithBand(band uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("band", band),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogBlockIO logs a block read or write.
func (l *Logger) LogBlockIO(ctx context.Context, op string, band uint32, xSize, ySize uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "block "+op+" failed",
			"band", band,
			"x_size", xSize,
			"y_size", ySize,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "block "+op+" completed",
			"band", band,
			"x_size", xSize,
			"y_size", ySize,
		)
	}
}

// LogOverview logs the creation or removal of an overview.
func (l *Logger) LogOverview(ctx context.Context, op string, band, level uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "overview "+op+" failed",
			"band", band,
			"overview", level,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "overview "+op+" completed",
			"band", band,
			"overview", level,
		)
	}
}

// LogAttributeExport logs an attribute table export.
func (l *Logger) LogAttributeExport(ctx context.Context, band uint32, rows uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "attribute table export failed",
			"band", band,
			"rows", rows,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "attribute table exported",
			"band", band,
			"rows", rows,
		)
	}
}

// LogFlush logs a flush of pending writes.
func (l *Logger) LogFlush(ctx context.Context, generation uint64, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed",
			"generation", generation,
			"duration", duration,
		)
	}
}

// LogGCPFailure logs a ground control point write that was dropped.
func (l *Logger) LogGCPFailure(ctx context.Context, count int, err error) {
	l.WarnContext(ctx, "ground control points not written",
		"count", count,
		"error", err,
	)
}
