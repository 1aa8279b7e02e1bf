package trajhash

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with trajhash-specific context.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCellSize adds a cell_size field to the logger.
func (l *Logger) WithCellSize(cellSize float32) *Logger {
	return &Logger{
		Logger: l.Logger.With("cell_size", cellSize),
	}
}

// WithStep adds a time step field to the logger.
func (l *Logger) WithStep(step uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("step", step),
	}
}

// WithTrajectory adds a trajectory id field to the logger.
func (l *Logger) WithTrajectory(id uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("trajectory", id),
	}
}

// LogBuild logs a construction run.
func (l *Logger) LogBuild(ctx context.Context, indices, shards, skipped int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"shards", shards,
			"error", err,
		)
		return
	}
	if skipped > 0 {
		l.WarnContext(ctx, "build completed with skipped shards",
			"indices", indices,
			"shards", shards,
			"skipped", skipped,
			"duration", duration,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"indices", indices,
			"shards", shards,
			"duration", duration,
		)
	}
}

// LogQuery logs one query evaluation.
func (l *Logger) LogQuery(ctx context.Context, shape string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"shape", shape,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"shape", shape,
			"results", results,
		)
	}
}
