package shmimg

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with shmimg-specific context.
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
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithSegment adds the segment name to the logger.
func (l *Logger) WithSegment(name string) *Logger {
	return &Logger{Logger: l.Logger.With("segment", name)}
}

// WithSlot adds a slot index to the logger.
func (l *Logger) WithSlot(index int) *Logger {
	return &Logger{Logger: l.Logger.With("slot", index)}
}

// WithWorker tags the logger with a worker's id and name.
func (l *Logger) WithWorker(id int, name string) *Logger {
	return &Logger{Logger: l.Logger.With("worker_id", id, "worker", name)}
}

// LogAttach logs the outcome of Initialize. The logger is expected to carry
// the segment name already (see WithSegment).
func (l *Logger) LogAttach(ctx context.Context, layout Layout, err error) {
	if err != nil {
		l.ErrorContext(ctx, "attach failed",
			"expected_bytes", layout.SegmentByteSize(),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "segment attached",
			"slots", layout.GroupCount,
			"slot_bytes", layout.SlotByteCapacity(),
		)
	}
}

// LogFinalize logs the outcome of Finalize.
func (l *Logger) LogFinalize(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "finalize failed", "error", err)
	} else {
		l.DebugContext(ctx, "segment detached")
	}
}

// LogWrite logs a slot write.
func (l *Logger) LogWrite(ctx context.Context, index, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"slot", index,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "write completed",
			"slot", index,
			"bytes", bytes,
		)
	}
}

// LogRead logs a slot read.
func (l *Logger) LogRead(ctx context.Context, index int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"slot", index,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "read completed",
			"slot", index,
		)
	}
}
