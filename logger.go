package molscene

import (
	"context"
	"log/slog"
	"os"

	"github.com/molvis/molscene/core"
)

// Logger wraps slog.Logger with molscene-specific context.
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

// WithLayer adds a layer field to the logger.
func (l *Logger) WithLayer(layer core.LayerID) *Logger {
	return &Logger{
		Logger: l.Logger.With("layer", string(layer)),
	}
}

// WithID adds an entity id field to the logger.
func (l *Logger) WithID(id core.EntityID) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", uint32(id)),
	}
}

// LogRegisterFrame logs a frame registration.
func (l *Logger) LogRegisterFrame(ctx context.Context, atoms, bonds int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "register frame failed",
			"atoms", atoms,
			"bonds", bonds,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "frame registered",
			"atoms", atoms,
			"bonds", bonds,
		)
	}
}

// LogCreate logs an entity creation.
func (l *Logger) LogCreate(ctx context.Context, kind core.Kind, id core.EntityID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "create failed",
			"kind", kind.String(),
			"id", uint32(id),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "create completed",
			"kind", kind.String(),
			"id", uint32(id),
		)
	}
}

// LogDelete logs an entity deletion, including cascaded bond removals.
func (l *Logger) LogDelete(ctx context.Context, kind core.Kind, id core.EntityID, cascaded int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"kind", kind.String(),
			"id", uint32(id),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"kind", kind.String(),
			"id", uint32(id),
			"cascaded", cascaded,
		)
	}
}

// LogPromote logs a frame promotion.
func (l *Logger) LogPromote(ctx context.Context, atoms, bonds int) {
	l.InfoContext(ctx, "frame promoted to edit pool",
		"atoms", atoms,
		"bonds", bonds,
	)
}

// LogSnapshot logs a snapshot save operation.
func (l *Logger) LogSnapshot(ctx context.Context, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
			"bytes", size,
		)
	}
}

// LogLoad logs a snapshot load operation.
func (l *Logger) LogLoad(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"name", name,
		)
	}
}
