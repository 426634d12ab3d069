package dml

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with the field names used across paths.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler to stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NewTextLogger creates a Logger that writes human readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))}
}

// NoopLogger discards everything.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithPath tags records with the execution path name.
func (l *Logger) WithPath(name string) *Logger {
	return &Logger{Logger: l.Logger.With("path", name)}
}

// WithNode tags records with a NUMA node.
func (l *Logger) WithNode(node int) *Logger {
	return &Logger{Logger: l.Logger.With("node", node)}
}

// LogSubmit logs the outcome of a submission.
func (l *Logger) LogSubmit(path string, op Opcode, st Status) {
	if st != StatusOK {
		l.Warn("submission failed",
			"path", path,
			"opcode", op.String(),
			"status", st.String(),
		)
		return
	}
	l.Debug("submitted",
		"path", path,
		"opcode", op.String(),
	)
}

// LogRejected logs a descriptor rejected before submission.
func (l *Logger) LogRejected(path string, op Opcode, st Status) {
	l.Debug("descriptor rejected",
		"path", path,
		"opcode", op.String(),
		"status", st.String(),
	)
}

// LogFallback logs a switch from the hardware path to the software path.
func (l *Logger) LogFallback(op Opcode, st Status) {
	l.Debug("falling back to software",
		"opcode", op.String(),
		"status", st.String(),
	)
}
