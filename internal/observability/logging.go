// Package observability provides structured logging and Prometheus
// metrics for the realtime client.
package observability

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Logger wraps slog with token redaction so bearer credentials never
// reach log output.
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format is "json" (production) or "text" (development).
	Format string

	// Output is the writer for log output (defaults to os.Stderr).
	Output io.Writer
}

// defaultRedactPatterns covers bearer tokens and JWTs in log values.
var defaultRedactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]{8,}`),
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
}

// NewLogger creates a structured logger. Empty fields fall back to
// level "info" and format "json".
func NewLogger(config LogConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: LevelFromString(config.Level)}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "text") {
		handler = slog.NewTextHandler(config.Output, opts)
	} else {
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	return &Logger{
		logger:  slog.New(handler),
		redacts: defaultRedactPatterns,
	}
}

// LevelFromString converts a level name to a slog.Level, defaulting
// to info for unrecognized values.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Slog returns the underlying slog.Logger for packages that accept
// one directly.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// Debug logs a debug-level message with key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.logger.Debug(l.redact(msg), l.redactArgs(args)...)
}

// Info logs an info-level message with key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(l.redact(msg), l.redactArgs(args)...)
}

// Warn logs a warning-level message with key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(l.redact(msg), l.redactArgs(args)...)
}

// Error logs an error-level message with key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(l.redact(msg), l.redactArgs(args)...)
}

// With returns a logger with the given fields added to all records.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		logger:  l.logger.With(l.redactArgs(args)...),
		redacts: l.redacts,
	}
}

// redact applies all redaction patterns to a string.
func (l *Logger) redact(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// redactArgs redacts string and error values in a key-value arg list.
func (l *Logger) redactArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			out[i] = l.redact(v)
		case error:
			out[i] = l.redact(v.Error())
		default:
			out[i] = arg
		}
	}
	return out
}
