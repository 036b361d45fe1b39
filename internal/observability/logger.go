// Package observability provides structured logging with secret redaction
// and request ID propagation.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with redaction and per-turn context helpers.
type Logger struct {
	*slog.Logger
	redactor *Redactor
}

// LoggerConfig controls log output. Zero values mean JSON at info level on
// stderr.
type LoggerConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
	Output io.Writer
}

// NewLogger creates a logger with redaction support. A nil redactor falls
// back to the default pattern set.
func NewLogger(cfg LoggerConfig, redactor *Redactor) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if redactor == nil {
		redactor = NewRedactor()
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	return &Logger{
		Logger:   slog.New(handler),
		redactor: redactor,
	}
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{
		Logger:   l.Logger.With(args...),
		redactor: l.redactor,
	}
}

// WithRequestID returns a logger carrying the request ID from ctx, if any.
func (l *Logger) WithRequestID(ctx context.Context) *Logger {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		return l
	}
	return l.with("request_id", requestID)
}

// WithConversation returns a logger carrying the conversation key.
func (l *Logger) WithConversation(key string) *Logger {
	if key == "" {
		return l
	}
	return l.with("conversation_key", key)
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(args ...any) *Logger {
	return l.with(args...)
}

// RedactedInfo logs at INFO level with secrets scrubbed.
func (l *Logger) RedactedInfo(msg string, args ...any) {
	l.Logger.Info(l.redactor.Redact(msg), l.redactArgs(args)...)
}

// RedactedError logs at ERROR level with secrets scrubbed.
func (l *Logger) RedactedError(msg string, args ...any) {
	l.Logger.Error(l.redactor.Redact(msg), l.redactArgs(args)...)
}

// RedactedDebug logs at DEBUG level with secrets scrubbed.
func (l *Logger) RedactedDebug(msg string, args ...any) {
	l.Logger.Debug(l.redactor.Redact(msg), l.redactArgs(args)...)
}

func (l *Logger) redactArgs(args []any) []any {
	result := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			result[i] = l.redactor.Redact(v)
		case error:
			result[i] = l.redactor.Redact(v.Error())
		default:
			result[i] = arg
		}
	}
	return result
}

// Slog returns the underlying slog.Logger for collaborators that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.Logger
}
