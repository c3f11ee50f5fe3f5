// Package logging provides a tiny abstraction over slog so the orchestration
// packages depend on a minimal interface (Logger) while callers can plug any
// structured logger. It also offers a ChatLogger with contextual helpers
// (component, user, session) and domain-specific helpers for model calls and
// tool executions.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger is the minimal logging interface used throughout ava.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoOpLogger discards all log messages. Used as the default when nil is
// supplied, and in tests.
type NoOpLogger struct{}

// Debug discards the message.
func (NoOpLogger) Debug(string, ...any) {}

// Info discards the message.
func (NoOpLogger) Info(string, ...any) {}

// Warn discards the message.
func (NoOpLogger) Warn(string, ...any) {}

// Error discards the message.
func (NoOpLogger) Error(string, ...any) {}

// OrNoOp returns l, or a NoOpLogger when l is nil. Components call this in
// their constructors so a nil logger is always safe.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger { return &SlogAdapter{Logger: logger} }

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger { return NewSlogAdapter(slog.Default()) }

// Config configures construction of a ChatLogger.
type Config struct {
	Level     slog.Level
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns a baseline JSON info-level configuration.
func DefaultConfig() *Config {
	return &Config{Level: slog.LevelInfo, Format: "json", Output: os.Stdout}
}

// ChatLogger wraps slog.Logger adding contextual cloning helpers. It is
// cheap to copy via the With* methods; each clone carries its own attribute
// set.
type ChatLogger struct {
	logger    *slog.Logger
	component string
	userID    string
	sessionID string
}

// NewChatLogger builds a ChatLogger from a config (or defaults if nil).
func NewChatLogger(cfg *Config) *ChatLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &ChatLogger{logger: slog.New(handler), component: cfg.Component}
}

// WithComponent sets the logical component (guardian, supervisor, responder, ...).
func (l *ChatLogger) WithComponent(c string) *ChatLogger {
	nl := *l
	nl.component = c
	return &nl
}

// WithUser attaches user and session identifiers to every entry. The user id
// is truncated so logs never carry a full identity.
func (l *ChatLogger) WithUser(userID, sessionID string) *ChatLogger {
	nl := *l
	nl.userID = ShortID(userID)
	nl.sessionID = sessionID
	return &nl
}

func (l *ChatLogger) attrs(args []any) []any {
	out := make([]any, 0, len(args)+6)
	if l.component != "" {
		out = append(out, "component", l.component)
	}
	if l.userID != "" {
		out = append(out, "user_id", l.userID)
	}
	if l.sessionID != "" {
		out = append(out, "session_id", l.sessionID)
	}
	return append(out, args...)
}

// Debug logs at debug level.
func (l *ChatLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, l.attrs(args)...) }

// Info logs at info level.
func (l *ChatLogger) Info(msg string, args ...any) { l.logger.Info(msg, l.attrs(args)...) }

// Warn logs at warn level.
func (l *ChatLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, l.attrs(args)...) }

// Error logs at error level.
func (l *ChatLogger) Error(msg string, args ...any) { l.logger.Error(msg, l.attrs(args)...) }

// LogModelCall records model call latency and success.
func (l *ChatLogger) LogModelCall(model string, dur time.Duration, success bool, err error) {
	args := []any{"model", model, "duration_ms", dur.Milliseconds(), "success", success}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	level := slog.LevelInfo
	msg := "model call completed"
	if !success {
		level = slog.LevelError
		msg = "model call failed"
	}
	l.logger.Log(context.Background(), level, msg, l.attrs(args)...)
}

// LogToolCall records execution details for one tool invocation.
func (l *ChatLogger) LogToolCall(tool string, dur time.Duration, err error) {
	args := []any{"tool", tool, "duration_ms", dur.Milliseconds()}
	if err != nil {
		args = append(args, "error", err.Error())
		l.logger.Error("tool execution failed", l.attrs(args)...)
		return
	}
	l.logger.Info("tool execution completed", l.attrs(args)...)
}

// ShortID truncates an identifier for log output.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
