// Package logging provides the structured logging protocol for the engine.
//
// Components never log through a concrete backend directly; they receive a
// Logger so tests can substitute a silent or capturing implementation.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the canonical protocol for structured logging.
//
// Messages are event names ("turn_started", "agent_failed") followed by
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warning(msg string, args ...any)
	Error(msg string, args ...any)
	Bind(args ...any) Logger
}

// =============================================================================
// SLOG BACKEND
// =============================================================================

// SlogLogger adapts the standard library slog handler to the Logger protocol.
type SlogLogger struct {
	l *slog.Logger
}

// New creates a SlogLogger writing text records to stderr at the given level.
// Unknown level strings fall back to info.
func New(level string) *SlogLogger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return &SlogLogger{l: slog.New(h)}
}

// Wrap adapts an existing slog.Logger.
func Wrap(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, args ...any)   { s.l.Debug(msg, args...) }
func (s *SlogLogger) Info(msg string, args ...any)    { s.l.Info(msg, args...) }
func (s *SlogLogger) Warning(msg string, args ...any) { s.l.Warn(msg, args...) }
func (s *SlogLogger) Error(msg string, args ...any)   { s.l.Error(msg, args...) }

// Bind returns a child logger with the given key/value pairs attached to
// every record.
func (s *SlogLogger) Bind(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

// =============================================================================
// NOP BACKEND
// =============================================================================

// NopLogger discards everything. Used as the default when no logger is
// injected, and in tests that don't assert on log output.
type NopLogger struct{}

// Nop returns a logger that discards all records.
func Nop() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any)   {}
func (*NopLogger) Info(string, ...any)    {}
func (*NopLogger) Warning(string, ...any) {}
func (*NopLogger) Error(string, ...any)   {}

func (n *NopLogger) Bind(...any) Logger { return n }

var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)
