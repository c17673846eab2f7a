package logging

// file: internal/logging/slog.go

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Log levels accepted by InitLogging and SetLevel.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// level is shared by every logger created through InitLogging so SetLevel
// takes effect without rebuilding handlers.
var level = new(slog.LevelVar)

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps an existing *slog.Logger.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		return GetNoopLogger()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// WithContext returns the logger unchanged; no context values are extracted yet.
func (s *slogLogger) WithContext(_ context.Context) Logger { return s }

func (s *slogLogger) WithField(key string, value any) Logger {
	return &slogLogger{l: s.l.With(key, value)}
}

// InitLogging installs a JSON slog logger writing to w as the default logger.
func InitLogging(lvl slog.Level, w io.Writer) {
	level.Set(lvl)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	SetDefaultLogger(NewSlogLogger(slog.New(handler)))
}

// SetupDefaultLogger initializes stderr logging from a level name
// ("debug", "info", "warn", "error"). Unknown names fall back to info.
func SetupDefaultLogger(levelName string) {
	InitLogging(ParseLevel(levelName), os.Stderr)
}

// ParseLevel converts a level name to a slog level.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel changes the level of loggers created through InitLogging.
func SetLevel(lvl slog.Level) {
	level.Set(lvl)
}

// IsDebugEnabled reports whether debug messages are currently emitted.
func IsDebugEnabled() bool {
	return level.Level() <= LevelDebug
}
