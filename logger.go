package minidb

import "log/slog"

type Logger interface {
	// Debug logs a message at the debug level with context key/value pairs
	Debug(msg string, ctx ...any)

	// Info logs a message at the info level with context key/value pairs
	Info(msg string, ctx ...any)

	// Warn logs a message at the warn level with context key/value pairs
	Warn(msg string, ctx ...any)

	// Error logs a message at the error level with context key/value pairs
	Error(msg string, ctx ...any)
}

// slogLogger adapts a *slog.Logger to the Logger interface. It is the
// default for every component unless WithLogger overrides it.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps a *slog.Logger. A nil argument uses slog.Default.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, ctx ...any) { s.l.Debug(msg, ctx...) }
func (s *slogLogger) Info(msg string, ctx ...any)  { s.l.Info(msg, ctx...) }
func (s *slogLogger) Warn(msg string, ctx ...any)  { s.l.Warn(msg, ctx...) }
func (s *slogLogger) Error(msg string, ctx ...any) { s.l.Error(msg, ctx...) }

func defaultLogger() Logger { return NewSlogLogger(nil) }
