// Package logging defines the structured logger used across swagger2client.
//
// The interface mirrors log/slog's key-value convention so any slog handler,
// or a thin adapter over another library, can back it:
//
//	logger := logging.New(os.Stderr, true)
//	logger.Debug("resolved schema", "name", "Pet", "kind", "record")
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Logger is the minimal structured logger accepted by the generator packages.
type Logger interface {
	Debug(msg string, attrs ...any)
	Info(msg string, attrs ...any)
	Warn(msg string, attrs ...any)
	Error(msg string, attrs ...any)
	// With returns a Logger that prepends attrs to every record.
	With(attrs ...any) Logger
}

// SlogAdapter backs Logger with a *slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps l. A nil l falls back to slog.Default().
func NewSlogAdapter(l *slog.Logger) *SlogAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &SlogAdapter{logger: l}
}

func (a *SlogAdapter) Debug(msg string, attrs ...any) { a.logger.Debug(msg, attrs...) }
func (a *SlogAdapter) Info(msg string, attrs ...any)  { a.logger.Info(msg, attrs...) }
func (a *SlogAdapter) Warn(msg string, attrs ...any)  { a.logger.Warn(msg, attrs...) }
func (a *SlogAdapter) Error(msg string, attrs ...any) { a.logger.Error(msg, attrs...) }

func (a *SlogAdapter) With(attrs ...any) Logger {
	return &SlogAdapter{logger: a.logger.With(attrs...)}
}

// New returns a text-format logger writing to w. verbose enables debug records.
func New(w io.Writer, verbose bool) Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return NewSlogAdapter(slog.New(h))
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NewSlogAdapter(slog.New(discardHandler{}))
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
