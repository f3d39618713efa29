// Package logging provides the process-wide structured logger. It mirrors
// the calling convention of a traditional leveled logger (Info/Warn/Error,
// printf-style) while being backed by zap's structured, production-grade
// core instead of a hand-rolled wrapper over the standard library.
package logging

import (
	"go.uber.org/zap"
)

// Logger wraps a zap.SugaredLogger with the Info/Warn/Error calling
// convention used throughout the server.
type Logger struct {
	s *zap.SugaredLogger
}

var global *Logger

// New builds a production zap logger writing structured, leveled output to
// stderr.
func New() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{s: z.Sugar()}
}

// Global returns the process-wide logger, constructing it on first use.
func Global() *Logger {
	if global == nil {
		global = New()
	}
	return global
}

func SetGlobal(l *Logger) { global = l }

func (l *Logger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }

func (l *Logger) Infow(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *Logger) Warnw(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *Logger) Errorw(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

func (l *Logger) Sync() error { return l.s.Sync() }
