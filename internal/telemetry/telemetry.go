// Package telemetry provides the structured logger used across the
// controllers, with rate-limited variants for messages emitted from the
// control cycle.
//
// Control loops run at hundreds of hertz; a condition that persists for one
// second would otherwise emit hundreds of identical lines. The *Every methods
// emit at most once per key per period, which is the standard discipline for
// in-loop diagnostics.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap sugared logger with per-key rate limiting.
type Logger struct {
	s   *zap.SugaredLogger
	lim *limiter
}

type limiter struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func (r *limiter) allow(period time.Duration, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if t, ok := r.last[key]; ok && now.Sub(t) < period {
		return false
	}
	r.last[key] = now
	return true
}

// New builds a console logger. With debug set, Debugf output is included.
func New(debug bool) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	cfg.DisableStacktrace = true
	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("telemetry: building logger: %w", err)
	}
	return wrap(z), nil
}

// Nop returns a logger that discards everything. Intended for tests and for
// embedding the controllers without console output.
func Nop() *Logger {
	return wrap(zap.NewNop())
}

// FromZap wraps an existing zap logger, e.g. one built by the host process.
func FromZap(z *zap.Logger) *Logger {
	return wrap(z)
}

func wrap(z *zap.Logger) *Logger {
	return &Logger{
		s: z.WithOptions(zap.AddCallerSkip(1)).Sugar(),
		lim: &limiter{
			last: make(map[string]time.Time),
			now:  time.Now,
		},
	}
}

// Named returns a logger with the given name segment appended. The rate
// limiter is shared with the parent, so keys stay unique per process.
func (l *Logger) Named(name string) *Logger {
	return &Logger{s: l.s.Named(name), lim: l.lim}
}

func (l *Logger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }

// InfoEvery logs at most once per period for the given key.
func (l *Logger) InfoEvery(period time.Duration, key, format string, args ...any) {
	if l.lim.allow(period, key) {
		l.s.Infof(format, args...)
	}
}

// WarnEvery logs at most once per period for the given key.
func (l *Logger) WarnEvery(period time.Duration, key, format string, args ...any) {
	if l.lim.allow(period, key) {
		l.s.Warnf(format, args...)
	}
}

// ErrorEvery logs at most once per period for the given key.
func (l *Logger) ErrorEvery(period time.Duration, key, format string, args ...any) {
	if l.lim.allow(period, key) {
		l.s.Errorf(format, args...)
	}
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.s.Sync()
}
