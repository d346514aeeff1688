// Package obslog adapts golog to the engine's logging surface, kept
// intentionally small so every package depends on an interface rather
// than the concrete golog type.
package obslog

import (
	"github.com/evdnx/golog"
)

// Field re-exports golog.Field so callers never import golog directly.
type Field = golog.Field

// Logger is the minimal logging surface the engine uses.
type Logger interface {
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

type gologLogger struct {
	inner *golog.Logger
}

func (l *gologLogger) Info(msg string, fields ...Field)  { l.inner.Info(msg, fields...) }
func (l *gologLogger) Warn(msg string, fields ...Field)  { l.inner.Warn(msg, fields...) }
func (l *gologLogger) Error(msg string, fields ...Field) { l.inner.Error(msg, fields...) }

// New creates a JSON-encoded logger at INFO level.
func New() (Logger, error) {
	l, err := golog.NewLogger(
		golog.WithStdOutProvider(golog.JSONEncoder),
		golog.WithLevel(golog.InfoLevel),
	)
	if err != nil {
		return nil, err
	}
	return &gologLogger{inner: l}, nil
}

// Structured field helpers re-exported for convenience.
var (
	String   = golog.String
	Int      = golog.Int
	Float64  = golog.Float64
	Any      = golog.Any
	Err      = golog.Err
	Duration = golog.Duration
)

// Noop is a Logger that discards everything, used by tests that don't
// care about log output.
type Noop struct{}

func (Noop) Info(string, ...Field)  {}
func (Noop) Warn(string, ...Field)  {}
func (Noop) Error(string, ...Field) {}
