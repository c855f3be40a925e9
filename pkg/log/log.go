// Package log provides the structured logging interface injected into the
// training and prediction pipelines.
//
// The interface is deliberately minimal and slog-flavored: leveled methods
// taking alternating key/value fields, plus With for contextual loggers. The
// default backend is zerolog; a no-op implementation exists for library use
// without observability and a capture implementation for tests.
package log

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the structured logging interface used across the pipeline.
// Fields are alternating key/value pairs, as in log/slog.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger
}

// Common field keys used across the pipeline.
const (
	AlgorithmKey = "algorithm"
	ProblemKey   = "problem_type"
	SamplesKey   = "n_samples"
	FeaturesKey  = "n_features"
	DurationKey  = "duration_s"
	OperationKey = "operation"
)

// zeroLogger adapts a zerolog.Logger to the Logger interface.
type zeroLogger struct {
	l zerolog.Logger
}

// NewZerolog returns a Logger backed by zerolog writing to w at the given
// level. Binaries write to stderr so stdout stays reserved for the JSON
// response.
func NewZerolog(w io.Writer, level zerolog.Level) Logger {
	return &zeroLogger{l: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func (z *zeroLogger) Debug(msg string, fields ...any) { z.emit(z.l.Debug(), msg, fields) }
func (z *zeroLogger) Info(msg string, fields ...any)  { z.emit(z.l.Info(), msg, fields) }
func (z *zeroLogger) Warn(msg string, fields ...any)  { z.emit(z.l.Warn(), msg, fields) }
func (z *zeroLogger) Error(msg string, fields ...any) { z.emit(z.l.Error(), msg, fields) }

func (z *zeroLogger) With(fields ...any) Logger {
	ctx := z.l.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zeroLogger{l: ctx.Logger()}
}

func (z *zeroLogger) emit(event *zerolog.Event, msg string, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			event = event.AnErr(key, v)
		case zerolog.LogObjectMarshaler:
			event = event.Object(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(msg)
}

// nopLogger discards everything.
type nopLogger struct{}

// NewNop returns a Logger that discards all records. Used as the default when
// no observability collaborator is injected.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func (n nopLogger) With(...any) Logger { return n }
