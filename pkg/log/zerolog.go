package log

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/YuminosukeSato/grf/pkg/errors"
	"github.com/rs/zerolog"
)

// ZerologProvider is a LoggerProvider backed by zerolog. Error and warning types
// from pkg/errors implement zerolog.LogObjectMarshaler and are emitted as
// nested objects.
type ZerologProvider struct {
	base  zerolog.Logger
	level *atomic.Int32
}

// NewZerologProvider creates a provider writing JSON lines to w.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	lvl := &atomic.Int32{}
	lvl.Store(int32(level))
	return &ZerologProvider{
		base:  zerolog.New(w).With().Timestamp().Logger(),
		level: lvl,
	}
}

// InstallWarnings routes errors.Warn through this provider.
func (p *ZerologProvider) InstallWarnings() {
	logger := p.GetLoggerWithName("warnings").(*zerologLogger)
	errors.SetZerologWarnFunc(func(w error) {
		if !logger.Enabled(context.Background(), LevelWarn) {
			return
		}
		e := logger.logger.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			e = e.Object("warning", m)
		}
		e.Msg(w.Error())
	})
}

// GetLogger implements LoggerProvider.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{logger: p.base, level: p.level}
}

// GetLoggerWithName implements LoggerProvider.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.
func (p *ZerologProvider) SetLevel(level Level) {
	p.level.Store(int32(level))
}

type zerologLogger struct {
	logger zerolog.Logger
	level  *atomic.Int32
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.emit(LevelDebug, l.logger.Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	l.emit(LevelInfo, l.logger.Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	l.emit(LevelWarn, l.logger.Warn(), msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	e := l.logger.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = appendField(e, ErrAttrKey, err)
			fields = fields[1:]
		}
	}
	l.emit(LevelError, e, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		switch v := fields[i+1].(type) {
		case zerolog.LogObjectMarshaler:
			ctx = ctx.Object(key, v)
		case error:
			ctx = ctx.AnErr(key, v)
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &zerologLogger{logger: ctx.Logger(), level: l.level}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= Level(l.level.Load())
}

func (l *zerologLogger) emit(level Level, e *zerolog.Event, msg string, fields []any) {
	if !l.Enabled(context.Background(), level) {
		e.Discard()
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		e = appendField(e, fmt.Sprintf("%v", fields[i]), fields[i+1])
	}
	e.Msg(msg)
}

func appendField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case zerolog.LogObjectMarshaler:
		return e.Object(key, v)
	case error:
		return e.AnErr(key, v)
	default:
		return e.Interface(key, v)
	}
}
