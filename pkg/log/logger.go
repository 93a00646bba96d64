package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/YuminosukeSato/grf/pkg/errors"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// ParseLevel converts "debug", "info", "warn" or "error" to a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "must be one of debug, info, warn, error", level)
	}
}

// SetupLogger installs a JSON slog provider writing to stdout at the given level,
// both as the grf provider and as the slog default.
func SetupLogger(loglevel string) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	provider := NewSlogProvider(os.Stdout, level)
	slog.SetDefault(slog.New(provider.handler))
	SetProvider(provider)
	return nil
}

// SlogProvider is a LoggerProvider backed by a JSON slog handler wrapped with
// ErrFmtHandler.
type SlogProvider struct {
	levelVar *slog.LevelVar
	handler  slog.Handler
}

// NewSlogProvider creates a provider emitting JSON records to w.
func NewSlogProvider(w io.Writer, level Level) *SlogProvider {
	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.Level(level))
	opts := slog.HandlerOptions{
		AddSource: true,
		Level:     levelVar,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	}
	return &SlogProvider{
		levelVar: levelVar,
		handler:  WrapByErrFmtHandler(slog.NewJSONHandler(w, &opts)),
	}
}

// GetLogger implements LoggerProvider.
func (p *SlogProvider) GetLogger() Logger {
	return &slogLogger{logger: slog.New(p.handler)}
}

// GetLoggerWithName implements LoggerProvider.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.
func (p *SlogProvider) SetLevel(level Level) {
	p.levelVar.Set(slog.Level(level))
}

type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debug(msg string, fields ...any) { l.logger.Debug(msg, fields...) }
func (l *slogLogger) Info(msg string, fields ...any)  { l.logger.Info(msg, fields...) }
func (l *slogLogger) Warn(msg string, fields ...any)  { l.logger.Warn(msg, fields...) }

func (l *slogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	l.logger.Error(msg, fields...)
}

func (l *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: l.logger.With(fields...)}
}

func (l *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return l.logger.Enabled(ctx, slog.Level(level))
}

var (
	providerMu      sync.RWMutex
	defaultProvider LoggerProvider = NewSlogProvider(os.Stderr, LevelWarn)
)

// SetProvider replaces the package-level provider.
func SetProvider(p LoggerProvider) {
	if p == nil {
		panic("log: nil provider")
	}
	providerMu.Lock()
	defer providerMu.Unlock()
	defaultProvider = p
}

// Provider returns the package-level provider.
func Provider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return defaultProvider
}

// GetLogger returns a logger from the package-level provider.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a named logger from the package-level provider.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}
