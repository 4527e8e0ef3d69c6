package exec

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmgilman/go/subproc/errors"
)

// LogLevel represents different logging levels
type LogLevel int

// LogLevelDebug represents debug logging level
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Logger provides structured logging for command lifecycles.
// A nil *Logger is valid and discards everything.
type Logger struct {
	impl loggerImpl
}

type loggerImpl interface {
	debug(ctx context.Context, msg string, args ...any)
	info(ctx context.Context, msg string, args ...any)
	warn(ctx context.Context, msg string, args ...any)
	error(ctx context.Context, msg string, args ...any)
	with(args ...any) loggerImpl
}

// Debug logs debug-level messages
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	if l != nil && l.impl != nil {
		l.impl.debug(ctx, msg, args...)
	}
}

// Info logs info-level messages
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	if l != nil && l.impl != nil {
		l.impl.info(ctx, msg, args...)
	}
}

// Warn logs warning-level messages
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	if l != nil && l.impl != nil {
		l.impl.warn(ctx, msg, args...)
	}
}

// Error logs error-level messages
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	if l != nil && l.impl != nil {
		l.impl.error(ctx, msg, args...)
	}
}

// With returns a logger with additional context fields
func (l *Logger) With(args ...any) *Logger {
	if l == nil || l.impl == nil {
		return l
	}
	if _, ok := l.impl.(nopLogger); ok {
		return l
	}
	return &Logger{impl: l.impl.with(args...)}
}

// LogConfig holds configuration for the command logger.
type LogConfig struct {
	// Level sets the minimum log level
	Level LogLevel
	// Output receives log records; defaults to os.Stderr
	Output io.Writer
	// AddSource includes file and line number in logs
	AddSource bool
}

// DefaultLogConfig returns a default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  LogLevelInfo,
		Output: os.Stderr,
	}
}

type slogLogger struct {
	logger *slog.Logger
	fields []any
}

// NewLogger creates a new structured logger with the given configuration.
func NewLogger(config LogConfig) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.AddSource,
	})

	return &Logger{
		impl: &slogLogger{logger: slog.New(handler)},
	}
}

// NewNopLogger creates a no-op logger that discards all log messages.
func NewNopLogger() *Logger {
	return &Logger{impl: nopLogger{}}
}

func (lvl LogLevel) slogLevel() slog.Level {
	switch lvl {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *slogLogger) args(args []any) []any {
	all := make([]any, len(l.fields)+len(args))
	copy(all, l.fields)
	copy(all[len(l.fields):], args)
	return all
}

func (l *slogLogger) debug(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, l.args(args)...)
}

func (l *slogLogger) info(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, l.args(args)...)
}

func (l *slogLogger) warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, l.args(args)...)
}

func (l *slogLogger) error(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, l.args(args)...)
}

func (l *slogLogger) with(args ...any) loggerImpl {
	return &slogLogger{
		logger: l.logger,
		fields: l.args(args),
	}
}

type nopLogger struct{}

func (nopLogger) debug(context.Context, string, ...any) {}
func (nopLogger) info(context.Context, string, ...any)  {}
func (nopLogger) warn(context.Context, string, ...any)  {}
func (nopLogger) error(context.Context, string, ...any) {}
func (n nopLogger) with(...any) loggerImpl              { return n }

// ParseLogLevel parses a string log level into a LogLevel.
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, errors.Newf(errors.CodeInvalidInput, "invalid log level: %s", level)
	}
}
