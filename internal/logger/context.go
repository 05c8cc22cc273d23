package logger

import (
	"context"
	"fmt"
	"log/slog"
)

type contextKey struct{}

// defaultLogger is used by the context-level functions when no Logger has
// been attached to the context.
var defaultLogger Logger = NewLogger()

// WithLogger returns a copy of ctx carrying l, retrievable with FromContext.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the Logger attached to ctx, or a default Logger if none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return defaultLogger
}

// HasLogger reports whether ctx already carries a Logger attached via
// WithLogger, so a caller can tell a pre-attached logger (e.g. one writing
// to a per-run log file) apart from the package default.
func HasLogger(ctx context.Context) bool {
	_, ok := ctx.Value(contextKey{}).(Logger)
	return ok
}

// ctxCallerSkip is the frame count from runtime.Callers to the caller of one
// of these package functions: Callers, logSkip, logAt, the package function
// (Info, Infof, ...), then the real caller. logAt takes the place that
// output holds on the direct Logger method path, so the count equals
// callerSkip.
const ctxCallerSkip = 4

func logAt(ctx context.Context, level slog.Level, msg string, args []any) {
	l := FromContext(ctx)
	if sl, ok := l.(skipLogger); ok {
		sl.logSkip(ctxCallerSkip, level, msg, args)
		return
	}
	switch level {
	case slog.LevelDebug:
		l.Debug(msg, args...)
	case slog.LevelWarn:
		l.Warn(msg, args...)
	case slog.LevelError:
		l.Error(msg, args...)
	default:
		l.Info(msg, args...)
	}
}

func Debug(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelDebug, msg, args) }
func Info(ctx context.Context, msg string, args ...any)  { logAt(ctx, slog.LevelInfo, msg, args) }
func Warn(ctx context.Context, msg string, args ...any)  { logAt(ctx, slog.LevelWarn, msg, args) }
func Error(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelError, msg, args) }

func Debugf(ctx context.Context, format string, args ...any) {
	logAt(ctx, slog.LevelDebug, fmt.Sprintf(format, args...), nil)
}
func Infof(ctx context.Context, format string, args ...any) {
	logAt(ctx, slog.LevelInfo, fmt.Sprintf(format, args...), nil)
}
func Warnf(ctx context.Context, format string, args ...any) {
	logAt(ctx, slog.LevelWarn, fmt.Sprintf(format, args...), nil)
}
func Errorf(ctx context.Context, format string, args ...any) {
	logAt(ctx, slog.LevelError, fmt.Sprintf(format, args...), nil)
}
