// Package logger provides the structured logging surface used across the
// coordinator, worker and CLI. It wraps log/slog, fanning records out to
// multiple destinations through github.com/samber/slog-multi, while keeping
// caller attribution pointed at the real call site instead of this package.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the logging interface used throughout fluxdag. Implementations
// must report the source location of the caller, not of the Logger method
// itself.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// callerSkip is the number of stack frames runtime.Callers must skip to land
// on the frame that called a Logger method: 0 is Callers itself, 1 is
// logSkip, 2 is output, 3 is the Logger method (Info, Infof, ...), 4 is its
// caller.
const callerSkip = 4

type logger struct {
	handler slog.Handler
}

type options struct {
	debug  bool
	format string
	writer io.Writer
	quiet  bool
}

// Option configures a Logger created by NewLogger.
type Option func(*options)

// WithDebug enables debug-level output and source-location attribution.
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}

// WithFormat selects the output encoding, "text" or "json". Defaults to "text".
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithWriter sets the primary destination for log records. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithQuiet suppresses the implicit stdout fan-out, writing only to the
// destination configured via WithWriter.
func WithQuiet() Option {
	return func(o *options) { o.quiet = true }
}

// NewLogger builds a Logger from the given options.
func NewLogger(opts ...Option) Logger {
	o := &options{format: "text", writer: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		AddSource: o.debug,
		Level:     level,
	}

	newHandler := func(w io.Writer) slog.Handler {
		if o.format == "json" {
			return slog.NewJSONHandler(w, handlerOpts)
		}
		return slog.NewTextHandler(w, handlerOpts)
	}

	var handlers []slog.Handler
	if o.writer != nil {
		handlers = append(handlers, newHandler(o.writer))
	}
	if !o.quiet && o.writer != os.Stdout {
		handlers = append(handlers, newHandler(os.Stdout))
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = newHandler(io.Discard)
	case 1:
		handler = handlers[0]
	default:
		handler = slogmulti.Fanout(handlers...)
	}

	return &logger{handler: handler}
}

// skipLogger lets callers outside this file (the context-bound package
// functions) attribute a record to a caller further up the stack than the
// direct caller of a Logger method.
type skipLogger interface {
	logSkip(skip int, level slog.Level, msg string, args []any)
}

func (l *logger) logSkip(skip int, level slog.Level, msg string, args []any) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.handler.Handle(ctx, r)
}

func (l *logger) output(level slog.Level, msg string, args []any) {
	l.logSkip(callerSkip, level, msg, args)
}

func (l *logger) Debug(msg string, args ...any) { l.output(slog.LevelDebug, msg, args) }
func (l *logger) Info(msg string, args ...any)  { l.output(slog.LevelInfo, msg, args) }
func (l *logger) Warn(msg string, args ...any)  { l.output(slog.LevelWarn, msg, args) }
func (l *logger) Error(msg string, args ...any) { l.output(slog.LevelError, msg, args) }

func (l *logger) Debugf(format string, args ...any) {
	l.output(slog.LevelDebug, fmt.Sprintf(format, args...), nil)
}
func (l *logger) Infof(format string, args ...any) {
	l.output(slog.LevelInfo, fmt.Sprintf(format, args...), nil)
}
func (l *logger) Warnf(format string, args ...any) {
	l.output(slog.LevelWarn, fmt.Sprintf(format, args...), nil)
}
func (l *logger) Errorf(format string, args ...any) {
	l.output(slog.LevelError, fmt.Sprintf(format, args...), nil)
}

func (l *logger) With(args ...any) Logger {
	return &logger{handler: slog.New(l.handler).With(args...).Handler()}
}

func (l *logger) WithGroup(name string) Logger {
	return &logger{handler: slog.New(l.handler).WithGroup(name).Handler()}
}
