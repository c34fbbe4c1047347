// Package logging carries a structured logger through request contexts.
//
// A request starts with a scoped logger (see Interceptor and HTTPMiddleware).
// Code handling the request adds fields with Track, and those fields show up
// on the request's final log line. Authorization decisions are recorded this
// way under the "authz." prefix.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxkey struct {
	logger Logger
}

// With attaches a logger to the context.
//
// This can be used to create logging scopes like so:
//
//	for _, p := range profiles {
//	  ctx := With(ctx, logger.Named(p.ID))
//	  reconcile(ctx, p)
//	}
func With(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxkey{}, &ctxkey{
		logger: logger,
	})
}

// FromContext returns a scoped logger, or nil if none was attached.
func FromContext(ctx context.Context) Logger {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		return c.logger
	}
	return nil
}

// EnsureLogger returns ctx unchanged if it has a logger, otherwise attaches a
// development logger.
func EnsureLogger(ctx context.Context) context.Context {
	if FromContext(ctx) != nil {
		return ctx
	}
	return With(ctx, NewDevLogger())
}

// Track a field across the lifetime of the context. Tracked values persist back
// up the call-chain to the request logger. Do not use this in loops without
// creating a new scope using `logging.With(ctx, logger.Named("foo"))`.
func Track(ctx context.Context, field string, value any) {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		c.logger = c.logger.With(field, value)
	}
}

// Logger provides an abstract logging interface designed around uber-go/zap's
// sugared logger.
type Logger interface {
	Debug(args ...any)
	Debugw(msg string, keysAndValues ...any)
	Debugf(msg string, args ...any)
	Info(args ...any)
	Infow(msg string, keysAndValues ...any)
	Infof(msg string, args ...any)
	Warn(args ...any)
	Warnw(msg string, keysAndValues ...any)
	Warnf(msg string, args ...any)
	Error(args ...any)
	Errorw(msg string, keysAndValues ...any)
	Errorf(msg string, args ...any)
	Fatalf(msg string, args ...any)

	// Named creates a child logger with the given name.
	Named(name string) Logger

	// With creates a child logger and attaches structured context to it.
	With(field string, value any) Logger
}

var nop Logger = NewZapLogger(zap.NewNop())

// orNop lets the package level helpers run on contexts without a logger.
func orNop(ctx context.Context) Logger {
	if l := FromContext(ctx); l != nil {
		return l
	}
	return nop
}

func Debugw(ctx context.Context, msg string, fields ...any) {
	orNop(ctx).Debugw(msg, fields...)
}

func Info(ctx context.Context, msg string) {
	orNop(ctx).Info(msg)
}

func Infow(ctx context.Context, msg string, fields ...any) {
	orNop(ctx).Infow(msg, fields...)
}

func Infof(ctx context.Context, msg string, args ...any) {
	orNop(ctx).Infof(msg, args...)
}

func Warnw(ctx context.Context, msg string, fields ...any) {
	orNop(ctx).Warnw(msg, fields...)
}

func Errorw(ctx context.Context, msg string, fields ...any) {
	orNop(ctx).Errorw(msg, fields...)
}

func Fatalf(ctx context.Context, msg string, args ...any) {
	orNop(ctx).Fatalf(msg, args...)
}
