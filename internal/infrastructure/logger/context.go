package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	cashierKey contextKey = "cashier"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithCashier records the operating cashier in the context and returns an
// enriched logger.
func WithCashier(ctx context.Context, logger *zap.Logger, username string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, cashierKey, username)
	enriched := logger.With(zap.String("cashier", username))
	return WithContext(ctx, enriched), enriched
}

// GetCashier retrieves the cashier username from context
func GetCashier(ctx context.Context) string {
	if v, ok := ctx.Value(cashierKey).(string); ok {
		return v
	}
	return ""
}

// WithTraceContext adds trace_id and span_id from the context's span.
// If no valid span exists, returns the original logger unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// L returns the context logger enriched with trace fields. When the context
// carries no logger, base is used instead, tagged with the cashier if known.
func L(ctx context.Context, base *zap.Logger) *zap.Logger {
	l, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok {
		if base == nil {
			base = zap.NewNop()
		}
		l = base
		if cashier := GetCashier(ctx); cashier != "" {
			l = l.With(zap.String("cashier", cashier))
		}
	}
	return WithTraceContext(ctx, l)
}
