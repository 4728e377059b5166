package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	loggerKey    contextKey = "logger"
	refreshIDKey contextKey = "refresh_id"
	providerKey  contextKey = "provider"
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

// WithRefreshID tags ctx and its logger with the id of a refresh cycle
func WithRefreshID(ctx context.Context, logger *zap.Logger, refreshID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, refreshIDKey, refreshID)
	enriched := logger.With(zap.String("refresh_id", refreshID))
	return WithContext(ctx, enriched), enriched
}

// WithProvider tags ctx and its logger with the provider being fetched
func WithProvider(ctx context.Context, logger *zap.Logger, provider string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, providerKey, provider)
	enriched := logger.With(zap.String("provider", provider))
	return WithContext(ctx, enriched), enriched
}

// GetRefreshID retrieves the refresh id from context
func GetRefreshID(ctx context.Context) string {
	id, _ := ctx.Value(refreshIDKey).(string)
	return id
}

// GetProvider retrieves the provider name from context
func GetProvider(ctx context.Context) string {
	p, _ := ctx.Value(providerKey).(string)
	return p
}

// ContextLogger logs with the trace and span ids of the context's active
// span attached
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L returns a ContextLogger for ctx.
// Usage: logger.L(ctx).Info("refresh finished", zap.Int("orders", n))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

func (cl *ContextLogger) enriched() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	if spanCtx := trace.SpanFromContext(cl.ctx).SpanContext(); spanCtx.IsValid() {
		l = l.With(
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return l
}

// Debug logs a debug level message with trace context
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enriched().Debug(msg, fields...)
}

// Info logs an info level message with trace context
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enriched().Info(msg, fields...)
}

// Warn logs a warning level message with trace context
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enriched().Warn(msg, fields...)
}

// Error logs an error level message with trace context
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enriched().Error(msg, fields...)
}

// Zap returns the underlying logger enriched with trace context
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enriched()
}
