package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// TracingHandler is an [slog.Handler] that stamps every record with the
// trace_id and span_id of the span in its context. The service, mode and env
// attributes are bound before any group, so they stay at the top level.
type TracingHandler struct {
	slog.Handler
}

// NewTracingHandler wraps inner. An empty env is omitted.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	base := []slog.Attr{
		slog.String("service", service),
		slog.String("mode", string(appMode)),
	}

	if env != "" {
		base = append(base, slog.String("env", env))
	}

	return &TracingHandler{Handler: inner.WithAttrs(base)}
}

// Handle implements [slog.Handler].
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record = record.Clone()
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return th.Handler.Handle(ctx, record) //nolint:wrapcheck // slog discards handler errors
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{Handler: th.Handler.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{Handler: th.Handler.WithGroup(name)}
}
