package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ResourceAttrs returns the resource attributes Init would attach.
func ResourceAttrs(cfg Config) (map[attribute.Key]string, error) {
	res, err := buildResource(cfg)
	if err != nil {
		return nil, err
	}

	out := make(map[attribute.Key]string)
	for _, kv := range res.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}

	return out, nil
}

// SamplesRoot reports whether the sampler chosen for cfg records a root span.
func SamplesRoot(cfg Config) bool {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(selectSampler(cfg)))
	defer tp.Shutdown(context.Background()) //nolint:errcheck // no exporters

	_, span := tp.Tracer("probe").Start(context.Background(), "root")
	defer span.End()

	return span.IsRecording()
}
