package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Sumatoshi-tech/masonry"

// Providers holds the process-wide telemetry handles.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger

	// Shutdown flushes pending telemetry once; later calls return the first
	// result.
	Shutdown func(ctx context.Context) error
}

type shutdownFunc func(ctx context.Context) error

// Init installs the global tracer and meter providers and builds the
// process logger.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()

	res, err := buildResource(cfg)
	if err != nil {
		return Providers{}, err
	}

	var (
		tp        trace.TracerProvider = nooptrace.NewTracerProvider()
		mp        metric.MeterProvider = noopmetric.NewMeterProvider()
		shutdowns []shutdownFunc
	)

	if cfg.exporting() {
		target := exporterTarget{endpoint: cfg.OTLPEndpoint, headers: cfg.OTLPHeaders, insecure: cfg.OTLPInsecure}

		sdkTP, err := target.tracerProvider(ctx, cfg, res)
		if err != nil {
			return Providers{}, err
		}

		sdkMP, err := target.meterProvider(ctx, res)
		if err != nil {
			return Providers{}, errors.Join(err, sdkTP.Shutdown(ctx))
		}

		tp, mp = sdkTP, sdkMP
		shutdowns = append(shutdowns, sdkTP.Shutdown, sdkMP.Shutdown)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return Providers{
		Tracer:   tp.Tracer(instrumentationName),
		Meter:    mp.Meter(instrumentationName),
		Logger:   buildLogger(cfg),
		Shutdown: shutdownOnce(cfg.ShutdownTimeout, shutdowns),
	}, nil
}

func shutdownOnce(timeout time.Duration, fns []shutdownFunc) func(context.Context) error {
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	var (
		once sync.Once
		err  error
	)

	return func(ctx context.Context) error {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			errs := make([]error, 0, len(fns))
			for _, fn := range fns {
				errs = append(errs, fn(ctx))
			}

			err = errors.Join(errs...)
		})

		return err
	}
}

func buildResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	optional := []struct {
		value string
		attr  func(string) attribute.KeyValue
	}{
		{cfg.ServiceVersion, semconv.ServiceVersion},
		{cfg.Environment, semconv.DeploymentEnvironment},
		{string(cfg.Mode), attribute.Key("app.mode").String},
	}

	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, o.attr(o.value))
		}
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

// exporterTarget is the OTLP collector both exporters send to.
type exporterTarget struct {
	endpoint string
	headers  map[string]string
	insecure bool
}

func (et exporterTarget) tracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(et.endpoint)}
	if et.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(et.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(et.headers))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	var dropLog *slog.Logger
	if cfg.DebugTrace {
		dropLog = slog.New(slog.NewTextHandler(logOutput(cfg), &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewAttributeFilter(sdktrace.NewBatchSpanProcessor(exporter), dropLog)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(selectSampler(cfg)),
	), nil
}

func (et exporterTarget) meterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(et.endpoint)}
	if et.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	if len(et.headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(et.headers))
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

// envSamplers maps OTEL_TRACES_SAMPLER values to samplers. The argument is
// OTEL_TRACES_SAMPLER_ARG parsed as a ratio.
var envSamplers = map[string]func(ratio float64) sdktrace.Sampler{
	"always_on":    func(float64) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off":   func(float64) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": sdktrace.TraceIDRatioBased,
	"parentbased_always_on": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
	"parentbased_traceidratio": func(ratio float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	},
}

// selectSampler picks, in order: DebugTrace, OTEL_TRACES_SAMPLER,
// SampleRatio, parent-based always-on.
func selectSampler(cfg Config) sdktrace.Sampler {
	if cfg.DebugTrace {
		return sdktrace.AlwaysSample()
	}

	if build, ok := envSamplers[os.Getenv("OTEL_TRACES_SAMPLER")]; ok {
		ratio, err := strconv.ParseFloat(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 64)
		if err != nil {
			ratio = 1
		}

		return build(ratio)
	}

	if cfg.SampleRatio > 0 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

func logOutput(cfg Config) io.Writer {
	if cfg.LogOutput == nil {
		return os.Stderr
	}

	return cfg.LogOutput
}

func buildLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	out := logOutput(cfg)

	var inner slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.Environment, cfg.Mode))
}

// ParseOTLPHeaders parses "key=value,key=value" as accepted by
// OTEL_EXPORTER_OTLP_HEADERS. Pairs without "=" or with an empty key are
// skipped; nil is returned when nothing is left.
func ParseOTLPHeaders(raw string) map[string]string {
	var headers map[string]string

	for _, pair := range strings.Split(raw, ",") {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			continue
		}

		key := strings.TrimSpace(pair[:eq])
		if key == "" {
			continue
		}

		if headers == nil {
			headers = make(map[string]string)
		}

		headers[key] = strings.TrimSpace(pair[eq+1:])
	}

	return headers
}
