package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/window"
)

const (
	opLayout = "layout"

	maxRequestBytes = 8 << 20
	shutdownTimeout = 10 * time.Second
	meterName       = "github.com/Sumatoshi-tech/masonry/cmd/masonry"
)

// Request validation errors.
var (
	ErrBadWidth     = errors.New("width must be positive")
	ErrWidthTooWide = errors.New("width exceeds the server limit")
	ErrBadHeight    = errors.New("item heights must be positive")
	ErrTooManyItems = errors.New("too many items")
)

// LayoutRequest is the body of POST /v1/layout.
type LayoutRequest struct {
	Width float64 `json:"width"`
	Items []Item  `json:"items"`
	// Viewport, when set, also returns the render plan for that viewport.
	Viewport *window.Viewport `json:"viewport,omitempty"`
}

// LayoutResponse is the body returned by POST /v1/layout.
type LayoutResponse struct {
	*Dump

	Window *window.Result `json:"window,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// layoutServer serves layouts over HTTP. Each request builds its own
// positioner, so handlers share no layout state.
type layoutServer struct {
	env      *Env
	red      *observability.REDMetrics
	layout   *observability.LayoutMetrics
	logger   *slog.Logger
	maxItems int
	maxWidth float64
}

func newLayoutServer(env *Env, mt metric.Meter) (*layoutServer, error) {
	red, err := observability.NewREDMetrics(mt)
	if err != nil {
		return nil, err
	}

	lm, err := observability.NewLayoutMetrics(mt)
	if err != nil {
		return nil, err
	}

	return &layoutServer{
		env:      env,
		red:      red,
		layout:   lm,
		logger:   env.Logger,
		maxItems: env.Config.Server.MaxItems,
		maxWidth: env.Config.Server.MaxWidth,
	}, nil
}

func (s *layoutServer) routes(tracer trace.Tracer, metricsHandler http.Handler) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/layout", s.handleLayout)

	mux := http.NewServeMux()
	mux.Handle("/v1/", observability.HTTPMiddleware(tracer, api))
	mux.Handle("GET /healthz", observability.HealthHandler())
	mux.Handle("GET /metrics", metricsHandler)

	return mux
}

func (s *layoutServer) handleLayout(rw http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	start := time.Now()

	done := s.red.TrackInflight(ctx, opLayout)
	defer done()

	var body LayoutRequest

	dec := json.NewDecoder(http.MaxBytesReader(rw, req.Body, maxRequestBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(&body)
	if err == nil {
		err = s.check(&body)
	}

	if err != nil {
		s.red.RecordRequest(ctx, observability.RequestStats{Op: opLayout, Err: err, Duration: time.Since(start)})
		writeJSON(ctx, rw, http.StatusBadRequest, LayoutResponse{Error: err.Error()})

		return
	}

	p, dump := buildLayout(s.env.Geometry(body.Width), body.Width, s.env.Config.Layout.ItemHeightEstimate, body.Items)
	resp := LayoutResponse{Dump: dump}

	if body.Viewport != nil {
		res := window.New(p, window.Options{
			OverscanBy:         s.env.Config.Layout.OverscanBy,
			ItemHeightEstimate: s.env.Config.Layout.ItemHeightEstimate,
		}).Compute(*body.Viewport, len(body.Items))
		resp.Window = &res
	}

	elapsed := time.Since(start)

	s.layout.RecordFlush(ctx, observability.FlushStats{Positioned: len(body.Items), Duration: elapsed})
	s.red.RecordRequest(ctx, observability.RequestStats{Op: opLayout, Items: len(body.Items), Duration: elapsed})

	s.logger.DebugContext(ctx, "layout served",
		"items", len(body.Items), "columns", dump.ColumnCount, "duration", elapsed)

	writeJSON(ctx, rw, http.StatusOK, resp)
}

func (s *layoutServer) check(body *LayoutRequest) error {
	if body.Width <= 0 {
		return fmt.Errorf("%w: %g", ErrBadWidth, body.Width)
	}

	if body.Width > s.maxWidth {
		return fmt.Errorf("%w: %g > %g", ErrWidthTooWide, body.Width, s.maxWidth)
	}

	if len(body.Items) > s.maxItems {
		return fmt.Errorf("%w: %d > %d", ErrTooManyItems, len(body.Items), s.maxItems)
	}

	for i, it := range body.Items {
		if it.Height <= 0 {
			return fmt.Errorf("%w: item %d has height %g", ErrBadHeight, i, it.Height)
		}
	}

	return nil
}

// writeJSON encodes the given value as JSON and writes it to the response writer.
func writeJSON(ctx context.Context, rw http.ResponseWriter, status int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		slog.Default().ErrorContext(ctx, "failed to encode JSON response", "error", encodeErr)
	}
}

// NewServeCommand creates the serve subcommand.
func NewServeCommand(env *Env) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts over HTTP",
		Long: `Start an HTTP server that lays out item lists.

Endpoints:
  POST /v1/layout   {"width": 1280, "items": [{"height": 240}, ...]}
  GET  /metrics     Prometheus metrics
  GET  /healthz     liveness probe`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return env.Setup(observability.ModeServe)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				env.Config.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, env)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default: server.port)")

	return cmd
}

func runServe(ctx context.Context, env *Env) error {
	metricsHandler, mp, err := observability.PrometheusHandler()
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := mp.Shutdown(context.Background())
		if shutdownErr != nil {
			env.Logger.Warn("metrics shutdown failed", "error", shutdownErr)
		}
	}()

	srv, err := newLayoutServer(env, mp.Meter(meterName))
	if err != nil {
		return err
	}

	cfg := env.Config.Server
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      srv.routes(env.tracer(), metricsHandler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errc := make(chan error, 1)

	go func() {
		env.Logger.Info("masonry server starting", "addr", server.Addr)

		errc <- server.ListenAndServe()
	}()

	select {
	case err = <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	env.Logger.Info("masonry server stopping")

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
