// Package commands implements the masonry CLI subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/masonry/pkg/config"
	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/positioner"
	"github.com/Sumatoshi-tech/masonry/pkg/version"
)

// Env is the state shared by every subcommand: the loaded configuration and
// the telemetry providers.
type Env struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool

	Config    *config.Config
	Logger    *slog.Logger
	Providers observability.Providers
}

// NewEnv creates an Env with default configuration. Setup replaces it with
// the loaded one.
func NewEnv() *Env {
	return &Env{
		Config: config.Default(),
		Logger: slog.Default(),
	}
}

// BindFlags registers the persistent flags on the root command.
func (e *Env) BindFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&e.ConfigPath, "config", "", "config file (default is ./masonry.yaml or $HOME/.config/masonry/masonry.yaml)")
	root.PersistentFlags().BoolVarP(&e.Verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&e.Quiet, "quiet", "q", false, "suppress output")
}

// Setup loads configuration and initializes telemetry for mode.
func (e *Env) Setup(mode observability.AppMode) error {
	cfg, err := config.LoadConfig(e.ConfigPath)
	if err != nil {
		return err
	}

	e.Config = cfg

	tel := cfg.Telemetry(mode, version.Version)
	if e.Verbose {
		tel.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(tel)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	e.Providers = providers
	e.Logger = providers.Logger
	slog.SetDefault(providers.Logger)

	return nil
}

// Shutdown flushes telemetry.
func (e *Env) Shutdown(ctx context.Context) error {
	if e.Providers.Shutdown == nil {
		return nil
	}

	return e.Providers.Shutdown(ctx)
}

func (e *Env) tracer() trace.Tracer {
	if e.Providers.Tracer == nil {
		return tracenoop.NewTracerProvider().Tracer("")
	}

	return e.Providers.Tracer
}

func (e *Env) meter() metric.Meter {
	if e.Providers.Meter == nil {
		return metricnoop.NewMeterProvider().Meter("")
	}

	return e.Providers.Meter
}

// Geometry returns the positioner options for a container width.
func (e *Env) Geometry(width float64) positioner.Options {
	columnWidth, count := positioner.Columns(width, e.Config.Layout.ColumnOptions())

	return positioner.Options{
		ColumnCount:  count,
		ColumnWidth:  columnWidth,
		ColumnGutter: e.Config.Layout.ColumnGutter,
		RowGutter:    e.Config.Layout.RowGutter,
	}
}

// widthOr returns flagWidth when positive, otherwise the file width, otherwise
// the configured viewport width.
func (e *Env) widthOr(flagWidth, fileWidth float64) float64 {
	switch {
	case flagWidth > 0:
		return flagWidth
	case fileWidth > 0:
		return fileWidth
	default:
		return e.Config.Viewport.Width
	}
}
