package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/positioner"
)

// Sentinel validation errors.
var (
	ErrInvalidConfig       = errors.New("invalid config value")
	ErrInvalidColumnWidth  = errors.New("column width must be positive")
	ErrInvalidGutter       = errors.New("gutters must not be negative")
	ErrInvalidColumnCount  = errors.New("column counts must not be negative")
	ErrInvalidEstimate     = errors.New("item height estimate must be positive")
	ErrInvalidOverscan     = errors.New("overscan must be positive")
	ErrInvalidScrollFPS    = errors.New("scroll fps must be positive")
	ErrInvalidPort         = errors.New("invalid server port")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrInvalidSampleRatio  = errors.New("sample ratio must be within [0, 1]")
	ErrInvalidViewportSize = errors.New("viewport size must be positive")
)

// fieldErrors maps struct namespaces to the sentinel reported for them.
var fieldErrors = map[string]error{
	"Config.Layout.ColumnWidth":        ErrInvalidColumnWidth,
	"Config.Layout.ColumnGutter":       ErrInvalidGutter,
	"Config.Layout.RowGutter":          ErrInvalidGutter,
	"Config.Layout.ColumnCount":        ErrInvalidColumnCount,
	"Config.Layout.MaxColumnCount":     ErrInvalidColumnCount,
	"Config.Layout.ItemHeightEstimate": ErrInvalidEstimate,
	"Config.Layout.OverscanBy":         ErrInvalidOverscan,
	"Config.Scroll.FPS":                ErrInvalidScrollFPS,
	"Config.Server.Port":               ErrInvalidPort,
	"Config.Logging.Level":             ErrInvalidLogLevel,
	"Config.Observability.SampleRatio": ErrInvalidSampleRatio,
	"Config.Viewport.Width":            ErrInvalidViewportSize,
	"Config.Viewport.Height":           ErrInvalidViewportSize,
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("log_level", func(fl validator.FieldLevel) bool {
			_, err := ParseLogLevel(fl.Field().String())

			return err == nil
		})

		validateInst = v
	})

	return validateInst
}

// Validate checks every field against its constraints and reports the first
// violation as one of the sentinel errors.
func Validate(cfg *Config) error {
	err := validatorInstance().Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	fe := fieldErrs[0]

	sentinel, ok := fieldErrors[fe.StructNamespace()]
	if !ok {
		sentinel = ErrInvalidConfig
	}

	return fmt.Errorf("%w: %s=%v (%s)", sentinel, yamlishFieldName(fe), fe.Value(), fe.Tag())
}

// yamlishFieldName turns "Config.Layout.ColumnWidth" into
// "layout.columnwidth" for messages.
func yamlishFieldName(fe validator.FieldError) string {
	_, path, _ := strings.Cut(fe.StructNamespace(), ".")

	return strings.ToLower(path)
}

// ParseLogLevel parses debug, info, warn or error.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(s))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}

	return level, nil
}

// ColumnOptions returns the column geometry for positioner.Columns.
func (c LayoutConfig) ColumnOptions() positioner.ColumnOptions {
	return positioner.ColumnOptions{
		MinColumnWidth: c.ColumnWidth,
		Gutter:         c.ColumnGutter,
		ColumnCount:    c.ColumnCount,
		MaxColumnCount: c.MaxColumnCount,
		MaxColumnWidth: c.MaxColumnWidth,
	}
}

// Telemetry builds the observability configuration for a launch mode.
func (c *Config) Telemetry(mode observability.AppMode, version string) observability.Config {
	out := observability.DefaultConfig()
	out.ServiceVersion = version
	out.Mode = mode
	out.Environment = c.Observability.Environment
	out.OTLPEndpoint = c.Observability.OTLPEndpoint
	out.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	out.OTLPInsecure = c.Observability.OTLPInsecure
	out.DebugTrace = c.Observability.DebugTrace
	out.SampleRatio = c.Observability.SampleRatio
	out.LogJSON = c.Logging.Format == "json"

	if level, err := ParseLogLevel(c.Logging.Level); err == nil {
		out.LogLevel = level
	}

	return out
}
