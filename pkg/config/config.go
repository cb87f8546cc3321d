// Package config loads masonry configuration from YAML files and MASONRY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultColumnWidth        = 200
	DefaultItemHeightEstimate = 300
	DefaultOverscanBy         = 2
	DefaultScrollFPS          = 12
	DefaultViewportWidth      = 1280
	DefaultViewportHeight     = 800
	DefaultPort               = 8080
	DefaultHost               = "0.0.0.0"
	DefaultMaxItems           = 100_000
	DefaultMaxWidth           = 100_000
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"

	envPrefix = "MASONRY"
)

// Config holds all masonry configuration.
type Config struct {
	Layout        LayoutConfig        `mapstructure:"layout" yaml:"layout" json:"layout"`
	Scroll        ScrollConfig        `mapstructure:"scroll" yaml:"scroll" json:"scroll"`
	Viewport      ViewportConfig      `mapstructure:"viewport" yaml:"viewport" json:"viewport"`
	Server        ServerConfig        `mapstructure:"server" yaml:"server" json:"server"`
	Cache         CacheConfig         `mapstructure:"cache" yaml:"cache" json:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging" json:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability" json:"observability"`
}

// LayoutConfig is the column geometry and windowing setup.
type LayoutConfig struct {
	// ColumnWidth is the minimum column width.
	ColumnWidth  float64 `mapstructure:"column_width" yaml:"column_width" json:"column_width" validate:"gt=0"`
	ColumnGutter float64 `mapstructure:"column_gutter" yaml:"column_gutter" json:"column_gutter" validate:"gte=0"`
	// RowGutter defaults to ColumnGutter when unset.
	RowGutter float64 `mapstructure:"row_gutter" yaml:"row_gutter" json:"row_gutter" validate:"gte=0"`

	// ColumnCount overrides the computed count when positive.
	ColumnCount    int     `mapstructure:"column_count" yaml:"column_count" json:"column_count" validate:"gte=0"`
	MaxColumnCount int     `mapstructure:"max_column_count" yaml:"max_column_count" json:"max_column_count" validate:"gte=0"`
	MaxColumnWidth float64 `mapstructure:"max_column_width" yaml:"max_column_width" json:"max_column_width" validate:"gte=0"`

	ItemHeightEstimate float64 `mapstructure:"item_height_estimate" yaml:"item_height_estimate" json:"item_height_estimate" validate:"gt=0"`
	// OverscanBy is measured in viewport heights.
	OverscanBy float64 `mapstructure:"overscan_by" yaml:"overscan_by" json:"overscan_by" validate:"gt=0"`
}

// ScrollConfig controls the scroll throttle and the frame clock.
type ScrollConfig struct {
	FPS           float64       `mapstructure:"fps" yaml:"fps" json:"fps" validate:"gt=0"`
	FrameInterval time.Duration `mapstructure:"frame_interval" yaml:"frame_interval" json:"frame_interval" validate:"gte=0"`
}

// ViewportConfig is the container size used by the simulate and plot
// commands.
type ViewportConfig struct {
	Width  float64 `mapstructure:"width" yaml:"width" json:"width" validate:"gt=0"`
	Height float64 `mapstructure:"height" yaml:"height" json:"height" validate:"gt=0"`
}

// ServerConfig holds layout server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host" json:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
	Port         int           `mapstructure:"port" yaml:"port" json:"port" validate:"gt=0,lte=65535"`
	MaxItems     int           `mapstructure:"max_items" yaml:"max_items" json:"max_items" validate:"gt=0"`
	// MaxWidth is the widest container a layout request may ask for.
	MaxWidth float64 `mapstructure:"max_width" yaml:"max_width" json:"max_width" validate:"gt=0"`
}

// CacheConfig locates the measured-heights cache.
type CacheConfig struct {
	// Path is the height cache file. Empty disables the cache.
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"log_level"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`
}

// ObservabilityConfig holds telemetry export settings.
type ObservabilityConfig struct {
	Environment  string  `mapstructure:"environment" yaml:"environment" json:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint" json:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers" yaml:"otlp_headers" json:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure" yaml:"otlp_insecure" json:"otlp_insecure"`
	DebugTrace   bool    `mapstructure:"debug_trace" yaml:"debug_trace" json:"debug_trace"`
	SampleRatio  float64 `mapstructure:"sample_ratio" yaml:"sample_ratio" json:"sample_ratio" validate:"gte=0,lte=1"`
}

// LoadConfig loads configuration from configPath, or from masonry.yaml in the
// working directory or $HOME/.config/masonry when configPath is empty, and then
// from the environment.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("masonry")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME/.config/masonry")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	// No default for row_gutter: Unmarshal skips env-only keys without one.
	if viperCfg.IsSet("layout.row_gutter") {
		config.Layout.RowGutter = viperCfg.GetFloat64("layout.row_gutter")
	} else {
		config.Layout.RowGutter = config.Layout.ColumnGutter
	}

	validateErr := Validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration LoadConfig produces with no file and no
// environment.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			ColumnWidth:        DefaultColumnWidth,
			ItemHeightEstimate: DefaultItemHeightEstimate,
			OverscanBy:         DefaultOverscanBy,
		},
		Scroll:   ScrollConfig{FPS: DefaultScrollFPS},
		Viewport: ViewportConfig{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		Server: ServerConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  time.Minute,
			MaxItems:     DefaultMaxItems,
			MaxWidth:     DefaultMaxWidth,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("layout.column_width", DefaultColumnWidth)
	viperCfg.SetDefault("layout.column_gutter", 0)
	viperCfg.SetDefault("layout.column_count", 0)
	viperCfg.SetDefault("layout.max_column_count", 0)
	viperCfg.SetDefault("layout.max_column_width", 0)
	viperCfg.SetDefault("layout.item_height_estimate", DefaultItemHeightEstimate)
	viperCfg.SetDefault("layout.overscan_by", DefaultOverscanBy)

	viperCfg.SetDefault("scroll.fps", DefaultScrollFPS)
	viperCfg.SetDefault("scroll.frame_interval", "0s")

	viperCfg.SetDefault("viewport.width", DefaultViewportWidth)
	viperCfg.SetDefault("viewport.height", DefaultViewportHeight)

	viperCfg.SetDefault("server.host", DefaultHost)
	viperCfg.SetDefault("server.port", DefaultPort)
	viperCfg.SetDefault("server.read_timeout", "30s")
	viperCfg.SetDefault("server.write_timeout", "30s")
	viperCfg.SetDefault("server.idle_timeout", "60s")
	viperCfg.SetDefault("server.max_items", DefaultMaxItems)
	viperCfg.SetDefault("server.max_width", DefaultMaxWidth)

	viperCfg.SetDefault("cache.path", "")

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("observability.sample_ratio", 0)
}
