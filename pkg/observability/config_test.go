package observability_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, observability.Config{
		ServiceName:     "masonry",
		Mode:            observability.ModeCLI,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 5 * time.Second,
	}, cfg)
}
