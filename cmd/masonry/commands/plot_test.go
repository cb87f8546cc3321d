package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlot(t *testing.T) {
	t.Parallel()

	env := NewEnv()
	items := []Item{{ID: "hero", Height: 320}, {Height: 120}, {Height: 200}, {Height: 80}}

	var out bytes.Buffer

	require.NoError(t, renderPlot(&out, env.Geometry(600), 300, items))

	html := out.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, plotPageTitle)
	assert.Contains(t, html, "Column heights")
	assert.Contains(t, html, "Item placement")
	assert.Contains(t, html, "Container height estimate")
	assert.Contains(t, html, "hero")
}

func TestLayoutWithEstimates(t *testing.T) {
	t.Parallel()

	env := NewEnv()

	p, estimates := layoutWithEstimates(env.Geometry(600), 300, testItems(100, 50, 80, 40))

	require.Len(t, estimates, 5)
	assert.Equal(t, 4, p.Size())

	// Nothing measured: four items of 300px spread over three columns.
	assert.InDelta(t, 400, estimates[0], 0)
	// Everything measured: the tallest column.
	assert.InDelta(t, 100, estimates[4], 0)
}
