package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/masonry/pkg/persist"
)

func testItems(heights ...float64) []Item {
	items := make([]Item, len(heights))
	for i, h := range heights {
		items[i] = Item{Height: h}
	}

	return items
}

func TestBuildLayout(t *testing.T) {
	t.Parallel()

	env := NewEnv()

	p, dump := buildLayout(env.Geometry(600), 600, 300, testItems(100, 50, 80, 40))

	assert.Equal(t, 4, p.Size())
	assert.Equal(t, 3, dump.ColumnCount)
	assert.InDelta(t, 200, dump.ColumnWidth, 0)
	assert.Equal(t, []float64{100, 90, 80}, dump.Columns)
	assert.InDelta(t, 100, dump.Height, 0)

	require.Len(t, dump.Items, 4)

	last := dump.Items[3]
	assert.Equal(t, 1, last.Column)
	assert.InDelta(t, 200, last.Left, 0)
	assert.InDelta(t, 50, last.Top, 0)
	assert.InDelta(t, 200, last.Width, 0)
}

func TestWriteDump(t *testing.T) {
	t.Parallel()

	env := NewEnv()
	_, dump := buildLayout(env.Geometry(600), 600, 300, []Item{{ID: "hero", Height: 100}, {Height: 50}})

	var out bytes.Buffer

	require.NoError(t, writeDump(&out, dump, formatJSON, 0))

	var decoded Dump

	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "hero", decoded.Items[0].ID)

	out.Reset()
	require.NoError(t, writeDump(&out, dump, formatYAML, 0))
	assert.Contains(t, out.String(), "column_count: 3")

	out.Reset()
	require.NoError(t, writeDump(&out, dump, formatTable, 1))
	assert.Contains(t, out.String(), "hero")
	assert.Contains(t, out.String(), "1 more")
	assert.NotContains(t, out.String(), "COLUMN", "headers keep their case")
	assert.Contains(t, out.String(), "column 2: 0px")

	require.ErrorIs(t, writeDump(&out, dump, "xml", 0), ErrUnsupportedFormat)
}

func TestDumpSaveFile(t *testing.T) {
	t.Parallel()

	env := NewEnv()
	_, dump := buildLayout(env.Geometry(400), 400, 300, testItems(10, 20, 30))

	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, persist.SaveFile(path, dump))

	var loaded Dump

	require.NoError(t, persist.LoadFile(path, &loaded))
	assert.Equal(t, dump.Columns, loaded.Columns)
	assert.Len(t, loaded.Items, 3)
}

func TestWidthOr(t *testing.T) {
	t.Parallel()

	env := NewEnv()

	assert.InDelta(t, 300, env.widthOr(300, 500), 0)
	assert.InDelta(t, 500, env.widthOr(0, 500), 0)
	assert.InDelta(t, env.Config.Viewport.Width, env.widthOr(0, 0), 0)
}
