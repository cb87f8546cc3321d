package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true //nolint:reassign // plain output for assertions
}

func diffFixture() (*Dump, *Dump) {
	env := NewEnv()
	geom := env.Geometry(600)

	// Item 1 grows, which pushes item 3 into another column; item 4 is new.
	_, before := buildLayout(geom, 600, 300, testItems(100, 50, 80, 40))
	_, after := buildLayout(geom, 600, 300, testItems(100, 150, 80, 40, 10))

	return before, after
}

func TestCompareLayouts(t *testing.T) {
	t.Parallel()

	before, after := diffFixture()

	changes := compareLayouts(before, after)
	require.Len(t, changes, 3)

	assert.Equal(t, LayoutChange{Index: 1, Kind: changeResized, Before: &before.Items[1], After: &after.Items[1]}, changes[0])

	assert.Equal(t, 3, changes[1].Index)
	assert.Equal(t, changeMoved, changes[1].Kind)
	assert.Equal(t, 1, changes[1].Before.Column)
	assert.Equal(t, 2, changes[1].After.Column)

	assert.Equal(t, 4, changes[2].Index)
	assert.Equal(t, changeAdded, changes[2].Kind)
	assert.Nil(t, changes[2].Before)
}

func TestCompareLayouts_Removed(t *testing.T) {
	t.Parallel()

	before, after := diffFixture()

	changes := compareLayouts(after, before)
	require.NotEmpty(t, changes)

	last := changes[len(changes)-1]
	assert.Equal(t, changeRemoved, last.Kind)
	assert.Equal(t, 4, last.Index)
	assert.Nil(t, last.After)
}

func TestCompareLayouts_Identical(t *testing.T) {
	t.Parallel()

	before, _ := diffFixture()

	assert.Empty(t, compareLayouts(before, before))
}

func TestWriteDiff(t *testing.T) {
	t.Parallel()

	before, after := diffFixture()

	var out bytes.Buffer

	require.NoError(t, writeDiff(&out, before, after, formatUnified))
	assert.Contains(t, out.String(), "-    1")
	assert.Contains(t, out.String(), "+    4")
	assert.Contains(t, out.String(), "     0")

	out.Reset()
	require.NoError(t, writeDiff(&out, before, after, formatSummary))
	assert.Contains(t, out.String(), "height: 100px -> 150px")
	assert.Contains(t, out.String(), "moved:   1")

	out.Reset()
	require.NoError(t, writeDiff(&out, before, after, formatJSON))

	var changes []LayoutChange

	require.NoError(t, json.Unmarshal(out.Bytes(), &changes))
	assert.Len(t, changes, 3)

	require.ErrorIs(t, writeDiff(&out, before, after, "html"), ErrUnsupportedFormat)
}
