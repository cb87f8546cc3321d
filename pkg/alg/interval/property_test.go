package interval

import (
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// propertyMinSuccessfulTests keeps the property suite fast under -race.
const propertyMinSuccessfulTests = 200

// buildTree inserts zip(lows, widths) as indices 0..n-1 and returns the tree
// together with the oracle spans.
func buildTree(lows, widths []int) (*Tree, map[int]span) {
	tree := New()
	spans := make(map[int]span)

	for i := range min(len(lows), len(widths)) {
		low := float64(lows[i])
		high := low + float64(widths[i])

		tree.Insert(low, high, i)
		spans[i] = span{low: low, high: high}
	}

	return tree, spans
}

func TestProperties(t *testing.T) {
	t.Parallel()

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = propertyMinSuccessfulTests
	properties := gopter.NewProperties(params)

	properties.Property("search reports exactly the overlapping indices", prop.ForAll(
		func(lows, widths []int, queryLow, querySpan int) bool {
			tree, spans := buildTree(lows, widths)
			low := float64(queryLow)
			high := low + float64(querySpan)

			return slices.Equal(bruteForce(spans, low, high), searchAll(tree, low, high))
		},
		gen.SliceOf(gen.IntRange(0, 400)),
		gen.SliceOf(gen.IntRange(0, 80)),
		gen.IntRange(-40, 480),
		gen.IntRange(0, 120),
	))

	properties.Property("removing every index empties the tree", prop.ForAll(
		func(lows, widths []int) bool {
			tree, spans := buildTree(lows, widths)

			// Remove odd indices first, then even ones, to mix deletion shapes.
			for index := range spans {
				if index%2 == 1 && !tree.Remove(index) {
					return false
				}
			}

			for index := range spans {
				if index%2 == 0 && !tree.Remove(index) {
					return false
				}
			}

			return tree.Len() == 0 && tree.root == nilNode && len(searchAll(tree, -1e9, 1e9)) == 0
		},
		gen.SliceOf(gen.IntRange(0, 200)),
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.Property("partial removal keeps search complete", prop.ForAll(
		func(lows, widths []int, removeEvery int) bool {
			tree, spans := buildTree(lows, widths)

			for index := range spans {
				if index%removeEvery == 0 {
					tree.Remove(index)
					delete(spans, index)
				}
			}

			return tree.Len() == len(spans) &&
				slices.Equal(bruteForce(spans, -1e9, 1e9), searchAll(tree, -1e9, 1e9))
		},
		gen.SliceOf(gen.IntRange(0, 300)),
		gen.SliceOf(gen.IntRange(0, 60)),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
