package interval

import (
	"testing"
)

// Benchmark constants.
const (
	benchIntervalCount = 10000
	benchSpacing       = 10
	benchWidth         = 25
	benchQueryLow      = 50000
	benchQueryHigh     = 51000
)

// fillBenchTree inserts benchIntervalCount staggered intervals.
func fillBenchTree() *Tree {
	tree := New()

	for i := range benchIntervalCount {
		low := float64(i * benchSpacing)
		tree.Insert(low, low+benchWidth, i)
	}

	return tree
}

// BenchmarkInsert benchmarks inserting intervals.
func BenchmarkInsert(b *testing.B) {
	for range b.N {
		fillBenchTree()
	}
}

// BenchmarkSearch benchmarks a viewport-sized overlap query.
func BenchmarkSearch(b *testing.B) {
	tree := fillBenchTree()
	hits := 0

	b.ResetTimer()

	for range b.N {
		tree.Search(benchQueryLow, benchQueryHigh, func(int, float64) { hits++ })
	}

	_ = hits
}

// BenchmarkRemoveInsert benchmarks the remove+reinsert cycle used by relayout.
func BenchmarkRemoveInsert(b *testing.B) {
	tree := fillBenchTree()

	b.ResetTimer()

	for i := range b.N {
		index := i % benchIntervalCount
		low := float64(index*benchSpacing) + 1

		tree.Remove(index)
		tree.Insert(low, low+benchWidth, index)
	}
}
