package positioner

import (
	"math"

	"github.com/Sumatoshi-tech/masonry/pkg/safeconv"
)

// ColumnOptions describes how a container width is split into columns.
type ColumnOptions struct {
	// MinColumnWidth is the smallest acceptable column width.
	MinColumnWidth float64
	// Gutter is the horizontal space between columns.
	Gutter float64
	// ColumnCount overrides the computed count when positive.
	ColumnCount int
	// MaxColumnCount caps the computed count when positive.
	MaxColumnCount int
	// MaxColumnWidth caps the column width when positive.
	MaxColumnWidth float64
}

// MaxColumns bounds the column count of any layout.
const MaxColumns = 1024

// Columns returns the column width and count for a container width.
// The count is within [1, MaxColumns]; the width is floored to whole units.
func Columns(width float64, opts ColumnOptions) (float64, int) {
	count := min(opts.ColumnCount, MaxColumns)

	if count <= 0 {
		count = 1

		if slot := opts.MinColumnWidth + opts.Gutter; slot > 0 {
			count = safeconv.FloorToInt((width + opts.Gutter) / slot)
		}

		if opts.MaxColumnCount > 0 {
			count = min(count, opts.MaxColumnCount)
		}

		count = min(max(count, 1), MaxColumns)
	}

	columnWidth := math.Floor((width - opts.Gutter*float64(count-1)) / float64(count))

	if opts.MaxColumnWidth > 0 && columnWidth > opts.MaxColumnWidth {
		columnWidth = opts.MaxColumnWidth
	}

	return max(columnWidth, 0), count
}

// Rebuild creates a Positioner with new geometry and replays the heights of
// every item positioned by prev, in index order. It avoids a full remeasure
// after a container resize.
func Rebuild(prev *Positioner, opts Options) *Positioner {
	next := New(opts)
	if prev == nil {
		return next
	}

	for _, item := range prev.All() {
		next.Set(item.Index, item.Height)
	}

	return next
}
