package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/persist"
)

// diffArgCount is the number of arguments expected by the diff command.
const diffArgCount = 2

// Diff output formats.
const (
	formatUnified = "unified"
	formatSummary = "summary"
)

// LayoutChange is how one item differs between two layouts.
type LayoutChange struct {
	Index  int     `json:"index"`
	Kind   string  `json:"kind"`
	Before *Placed `json:"before,omitempty"`
	After  *Placed `json:"after,omitempty"`
}

// Change kinds.
const (
	changeAdded   = "added"
	changeRemoved = "removed"
	changeResized = "resized"
	changeMoved   = "moved"
)

// NewDiffCommand creates the diff subcommand.
func NewDiffCommand(env *Env) *cobra.Command {
	var (
		width  float64
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "diff <before> <after>",
		Short: "Compare the layouts of two item files",
		Long: `Lay out two item files at the same width and show which items moved.

Examples:
  masonry diff before.yaml after.yaml
  masonry diff -f summary before.json after.json
  masonry diff -f json before.yaml after.yaml -o changes.json`,
		Args: cobra.ExactArgs(diffArgCount),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return env.Setup(observability.ModeCLI)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(env, cmd, args[0], args[1], width, format, output)
		},
	}

	cmd.Flags().Float64VarP(&width, "width", "w", 0, "container width (default: width of the first file, then viewport.width)")
	cmd.Flags().StringVarP(&format, "format", "f", formatUnified, "output format (unified, summary, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runDiff(env *Env, cmd *cobra.Command, beforePath, afterPath string, width float64, format, output string) error {
	before, err := loadItems(beforePath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	after, err := loadItems(afterPath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	width = env.widthOr(width, before.Width)
	geom := env.Geometry(width)
	estimate := env.Config.Layout.ItemHeightEstimate

	_, beforeDump := buildLayout(geom, width, estimate, before.Items)
	_, afterDump := buildLayout(geom, width, estimate, after.Items)

	w, closeFn, err := writeFileOrStdout(output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	writeErr := writeDiff(w, beforeDump, afterDump, format)

	closeErr := closeFn()
	if writeErr != nil {
		return writeErr
	}

	return closeErr
}

func writeDiff(w io.Writer, before, after *Dump, format string) error {
	switch format {
	case formatUnified:
		printUnifiedLayoutDiff(w, before, after)

		return nil
	case formatSummary:
		printLayoutDiffSummary(w, compareLayouts(before, after), before, after)

		return nil
	case formatJSON:
		return persist.JSON.Encode(w, compareLayouts(before, after))
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// compareLayouts lists every item whose placement differs, in index order.
func compareLayouts(before, after *Dump) []LayoutChange {
	var changes []LayoutChange

	for i := range max(len(before.Items), len(after.Items)) {
		switch {
		case i >= len(before.Items):
			changes = append(changes, LayoutChange{Index: i, Kind: changeAdded, After: &after.Items[i]})
		case i >= len(after.Items):
			changes = append(changes, LayoutChange{Index: i, Kind: changeRemoved, Before: &before.Items[i]})
		default:
			b, a := before.Items[i], after.Items[i]

			kind := ""

			switch {
			case b.Height != a.Height:
				kind = changeResized
			case b.Top != a.Top || b.Left != a.Left:
				kind = changeMoved
			}

			if kind != "" {
				changes = append(changes, LayoutChange{Index: i, Kind: kind, Before: &b, After: &a})
			}
		}
	}

	return changes
}

func layoutLines(d *Dump) string {
	var sb strings.Builder

	for _, it := range d.Items {
		fmt.Fprintf(&sb, "%5d %-12s col=%d left=%g top=%g height=%g\n",
			it.Index, it.ID, it.Column, it.Left, it.Top, it.Height)
	}

	return sb.String()
}

func printUnifiedLayoutDiff(w io.Writer, before, after *Dump) {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(layoutLines(before), layoutLines(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			switch d.Type {
			case diffmatchpatch.DiffDelete:
				removed.Fprint(w, "-"+line)
			case diffmatchpatch.DiffInsert:
				added.Fprint(w, "+"+line)
			case diffmatchpatch.DiffEqual:
				fmt.Fprint(w, " "+line)
			}
		}
	}
}

func printLayoutDiffSummary(w io.Writer, changes []LayoutChange, before, after *Dump) {
	counts := map[string]int{}
	for _, c := range changes {
		counts[c.Kind]++
	}

	fmt.Fprintf(w, "height: %gpx -> %gpx\n", before.Height, after.Height)

	for _, kind := range []string{changeResized, changeMoved, changeAdded, changeRemoved} {
		fmt.Fprintf(w, "%-8s %d\n", kind+":", counts[kind])
	}
}
