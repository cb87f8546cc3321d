package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/persist"
	"github.com/Sumatoshi-tech/masonry/pkg/positioner"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

const (
	layoutArgCount     = 1
	defaultTableLimit  = 50
	heightDisplayDigit = 1
)

// ErrUnsupportedFormat is returned for an unknown --format value.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Placed is one item in a layout dump.
type Placed struct {
	ID     string  `json:"id,omitempty" yaml:"id,omitempty"`
	Index  int     `json:"index"        yaml:"index"`
	Column int     `json:"column"       yaml:"column"`
	Left   float64 `json:"left"         yaml:"left"`
	Top    float64 `json:"top"          yaml:"top"`
	Width  float64 `json:"width"        yaml:"width"`
	Height float64 `json:"height"       yaml:"height"`
}

// Dump is a fully computed layout.
type Dump struct {
	Width        float64   `json:"width"         yaml:"width"`
	ColumnCount  int       `json:"column_count"  yaml:"column_count"`
	ColumnWidth  float64   `json:"column_width"  yaml:"column_width"`
	ColumnGutter float64   `json:"column_gutter" yaml:"column_gutter"`
	RowGutter    float64   `json:"row_gutter"    yaml:"row_gutter"`
	Height       float64   `json:"height"        yaml:"height"`
	Columns      []float64 `json:"columns"       yaml:"columns"`
	Items        []Placed  `json:"items"         yaml:"items"`
}

// buildLayout positions every item in order and returns the positioner and
// its dump.
func buildLayout(geom positioner.Options, width, estimate float64, items []Item) (*positioner.Positioner, *Dump) {
	p := positioner.New(geom)

	for i, it := range items {
		p.Set(i, it.Height)
	}

	dump := &Dump{
		Width:        width,
		ColumnCount:  p.ColumnCount(),
		ColumnWidth:  p.ColumnWidth(),
		ColumnGutter: geom.ColumnGutter,
		RowGutter:    geom.RowGutter,
		Height:       p.EstimateHeight(len(items), estimate),
		Columns:      p.ColumnHeights(),
		Items:        make([]Placed, 0, len(items)),
	}

	for _, ix := range p.All() {
		dump.Items = append(dump.Items, Placed{
			ID:     items[ix.Index].ID,
			Index:  ix.Index,
			Column: ix.Column,
			Left:   ix.Left,
			Top:    ix.Top,
			Width:  p.ColumnWidth(),
			Height: ix.Height,
		})
	}

	return p, dump
}

// NewLayoutCommand creates the layout subcommand.
func NewLayoutCommand(env *Env) *cobra.Command {
	var (
		width  float64
		format string
		output string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "layout <items.yaml|items.json|->",
		Short: "Compute the position of every item",
		Long: `Lay out every item of an item file in the shortest-column order and
print the resulting positions.

Examples:
  masonry layout items.yaml --width 1280
  masonry layout items.json -f json -o layout.json
  cat items.json | masonry layout -`,
		Args: cobra.ExactArgs(layoutArgCount),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return env.Setup(observability.ModeCLI)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout(env, cmd, args[0], width, format, output, limit)
		},
	}

	cmd.Flags().Float64VarP(&width, "width", "w", 0, "container width (default: file width, then viewport.width)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table, json, yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file; the format follows the extension")
	cmd.Flags().IntVar(&limit, "limit", defaultTableLimit, "maximum table rows (0 for all)")

	return cmd
}

func runLayout(env *Env, cmd *cobra.Command, path string, width float64, format, output string, limit int) error {
	file, err := loadItems(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	width = env.widthOr(width, file.Width)
	_, dump := buildLayout(env.Geometry(width), width, env.Config.Layout.ItemHeightEstimate, file.Items)

	env.Logger.Debug("layout computed",
		"items", len(dump.Items), "columns", dump.ColumnCount, "height", dump.Height)

	if output != "" {
		err = persist.SaveFile(output, dump)
		if err != nil {
			return fmt.Errorf("write layout: %w", err)
		}

		if !env.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s items to %s\n", humanize.Comma(int64(len(dump.Items))), output)
		}

		return nil
	}

	return writeDump(cmd.OutOrStdout(), dump, format, limit)
}

func writeDump(w io.Writer, dump *Dump, format string, limit int) error {
	switch format {
	case formatJSON, formatYAML:
		codec, err := persist.ByName(format)
		if err != nil {
			return err
		}

		return codec.Encode(w, dump)
	case formatTable:
		printLayoutTable(w, dump, limit)

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func printLayoutTable(w io.Writer, dump *Dump, limit int) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "%d columns of %spx, %s items, %spx tall\n",
		dump.ColumnCount,
		humanize.CommafWithDigits(dump.ColumnWidth, heightDisplayDigit),
		humanize.Comma(int64(len(dump.Items))),
		humanize.CommafWithDigits(dump.Height, heightDisplayDigit))

	tbl := newTable(w)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendHeader(table.Row{"#", "ID", "Column", "Left", "Top", "Height"})

	rows := dump.Items
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	for _, it := range rows {
		tbl.AppendRow(table.Row{it.Index, it.ID, it.Column, it.Left, it.Top, it.Height})
	}

	if hidden := len(dump.Items) - len(rows); hidden > 0 {
		tbl.AppendFooter(table.Row{"", fmt.Sprintf("... %s more", humanize.Comma(int64(hidden)))})
	}

	tbl.Render()

	for col, h := range dump.Columns {
		fmt.Fprintf(w, "column %d: %spx\n", col, humanize.CommafWithDigits(h, heightDisplayDigit))
	}
}

// writeFileOrStdout opens output, or returns stdout when output is empty.
func writeFileOrStdout(output string, stdout io.Writer) (io.Writer, func() error, error) {
	if output == "" {
		return stdout, func() error { return nil }, nil
	}

	f, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return f, f.Close, nil
}

// newTable returns a light-style table writer that prints headers and
// footers as written.
func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Header = text.FormatDefault
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}
