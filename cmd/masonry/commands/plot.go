package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/masonry/pkg/observability"
	"github.com/Sumatoshi-tech/masonry/pkg/positioner"
)

const (
	plotArgCount    = 1
	plotChartWidth  = "100%"
	plotChartHeight = "500px"
	plotPageTitle   = "Masonry layout"

	minSymbolSize    = 4
	maxSymbolSize    = 24
	symbolSizeFactor = 20
)

// NewPlotCommand creates the plot subcommand.
func NewPlotCommand(env *Env) *cobra.Command {
	var (
		width  float64
		output string
	)

	cmd := &cobra.Command{
		Use:   "plot <items.yaml|items.json|->",
		Short: "Render layout charts as an HTML page",
		Long: `Lay out an item file and write an HTML page with the column heights,
the placement of every item and the container height estimate as items are
measured.

Examples:
  masonry plot items.yaml -o layout.html
  masonry plot items.json --width 960 > layout.html`,
		Args: cobra.ExactArgs(plotArgCount),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return env.Setup(observability.ModeCLI)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadItems(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			w, closeFn, err := writeFileOrStdout(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			width = env.widthOr(width, file.Width)

			renderErr := renderPlot(w, env.Geometry(width), env.Config.Layout.ItemHeightEstimate, file.Items)

			closeErr := closeFn()
			if renderErr != nil {
				return renderErr
			}

			return closeErr
		},
	}

	cmd.Flags().Float64VarP(&width, "width", "w", 0, "container width (default: file width, then viewport.width)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output HTML file (default: stdout)")

	return cmd
}

func renderPlot(w io.Writer, geom positioner.Options, estimate float64, items []Item) error {
	p, convergence := layoutWithEstimates(geom, estimate, items)

	page := components.NewPage()
	page.PageTitle = plotPageTitle
	page.AddCharts(
		columnHeightsChart(p),
		placementChart(p, items),
		estimateChart(convergence),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

// layoutWithEstimates positions every item and records the container height
// estimate after each one.
func layoutWithEstimates(geom positioner.Options, estimate float64, items []Item) (*positioner.Positioner, []float64) {
	p := positioner.New(geom)
	estimates := make([]float64, 0, len(items)+1)
	estimates = append(estimates, p.EstimateHeight(len(items), estimate))

	for i, it := range items {
		p.Set(i, it.Height)
		estimates = append(estimates, p.EstimateHeight(len(items), estimate))
	}

	return p, estimates
}

func initOpts() opts.Initialization {
	return opts.Initialization{Width: plotChartWidth, Height: plotChartHeight}
}

func columnHeightsChart(p *positioner.Positioner) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:    "Column heights",
			Subtitle: fmt.Sprintf("%d columns, %.0fpx wide", p.ColumnCount(), p.ColumnWidth()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "px"}),
	)

	heights := p.ColumnHeights()
	labels := make([]string, len(heights))
	data := make([]opts.BarData, len(heights))

	for i, h := range heights {
		labels[i] = "column " + strconv.Itoa(i)
		data[i] = opts.BarData{Value: h}
	}

	bar.SetXAxis(labels)
	bar.AddSeries("height", data)

	return bar
}

func placementChart(p *positioner.Positioner, items []Item) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:    "Item placement",
			Subtitle: "Top edge of every item by column; symbol size follows item height.",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "left", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "top", Type: "value", Inverse: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", YAxisIndex: []int{0}}),
	)

	byColumn := make([][]opts.ScatterData, p.ColumnCount())

	for _, ix := range p.All() {
		size := ix.Height / p.ColumnWidth() * symbolSizeFactor
		if p.ColumnWidth() <= 0 {
			size = minSymbolSize
		}

		byColumn[ix.Column] = append(byColumn[ix.Column], opts.ScatterData{
			Name:       items[ix.Index].Label(ix.Index),
			Value:      []any{ix.Left, ix.Top},
			SymbolSize: int(min(max(size, minSymbolSize), maxSymbolSize)),
		})
	}

	for col, data := range byColumn {
		scatter.AddSeries("column "+strconv.Itoa(col), data)
	}

	return scatter
}

func estimateChart(estimates []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(opts.Title{
			Title:    "Container height estimate",
			Subtitle: "Estimated height after each measurement; it settles on the tallest column.",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "measured"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "px"}),
	)

	labels := make([]string, len(estimates))
	data := make([]opts.LineData, len(estimates))

	for i, est := range estimates {
		labels[i] = strconv.Itoa(i)
		data[i] = opts.LineData{Value: est}
	}

	line.SetXAxis(labels)
	line.AddSeries("estimate", data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	return line
}
