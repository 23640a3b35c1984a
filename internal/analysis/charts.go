package analysis

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/assembly.report/internal/events"
)

var kindColors = map[events.Kind]string{
	events.PickUp:     "#d62728",
	events.ProbePass:  "#bcbd22",
	events.Marking:    "#17becf",
	events.PlaceInBox: "#2ca02c",
}

// WriteDurationPNG renders a bar chart of per-operation durations with the
// average as a reference line.
func WriteDurationPNG(w io.Writer, r Report, title string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Operation"
	p.Y.Label.Text = "Duration (s)"

	if r.Total() > 0 {
		bars, err := plotter.NewBarChart(plotter.Values(r.Durations()), vg.Points(16))
		if err != nil {
			return fmt.Errorf("duration bars: %w", err)
		}
		bars.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)

		avg := plotter.NewFunction(func(float64) float64 { return r.AverageDuration })
		avg.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		avg.Width = vg.Points(1)
		avg.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(avg)
		p.Legend.Add(fmt.Sprintf("mean %.2f s", r.AverageDuration), avg)
		p.Legend.Top = true

		labels := make([]string, r.Total())
		for i := range labels {
			labels[i] = fmt.Sprintf("%d", i+1)
		}
		p.NominalX(labels...)
	}

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("encode duration chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write duration chart: %w", err)
	}
	return nil
}

// WriteTimelineHTML renders every committed event as a point on a time axis,
// one row per kind.
func WriteTimelineHTML(w io.Writer, l *events.Log, title string) error {
	names := make([]string, 0, events.NumKinds)
	for _, k := range events.AllKinds() {
		names = append(names, k.String())
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("events=%d", l.Total())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: names}),
	)

	for _, k := range events.AllKinds() {
		times := l.Times(k)
		data := make([]opts.ScatterData, 0, len(times))
		for _, t := range times {
			data = append(data, opts.ScatterData{Value: []interface{}{t, k.String()}})
		}
		scatter.AddSeries(k.String(), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: kindColors[k]}),
		)
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render timeline: %w", err)
	}
	return nil
}
