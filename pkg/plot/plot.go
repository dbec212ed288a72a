// Package plot renders chromatograms as PNG images and HTML charts.
package plot

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoTraces is returned when there is nothing to draw.
var ErrNoTraces = errors.New("plot: no traces")

// Trace is one named chromatogram.
type Trace struct {
	Name   string
	Series core.Series
}

// Options controls titles and the drawn region.
type Options struct {
	Title string
	// Full draws the padding too instead of only the observed region.
	Full bool
}

func (o Options) region(s core.Series) core.Series {
	if o.Full {
		return s
	}
	return s.Observed()
}

// SavePNG writes the traces to an image file. The format follows the
// file extension (png, svg, pdf...).
func SavePNG(path string, traces []Trace, o Options) error {
	if len(traces) == 0 {
		return ErrNoTraces
	}

	p := plot.New()
	p.Title.Text = o.Title
	p.X.Label.Text = "Retention time (s)"
	p.Y.Label.Text = "Intensity"
	p.Add(plotter.NewGrid())

	for i, tr := range traces {
		s := o.region(tr.Series)
		pts := make(plotter.XYs, s.Len())
		for j := range pts {
			pts[j].X = s.Times[j]
			pts[j].Y = s.Values[j]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to plot %s: %w", tr.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(tr.Name, line)
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// WriteHTML renders the traces as an interactive line chart.
func WriteHTML(w io.Writer, traces []Trace, o Options) error {
	if len(traces) == 0 {
		return ErrNoTraces
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: fmt.Sprintf("traces=%d", len(traces))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "RT (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Intensity"}),
	)

	for _, tr := range traces {
		s := o.region(tr.Series)
		data := make([]opts.LineData, s.Len())
		for j := range data {
			data[j] = opts.LineData{Value: []interface{}{s.Times[j], s.Values[j]}}
		}
		line.AddSeries(tr.Name, data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// SaveHTML writes the chart to a file.
func SaveHTML(path string, traces []Trace, o Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteHTML(f, traces, o); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
