package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ChrisMcGann/msnorm/pkg/chrom"
	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/ChrisMcGann/msnorm/pkg/plot"
	"github.com/spf13/cobra"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Plot chromatograms as an image or HTML chart",
	Long: `Plot the TIC, a single target (--mz) or every target of a CSV (--targets).
The output format follows the extension of --out: .html writes an interactive
chart, anything else (.png, .svg, .pdf) a static image.

Examples:
  msnorm plot --in sample.mzML --out tic.png
  msnorm plot --in sample.mzML --targets targets.csv --mode neg --out xic.html`,
	Args: cobra.NoArgs,
	RunE: runPlot,
}

func runPlot(cmd *cobra.Command, args []string) error {
	params, err := resolveParams(cmd)
	if err != nil {
		return err
	}
	_, st, err := loadStore(inputFile, params)
	if err != nil {
		return err
	}
	pol, err := core.ParseMode(params.GetMode())
	if err != nil {
		return err
	}
	series, err := st.SeriesFor(pol)
	if err != nil {
		return err
	}

	b := newBuilder(params)
	var traces []plot.Trace
	switch {
	case targetsCSV != "":
		targets, err := loadTargetsCSV(targetsCSV)
		if err != nil {
			return fmt.Errorf("failed to load targets CSV: %w", err)
		}
		queries, err := targetQueries(targets, pol, params)
		if err != nil {
			return err
		}
		out, err := b.BatchXIC(context.Background(), series, queries, params.GetWorkers())
		if err != nil {
			return err
		}
		for i, s := range out {
			traces = append(traces, plot.Trace{Name: targets[i].Name, Series: s})
		}
	case cmd.Flags().Changed("mz"):
		s, err := b.XIC(series, newQuery(params, targetMz))
		if err != nil {
			return err
		}
		traces = append(traces, plot.Trace{Name: fmt.Sprintf("m/z %.4f", targetMz), Series: s})
	default:
		s, err := ticSeries(b, series)
		if err != nil {
			return err
		}
		traces = append(traces, plot.Trace{Name: "TIC", Series: s})
	}

	o := plot.Options{
		Title: fmt.Sprintf("%s (%s)", filepath.Base(inputFile), pol),
		Full:  fullRange,
	}
	if strings.EqualFold(filepath.Ext(outputFile), ".html") {
		err = plot.SaveHTML(outputFile, traces, o)
	} else {
		err = plot.SavePNG(outputFile, traces, o)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d traces to %s\n", len(traces), outputFile)
	return nil
}

func ticSeries(b *chrom.Builder, series core.ScanSeries) (core.Series, error) {
	if raw {
		return b.RawTIC(series), nil
	}
	return b.TIC(series)
}
