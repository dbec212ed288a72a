package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ChrisMcGann/msnorm/pkg/chrom"
	"github.com/ChrisMcGann/msnorm/pkg/config"
	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/ChrisMcGann/msnorm/pkg/writer/sqlite"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var exportCmd = &cobra.Command{
	Use:   "export [files...]",
	Short: "Extract chromatograms from mzML files into a SQLite database",
	Long: `Extract the TIC and every target XIC for each input file and polarity mode and
store them in a SQLite database, one run per input file. Files are processed
concurrently.

Examples:
  # TIC only, both polarities
  msnorm export a.mzML b.mzML --out runs.db

  # Targets from CSV, positive mode, with per-scan records
  msnorm export *.mzML --out runs.db --targets targets.csv --modes pos --scans`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

// exportStats counts what an export wrote.
type exportStats struct {
	runs    atomic.Int64
	chroms  atomic.Int64
	scans   atomic.Int64
	skipped atomic.Int64

	mu sync.Mutex // serialises progress output
}

func (s *exportStats) printf(w io.Writer, format string, a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(w, format, a...)
}

func runExport(cmd *cobra.Command, args []string) error {
	params, err := resolveParams(cmd)
	if err != nil {
		return err
	}

	// A single --mode (or config mode) narrows the default mode list.
	list := modes
	if !cmd.Flags().Changed("modes") && params.Mode != nil {
		list = params.GetMode()
	}
	polarities, err := parseModes(list)
	if err != nil {
		return err
	}

	var targets []core.Target
	if targetsCSV != "" {
		targets, err = loadTargetsCSV(targetsCSV)
		if err != nil {
			return fmt.Errorf("failed to load targets CSV: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d targets\n", len(targets))
	}

	writer, err := sqlite.NewWriter(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}
	defer writer.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "Exporting %d files to %s...\n", len(args), outputFile)
	fmt.Fprintf(cmd.OutOrStdout(), "Modes: %s\n", list)

	n := params.GetWorkers()
	if n < 1 {
		n = runtime.NumCPU()
	}

	var stats exportStats
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(n)
	for _, path := range args {
		g.Go(func() error {
			return exportFile(ctx, cmd, writer, path, polarities, targets, params, &stats)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nExport complete!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Runs: %d\n", stats.runs.Load())
	fmt.Fprintf(cmd.OutOrStdout(), "Chromatograms: %d\n", stats.chroms.Load())
	if withScans {
		fmt.Fprintf(cmd.OutOrStdout(), "Scans: %d\n", stats.scans.Load())
	}
	if s := stats.skipped.Load(); s > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped: %d polarity modes (not enough scans)\n", s)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Output: %s\n", outputFile)
	return nil
}

func exportFile(ctx context.Context, cmd *cobra.Command, w *sqlite.Writer, path string,
	polarities []core.Polarity, targets []core.Target, params *config.Params, stats *exportStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	exp, st, err := loadStore(path, params)
	if err != nil {
		return err
	}

	runID, err := w.WriteRun(sqlite.Run{
		SourceFile:   path,
		ExperimentID: exp.ID,
		StartTime:    exp.StartTime,
		Resample:     params.ResampleConfig(),
		ScanCount:    len(exp.Scans),
	})
	if err != nil {
		return err
	}
	stats.runs.Add(1)

	b := newBuilder(params)
	for _, pol := range polarities {
		series, err := st.SeriesFor(pol)
		if err != nil {
			return err
		}

		var tic core.Series
		if raw {
			tic = b.RawTIC(series)
		} else {
			tic, err = b.TIC(series)
		}
		var insErr *core.InsufficientDataError
		if errors.As(err, &insErr) {
			stats.printf(cmd.ErrOrStderr(), "Warning: skipping %s mode of %s: %v\n", pol, path, err)
			stats.skipped.Add(1)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s (%s): %w", path, pol, err)
		}
		if err := w.WriteChromatogram(runID, sqlite.Chromatogram{
			Kind: sqlite.KindTIC, Name: "TIC", Polarity: pol, Interpolated: !raw, Series: tic,
		}); err != nil {
			return err
		}
		stats.chroms.Add(1)

		if len(targets) == 0 {
			continue
		}
		queries, err := targetQueries(targets, pol, params)
		if err != nil {
			return err
		}
		xics, err := b.BatchXIC(ctx, series, queries, params.GetWorkers())
		if err != nil {
			return fmt.Errorf("%s (%s): %w", path, pol, err)
		}
		for i, s := range xics {
			if err := w.WriteChromatogram(runID, xicChromatogram(targets[i], queries[i], pol, s)); err != nil {
				return err
			}
			stats.chroms.Add(1)
		}
	}

	if withScans {
		records, err := core.ExtractScanRecords(exp)
		if err != nil {
			return err
		}
		for i := range records {
			if err := w.WriteScan(runID, records[i]); err != nil {
				return err
			}
		}
		stats.scans.Add(int64(len(records)))
	}

	stats.printf(cmd.OutOrStdout(), "Processed %s (%d scans)\n", path, len(exp.Scans))
	return nil
}

func xicChromatogram(t core.Target, q chrom.Query, pol core.Polarity, s core.Series) sqlite.Chromatogram {
	return sqlite.Chromatogram{
		Kind:         sqlite.KindXIC,
		Name:         t.Name,
		TargetMz:     q.Mz,
		PPM:          q.PPM,
		PPMOffset:    q.PPMOffset,
		Polarity:     pol,
		Interpolated: q.Interpolate,
		Series:       s,
	}
}

// parseModes parses a comma-separated mode list such as "pos,neg".
func parseModes(list string) ([]core.Polarity, error) {
	var out []core.Polarity
	seen := make(map[core.Polarity]bool)
	for _, m := range strings.Split(list, ",") {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		p, err := core.ParseMode(m)
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no polarity modes given")
	}
	return out, nil
}
