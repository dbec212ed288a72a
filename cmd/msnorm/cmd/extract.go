package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/spf13/cobra"
)

var ticCmd = &cobra.Command{
	Use:   "tic",
	Short: "Extract the total-ion chromatogram",
	Long: `Sum every survey scan of one polarity and resample the totals onto the
fixed-length grid. The result is written as {"counts": [...], "rt": [...]}.

Examples:
  msnorm tic --in sample.mzML --mode pos
  msnorm tic --in sample.mzML --mode neg --seq-len 1024 --out tic.json`,
	Args: cobra.NoArgs,
	RunE: runTIC,
}

var xicCmd = &cobra.Command{
	Use:   "xic",
	Short: "Extract ion chromatograms for one or more targets",
	Long: `Take the most intense peak inside the ppm window around each target in every
survey scan and resample the per-scan maxima onto the fixed-length grid.

With --mz a single record is written. With --targets the output is an object
keyed by target name.

Examples:
  msnorm xic --in sample.mzML --mz 195.0877 --ppm 5
  msnorm xic --in sample.mzML --mode neg --targets targets.csv --out xic.json`,
	Args: cobra.NoArgs,
	RunE: runXIC,
}

var spectraCmd = &cobra.Command{
	Use:   "spectra",
	Short: "Write per-scan records as JSON lines",
	Long: `Write one JSON record per scan, positive scans first, then negative scans:
{"mz_array", "inty_array", "rt", "mode", "level", "precursor", "collision_level"}.`,
	Args: cobra.NoArgs,
	RunE: runSpectra,
}

func runTIC(cmd *cobra.Command, args []string) error {
	params, err := resolveParams(cmd)
	if err != nil {
		return err
	}
	_, st, err := loadStore(inputFile, params)
	if err != nil {
		return err
	}

	b := newBuilder(params)
	var rec core.SignalRecord
	if raw {
		series, err := st.Series(params.GetMode())
		if err != nil {
			return err
		}
		rec = b.RawTIC(series).Record()
	} else {
		rec, err = b.TICCounts(st, params.GetMode())
		if err != nil {
			return err
		}
	}
	return writeJSON(cmd, rec)
}

func runXIC(cmd *cobra.Command, args []string) error {
	if targetsCSV == "" && !cmd.Flags().Changed("mz") {
		return fmt.Errorf("either --mz or --targets is required")
	}

	params, err := resolveParams(cmd)
	if err != nil {
		return err
	}
	_, st, err := loadStore(inputFile, params)
	if err != nil {
		return err
	}
	b := newBuilder(params)

	if targetsCSV == "" {
		rec, err := b.TargetCounts(st, params.GetMode(), newQuery(params, targetMz))
		if err != nil {
			return err
		}
		return writeJSON(cmd, rec)
	}

	targets, err := loadTargetsCSV(targetsCSV)
	if err != nil {
		return fmt.Errorf("failed to load targets CSV: %w", err)
	}
	pol, err := core.ParseMode(params.GetMode())
	if err != nil {
		return err
	}
	series, err := st.SeriesFor(pol)
	if err != nil {
		return err
	}
	queries, err := targetQueries(targets, pol, params)
	if err != nil {
		return err
	}

	out, err := b.BatchXIC(context.Background(), series, queries, params.GetWorkers())
	if err != nil {
		return err
	}
	records := make(map[string]core.SignalRecord, len(out))
	for i, s := range out {
		records[targets[i].Name] = s.Record()
	}
	return writeJSON(cmd, records)
}

func runSpectra(cmd *cobra.Command, args []string) error {
	params, err := resolveParams(cmd)
	if err != nil {
		return err
	}
	exp, err := loadExperiment(inputFile, params)
	if err != nil {
		return err
	}
	records, err := core.ExtractScanRecords(exp)
	if err != nil {
		return err
	}

	w, closeFn, err := openOutput(cmd, outputFile)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			closeFn()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return closeFn()
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	w, closeFn, err := openOutput(cmd, outputFile)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		closeFn()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return closeFn()
}
