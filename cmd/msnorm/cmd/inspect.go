package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ChrisMcGann/msnorm/pkg/config"
	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/ChrisMcGann/msnorm/pkg/writer/sqlite"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate an mzML file",
	Long: `Validate that an mzML file parses, that its survey scans are sorted and in
acquisition order per polarity, and that every MS2 scan has a precursor.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Summarize an exported database",
	Long:  `Print the runs of a database written by export with their chromatogram and scan counts.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := args[0]

	exp, st, err := loadStore(path, config.Empty())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "File: %s\n", path)
	if exp.ID != "" {
		fmt.Fprintf(out, "Run: %s\n", exp.ID)
	}
	fmt.Fprintf(out, "Spectra: %d\n", len(exp.Scans))

	counts := exp.CountByPolarity()
	for _, pol := range []core.Polarity{core.Positive, core.Negative, core.PolarityUnknown} {
		levels := counts[pol]
		if len(levels) == 0 {
			continue
		}
		keys := make([]int, 0, len(levels))
		for lvl := range levels {
			keys = append(keys, lvl)
		}
		sort.Ints(keys)
		for _, lvl := range keys {
			fmt.Fprintf(out, "  %-7s MS%d: %d\n", pol, lvl, levels[lvl])
		}
	}
	if n := len(counts[core.PolarityUnknown]); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: spectra without polarity are ignored\n")
	}

	for _, pol := range []core.Polarity{core.Positive, core.Negative} {
		if st.Len(pol) == 1 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s mode has a single survey scan and cannot be resampled\n", pol)
		}
	}

	if _, err := core.ExtractScanRecords(exp); err != nil {
		var precErr *core.MissingPrecursorError
		if errors.As(err, &precErr) {
			return fmt.Errorf("invalid file: %w", err)
		}
		return err
	}

	fmt.Fprintf(out, "Valid\n")
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	r, err := sqlite.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	sum, err := r.Summarize()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Database: %s (schema v%d)\n", args[0], sum.SchemaVersion)
	fmt.Fprintf(out, "Runs: %d\n", len(sum.Runs))
	for _, run := range sum.Runs {
		fmt.Fprintf(out, "\n%s\n", run.SourceFile)
		fmt.Fprintf(out, "  Run ID: %s\n", run.ID)
		fmt.Fprintf(out, "  Created: %s\n", run.CreationDate)
		fmt.Fprintf(out, "  Spectra: %d\n", run.ScanCount)
		fmt.Fprintf(out, "  Sequence length: %d\n", run.SeqLen)
		fmt.Fprintf(out, "  TIC: %d  XIC: %d\n", run.TICs, run.XICs)
		if run.StoredScans > 0 {
			fmt.Fprintf(out, "  Stored scans: %d\n", run.StoredScans)
		}
	}
	return nil
}
