package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ChrisMcGann/msnorm/pkg/chrom"
	"github.com/ChrisMcGann/msnorm/pkg/config"
	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/ChrisMcGann/msnorm/pkg/reader/mzml"
	"github.com/ChrisMcGann/msnorm/pkg/store"
	"github.com/spf13/cobra"
)

// resolveParams loads --config and applies every flag set on the command
// line on top of it.
func resolveParams(cmd *cobra.Command) (*config.Params, error) {
	params := config.Empty()
	if configFile != "" {
		p, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		params = p
	}

	f := cmd.Flags()
	if f.Changed("mode") {
		params.Mode = &mode
	}
	if f.Changed("ppm") {
		params.PPM = &ppm
	}
	if f.Changed("offset") {
		params.PPMOffset = &ppmOffset
	}
	if f.Changed("seq-len") {
		params.SeqLen = &seqLen
	}
	if f.Changed("max-time") {
		params.MaxTime = &maxTime
	}
	if f.Changed("step") {
		params.Step = &step
	}
	if f.Changed("low-mz") {
		params.LowMzCutoff = &lowMz
	}
	if f.Changed("high-mz") {
		params.HighMzCutoff = &highMz
	}
	if f.Changed("workers") {
		params.Workers = &workers
	}
	if f.Changed("top-n") {
		params.TopN = &topN
	}
	if f.Changed("cutoff") {
		params.IntensityCutoff = &cutoffPercent
	}
	if f.Changed("drop-zero") {
		params.DropZero = &dropZero
	}
	if f.Changed("min-mz") {
		params.MinMz = &minPeakMz
	}
	if f.Changed("max-mz") {
		params.MaxMz = &maxPeakMz
	}

	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return params, nil
}

func newBuilder(params *config.Params) *chrom.Builder {
	return &chrom.Builder{
		Search:   params.SearchConfig(),
		Resample: params.ResampleConfig(),
	}
}

func newQuery(params *config.Params, mz float64) chrom.Query {
	return chrom.Query{
		Mz:          mz,
		PPM:         params.GetPPM(),
		PPMOffset:   params.GetPPMOffset(),
		Interpolate: !raw,
	}
}

// loadExperiment reads an mzML file and applies the configured peak filters.
func loadExperiment(path string, params *config.Params) (*core.Experiment, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file does not exist: %s", path)
	}

	exp, err := mzml.Load(path)
	if err != nil {
		return nil, err
	}

	fc := params.FilterConfig()
	if fc.Enabled() {
		if err := fc.ApplyAll(exp); err != nil {
			return nil, err
		}
	}
	return exp, nil
}

// loadStore reads path and partitions its survey scans.
func loadStore(path string, params *config.Params) (*core.Experiment, *store.Store, error) {
	exp, err := loadExperiment(path, params)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(exp)
	if err != nil {
		return nil, nil, err
	}
	return exp, st, nil
}

// openOutput returns stdout for "" or "-", otherwise a created file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
