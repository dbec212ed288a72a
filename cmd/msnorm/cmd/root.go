// Package cmd provides CLI command implementations
package cmd

import (
	"github.com/ChrisMcGann/msnorm/internal/monitoring"
	"github.com/ChrisMcGann/msnorm/pkg/resample"
	"github.com/ChrisMcGann/msnorm/pkg/search"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool

	// Extraction flags
	inputFile     string
	mode          string
	targetMz      float64
	ppm           float64
	ppmOffset     float64
	raw           bool
	seqLen        int
	maxTime       float64
	step          float64
	lowMz         float64
	highMz        float64
	targetsCSV    string
	outputFile    string
	workers       int
	topN          int
	cutoffPercent float64
	dropZero      bool
	minPeakMz     float64
	maxPeakMz     float64

	// Export and plot flags
	modes     string
	withScans bool
	fullRange bool
)

var rootCmd = &cobra.Command{
	Use:   "msnorm",
	Short: "msnorm - Fixed-length chromatogram extraction",
	Long: `msnorm extracts total-ion and extracted-ion chromatograms from mzML files
and resamples them onto a fixed-length, evenly spaced, zero-padded grid.

Supports:
- TIC and per-target XIC extraction with ppm windows
- Target lists by m/z or molecular formula
- Peak clean-up (zero removal, top-N, intensity cutoff, m/z range)
- SQLite export, JSON records, PNG and HTML plots`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		monitoring.SetVerbose(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a JSON parameter file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug diagnostics")

	for _, c := range []*cobra.Command{ticCmd, xicCmd, spectraCmd, exportCmd, plotCmd} {
		addFilterFlags(c)
	}
	for _, c := range []*cobra.Command{ticCmd, xicCmd, exportCmd, plotCmd} {
		addSignalFlags(c)
	}
	for _, c := range []*cobra.Command{ticCmd, xicCmd, spectraCmd, plotCmd} {
		c.Flags().StringVarP(&inputFile, "in", "i", "", "Input mzML file (required)")
		c.MarkFlagRequired("in")
	}
	for _, c := range []*cobra.Command{ticCmd, xicCmd, spectraCmd} {
		c.Flags().StringVarP(&outputFile, "out", "o", "", "Output file (default stdout)")
	}

	xicCmd.Flags().Float64Var(&targetMz, "mz", 0, "Target m/z")
	xicCmd.Flags().StringVar(&targetsCSV, "targets", "", "Path to targets CSV (Name,Target)")

	exportCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output database file (required)")
	exportCmd.Flags().StringVar(&targetsCSV, "targets", "", "Path to targets CSV (Name,Target)")
	exportCmd.Flags().StringVar(&modes, "modes", "pos,neg", "Comma-separated polarity modes to export")
	exportCmd.Flags().BoolVar(&withScans, "scans", false, "Also store per-scan records")
	exportCmd.MarkFlagRequired("out")

	plotCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output image (.png, .svg, .pdf) or chart (.html) (required)")
	plotCmd.Flags().Float64Var(&targetMz, "mz", 0, "Target m/z (default: plot the TIC)")
	plotCmd.Flags().StringVar(&targetsCSV, "targets", "", "Path to targets CSV (Name,Target)")
	plotCmd.Flags().BoolVar(&fullRange, "full", false, "Include the zero padding")
	plotCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(ticCmd)
	rootCmd.AddCommand(xicCmd)
	rootCmd.AddCommand(spectraCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(summarizeCmd)
}

// addSignalFlags registers the window and resampling flags.
func addSignalFlags(c *cobra.Command) {
	c.Flags().StringVarP(&mode, "mode", "m", "pos", "Polarity mode: pos or neg")
	c.Flags().Float64Var(&ppm, "ppm", search.DefaultPPM, "Mass window half-width in ppm")
	c.Flags().Float64Var(&ppmOffset, "offset", 0, "Mass window center shift in ppm")
	c.Flags().BoolVar(&raw, "raw", false, "Skip resampling and emit one point per scan")
	c.Flags().IntVar(&seqLen, "seq-len", resample.DefaultSeqLen, "Length of every resampled series")
	c.Flags().Float64Var(&maxTime, "max-time", resample.DefaultMaxTime, "Retention time cutoff in seconds")
	c.Flags().Float64Var(&step, "step", resample.DefaultStep, "Grid spacing in seconds")
	c.Flags().Float64Var(&lowMz, "low-mz", search.DefaultLowCutoff, "Targets at or below this m/z yield zero")
	c.Flags().Float64Var(&highMz, "high-mz", search.DefaultHighCutoff, "Targets at or above this m/z yield zero")
	c.Flags().IntVar(&workers, "workers", 0, "Number of worker goroutines (0 = one per CPU)")
}

// addFilterFlags registers the peak clean-up flags.
func addFilterFlags(c *cobra.Command) {
	c.Flags().IntVar(&topN, "top-n", 0, "Keep only top N most intense peaks (0 = no limit)")
	c.Flags().Float64Var(&cutoffPercent, "cutoff", 0, "Intensity cutoff as % of base peak (0 = no cutoff)")
	c.Flags().BoolVar(&dropZero, "drop-zero", false, "Remove zero intensity peaks")
	c.Flags().Float64Var(&minPeakMz, "min-mz", 0, "Drop peaks below this m/z (0 = none)")
	c.Flags().Float64Var(&maxPeakMz, "max-mz", 0, "Drop peaks above this m/z (0 = none)")
}
