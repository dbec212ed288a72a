// Package filter provides peak clean-up applied to scans before extraction
package filter

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"gonum.org/v1/gonum/floats"
)

// Config holds filtering configuration
type Config struct {
	DropZero        bool    // Remove peaks with zero or negative intensity
	TopN            int     // Keep only top N most intense peaks (0 = no limit)
	IntensityCutoff float64 // Keep only peaks above this % of base peak (0 = no cutoff)
	MinMz           float64 // Lower m/z bound (0 = none)
	MaxMz           float64 // Upper m/z bound (0 = none)
}

// Enabled reports whether any filter is configured.
func (c Config) Enabled() bool {
	return c.DropZero || c.TopN > 0 || c.IntensityCutoff > 0 || c.MinMz > 0 || c.MaxMz > 0
}

// Validate checks the filter settings.
func (c Config) Validate() error {
	if c.TopN < 0 {
		return fmt.Errorf("top-n must be non-negative, got %d", c.TopN)
	}
	if c.IntensityCutoff < 0 || c.IntensityCutoff > 100 {
		return fmt.Errorf("intensity cutoff must be within 0-100%%, got %g", c.IntensityCutoff)
	}
	if c.MaxMz > 0 && c.MinMz >= c.MaxMz {
		return fmt.Errorf("min m/z %g must be below max m/z %g", c.MinMz, c.MaxMz)
	}
	return nil
}

// Apply applies all configured filters to a scan. Masses stay sorted.
func (c *Config) Apply(scan *core.Scan) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(scan.Masses) != len(scan.Intensities) {
		return fmt.Errorf("scan %s has %d masses and %d intensities",
			scan.Name(), len(scan.Masses), len(scan.Intensities))
	}

	if c.DropZero {
		RemoveZeroIntensityPeaks(scan)
	}

	if c.MinMz > 0 || c.MaxMz > 0 {
		c.filterByMz(scan)
	}

	// Apply intensity filters
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(scan)
	}

	// Apply top-N filter
	if c.TopN > 0 {
		c.filterTopN(scan)
	}

	// Ensure peaks are sorted after all filtering
	scan.SortPeaks()

	return nil
}

// ApplyAll filters every scan of an experiment in place.
func (c *Config) ApplyAll(exp *core.Experiment) error {
	for i := range exp.Scans {
		if err := c.Apply(&exp.Scans[i]); err != nil {
			return fmt.Errorf("failed to filter scan %s: %w", exp.Scans[i].Name(), err)
		}
	}
	return nil
}

// keep retains peaks for which pred returns true.
func keep(scan *core.Scan, pred func(mz, inty float64) bool) {
	n := 0
	for i := range scan.Masses {
		if pred(scan.Masses[i], scan.Intensities[i]) {
			scan.Masses[n] = scan.Masses[i]
			scan.Intensities[n] = scan.Intensities[i]
			n++
		}
	}
	scan.Masses = scan.Masses[:n]
	scan.Intensities = scan.Intensities[:n]
}

func (c *Config) filterByMz(scan *core.Scan) {
	keep(scan, func(mz, _ float64) bool {
		if c.MinMz > 0 && mz < c.MinMz {
			return false
		}
		if c.MaxMz > 0 && mz > c.MaxMz {
			return false
		}
		return true
	})
}

// filterByIntensity removes peaks below the intensity cutoff percentage
func (c *Config) filterByIntensity(scan *core.Scan) {
	if len(scan.Intensities) == 0 {
		return
	}

	threshold := (c.IntensityCutoff / 100.0) * floats.Max(scan.Intensities)
	keep(scan, func(_, inty float64) bool {
		return inty >= threshold
	})
}

// filterTopN keeps only the N most intense peaks
func (c *Config) filterTopN(scan *core.Scan) {
	if len(scan.Masses) <= c.TopN {
		return
	}

	order := make([]int, len(scan.Intensities))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scan.Intensities[order[i]] > scan.Intensities[order[j]]
	})
	order = order[:c.TopN]
	sort.Ints(order)

	masses := make([]float64, c.TopN)
	intensities := make([]float64, c.TopN)
	for k, idx := range order {
		masses[k] = scan.Masses[idx]
		intensities[k] = scan.Intensities[idx]
	}
	scan.Masses = masses
	scan.Intensities = intensities
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(scan *core.Scan) {
	keep(scan, func(_, inty float64) bool {
		return inty > 0
	})
}
