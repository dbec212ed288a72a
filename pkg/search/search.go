// Package search finds the most intense peak inside a ppm mass window.
package search

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultPPM is the default window half-width in parts per million.
	DefaultPPM = 4.0
	// DefaultLowCutoff and DefaultHighCutoff bound the instrument range.
	// Targets at or beyond them always yield 0.
	DefaultLowCutoff  = 51.0
	DefaultHighCutoff = 999.0
)

// ErrInvalidConfig indicates an unusable window configuration.
var ErrInvalidConfig = errors.New("search: invalid config")

// Config holds the window search parameters.
type Config struct {
	PPM        float64 // window half-width in ppm of the effective target
	PPMOffset  float64 // shift applied to the target before windowing
	LowCutoff  float64
	HighCutoff float64
}

// DefaultConfig returns the default window parameters.
func DefaultConfig() Config {
	return Config{
		PPM:        DefaultPPM,
		LowCutoff:  DefaultLowCutoff,
		HighCutoff: DefaultHighCutoff,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PPM < 0 || math.IsNaN(c.PPM) {
		return fmt.Errorf("%w: ppm must be non-negative, got %g", ErrInvalidConfig, c.PPM)
	}
	if math.IsNaN(c.PPMOffset) || math.IsInf(c.PPMOffset, 0) {
		return fmt.Errorf("%w: ppm offset must be finite", ErrInvalidConfig)
	}
	if !(c.LowCutoff < c.HighCutoff) {
		return fmt.Errorf("%w: low cutoff %g must be below high cutoff %g", ErrInvalidConfig, c.LowCutoff, c.HighCutoff)
	}
	return nil
}

// Window is a closed m/z interval around an effective target.
type Window struct {
	Target float64
	Start  float64
	End    float64
}

// Window returns the search window for a requested target m/z.
func (c Config) Window(targetMz float64) Window {
	target := targetMz * (1 + c.PPMOffset/1e6)
	tol := c.PPM * target / 1e6
	return Window{Target: target, Start: target - tol, End: target + tol}
}

// InRange reports whether the requested target lies strictly inside the
// instrument cutoffs.
func (c Config) InRange(targetMz float64) bool {
	return targetMz > c.LowCutoff && targetMz < c.HighCutoff
}

// Search returns the maximum intensity of scan within the window around
// targetMz, or 0 when the target is out of range or no peak falls inside.
func (c Config) Search(scan *core.Scan, targetMz float64) float64 {
	if !c.InRange(targetMz) {
		return 0.0
	}
	return MaxInWindow(scan.Masses, scan.Intensities, c.Window(targetMz))
}

// MaxInWindow returns the maximum intensity over peaks with
// w.Start <= mass <= w.End. masses must be sorted ascending. Empty windows
// and all-negative intensities yield 0.
func MaxInWindow(masses, intensities []float64, w Window) float64 {
	lo, hi := Bounds(masses, w)
	if lo >= hi {
		return 0.0
	}
	return math.Max(0.0, floats.Max(intensities[lo:hi]))
}

// Bounds returns the half-open index range [lo, hi) of masses inside w:
// lo is the first index with mass >= w.Start and hi the first with
// mass > w.End.
func Bounds(masses []float64, w Window) (lo, hi int) {
	lo = sort.SearchFloat64s(masses, w.Start)
	hi = sort.Search(len(masses), func(i int) bool { return masses[i] > w.End })
	return lo, hi
}
