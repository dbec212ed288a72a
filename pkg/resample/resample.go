package resample

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

const (
	// DefaultSeqLen is the length of every normalized series.
	DefaultSeqLen = 2048
	// DefaultMaxTime is the retention time cutoff in seconds.
	DefaultMaxTime = 402.0
	// DefaultStep is the grid spacing in seconds.
	DefaultStep = 0.2
)

var (
	// ErrInvalidConfig indicates an unusable resampling configuration.
	ErrInvalidConfig = errors.New("resample: invalid config")
	// ErrUnorderedTimes indicates time points that are not strictly increasing.
	ErrUnorderedTimes = errors.New("resample: times not strictly increasing")
	// ErrLengthMismatch indicates fewer values than time points.
	ErrLengthMismatch = errors.New("resample: fewer values than times")
	// ErrGridOverflow indicates a grid longer than the target sequence length.
	ErrGridOverflow = errors.New("resample: grid longer than sequence length")
)

// Config holds the resampling parameters.
type Config struct {
	SeqLen  int
	MaxTime float64
	Step    float64
}

// DefaultConfig returns the default resampling parameters.
func DefaultConfig() Config {
	return Config{
		SeqLen:  DefaultSeqLen,
		MaxTime: DefaultMaxTime,
		Step:    DefaultStep,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.SeqLen < 1 {
		return fmt.Errorf("%w: sequence length must be positive, got %d", ErrInvalidConfig, c.SeqLen)
	}
	if !(c.Step > 0) || math.IsInf(c.Step, 0) {
		return fmt.Errorf("%w: step must be positive and finite, got %g", ErrInvalidConfig, c.Step)
	}
	if math.IsNaN(c.MaxTime) {
		return fmt.Errorf("%w: max time is NaN", ErrInvalidConfig)
	}
	return nil
}

// GridLen returns the number of grid points in the half-open range
// [lo, hi) with spacing step. Counts that do not fit in an int saturate at
// math.MaxInt.
func GridLen(lo, hi, step float64) int {
	if hi <= lo {
		return 0
	}
	n := math.Ceil((hi - lo) / step)
	if !(n < math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}

// Resample converts an irregular (times, values) series into a normalized
// series of exactly c.SeqLen points.
//
// Times beyond min(c.MaxTime, max(times)) are dropped together with the
// matching prefix of values. The remaining points are linearly interpolated
// onto lo, lo+step, ... below hi and zero-padded on both sides, with any odd
// padding element on the right.
func (c Config) Resample(times, values []float64) (core.Series, error) {
	if err := c.Validate(); err != nil {
		return core.Series{}, err
	}
	if len(times) == 0 {
		return core.Series{}, &core.InsufficientDataError{Points: 0}
	}
	if floats.Min(times) == floats.Max(times) {
		return core.Series{}, &core.InsufficientDataError{Points: 1}
	}
	if len(values) < len(times) {
		return core.Series{}, fmt.Errorf("%w: %d times, %d values", ErrLengthMismatch, len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return core.Series{}, fmt.Errorf("%w: index %d (%g after %g)", ErrUnorderedTimes, i, times[i], times[i-1])
		}
	}

	cutoff := math.Min(c.MaxTime, times[len(times)-1])
	n := sort.Search(len(times), func(i int) bool { return times[i] > cutoff })
	if n < 2 {
		return core.Series{}, &core.InsufficientDataError{Points: n}
	}
	kept, keptValues := times[:n], values[:n]

	var f linear
	if err := f.Fit(kept, keptValues); err != nil {
		return core.Series{}, err
	}

	lo, hi := kept[0], kept[n-1]
	if span := (hi - lo) / c.Step; !(span <= float64(c.SeqLen)) {
		return core.Series{}, fmt.Errorf("%w: %g grid points over [%g, %g) at step %g exceed %d",
			ErrGridOverflow, math.Ceil(span), lo, hi, c.Step, c.SeqLen)
	}
	g := GridLen(lo, hi, c.Step)

	padLeft := (c.SeqLen - g) / 2
	out := core.Series{
		Times:    make([]float64, c.SeqLen),
		Values:   make([]float64, c.SeqLen),
		PadLeft:  padLeft,
		PadRight: c.SeqLen - padLeft - g,
	}
	for i := 0; i < g; i++ {
		t := lo + float64(i)*c.Step
		out.Times[padLeft+i] = t
		out.Values[padLeft+i] = f.Predict(t)
	}
	return out, nil
}

// Resample normalizes a series with the default configuration.
func Resample(times, values []float64) (core.Series, error) {
	return DefaultConfig().Resample(times, values)
}

// linear is a piecewise-linear interpolant that extends its first and last
// segments beyond the fitted domain.
type linear struct {
	pl     interp.PiecewiseLinear
	x0, xn float64
	y0, yn float64
	s0, sn float64 // slopes of the first and last segments
}

func (l *linear) Fit(xs, ys []float64) error {
	if err := l.pl.Fit(xs, ys); err != nil {
		return fmt.Errorf("resample: %w", err)
	}
	n := len(xs)
	l.x0, l.xn = xs[0], xs[n-1]
	l.y0, l.yn = ys[0], ys[n-1]
	l.s0 = (ys[1] - ys[0]) / (xs[1] - xs[0])
	l.sn = (ys[n-1] - ys[n-2]) / (xs[n-1] - xs[n-2])
	return nil
}

func (l *linear) Predict(x float64) float64 {
	switch {
	case x < l.x0:
		return l.y0 + (x-l.x0)*l.s0
	case x > l.xn:
		return l.yn + (x-l.xn)*l.sn
	default:
		return l.pl.Predict(x)
	}
}
