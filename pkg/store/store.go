// Package store partitions an experiment's survey scans by polarity.
package store

import (
	"fmt"

	"github.com/ChrisMcGann/msnorm/internal/monitoring"
	"github.com/ChrisMcGann/msnorm/pkg/core"
)

// Store holds the level-1 scans of an experiment, split by polarity and kept
// in acquisition order. It is read-only after New returns, so concurrent
// readers need no locking.
type Store struct {
	source string
	pos    core.ScanSeries
	neg    core.ScanSeries
}

// New validates the experiment's scans and builds a Store. A scan that fails
// validation, or a polarity whose retention times are not strictly
// increasing, is reported as a *core.ValidationError.
func New(exp *core.Experiment) (*Store, error) {
	s := &Store{source: exp.SourceFile}

	skipped := 0
	for i := range exp.Scans {
		sc := &exp.Scans[i]
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scan in %s: %w", exp.SourceFile, err)
		}
		if sc.Level != 1 {
			continue
		}

		switch sc.Polarity {
		case core.Positive:
			s.pos = append(s.pos, *sc)
		case core.Negative:
			s.neg = append(s.neg, *sc)
		default:
			skipped++
		}
	}
	if skipped > 0 {
		monitoring.Debugf("store: skipped %d survey scans without polarity in %s", skipped, exp.SourceFile)
	}

	for _, series := range []core.ScanSeries{s.pos, s.neg} {
		if err := checkOrdered(series); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func checkOrdered(series core.ScanSeries) error {
	for i := 1; i < len(series); i++ {
		if series[i].RetentionTime <= series[i-1].RetentionTime {
			return &core.ValidationError{
				Field: series[i].Name(),
				Message: fmt.Sprintf("retention time %.4f does not follow %.4f of %s",
					series[i].RetentionTime, series[i-1].RetentionTime, series[i-1].Name()),
			}
		}
	}
	return nil
}

// Series returns the survey scans for mode ("pos" or "neg"). The returned
// slice is shared and must not be modified.
func (s *Store) Series(mode string) (core.ScanSeries, error) {
	pol, err := core.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return s.SeriesFor(pol)
}

// SeriesFor returns the survey scans for a polarity.
func (s *Store) SeriesFor(p core.Polarity) (core.ScanSeries, error) {
	switch p {
	case core.Positive:
		return s.pos, nil
	case core.Negative:
		return s.neg, nil
	default:
		return nil, &core.InvalidModeError{Mode: p.String()}
	}
}

// Len returns the number of survey scans for a polarity.
func (s *Store) Len(p core.Polarity) int {
	series, err := s.SeriesFor(p)
	if err != nil {
		return 0
	}
	return len(series)
}

// Source returns the file the experiment was loaded from.
func (s *Store) Source() string {
	return s.source
}
