// Package core provides the scan and signal models, field extraction, and the
// error taxonomy shared by the msnorm packages.
package core

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Polarity is the ionization mode of a scan.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	Positive
	Negative
)

// Mode strings accepted on the command line and in records.
const (
	ModePositive = "pos"
	ModeNegative = "neg"
)

// String returns the record form of the polarity ("pos", "neg" or "unknown").
func (p Polarity) String() string {
	switch p {
	case Positive:
		return ModePositive
	case Negative:
		return ModeNegative
	default:
		return "unknown"
	}
}

// ParseMode converts a mode string into a Polarity. Anything other than
// "pos" or "neg" yields an *InvalidModeError.
func ParseMode(mode string) (Polarity, error) {
	switch mode {
	case ModePositive:
		return Positive, nil
	case ModeNegative:
		return Negative, nil
	default:
		return PolarityUnknown, &InvalidModeError{Mode: mode}
	}
}

// Precursor describes the selected ion of a fragmentation scan.
type Precursor struct {
	MZ                float64
	ActivationMethods []string // e.g. "HCD", "CID"
	ActivationEnergy  float64
}

// Scan is one acquisition event. Masses must be non-decreasing and
// Intensities index-aligned with Masses.
type Scan struct {
	ID            string
	Index         int
	Masses        []float64
	Intensities   []float64
	RetentionTime float64 // seconds
	Polarity      Polarity
	Level         int
	Precursors    []Precursor
}

// ScanSeries is the acquisition-ordered scans of one polarity.
type ScanSeries []Scan

// ValidationError represents an error found during scan validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a scan can take part in window searches.
func (s *Scan) Validate() error {
	var errs []string

	if len(s.Masses) != len(s.Intensities) {
		errs = append(errs, fmt.Sprintf("mass array has %d values but intensity array has %d",
			len(s.Masses), len(s.Intensities)))
	}
	if s.Level < 1 {
		errs = append(errs, "ms level must be at least 1")
	}
	if math.IsNaN(s.RetentionTime) || math.IsInf(s.RetentionTime, 0) {
		errs = append(errs, "retention time is not finite")
	}

	for i, mz := range s.Masses {
		if math.IsNaN(mz) || math.IsInf(mz, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
	}
	for i, inty := range s.Intensities {
		if math.IsNaN(inty) || math.IsInf(inty, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
	}

	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   s.Name(),
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// ArePeaksSorted checks if masses are in non-decreasing order.
func (s *Scan) ArePeaksSorted() bool {
	return sort.Float64sAreSorted(s.Masses)
}

// SortPeaks sorts masses ascending, carrying intensities along.
func (s *Scan) SortPeaks() {
	if s.ArePeaksSorted() || len(s.Masses) != len(s.Intensities) {
		return
	}
	sort.Sort(peakSorter{s})
}

type peakSorter struct{ s *Scan }

func (p peakSorter) Len() int           { return len(p.s.Masses) }
func (p peakSorter) Less(i, j int) bool { return p.s.Masses[i] < p.s.Masses[j] }
func (p peakSorter) Swap(i, j int) {
	p.s.Masses[i], p.s.Masses[j] = p.s.Masses[j], p.s.Masses[i]
	p.s.Intensities[i], p.s.Intensities[j] = p.s.Intensities[j], p.s.Intensities[i]
}

// TotalIntensity returns the sum of all intensities; 0 for an empty scan.
func (s *Scan) TotalIntensity() float64 {
	return floats.Sum(s.Intensities)
}

// Name identifies the scan in messages.
func (s *Scan) Name() string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("scan #%d", s.Index)
}

// Experiment is a parsed acquisition run as produced by a loader.
type Experiment struct {
	ID         string
	StartTime  string
	SourceFile string
	Scans      []Scan
}

// CountByPolarity returns the number of scans per polarity and MS level.
func (e *Experiment) CountByPolarity() map[Polarity]map[int]int {
	counts := make(map[Polarity]map[int]int)
	for i := range e.Scans {
		sc := &e.Scans[i]
		if counts[sc.Polarity] == nil {
			counts[sc.Polarity] = make(map[int]int)
		}
		counts[sc.Polarity][sc.Level]++
	}
	return counts
}
