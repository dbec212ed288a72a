package core

import "fmt"

// DataLoadError reports that an experiment could not be loaded or parsed.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load experiment: %v", e.Err)
	}
	return fmt.Sprintf("failed to load experiment %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// InvalidModeError reports a polarity mode other than "pos" or "neg".
type InvalidModeError struct {
	Mode string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("mode must be '%s' or '%s', got '%s'", ModePositive, ModeNegative, e.Mode)
}

// MissingPrecursorError reports an MS2 scan without precursor information.
type MissingPrecursorError struct {
	ScanID string
	Source string
}

func (e *MissingPrecursorError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("MS2 spectrum %s without precursor information", e.ScanID)
	}
	return fmt.Sprintf("MS2 spectrum %s without precursor information in %s", e.ScanID, e.Source)
}

// InsufficientDataError reports a series with fewer than two distinct time
// points, which leaves nothing to interpolate over.
type InsufficientDataError struct {
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least 2 distinct time points to resample, got %d", e.Points)
}
