// Package chrom builds total-ion and extracted-ion chromatograms from a
// polarity's survey scans.
package chrom

import (
	"fmt"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/ChrisMcGann/msnorm/pkg/resample"
	"github.com/ChrisMcGann/msnorm/pkg/search"
	"github.com/ChrisMcGann/msnorm/pkg/store"
)

// Builder turns scan series into chromatograms. It holds no per-call state
// and may be shared between goroutines.
type Builder struct {
	Search   search.Config
	Resample resample.Config
}

// NewBuilder returns a Builder with default window and resampling settings.
func NewBuilder() *Builder {
	return &Builder{
		Search:   search.DefaultConfig(),
		Resample: resample.DefaultConfig(),
	}
}

// Query describes one extracted-ion chromatogram.
type Query struct {
	Mz          float64
	PPM         float64
	PPMOffset   float64
	Interpolate bool
}

// NewQuery returns a query for mz with the default 4 ppm window, no offset
// and interpolation enabled.
func NewQuery(mz float64) Query {
	return Query{Mz: mz, PPM: search.DefaultPPM, Interpolate: true}
}

// window returns the builder's search config with the query's tolerances.
func (b *Builder) window(q Query) search.Config {
	cfg := b.Search
	cfg.PPM = q.PPM
	cfg.PPMOffset = q.PPMOffset
	return cfg
}

// RawTIC returns (retention time, total intensity) for every scan.
func (b *Builder) RawTIC(series core.ScanSeries) core.Series {
	raw := core.Series{
		Times:  make([]float64, len(series)),
		Values: make([]float64, len(series)),
	}
	for i := range series {
		raw.Times[i] = series[i].RetentionTime
		raw.Values[i] = series[i].TotalIntensity()
	}
	return raw
}

// TIC returns the normalized total-ion chromatogram of series.
func (b *Builder) TIC(series core.ScanSeries) (core.Series, error) {
	raw := b.RawTIC(series)
	out, err := b.Resample.Resample(raw.Times, raw.Values)
	if err != nil {
		return core.Series{}, fmt.Errorf("failed to resample TIC: %w", err)
	}
	return out, nil
}

// RawXIC returns (retention time, max in-window intensity) for every scan.
func (b *Builder) RawXIC(series core.ScanSeries, q Query) core.Series {
	cfg := b.window(q)
	raw := core.Series{
		Times:  make([]float64, len(series)),
		Values: make([]float64, len(series)),
	}
	for i := range series {
		raw.Times[i] = series[i].RetentionTime
		raw.Values[i] = cfg.Search(&series[i], q.Mz)
	}
	return raw
}

// XIC returns the extracted-ion chromatogram for q. Without
// q.Interpolate the raw per-scan series is returned unchanged.
func (b *Builder) XIC(series core.ScanSeries, q Query) (core.Series, error) {
	if err := b.window(q).Validate(); err != nil {
		return core.Series{}, err
	}
	raw := b.RawXIC(series, q)
	if !q.Interpolate {
		return raw, nil
	}
	out, err := b.Resample.Resample(raw.Times, raw.Values)
	if err != nil {
		return core.Series{}, fmt.Errorf("failed to resample XIC at m/z %.4f: %w", q.Mz, err)
	}
	return out, nil
}

// TICCounts returns the TIC record for mode ("pos" or "neg").
func (b *Builder) TICCounts(st *store.Store, mode string) (core.SignalRecord, error) {
	series, err := st.Series(mode)
	if err != nil {
		return core.SignalRecord{}, err
	}
	out, err := b.TIC(series)
	if err != nil {
		return core.SignalRecord{}, err
	}
	return out.Record(), nil
}

// TargetCounts returns the XIC record for q in mode ("pos" or "neg").
func (b *Builder) TargetCounts(st *store.Store, mode string, q Query) (core.SignalRecord, error) {
	series, err := st.Series(mode)
	if err != nil {
		return core.SignalRecord{}, err
	}
	out, err := b.XIC(series, q)
	if err != nil {
		return core.SignalRecord{}, err
	}
	return out.Record(), nil
}
