package chrom

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"github.com/ChrisMcGann/msnorm/pkg/resample"
	"github.com/ChrisMcGann/msnorm/pkg/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeScanSeries() core.ScanSeries {
	masses := []float64{100.0, 200.0, 300.0}
	return core.ScanSeries{
		{RetentionTime: 1.0, Polarity: core.Positive, Level: 1, Masses: masses, Intensities: []float64{10, 20, 30}},
		{RetentionTime: 2.0, Polarity: core.Positive, Level: 1, Masses: masses, Intensities: []float64{40, 50, 60}},
		{RetentionTime: 3.0, Polarity: core.Positive, Level: 1, Masses: masses, Intensities: []float64{70, 80, 90}},
	}
}

func TestRawXICWideWindow(t *testing.T) {
	b := NewBuilder()
	q := Query{Mz: 200.0, PPM: 10000, Interpolate: false}

	got, err := b.XIC(threeScanSeries(), q)
	require.NoError(t, err)

	if diff := cmp.Diff([]float64{20, 50, 80}, got.Values); diff != "" {
		t.Errorf("raw XIC mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 2, 3}, got.Times); diff != "" {
		t.Errorf("raw XIC times mismatch (-want +got):\n%s", diff)
	}
}

func TestRawXICEmptyWindow(t *testing.T) {
	b := NewBuilder()
	q := Query{Mz: 150.0, PPM: 1.0}

	got := b.RawXIC(threeScanSeries(), q)
	if diff := cmp.Diff([]float64{0, 0, 0}, got.Values); diff != "" {
		t.Errorf("empty-window XIC mismatch (-want +got):\n%s", diff)
	}
}

func TestRawTIC(t *testing.T) {
	got := NewBuilder().RawTIC(threeScanSeries())
	if diff := cmp.Diff([]float64{60, 150, 240}, got.Values); diff != "" {
		t.Errorf("raw TIC mismatch (-want +got):\n%s", diff)
	}
}

func TestXICInterpolated(t *testing.T) {
	b := NewBuilder()
	q := NewQuery(200.0)
	q.PPM = 10000

	got, err := b.XIC(threeScanSeries(), q)
	require.NoError(t, err)
	require.Equal(t, resample.DefaultSeqLen, got.Len())

	obs := got.Observed()
	require.NotZero(t, obs.Len())
	assert.InDelta(t, 20.0, obs.Values[0], 1e-9)
	assert.InDelta(t, 1.0, obs.Times[0], 1e-12)
}

func TestXICRejectsBadTolerance(t *testing.T) {
	b := NewBuilder()
	_, err := b.XIC(threeScanSeries(), Query{Mz: 200, PPM: -4})
	assert.Error(t, err)
}

func triangle(t, center, halfWidth float64) float64 {
	return math.Max(0, 1e6*(1-math.Abs(t-center)/halfWidth))
}

func TestTICRecoversPulse(t *testing.T) {
	const center = 42.3
	var series core.ScanSeries
	for i := 0; i < 1000; i++ {
		rt := 0.05 + float64(i)*0.1
		if i%2 == 1 {
			rt += 0.01
		}
		v := triangle(rt, center, 5)
		series = append(series, core.Scan{
			RetentionTime: rt,
			Polarity:      core.Positive,
			Level:         1,
			Masses:        []float64{100, 200, 300},
			Intensities:   []float64{0.5 * v, 0.3 * v, 0.2 * v},
		})
	}

	out, err := NewBuilder().TIC(series)
	require.NoError(t, err)
	require.Equal(t, resample.DefaultSeqLen, out.Len())

	peak := 0
	for i, v := range out.Values {
		if v > out.Values[peak] {
			peak = i
		}
	}
	assert.InDelta(t, center, out.Times[peak], resample.DefaultStep)
}

func TestTICInsufficientData(t *testing.T) {
	series := threeScanSeries()[:1]
	_, err := NewBuilder().TIC(series)

	var insErr *core.InsufficientDataError
	assert.True(t, errors.As(err, &insErr), "got %v", err)
}

func TestCountsInvalidModeBeforeScanAccess(t *testing.T) {
	b := NewBuilder()

	// A nil store proves the mode is rejected before any scan is touched.
	var st *store.Store

	_, err := b.TargetCounts(st, "xyz", NewQuery(200))
	var modeErr *core.InvalidModeError
	require.True(t, errors.As(err, &modeErr), "got %v", err)

	_, err = b.TICCounts(st, "xyz")
	assert.True(t, errors.As(err, &modeErr), "got %v", err)
}

func TestCountsFromStore(t *testing.T) {
	exp := &core.Experiment{Scans: threeScanSeries()}
	st, err := store.New(exp)
	require.NoError(t, err)

	b := NewBuilder()
	q := NewQuery(200.0)
	q.PPM = 10000
	q.Interpolate = false

	rec, err := b.TargetCounts(st, "pos", q)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 50, 80}, rec.Counts)
	assert.Equal(t, []float64{1, 2, 3}, rec.RT)

	tic, err := b.TICCounts(st, "pos")
	require.NoError(t, err)
	assert.Len(t, tic.Counts, resample.DefaultSeqLen)

	_, err = b.TICCounts(st, "neg")
	var insErr *core.InsufficientDataError
	assert.True(t, errors.As(err, &insErr), "no negative scans, got %v", err)
}

func TestBatchXICMatchesSequential(t *testing.T) {
	t.Parallel()

	series := threeScanSeries()
	b := NewBuilder()

	var queries []Query
	for i := 0; i < 40; i++ {
		q := NewQuery(60 + float64(i)*10)
		q.PPM = 50000
		queries = append(queries, q)
	}

	got, err := b.BatchXIC(context.Background(), series, queries, 4)
	require.NoError(t, err)
	require.Len(t, got, len(queries))

	for i, q := range queries {
		want, err := b.XIC(series, q)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got[i]); diff != "" {
			t.Errorf("query %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestBatchXICPropagatesError(t *testing.T) {
	t.Parallel()

	queries := []Query{NewQuery(200), {Mz: 300, PPM: -1}, NewQuery(100)}
	_, err := NewBuilder().BatchXIC(context.Background(), threeScanSeries(), queries, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query 1")
}

func TestBatchXICCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder().BatchXIC(ctx, threeScanSeries(), []Query{NewQuery(200)}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
