// Package resample converts irregularly sampled (time, value) series into
// fixed-length, evenly spaced, zero-padded series.
//
// Pipeline:
//   - truncate at min(MaxTime, last time)
//   - fit a piecewise-linear interpolant (linear extrapolation past the ends)
//   - evaluate on lo, lo+Step, ... strictly below the last retained time
//   - zero-pad times and values to SeqLen, centring the observed region
//
// Padded entries carry time 0 as a sentinel, not an extrapolated timestamp.
// A grid longer than SeqLen is rejected with ErrGridOverflow.
package resample
