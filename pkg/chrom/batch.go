package chrom

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ChrisMcGann/msnorm/pkg/core"
	"golang.org/x/sync/errgroup"
)

// BatchXIC computes one chromatogram per query using up to workers
// goroutines (runtime.NumCPU() when workers < 1). Results are returned in
// query order. The first failing query cancels the remaining ones and its
// error is returned.
func (b *Builder) BatchXIC(ctx context.Context, series core.ScanSeries, queries []Query, workers int) ([]core.Series, error) {
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	results := make([]core.Series, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, q := range queries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := b.XIC(series, q)
			if err != nil {
				return fmt.Errorf("query %d (m/z %.4f): %w", i, q.Mz, err)
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
