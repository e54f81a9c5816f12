package backtest

import (
	"context"
	"fmt"
	"runtime"

	"forecast-backtest/internal/features"
	"forecast-backtest/internal/strategy"

	"golang.org/x/sync/errgroup"
)

// SweepResult is one threshold's run within a sweep.
type SweepResult struct {
	Threshold float64 `json:"threshold"`
	Stats     Stats   `json:"stats"`
	Result    *Result `json:"-"`
}

// Sweep runs one independent backtest per threshold over the same matrix and
// forecasts. Runs share only read-only inputs, so they execute in parallel on
// up to workers goroutines (GOMAXPROCS when workers <= 0). Results come back
// in threshold order. The first failing run cancels the rest.
func Sweep(ctx context.Context, m *features.Matrix, forecasts []float64, thresholds []float64, workers int) ([]SweepResult, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("no thresholds to sweep")
	}
	strats := make([]*strategy.Threshold, len(thresholds))
	for i, th := range thresholds {
		s, err := strategy.NewThreshold(th)
		if err != nil {
			return nil, err
		}
		strats[i] = s
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]SweepResult, len(thresholds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	engine := New()

	for i := range strats {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := engine.RunForecasts(m, forecasts, strats[i])
			if err != nil {
				return fmt.Errorf("threshold %v: %w", thresholds[i], err)
			}
			out[i] = SweepResult{Threshold: thresholds[i], Stats: res.Stats, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
