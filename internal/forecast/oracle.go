// Package forecast holds the point forecasters consumed by the backtest.
// The backtest only relies on the Oracle contract: Fit mutates the oracle's
// state, and Predict returns one value per input row, deterministically for a
// fixed fitted state.
package forecast

import (
	"errors"
	"fmt"
)

// Oracle is a trainable regressor.
type Oracle interface {
	Name() string
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

var ErrNotFitted = errors.New("forecast: oracle is not fitted")

// Func adapts a plain prediction function into an Oracle. Fit is a no-op.
// Useful for stub forecasts and for forecasts computed elsewhere.
type Func func(X [][]float64) ([]float64, error)

func (f Func) Name() string { return "func" }

func (f Func) Fit([][]float64, []float64) error { return nil }

func (f Func) Predict(X [][]float64) ([]float64, error) { return f(X) }

// Fixed returns an oracle that ignores its input and replays forecasts.
// The number of rows passed to Predict must match len(forecasts).
func Fixed(forecasts []float64) Func {
	out := append([]float64(nil), forecasts...)
	return func(X [][]float64) ([]float64, error) {
		if len(X) != len(out) {
			return nil, fmt.Errorf("forecast: fixed oracle holds %d forecasts, got %d rows", len(out), len(X))
		}
		return append([]float64(nil), out...), nil
	}
}

func checkTraining(X [][]float64, y []float64) (width int, err error) {
	if len(X) == 0 {
		return 0, errors.New("forecast: no training rows")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("forecast: %d feature rows but %d targets", len(X), len(y))
	}
	return checkWidth(X, len(X[0]))
}

func checkWidth(X [][]float64, width int) (int, error) {
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("forecast: row %d has %d features, want %d", i, len(row), width)
		}
	}
	return width, nil
}
