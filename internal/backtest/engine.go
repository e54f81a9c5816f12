package backtest

import (
	"fmt"

	"forecast-backtest/internal/features"
	"forecast-backtest/internal/model"
	"forecast-backtest/internal/strategy"
)

// Forecaster maps predictor rows (the matrix without its target column) to one
// forecast per row.
type Forecaster interface {
	Predict(X [][]float64) ([]float64, error)
}

type Engine struct{}

func New() *Engine { return &Engine{} }

// Run is the one-call form: threshold strategy over the forecaster's output.
func Run(m *features.Matrix, f Forecaster, threshold float64) (*Result, error) {
	strat, err := strategy.NewThreshold(threshold)
	if err != nil {
		return nil, err
	}
	return New().Run(m, f, strat)
}

// Run forecasts every row of m and simulates strat over the forecasts.
func (e *Engine) Run(m *features.Matrix, f Forecaster, strat strategy.Strategy) (*Result, error) {
	if f == nil {
		return nil, fmt.Errorf("forecaster is nil")
	}
	if err := checkMatrix(m); err != nil {
		return nil, err
	}
	forecasts, err := f.Predict(m.Design(features.Target))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return e.RunForecasts(m, forecasts, strat)
}

// RunForecasts simulates strat over precomputed forecasts, one per row of m.
//
// For each row t except the last, the position is decided from forecast[t]
// and price[t] alone, then earns position[t] * (price[t+1] - price[t]).
func (e *Engine) RunForecasts(m *features.Matrix, forecasts []float64, strat strategy.Strategy) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy is nil")
	}
	if err := checkMatrix(m); err != nil {
		return nil, err
	}
	if len(forecasts) != m.Len() {
		return nil, fmt.Errorf("got %d forecasts for %d rows", len(forecasts), m.Len())
	}

	prices, _ := m.Column(features.Target)
	index := m.Index()
	n := len(prices) - 1
	if n < 0 {
		n = 0
	}

	ledger := make([]LedgerRow, 0, n)
	positions := make([]model.Position, 0, n)
	pnl := make([]Point, 0, n)
	equity := make([]Point, 0, n)
	pnlValues := make([]float64, 0, n)
	cum := 0.0

	for t := 0; t < n; t++ {
		pos := strat.Decide(strategy.Context{
			Index:     t,
			Timestamp: index[t],
			Price:     prices[t],
			Forecast:  forecasts[t],
		})
		v := pos.Float() * (prices[t+1] - prices[t])
		cum += v

		ledger = append(ledger, LedgerRow{
			Index:     t,
			Timestamp: index[t],
			Price:     prices[t],
			NextPrice: prices[t+1],
			Forecast:  forecasts[t],
			Position:  pos,
			PNL:       v,
			CumPNL:    cum,
		})
		positions = append(positions, pos)
		pnl = append(pnl, Point{Timestamp: index[t], Value: v})
		equity = append(equity, Point{Timestamp: index[t], Value: cum})
		pnlValues = append(pnlValues, v)
	}

	res := &Result{
		Ledger:    ledger,
		Positions: positions,
		PnL:       pnl,
		Equity:    equity,
		Stats:     ComputeStats(pnlValues, positions),
	}
	if th, ok := strat.(*strategy.Threshold); ok {
		res.Threshold = th.Threshold
	}
	return res, nil
}

func checkMatrix(m *features.Matrix) error {
	if m == nil {
		return model.ConfigErrorf("feature matrix is nil")
	}
	if !m.Has(features.Target) {
		return model.ConfigErrorf("feature matrix has no %q column", features.Target)
	}
	return nil
}
