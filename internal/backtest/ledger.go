package backtest

import (
	"time"

	"forecast-backtest/internal/model"
)

// LedgerRow is one realised period: the position taken at Timestamp and what
// it earned over the move to the next row's price.
// This is the primary artifact for "what happened" in a backtest.
type LedgerRow struct {
	Index     int            `json:"index"`
	Timestamp time.Time      `json:"timestamp"`
	Price     float64        `json:"price"`
	NextPrice float64        `json:"next_price"`
	Forecast  float64        `json:"forecast"`
	Position  model.Position `json:"position"`
	PNL       float64        `json:"pnl"`
	CumPNL    float64        `json:"cum_pnl"`
}

// Point is one (timestamp, value) sample of an output series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Result holds every output of one run. Ledger, Positions, PnL and Equity all
// have one entry per realised period, i.e. matrix rows minus one; the last row
// has no successor price and produces nothing.
type Result struct {
	Ledger    []LedgerRow      `json:"ledger,omitempty"`
	Positions []model.Position `json:"-"`
	PnL       []Point          `json:"-"`
	Equity    []Point          `json:"-"`
	Stats     Stats            `json:"stats"`
	Threshold float64          `json:"threshold"`
}

// PnLValues returns the PnL series without timestamps.
func (r *Result) PnLValues() []float64 {
	return values(r.PnL)
}

// EquityValues returns the equity curve without timestamps.
func (r *Result) EquityValues() []float64 {
	return values(r.Equity)
}

func values(pts []Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i] = p.Value
	}
	return out
}
