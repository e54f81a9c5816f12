package backtest

import (
	"encoding/json"
	"math"

	"forecast-backtest/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Stats summarises a PnL series. Mean is NaN without PnL points and Std is
// NaN with fewer than two (sample standard deviation, n-1 denominator).
type Stats struct {
	PnLSum    float64 `json:"pnl_sum"`
	PnLMean   float64 `json:"pnl_mean"`
	PnLStd    float64 `json:"pnl_std"`
	NumTrades int     `json:"num_trades"`
	NumLong   int     `json:"num_long"`
	NumShort  int     `json:"num_short"`
	Periods   int     `json:"periods"`
}

// ComputeStats derives Stats from realised PnL and the positions behind it.
func ComputeStats(pnl []float64, positions []model.Position) Stats {
	s := Stats{
		PnLMean: math.NaN(),
		PnLStd:  math.NaN(),
		Periods: len(pnl),
	}
	for _, v := range pnl {
		s.PnLSum += v
	}
	if len(pnl) > 0 {
		s.PnLMean = stat.Mean(pnl, nil)
	}
	if len(pnl) > 1 {
		s.PnLStd = stat.StdDev(pnl, nil)
	}
	for _, p := range positions {
		switch p {
		case model.Long:
			s.NumLong++
		case model.Short:
			s.NumShort++
		}
	}
	s.NumTrades = s.NumLong + s.NumShort
	return s
}

// MarshalJSON writes undefined statistics as null; encoding/json rejects NaN.
func (s Stats) MarshalJSON() ([]byte, error) {
	type alias struct {
		PnLSum    float64  `json:"pnl_sum"`
		PnLMean   *float64 `json:"pnl_mean"`
		PnLStd    *float64 `json:"pnl_std"`
		NumTrades int      `json:"num_trades"`
		NumLong   int      `json:"num_long"`
		NumShort  int      `json:"num_short"`
		Periods   int      `json:"periods"`
	}
	return json.Marshal(alias{
		PnLSum:    s.PnLSum,
		PnLMean:   finite(s.PnLMean),
		PnLStd:    finite(s.PnLStd),
		NumTrades: s.NumTrades,
		NumLong:   s.NumLong,
		NumShort:  s.NumShort,
		Periods:   s.Periods,
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
