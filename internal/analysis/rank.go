package analysis

import (
	"sort"

	"forecast-backtest/internal/backtest"
)

type RankedThreshold struct {
	Rank      int            `json:"rank"`
	Threshold float64        `json:"threshold"`
	Stats     backtest.Stats `json:"stats"`
	Summary   Summary        `json:"summary"`
}

// RankByPnL summarises each sweep result and sorts descending by total PnL.
// Ties keep the lower threshold first.
func RankByPnL(sweep []backtest.SweepResult, prices []float64) []RankedThreshold {
	out := make([]RankedThreshold, 0, len(sweep))
	for _, r := range sweep {
		out = append(out, RankedThreshold{
			Threshold: r.Threshold,
			Stats:     r.Stats,
			Summary:   Summarize(r.Result, prices),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stats.PnLSum != out[j].Stats.PnLSum {
			return out[i].Stats.PnLSum > out[j].Stats.PnLSum
		}
		return out[i].Threshold < out[j].Threshold
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
