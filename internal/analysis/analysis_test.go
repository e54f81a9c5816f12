package analysis

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/features"
	"forecast-backtest/internal/forecast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrix(t *testing.T, prices ...float64) *features.Matrix {
	t.Helper()
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	idx := make([]time.Time, len(prices))
	for i := range idx {
		idx[i] = start.Add(time.Duration(i) * time.Hour)
	}
	m, err := features.NewMatrix(idx, []string{"price"}, map[string][]float64{"price": prices})
	require.NoError(t, err)
	return m
}

func TestSummarize(t *testing.T) {
	prices := []float64{100, 110, 90, 95, 80}
	m := matrix(t, prices...)
	// long, long, flat, short
	res, err := backtest.Run(m, forecast.Fixed([]float64{200, 200, 90, 0, 0}), 1)
	require.NoError(t, err)
	require.Equal(t, []float64{10, -20, 0, 15}, res.PnLValues())

	s := Summarize(res, prices)
	assert.Equal(t, 4, s.Periods)
	assert.Equal(t, 5.0, s.TotalPnL)
	assert.Equal(t, 20.0, s.MaxDrawdown)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-12)
	assert.Equal(t, 50.0, s.OracleProfit)
	assert.InDelta(t, 0.1, s.CaptureRatio, 1e-12)
	assert.Equal(t, res.PnL[0].Timestamp, s.StartUTC)
	assert.Equal(t, res.PnL[3].Timestamp, s.EndUTC)

	// The ledger carries enough to rebuild the price path.
	assert.Equal(t, s, Summarize(res, nil))
}

func TestSummarizeFlat(t *testing.T) {
	prices := []float64{1, 1, 1}
	res, err := backtest.Run(matrix(t, prices...), forecast.Fixed(prices), 0)
	require.NoError(t, err)

	s := Summarize(res, prices)
	assert.True(t, math.IsNaN(s.HitRate))
	assert.True(t, math.IsNaN(s.CaptureRatio))
	assert.Equal(t, 0.0, s.OracleProfit)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded["hit_rate"])
	assert.Nil(t, decoded["capture_ratio"])
	assert.Equal(t, 2.0, decoded["periods"])
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil)
	assert.Equal(t, 0, s.Periods)
	assert.True(t, math.IsNaN(s.HitRate))
}

func TestTotalPnLNeverExceedsOracle(t *testing.T) {
	prices := []float64{5, 9, 3, 3, 12, 7, 8, 1}
	m := matrix(t, prices...)
	for _, fc := range [][]float64{
		{9, 3, 3, 12, 7, 8, 1, 1},
		{0, 0, 0, 0, 0, 0, 0, 0},
		{6, 2, 9, 1, 20, 0, 9, 0},
	} {
		res, err := backtest.Run(m, forecast.Fixed(fc), 0)
		require.NoError(t, err)
		s := Summarize(res, prices)
		assert.LessOrEqual(t, s.TotalPnL, s.OracleProfit+1e-12)
	}
}

func TestPercentileSorted(t *testing.T) {
	v := []float64{0, 10, 20, 30, 40}
	assert.Equal(t, 0.0, percentileSorted(v, 0))
	assert.Equal(t, 40.0, percentileSorted(v, 1))
	assert.Equal(t, 20.0, percentileSorted(v, 0.5))
	assert.InDelta(t, 2.0, percentileSorted(v, 0.05), 1e-12)
	assert.Equal(t, 0.0, percentileSorted(nil, 0.5))
}

func TestRankByPnL(t *testing.T) {
	prices := []float64{100, 110, 90, 95, 80}
	m := matrix(t, prices...)
	forecasts := []float64{104, 96, 93, 92, 0}
	sweep, err := backtest.Sweep(context.Background(), m, forecasts, []float64{0, 3, 5, 50}, 2)
	require.NoError(t, err)

	ranked := RankByPnL(sweep, prices)
	require.Len(t, ranked, 4)
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].Stats.PnLSum, r.Stats.PnLSum)
		}
	}
	// threshold 0: long, short, long, short => 10 + 20 + 5 + 15
	assert.Equal(t, 0.0, ranked[0].Threshold)
	assert.Equal(t, 50.0, ranked[0].Stats.PnLSum)
	assert.Equal(t, 50.0, ranked[len(ranked)-1].Threshold)
	assert.Equal(t, 0.0, ranked[len(ranked)-1].Stats.PnLSum)
}
