package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"forecast-backtest/internal/config"
	"forecast-backtest/internal/data"
	"forecast-backtest/internal/model"
	"forecast-backtest/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() *config.Config {
	c := config.Default()
	c.Data.Periods = 400
	c.Data.Seed = 3
	c.Features.Lags = []int{1, 2, 3}
	c.Features.Windows = []int{3}
	c.Model.Name = "linear"
	c.Backtest.Threshold = 1
	return c
}

func TestRunTestScope(t *testing.T) {
	r := &Runner{}
	rep, err := r.Run(context.Background(), smallConfig())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 400, rep.Periods)
	assert.Equal(t, 397, rep.Rows)
	assert.Equal(t, rep.Rows, rep.TrainRows+rep.TestRows)
	assert.Equal(t, int(float64(rep.Rows)*0.7), rep.TrainRows)
	assert.Equal(t, rep.TestRows, rep.Traded.Len())
	assert.Equal(t, rep.TestRows-1, rep.Stats.Periods)
	assert.Equal(t, rep.TestRows, rep.Forecast.N)
	assert.Greater(t, rep.Forecast.R2, 0.0, "lagged prices carry signal")
	assert.Equal(t, rep.Stats, rep.Result.Stats)
	assert.Equal(t, rep.Stats.Periods, rep.Summary.Periods)
	assert.LessOrEqual(t, rep.Summary.TotalPnL, rep.Summary.OracleProfit)

	// The traded suffix starts right after the training prefix.
	assert.Equal(t, rep.Matrix.Index()[rep.TrainRows], rep.Traded.Index()[0])
}

func TestRunFullScope(t *testing.T) {
	cfg := smallConfig()
	cfg.Backtest.Scope = config.ScopeFull
	rep, err := (&Runner{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, rep.Rows-1, rep.Stats.Periods)
	assert.Equal(t, rep.Rows, rep.Traded.Len())
}

func TestRunDeterministic(t *testing.T) {
	cfg := smallConfig()
	cfg.Model.Name = "gradient_boosting"
	cfg.Model.Params = map[string]any{"n_estimators": 15}
	r := &Runner{Cache: data.NewSeriesCache(time.Minute)}

	a, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	b, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Result.PnLValues(), b.Result.PnLValues())
	assert.Equal(t, a.Forecast, b.Forecast)
	assert.Equal(t, 1, r.Cache.Len())
}

func TestRunPersists(t *testing.T) {
	s, err := store.OpenRunStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	fixed := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	r := &Runner{Store: s, Now: func() time.Time { return fixed }}
	rep, err := r.Run(context.Background(), smallConfig())
	require.NoError(t, err)

	got, err := s.GetRun(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got.CreatedAt))
	assert.Equal(t, rep.Stats.NumTrades, got.Stats.NumTrades)
	assert.Equal(t, "test", got.Scope)
	assert.Contains(t, string(got.Config), `"threshold":1`)

	ledger, err := s.Ledger(context.Background(), rep.RunID)
	require.NoError(t, err)
	assert.Len(t, ledger, rep.Stats.Periods)
}

func TestRunFromSeriesFile(t *testing.T) {
	series, err := data.Generate(300, 8)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "series.csv")
	require.NoError(t, data.WriteSeriesCSV(path, series))

	cfg := smallConfig()
	cfg.Data.SeriesPath = path
	cfg.Model.Name = "persistence"
	rep, err := (&Runner{}).Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 300, rep.Periods)
}

func TestRunConfigErrors(t *testing.T) {
	cfg := smallConfig()
	cfg.Backtest.TrainFraction = 1
	_, err := (&Runner{}).Run(context.Background(), cfg)
	assert.ErrorIs(t, err, model.ErrConfig)

	cfg = smallConfig()
	cfg.Data.SeriesPath = "series.xlsx"
	_, err = (&Runner{}).Run(context.Background(), cfg)
	assert.ErrorIs(t, err, model.ErrConfig)

	cfg = smallConfig()
	cfg.Model.Name = "persistence"
	cfg.Model.Params = map[string]any{"column": "temp_lag9"}
	_, err = (&Runner{}).Run(context.Background(), cfg)
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestOracleLabel(t *testing.T) {
	cfg := smallConfig()
	cfg.Model.Params = map[string]any{"ridge": 0.25}
	assert.Equal(t, "linear", oracleLabel(cfg))

	cfg.Model.Name = ""
	assert.Equal(t, "gradient_boosting", oracleLabel(cfg))

	cfg.Model.Name = "made-up-oracle"
	assert.Equal(t, "unknown", oracleLabel(cfg))
	assert.Equal(t, "unknown", oracleLabel(nil))
}

// Request-controlled names and params must never become metric label values.
func TestRunMetricLabelsAreBounded(t *testing.T) {
	cfg := smallConfig()
	cfg.Model.Params = map[string]any{"ridge": 0.0123}
	_, err := (&Runner{}).Run(context.Background(), cfg)
	require.NoError(t, err)

	bad := smallConfig()
	bad.Model.Name = "oracle-9f3c1"
	_, err = (&Runner{}).Run(context.Background(), bad)
	require.ErrorIs(t, err, model.ErrConfig)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	seen := false
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "forecast_backtest_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() != "oracle" {
					continue
				}
				seen = true
				assert.NotContains(t, lp.GetValue(), "ridge", mf.GetName())
				assert.NotContains(t, lp.GetValue(), "oracle-9f3c1", mf.GetName())
			}
		}
	}
	assert.True(t, seen)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Runner{}).Run(ctx, smallConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSweep(t *testing.T) {
	thresholds := []float64{0, 0.5, 2, 5, 1000}
	rep, err := (&Runner{}).Sweep(context.Background(), smallConfig(), thresholds)
	require.NoError(t, err)
	require.Len(t, rep.Rankings, len(thresholds))

	for i := 1; i < len(rep.Rankings); i++ {
		assert.GreaterOrEqual(t, rep.Rankings[i-1].Stats.PnLSum, rep.Rankings[i].Stats.PnLSum)
	}

	byThreshold := append(rep.Rankings[:0:0], rep.Rankings...)
	sort.Slice(byThreshold, func(i, j int) bool { return byThreshold[i].Threshold < byThreshold[j].Threshold })
	for i := 1; i < len(byThreshold); i++ {
		assert.LessOrEqual(t, byThreshold[i].Stats.NumTrades, byThreshold[i-1].Stats.NumTrades)
	}
	assert.Equal(t, 0, byThreshold[len(byThreshold)-1].Stats.NumTrades)
}

func TestSweepUsesConfiguredGrid(t *testing.T) {
	cfg := smallConfig()
	cfg.Backtest.SweepThresholds = []float64{1, 3}
	rep, err := (&Runner{}).Sweep(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Len(t, rep.Rankings, 2)
}

func TestWriteArtifacts(t *testing.T) {
	rep, err := (&Runner{}).Run(context.Background(), smallConfig())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteArtifacts(dir, rep, true)
	require.NoError(t, err)
	require.Len(t, paths, 5)
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	paths, err = WriteArtifacts(filepath.Join(t.TempDir(), "csv"), rep, false)
	require.NoError(t, err)
	assert.Len(t, paths, 3)
}
