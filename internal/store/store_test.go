package store

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"testing"
	"time"

	"forecast-backtest/internal/analysis"
	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/data"
	"forecast-backtest/internal/features"
	"forecast-backtest/internal/forecast"
	"forecast-backtest/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(t *testing.T) (*features.Matrix, *backtest.Result) {
	t.Helper()
	s, err := data.Generate(80, 4)
	require.NoError(t, err)
	m, err := features.Build(s, []int{1, 2}, []int{3})
	require.NoError(t, err)
	oracle, err := forecast.New("persistence", nil, m.FeatureNames(features.Target))
	require.NoError(t, err)
	res, err := backtest.Run(m, oracle, 1)
	require.NoError(t, err)
	return m, res
}

func TestMatrixParquetRoundTrip(t *testing.T) {
	m, _ := sampleRun(t)
	path := filepath.Join(t.TempDir(), "out", "features.parquet")
	require.NoError(t, WriteMatrixParquet(path, m))

	got, err := ReadMatrixParquet(path)
	require.NoError(t, err)
	assert.Equal(t, m.Columns(), got.Columns())
	require.Equal(t, m.Len(), got.Len())
	for i, ts := range m.Index() {
		assert.True(t, ts.Equal(got.Index()[i]))
	}
	for _, c := range m.Columns() {
		want, _ := m.Column(c)
		have, ok := got.Column(c)
		require.True(t, ok)
		assert.Equal(t, want, have, c)
	}
}

func TestLedgerParquetRoundTrip(t *testing.T) {
	_, res := sampleRun(t)
	path := filepath.Join(t.TempDir(), "ledger.parquet")
	require.NoError(t, WriteLedgerParquet(path, res.Ledger))

	got, err := ReadLedgerParquet(path)
	require.NoError(t, err)
	require.Len(t, got, len(res.Ledger))
	for i, row := range res.Ledger {
		assert.True(t, row.Timestamp.Equal(got[i].Timestamp))
		got[i].Timestamp = row.Timestamp
		assert.Equal(t, row, got[i])
	}
}

func openStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := OpenRunStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	m, res := sampleRun(t)
	prices, _ := m.Column(features.Target)

	rec := &RunRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Oracle:    "persistence",
		Threshold: 1,
		Scope:     "full",
		Periods:   80,
		Rows:      m.Len(),
		Stats:     res.Stats,
		Forecast:  forecast.Metrics{MAE: 1.5, RMSE: 2, R2: math.NaN(), N: 10},
		Summary:   analysis.Summarize(res, prices),
		Config:    json.RawMessage(`{"backtest":{"threshold":1}}`),
	}
	require.NoError(t, s.SaveRun(ctx, rec, res.Ledger))

	got, err := s.GetRun(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, rec.Oracle, got.Oracle)
	assert.Equal(t, rec.Rows, got.Rows)
	assert.Equal(t, rec.Stats.NumTrades, got.Stats.NumTrades)
	assert.InDelta(t, rec.Stats.PnLSum, got.Stats.PnLSum, 1e-9)
	assert.InDelta(t, rec.Stats.PnLStd, got.Stats.PnLStd, 1e-9)
	assert.Equal(t, 1.5, got.Forecast.MAE)
	assert.True(t, math.IsNaN(got.Forecast.R2), "NaN survives as NULL")
	assert.InDelta(t, rec.Summary.MaxDrawdown, got.Summary.MaxDrawdown, 1e-9)
	assert.True(t, rec.Summary.StartUTC.Equal(got.Summary.StartUTC))
	assert.JSONEq(t, string(rec.Config), string(got.Config))

	ledger, err := s.Ledger(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, ledger, len(res.Ledger))
	assert.Equal(t, res.Ledger[3].Position, ledger[3].Position)
	assert.Equal(t, res.Ledger[3].CumPNL, ledger[3].CumPNL)
	assert.True(t, res.Ledger[3].Timestamp.Equal(ledger[3].Timestamp))
}

func TestRunStoreListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = uuid.NewString()
		require.NoError(t, s.SaveRun(ctx, &RunRecord{
			ID:        ids[i],
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Oracle:    "linear",
			Scope:     "test",
			Stats:     backtest.ComputeStats(nil, nil),
		}, nil))
	}

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)
	assert.True(t, math.IsNaN(all[0].Stats.PnLMean))

	two, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestRunStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Ledger(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunStoreDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	rec := &RunRecord{ID: "dup", CreatedAt: time.Now(), Oracle: "linear", Scope: "test"}
	require.NoError(t, s.SaveRun(ctx, rec, nil))
	assert.Error(t, s.SaveRun(ctx, rec, nil))
}

func TestInMemoryStore(t *testing.T) {
	s, err := OpenRunStore(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SaveRun(context.Background(), &RunRecord{
		ID: "m", CreatedAt: time.Now(), Oracle: "linear", Scope: "test",
		Summary: analysis.Summary{HitRate: math.NaN()},
	}, []backtest.LedgerRow{{Index: 0, Position: model.Long}}))
	rows, err := s.Ledger(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, model.Long, rows[0].Position)
}
