// Package pipeline runs the end-to-end experiment: series, features, split,
// oracle fit and evaluation, backtest and summary.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forecast-backtest/internal/analysis"
	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/config"
	"forecast-backtest/internal/data"
	"forecast-backtest/internal/features"
	"forecast-backtest/internal/forecast"
	"forecast-backtest/internal/logging"
	"forecast-backtest/internal/metrics"
	"forecast-backtest/internal/model"
	"forecast-backtest/internal/store"
	"forecast-backtest/internal/strategy"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Runner executes pipeline runs. Every field is optional.
type Runner struct {
	Log *logrus.Logger
	// Cache shares generated series between runs with the same (periods, seed).
	Cache *data.SeriesCache
	// Store persists each run summary and ledger when set.
	Store *store.RunStore
	Now   func() time.Time
}

// Report is everything a single run produced.
type Report struct {
	RunID     string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Oracle    string           `json:"oracle"`
	Scope     string           `json:"scope"`
	Threshold float64          `json:"threshold"`
	Periods   int              `json:"periods"`
	Rows      int              `json:"rows"`
	TrainRows int              `json:"train_rows"`
	TestRows  int              `json:"test_rows"`
	Forecast  forecast.Metrics `json:"forecast"`
	Stats     backtest.Stats   `json:"stats"`
	Summary   analysis.Summary `json:"summary"`

	Result *backtest.Result `json:"-"`
	// Matrix is the full feature matrix, Traded the rows the backtest ran on.
	Matrix *features.Matrix `json:"-"`
	Traded *features.Matrix `json:"-"`
	Config *config.Config   `json:"-"`
}

// SweepReport ranks one fitted oracle's forecasts over several thresholds.
type SweepReport struct {
	RunID    string                     `json:"id"`
	Oracle   string                     `json:"oracle"`
	Scope    string                     `json:"scope"`
	Rows     int                        `json:"rows"`
	Forecast forecast.Metrics           `json:"forecast"`
	Rankings []analysis.RankedThreshold `json:"rankings"`
}

// prepared is the shared state up to and including the traded forecasts.
type prepared struct {
	runID     string
	log       *logrus.Entry
	oracle    string
	periods   int
	matrix    *features.Matrix
	trainRows int
	testRows  int
	metrics   forecast.Metrics
	traded    *features.Matrix
	forecasts []float64
}

func (r *Runner) logger() *logrus.Logger {
	if r.Log == nil {
		return logging.Discard()
	}
	return r.Log
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now()
}

// Run executes one backtest with cfg.Backtest.Threshold.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (rep *Report, err error) {
	defer func() { metrics.RecordRun(oracleLabel(cfg), err) }()

	p, err := r.prepare(ctx, cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	strat, err := strategy.NewThreshold(cfg.Backtest.Threshold)
	if err != nil {
		return nil, err
	}
	res, err := backtest.New().RunForecasts(p.traded, p.forecasts, strat)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	metrics.ObserveStage("backtest", start)
	metrics.RecordBacktest(res.Stats.NumLong, res.Stats.NumShort, res.Stats.Periods, res.Stats.PnLSum)

	prices, _ := p.traded.Column(features.Target)
	rep = &Report{
		RunID:     p.runID,
		CreatedAt: r.now(),
		Oracle:    p.oracle,
		Scope:     cfg.Backtest.Scope,
		Threshold: cfg.Backtest.Threshold,
		Periods:   p.periods,
		Rows:      p.matrix.Len(),
		TrainRows: p.trainRows,
		TestRows:  p.testRows,
		Forecast:  p.metrics,
		Stats:     res.Stats,
		Summary:   analysis.Summarize(res, prices),
		Result:    res,
		Matrix:    p.matrix,
		Traded:    p.traded,
		Config:    cfg,
	}
	p.log.WithFields(logrus.Fields{
		"pnl_sum":    res.Stats.PnLSum,
		"num_trades": res.Stats.NumTrades,
		"periods":    res.Stats.Periods,
	}).Info("backtest complete")

	if r.Store != nil {
		start := time.Now()
		if err := r.persist(ctx, rep); err != nil {
			return nil, fmt.Errorf("persist run %s: %w", rep.RunID, err)
		}
		metrics.ObserveStage("persist", start)
		p.log.Debug("run stored")
	}
	return rep, nil
}

// Sweep fits the oracle once and backtests every threshold in thresholds
// (cfg.Thresholds() when empty) in parallel.
func (r *Runner) Sweep(ctx context.Context, cfg *config.Config, thresholds []float64) (rep *SweepReport, err error) {
	defer func() { metrics.RecordRun(oracleLabel(cfg), err) }()

	if len(thresholds) == 0 {
		thresholds = cfg.Thresholds()
	}
	p, err := r.prepare(ctx, cfg)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := backtest.Sweep(ctx, p.traded, p.forecasts, thresholds, cfg.Backtest.Workers)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	metrics.ObserveStage("sweep", start)

	prices, _ := p.traded.Column(features.Target)
	rankings := analysis.RankByPnL(results, prices)
	p.log.WithFields(logrus.Fields{
		"thresholds":     len(thresholds),
		"best_threshold": rankings[0].Threshold,
		"best_pnl":       rankings[0].Stats.PnLSum,
	}).Info("sweep complete")

	return &SweepReport{
		RunID:    p.runID,
		Oracle:   p.oracle,
		Scope:    cfg.Backtest.Scope,
		Rows:     p.traded.Len(),
		Forecast: p.metrics,
		Rankings: rankings,
	}, nil
}

func (r *Runner) prepare(ctx context.Context, cfg *config.Config) (*prepared, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &prepared{
		runID:  uuid.NewString(),
		oracle: forecast.Describe(cfg.Model.Name, cfg.Model.Params),
	}
	p.log = r.logger().WithFields(logrus.Fields{"run_id": p.runID, "oracle": p.oracle})

	start := time.Now()
	series, err := r.loadSeries(cfg)
	if err != nil {
		return nil, err
	}
	p.periods = series.Len()
	metrics.ObserveStage("data", start)
	p.log.WithField("periods", p.periods).Debug("series ready")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	p.matrix, err = features.Build(series, cfg.Features.Lags, cfg.Features.Windows)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	metrics.ObserveStage("features", start)

	train, test, err := p.matrix.Split(cfg.Backtest.TrainFraction)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	p.trainRows, p.testRows = train.Len(), test.Len()
	p.log.WithFields(logrus.Fields{
		"rows":       p.matrix.Len(),
		"train_rows": p.trainRows,
		"test_rows":  p.testRows,
	}).Info("feature matrix built")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	oracle, err := forecast.New(cfg.Model.Name, cfg.Model.Params, train.FeatureNames(features.Target))
	if err != nil {
		return nil, err
	}
	yTrain, _ := train.Column(features.Target)
	if err := oracle.Fit(train.Design(features.Target), yTrain); err != nil {
		return nil, fmt.Errorf("fit %s: %w", oracle.Name(), err)
	}
	metrics.ObserveStage("fit", start)

	start = time.Now()
	testPred, err := oracle.Predict(test.Design(features.Target))
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	yTest, _ := test.Column(features.Target)
	p.metrics, err = forecast.Evaluate(yTest, testPred)
	if err != nil {
		return nil, err
	}
	metrics.RecordForecastError(oracleLabel(cfg), p.metrics.MAE, p.metrics.RMSE, p.metrics.R2)
	p.log.WithFields(logrus.Fields{
		"mae":  p.metrics.MAE,
		"rmse": p.metrics.RMSE,
		"r2":   p.metrics.R2,
	}).Info("oracle evaluated on test rows")

	switch cfg.Backtest.Scope {
	case config.ScopeFull:
		p.traded = p.matrix
		p.forecasts, err = oracle.Predict(p.matrix.Design(features.Target))
		if err != nil {
			return nil, fmt.Errorf("predict: %w", err)
		}
	default:
		p.traded = test
		p.forecasts = testPred
	}
	metrics.ObserveStage("predict", start)
	return p, nil
}

// oracleLabel is the metric label for cfg's oracle: the registry name only,
// never request params, and "unknown" for names outside the registry.
func oracleLabel(cfg *config.Config) string {
	switch {
	case cfg == nil || !forecast.Known(cfg.Model.Name):
		return "unknown"
	case cfg.Model.Name == "":
		return forecast.DefaultOracle
	default:
		return cfg.Model.Name
	}
}

func (r *Runner) loadSeries(cfg *config.Config) (*model.TimeSeries, error) {
	if cfg.Data.SeriesPath != "" {
		s, err := data.LoadSeries(cfg.Data.SeriesPath)
		if err != nil {
			return nil, fmt.Errorf("load series: %w", err)
		}
		return s, nil
	}
	return r.Cache.Generate(cfg.Periods(), cfg.Data.Seed)
}

func (r *Runner) persist(ctx context.Context, rep *Report) error {
	raw, err := json.Marshal(rep.Config)
	if err != nil {
		return err
	}
	return r.Store.SaveRun(ctx, &store.RunRecord{
		ID:        rep.RunID,
		CreatedAt: rep.CreatedAt,
		Oracle:    rep.Oracle,
		Threshold: rep.Threshold,
		Scope:     rep.Scope,
		Periods:   rep.Periods,
		Rows:      rep.Rows,
		TrainRows: rep.TrainRows,
		TestRows:  rep.TestRows,
		Stats:     rep.Stats,
		Forecast:  rep.Forecast,
		Summary:   rep.Summary,
		Config:    raw,
	}, rep.Result.Ledger)
}
