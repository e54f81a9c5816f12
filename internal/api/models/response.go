package models

import (
	"time"

	"forecast-backtest/internal/analysis"
	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/forecast"
	"forecast-backtest/internal/model"
	"forecast-backtest/internal/store"
)

// BacktestResponse represents the response from a backtest run
type BacktestResponse struct {
	ID      string               `json:"id,omitempty"`
	Status  string               `json:"status"`
	Summary BacktestSummary      `json:"summary"`
	Ledger  []backtest.LedgerRow `json:"ledger,omitempty"`
}

// BacktestSummary contains aggregated backtest results
type BacktestSummary struct {
	Oracle         string           `json:"oracle"`
	Scope          string           `json:"scope"`
	Threshold      float64          `json:"threshold"`
	Periods        int              `json:"periods"`
	Rows           int              `json:"rows"`
	TrainRows      int              `json:"train_rows"`
	TestRows       int              `json:"test_rows"`
	BacktestWindow TimeWindow       `json:"backtest_window"`
	Forecast       forecast.Metrics `json:"forecast"`
	Stats          backtest.Stats   `json:"stats"`
	Analysis       analysis.Summary `json:"analysis"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CompareBacktestResponse represents the response from a comparison
type CompareBacktestResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation. Error is set instead
// of Summary when the variation could not run.
type ComparisonResult struct {
	Name    string           `json:"name"`
	ID      string           `json:"id,omitempty"`
	Summary *BacktestSummary `json:"summary,omitempty"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// SweepResponse ranks thresholds by total PnL.
type SweepResponse struct {
	ID       string                     `json:"id"`
	Oracle   string                     `json:"oracle"`
	Scope    string                     `json:"scope"`
	Rows     int                        `json:"rows"`
	Forecast forecast.Metrics           `json:"forecast"`
	Rankings []analysis.RankedThreshold `json:"rankings"`
}

type RunsResponse struct {
	Runs []store.RunRecord `json:"runs"`
}

type LedgerResponse struct {
	ID     string               `json:"id"`
	Ledger []backtest.LedgerRow `json:"ledger"`
}

// PresetInfo represents information about an experiment preset
type PresetInfo struct {
	ID        string  `json:"id"`
	File      string  `json:"file"`
	Model     string  `json:"model"`
	Periods   int     `json:"periods"`
	Seed      int64   `json:"seed"`
	Threshold float64 `json:"threshold"`
	Scope     string  `json:"scope"`
}

// StrategyInfo represents information about a trading strategy
type StrategyInfo struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  []forecast.ParameterInfo `json:"parameters"`
}

// SeriesResponse is a (possibly truncated) generated series.
type SeriesResponse struct {
	Periods          int                 `json:"periods"`
	Seed             int64               `json:"seed"`
	FrequencySeconds int64               `json:"frequency_seconds"`
	Data             []model.Observation `json:"data"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
