package models

import "encoding/json"

// BacktestRequest represents the request body for running a backtest.
// Config has the shape of config.Config; every key it contains overrides the
// preset (or the server defaults), zero values included.
type BacktestRequest struct {
	Preset  string          `json:"preset,omitempty"` // preset ID from GET /api/v1/presets
	Config  json.RawMessage `json:"config,omitempty"`
	Options BacktestOptions `json:"options,omitempty"`
}

// BacktestOptions contains optional backtest parameters
type BacktestOptions struct {
	IncludeLedger bool `json:"include_ledger,omitempty"` // default: false
	LimitLedger   int  `json:"limit_ledger,omitempty"`   // 0 = all rows
}

// SweepRequest runs one fitted oracle over several thresholds.
type SweepRequest struct {
	Preset     string          `json:"preset,omitempty"`
	Config     json.RawMessage `json:"config,omitempty"`
	Thresholds []float64       `json:"thresholds" binding:"required,min=1,max=256,dive,gte=0"`
}

// CompareBacktestRequest represents a request to compare multiple backtests
type CompareBacktestRequest struct {
	Preset     string              `json:"preset,omitempty"`
	BaseConfig json.RawMessage     `json:"base_config,omitempty"`
	Variations []BacktestVariation `json:"variations" binding:"required,min=1,dive"`
}

// BacktestVariation defines a variation to test
type BacktestVariation struct {
	Name   string          `json:"name" binding:"required"`
	Config json.RawMessage `json:"config,omitempty"`
}

// ListRunsRequest is the query of GET /api/v1/runs.
type ListRunsRequest struct {
	Limit int `form:"limit,omitempty" binding:"gte=0"` // default: 50
}

// SeriesRequest is the query of GET /api/v1/series.
type SeriesRequest struct {
	Periods int   `form:"periods" binding:"required,gt=0,lte=200000"`
	Seed    int64 `form:"seed"`
	Limit   int   `form:"limit,omitempty" binding:"gte=0"` // 0 = all observations
}
