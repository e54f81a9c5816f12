package handlers

import (
	"encoding/json"
	"net/http"

	"forecast-backtest/internal/api/models"
	"forecast-backtest/internal/config"
	"forecast-backtest/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BacktestHandler handles backtest-related requests
type BacktestHandler struct {
	runner  *pipeline.Runner
	base    *config.Config
	presets *PresetHandler
	log     *logrus.Logger
}

// NewBacktestHandler creates a new backtest handler. base is the configuration
// requests override when they name no preset; it is never mutated.
func NewBacktestHandler(runner *pipeline.Runner, base *config.Config, presets *PresetHandler, log *logrus.Logger) *BacktestHandler {
	if base == nil {
		base = config.Default()
	}
	return &BacktestHandler{runner: runner, base: base, presets: presets, log: log}
}

// RunBacktest handles POST /api/v1/backtest
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cfg, err := h.buildConfig(req.Preset, req.Config)
	if err != nil {
		abortWithError(c, err)
		return
	}

	rep, err := h.runner.Run(c.Request.Context(), cfg)
	if err != nil {
		h.log.WithError(err).Warn("backtest failed")
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.buildResponse(rep, req.Options))
}

// CompareBacktests handles POST /api/v1/backtest/compare
//
// Each variation is merged over the base config and run independently. A
// failing variation is reported in place instead of failing the request.
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	base, err := h.buildConfig(req.Preset, req.BaseConfig)
	if err != nil {
		abortWithError(c, err)
		return
	}

	comparison := make([]models.ComparisonResult, 0, len(req.Variations))
	for _, variation := range req.Variations {
		result := models.ComparisonResult{Name: variation.Name}
		cfg, err := h.overlay(base, variation.Config)
		var rep *pipeline.Report
		if err == nil {
			rep, err = h.runner.Run(c.Request.Context(), cfg)
		}
		if err != nil {
			_, code := classify(err)
			detail := errorDetail(code, err)
			result.Error = &detail
		} else {
			summary := buildSummary(rep)
			result.ID = rep.RunID
			result.Summary = &summary
		}
		comparison = append(comparison, result)
	}

	c.JSON(http.StatusOK, models.CompareBacktestResponse{Comparison: comparison})
}

// Helper methods

// buildConfig resolves the preset (or the server base), overlays the request
// config and validates the result.
func (h *BacktestHandler) buildConfig(preset string, override json.RawMessage) (*config.Config, error) {
	base := h.base
	if preset != "" {
		p, err := h.presets.Load(preset)
		if err != nil {
			return nil, err
		}
		base = p
	}
	cfg, err := h.overlay(base, override)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlay decodes override onto base. Requests never choose file locations on
// the server: the series path and outputs always come from base.
func (h *BacktestHandler) overlay(base *config.Config, override json.RawMessage) (*config.Config, error) {
	cfg, err := config.Overlay(base, override)
	if err != nil {
		return nil, err
	}
	cfg.Data.SeriesPath = base.Data.SeriesPath
	cfg.Output = h.base.Output
	return cfg, nil
}

func (h *BacktestHandler) buildResponse(rep *pipeline.Report, opts models.BacktestOptions) models.BacktestResponse {
	resp := models.BacktestResponse{
		ID:      rep.RunID,
		Status:  "completed",
		Summary: buildSummary(rep),
	}
	if opts.IncludeLedger {
		ledger := rep.Result.Ledger
		if opts.LimitLedger > 0 && opts.LimitLedger < len(ledger) {
			ledger = ledger[:opts.LimitLedger]
		}
		resp.Ledger = ledger
	}
	return resp
}

func buildSummary(rep *pipeline.Report) models.BacktestSummary {
	return models.BacktestSummary{
		Oracle:    rep.Oracle,
		Scope:     rep.Scope,
		Threshold: rep.Threshold,
		Periods:   rep.Periods,
		Rows:      rep.Rows,
		TrainRows: rep.TrainRows,
		TestRows:  rep.TestRows,
		BacktestWindow: models.TimeWindow{
			Start: rep.Summary.StartUTC,
			End:   rep.Summary.EndUTC,
		},
		Forecast: rep.Forecast,
		Stats:    rep.Stats,
		Analysis: rep.Summary,
	}
}
