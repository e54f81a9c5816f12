package handlers

import (
	"net/http"

	"forecast-backtest/internal/api/models"

	"github.com/gin-gonic/gin"
)

// RankThresholds handles POST /api/v1/backtest/sweep
//
// The oracle is fitted once; every threshold is backtested over the same
// forecasts and the results are ranked by total PnL.
func (h *BacktestHandler) RankThresholds(c *gin.Context) {
	var req models.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cfg, err := h.buildConfig(req.Preset, req.Config)
	if err != nil {
		abortWithError(c, err)
		return
	}

	rep, err := h.runner.Sweep(c.Request.Context(), cfg, req.Thresholds)
	if err != nil {
		h.log.WithError(err).Warn("sweep failed")
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SweepResponse{
		ID:       rep.RunID,
		Oracle:   rep.Oracle,
		Scope:    rep.Scope,
		Rows:     rep.Rows,
		Forecast: rep.Forecast,
		Rankings: rep.Rankings,
	})
}
