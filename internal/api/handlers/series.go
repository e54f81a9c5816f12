package handlers

import (
	"net/http"

	"forecast-backtest/internal/api/models"
	"forecast-backtest/internal/data"

	"github.com/gin-gonic/gin"
)

// SeriesHandler serves the synthetic series the backtests run on.
type SeriesHandler struct {
	cache *data.SeriesCache
}

func NewSeriesHandler(cache *data.SeriesCache) *SeriesHandler {
	return &SeriesHandler{cache: cache}
}

// GetSeries handles GET /api/v1/series
func (h *SeriesHandler) GetSeries(c *gin.Context) {
	var req models.SeriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, err := h.cache.Generate(req.Periods, req.Seed)
	if err != nil {
		abortWithError(c, err)
		return
	}

	obs := s.Observations
	if req.Limit > 0 && req.Limit < len(obs) {
		obs = obs[:req.Limit]
	}
	c.JSON(http.StatusOK, models.SeriesResponse{
		Periods:          s.Len(),
		Seed:             req.Seed,
		FrequencySeconds: int64(s.Frequency.Seconds()),
		Data:             obs,
	})
}
