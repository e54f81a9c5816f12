package handlers

import (
	"net/http"

	"forecast-backtest/internal/api/models"
	"forecast-backtest/internal/forecast"

	"github.com/gin-gonic/gin"
)

// StrategyHandler describes the oracles and trading strategies a request can
// choose from.
type StrategyHandler struct{}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler() *StrategyHandler {
	return &StrategyHandler{}
}

// ListOracles handles GET /api/v1/oracles
func (h *StrategyHandler) ListOracles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default": forecast.DefaultOracle,
		"oracles": forecast.Available(),
	})
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	strategies := []models.StrategyInfo{
		{
			Name:        "threshold",
			Description: "Long when the forecast exceeds price by more than the threshold, short when it falls below by more, flat otherwise.",
			Parameters: []forecast.ParameterInfo{
				{
					Name:        "threshold",
					Type:        "float",
					Description: "Band half-width in price units (>= 0)",
					Default:     5.0,
				},
			},
		},
	}
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
