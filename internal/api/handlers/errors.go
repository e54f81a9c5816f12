package handlers

import (
	"context"
	"errors"
	"net/http"

	"forecast-backtest/internal/api/models"
	"forecast-backtest/internal/model"
	"forecast-backtest/internal/store"

	"github.com/gin-gonic/gin"
)

func errorDetail(code string, err error) models.ErrorDetail {
	return models.ErrorDetail{Code: code, Message: err.Error()}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: errorDetail("INVALID_REQUEST", err)})
}

// abortWithError maps err onto a status and error code.
func abortWithError(c *gin.Context, err error) {
	status, code := classify(err)
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: errorDetail(code, err)})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrConfig):
		return http.StatusBadRequest, "INVALID_CONFIG"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED"
	default:
		return http.StatusInternalServerError, "BACKTEST_ERROR"
	}
}
