package handlers

import (
	"errors"
	"net/http"

	"forecast-backtest/internal/api/models"
	"forecast-backtest/internal/store"

	"github.com/gin-gonic/gin"
)

const defaultRunLimit = 50

// RunsHandler serves stored runs. A nil store answers 503 on every route.
type RunsHandler struct {
	store *store.RunStore
}

func NewRunsHandler(s *store.RunStore) *RunsHandler {
	return &RunsHandler{store: s}
}

var errRunsDisabled = errors.New("run storage is not configured (set RUNS_DB)")

func (h *RunsHandler) enabled(c *gin.Context) bool {
	if h.store == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error: errorDetail("RUNS_DISABLED", errRunsDisabled),
		})
		return false
	}
	return true
}

// ListRuns handles GET /api/v1/runs
func (h *RunsHandler) ListRuns(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	var req models.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultRunLimit
	}

	runs, err := h.store.ListRuns(c.Request.Context(), req.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	c.JSON(http.StatusOK, models.RunsResponse{Runs: runs})
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunsHandler) GetRun(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	run, err := h.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetLedger handles GET /api/v1/runs/:id/ledger
func (h *RunsHandler) GetLedger(c *gin.Context) {
	if !h.enabled(c) {
		return
	}
	id := c.Param("id")
	ledger, err := h.store.Ledger(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LedgerResponse{ID: id, Ledger: ledger})
}
