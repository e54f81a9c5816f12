// Package api wires the HTTP surface: handlers, middleware and routes.
package api

import (
	"net/http"

	"forecast-backtest/internal/api/handlers"
	"forecast-backtest/internal/api/middleware"
	"forecast-backtest/internal/config"
	"forecast-backtest/internal/data"
	"forecast-backtest/internal/logging"
	"forecast-backtest/internal/pipeline"
	"forecast-backtest/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Deps are the server's collaborators. Only Base is required in practice;
// nil Store disables the /runs routes and empty PresetDir disables presets.
type Deps struct {
	Base        *config.Config
	Cache       *data.SeriesCache
	Store       *store.RunStore
	PresetDir   string
	CORSOrigins []string
	Log         *logrus.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	runner := &pipeline.Runner{Log: d.Log, Cache: d.Cache, Store: d.Store}
	presetHandler := handlers.NewPresetHandler(d.PresetDir, d.Log)
	backtestHandler := handlers.NewBacktestHandler(runner, d.Base, presetHandler, d.Log)
	strategyHandler := handlers.NewStrategyHandler()
	seriesHandler := handlers.NewSeriesHandler(d.Cache)
	runsHandler := handlers.NewRunsHandler(d.Store)

	router := gin.New()
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(d.Log))
	router.Use(middleware.ErrorHandler(d.Log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/backtest", backtestHandler.RunBacktest)
		api.POST("/backtest/sweep", backtestHandler.RankThresholds)
		api.POST("/backtest/compare", backtestHandler.CompareBacktests)

		api.GET("/runs", runsHandler.ListRuns)
		api.GET("/runs/:id", runsHandler.GetRun)
		api.GET("/runs/:id/ledger", runsHandler.GetLedger)

		api.GET("/oracles", strategyHandler.ListOracles)
		api.GET("/strategies", strategyHandler.ListStrategies)
		api.GET("/presets", presetHandler.ListPresets)
		api.GET("/series", seriesHandler.GetSeries)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
