// Package metrics exposes Prometheus instruments for backtest runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts pipeline runs.
	// Labels: oracle, status (ok, error)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forecast_backtest",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total backtest pipeline runs",
	}, []string{"oracle", "status"})

	// stageDuration measures each pipeline stage.
	// Labels: stage (data, features, fit, predict, backtest, sweep, persist)
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "forecast_backtest",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"stage"})

	positionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forecast_backtest",
		Subsystem: "backtest",
		Name:      "positions_total",
		Help:      "Realised periods by position taken",
	}, []string{"position"})

	lastPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "forecast_backtest",
		Subsystem: "backtest",
		Name:      "last_pnl_sum",
		Help:      "Total PnL of the most recent backtest",
	})

	// forecastError tracks out-of-sample error of the most recent fit.
	// Labels: oracle, metric (mae, rmse, r2)
	forecastError = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "forecast_backtest",
		Subsystem: "forecast",
		Name:      "test_error",
		Help:      "Out-of-sample forecast error of the most recent fit",
	}, []string{"oracle", "metric"})
)

// ObserveStage records how long a stage took since start.
func ObserveStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func RecordRun(oracle string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	runsTotal.WithLabelValues(oracle, status).Inc()
}

// RecordBacktest adds one run's position counts and publishes its PnL.
func RecordBacktest(numLong, numShort, periods int, pnlSum float64) {
	positionsTotal.WithLabelValues("long").Add(float64(numLong))
	positionsTotal.WithLabelValues("short").Add(float64(numShort))
	positionsTotal.WithLabelValues("flat").Add(float64(periods - numLong - numShort))
	lastPnL.Set(pnlSum)
}

func RecordForecastError(oracle string, mae, rmse, r2 float64) {
	forecastError.WithLabelValues(oracle, "mae").Set(mae)
	forecastError.WithLabelValues(oracle, "rmse").Set(rmse)
	forecastError.WithLabelValues(oracle, "r2").Set(r2)
}
