package features

import (
	"fmt"

	"forecast-backtest/internal/model"
)

// Target is the column a forecaster predicts and the backtest trades.
const Target = string(model.FieldPrice)

// RollingFields are the base fields that receive rolling-mean columns.
var RollingFields = []model.Field{model.FieldPrice, model.FieldLoad}

// LagName names the lag-k column of a base field, e.g. "price_lag24".
func LagName(f model.Field, k int) string {
	return fmt.Sprintf("%s_lag%d", f, k)
}

// RollMeanName names the rolling-mean column of a base field, e.g. "load_roll_mean_3".
func RollMeanName(f model.Field, w int) string {
	return fmt.Sprintf("%s_roll_mean_%d", f, w)
}
