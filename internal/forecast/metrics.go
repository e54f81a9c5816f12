package forecast

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics are out-of-sample accuracy figures for a fitted oracle.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
	N    int     `json:"n"`
}

// Evaluate compares predictions with realised values.
func Evaluate(actual, predicted []float64) (Metrics, error) {
	if len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("forecast: %d actual values but %d predictions", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return Metrics{}, fmt.Errorf("forecast: nothing to evaluate")
	}
	var abs, sq float64
	for i := range actual {
		d := predicted[i] - actual[i]
		abs += math.Abs(d)
		sq += d * d
	}
	n := float64(len(actual))
	return Metrics{
		MAE:  abs / n,
		RMSE: math.Sqrt(sq / n),
		R2:   stat.RSquaredFrom(predicted, actual, nil),
		N:    len(actual),
	}, nil
}

// MarshalJSON writes an undefined R2 (constant actuals) as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	var r2 *float64
	if !math.IsNaN(m.R2) && !math.IsInf(m.R2, 0) {
		r2 = &m.R2
	}
	return json.Marshal(struct {
		MAE  float64  `json:"mae"`
		RMSE float64  `json:"rmse"`
		R2   *float64 `json:"r2"`
		N    int      `json:"n"`
	}{m.MAE, m.RMSE, r2, m.N})
}

func mean(x []float64) float64 { return stat.Mean(x, nil) }
