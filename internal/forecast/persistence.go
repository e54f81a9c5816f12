package forecast

import (
	"fmt"

	"forecast-backtest/internal/model"
)

// Persistence forecasts the current price as the most recent observed one,
// read from a named lag column. It is the no-skill baseline.
type Persistence struct {
	Column string
	col    int
	width  int
}

// NewPersistence locates column among the feature names.
func NewPersistence(column string, featureNames []string) (*Persistence, error) {
	for i, name := range featureNames {
		if name == column {
			return &Persistence{Column: column, col: i, width: len(featureNames)}, nil
		}
	}
	return nil, model.ConfigErrorf("persistence oracle needs feature %q", column)
}

func (p *Persistence) Name() string { return "persistence" }

func (p *Persistence) Fit(X [][]float64, y []float64) error {
	width, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	if width != p.width {
		return fmt.Errorf("forecast: persistence built for %d features, got %d", p.width, width)
	}
	return nil
}

func (p *Persistence) Predict(X [][]float64) ([]float64, error) {
	if _, err := checkWidth(X, p.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = row[p.col]
	}
	return out, nil
}
