package strategy

import (
	"math"

	"forecast-backtest/internal/model"
)

// Threshold goes long when the forecast clears the current price by more than
// Threshold, short when it falls below by more than Threshold, and stays flat
// inside the band. Landing exactly on a band edge is flat.
type Threshold struct {
	Threshold float64
}

// NewThreshold validates the band half-width.
func NewThreshold(threshold float64) (*Threshold, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return nil, model.ConfigErrorf("threshold must be a finite value >= 0, got %v", threshold)
	}
	return &Threshold{Threshold: threshold}, nil
}

func (s *Threshold) Name() string { return "threshold" }

func (s *Threshold) Decide(ctx Context) model.Position {
	switch {
	case ctx.Forecast > ctx.Price+s.Threshold:
		return model.Long
	case ctx.Forecast < ctx.Price-s.Threshold:
		return model.Short
	default:
		return model.Flat
	}
}
