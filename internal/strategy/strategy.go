package strategy

import (
	"time"

	"forecast-backtest/internal/model"
)

// Context is what a strategy may see when deciding the position for one
// period: the period's own price and the forecast made for it. Nothing from
// later periods is exposed.
type Context struct {
	Index     int
	Timestamp time.Time
	Price     float64
	Forecast  float64
}

type Strategy interface {
	Name() string
	Decide(ctx Context) model.Position
}
