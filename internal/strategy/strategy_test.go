package strategy

import (
	"math"
	"testing"

	"forecast-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdDecide(t *testing.T) {
	s, err := NewThreshold(5)
	require.NoError(t, err)

	cases := []struct {
		name     string
		price    float64
		forecast float64
		want     model.Position
	}{
		{"above band", 100, 105.01, model.Long},
		{"below band", 100, 94.99, model.Short},
		{"inside band", 100, 103, model.Flat},
		{"upper edge is flat", 100, 105, model.Flat},
		{"lower edge is flat", 100, 95, model.Flat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Decide(Context{Price: tc.price, Forecast: tc.forecast})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestThresholdZero(t *testing.T) {
	s, err := NewThreshold(0)
	require.NoError(t, err)
	assert.Equal(t, model.Long, s.Decide(Context{Price: 50, Forecast: 50.0001}))
	assert.Equal(t, model.Short, s.Decide(Context{Price: 50, Forecast: 49.9999}))
	assert.Equal(t, model.Flat, s.Decide(Context{Price: 50, Forecast: 50}))
}

func TestNewThresholdRejects(t *testing.T) {
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := NewThreshold(v)
		assert.ErrorIs(t, err, model.ErrConfig, "threshold %v", v)
	}
}
