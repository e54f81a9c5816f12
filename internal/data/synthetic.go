package data

import (
	"math"
	"math/rand/v2"
	"time"

	"forecast-backtest/internal/model"
)

// SeriesStart is the first timestamp of every generated series.
var SeriesStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	hoursPerDay  = 24
	hoursPerYear = 24 * 365
)

// Generate produces an hourly price/load/temp series of the given length.
//
// The output is a pure function of (periods, seed): all noise comes from a
// generator created for this call, so concurrent callers never share state.
//
//	temp  = 10 + 10*sin(2π(h-6)/8760) + N(0, 2)
//	load  = 100 + 15*sin(2π(h mod 24)/24 - π/2) - 0.7*(temp-10) + N(0, 5)
//	price = 30 + 0.8*load + 10*sin(2πh/8760) + N(0, 8)
func Generate(periods int, seed int64) (*model.TimeSeries, error) {
	if periods <= 0 {
		return nil, model.ConfigErrorf("periods must be > 0, got %d", periods)
	}
	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))

	// Noise is drawn one field at a time so each column's stream does not
	// depend on the length of the others.
	tempNoise := normals(rng, periods, 2)
	loadNoise := normals(rng, periods, 5)
	priceNoise := normals(rng, periods, 8)

	s := &model.TimeSeries{
		Frequency:    time.Hour,
		Observations: make([]model.Observation, periods),
	}
	for i := 0; i < periods; i++ {
		h := float64(i)
		yearTerm := 10 * math.Sin(2*math.Pi*h/hoursPerYear)
		dayTerm := 15 * math.Sin(2*math.Pi*float64(i%hoursPerDay)/hoursPerDay-math.Pi/2)

		temp := 10 + 10*math.Sin(2*math.Pi*(h-6)/hoursPerYear) + tempNoise[i]
		load := 100 + dayTerm - 0.7*(temp-10) + loadNoise[i]
		price := 30 + 0.8*load + yearTerm + priceNoise[i]

		s.Observations[i] = model.Observation{
			Timestamp: SeriesStart.Add(time.Duration(i) * time.Hour),
			Price:     price,
			Load:      load,
			Temp:      temp,
		}
	}
	return s, nil
}

// GenerateDays is Generate with the length expressed in whole days.
func GenerateDays(numDays int, seed int64) (*model.TimeSeries, error) {
	if numDays <= 0 {
		return nil, model.ConfigErrorf("num_days must be > 0, got %d", numDays)
	}
	return Generate(numDays*hoursPerDay, seed)
}

func normals(rng *rand.Rand, n int, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out
}
