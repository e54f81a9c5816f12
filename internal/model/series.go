package model

import (
	"fmt"
	"math"
	"time"
)

// Field names a base column of a TimeSeries.
type Field string

const (
	FieldPrice Field = "price"
	FieldLoad  Field = "load"
	FieldTemp  Field = "temp"
)

// BaseFields lists the base columns in their canonical order.
var BaseFields = []Field{FieldPrice, FieldLoad, FieldTemp}

// Observation is one timestamped sample.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Load      float64   `json:"load"`
	Temp      float64   `json:"temp"`
}

// Value returns the named field of the observation.
func (o Observation) Value(f Field) (float64, bool) {
	switch f {
	case FieldPrice:
		return o.Price, true
	case FieldLoad:
		return o.Load, true
	case FieldTemp:
		return o.Temp, true
	}
	return 0, false
}

// TimeSeries is a regularly sampled multivariate series.
// Observations are ordered by timestamp; position is the only meaningful key.
// A TimeSeries is treated as immutable once built.
type TimeSeries struct {
	Frequency    time.Duration
	Observations []Observation
}

func (s *TimeSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Observations)
}

// Timestamps returns a copy of the index.
func (s *TimeSeries) Timestamps() []time.Time {
	out := make([]time.Time, s.Len())
	for i, o := range s.Observations {
		out[i] = o.Timestamp
	}
	return out
}

// Values returns a copy of one base column.
func (s *TimeSeries) Values(f Field) ([]float64, error) {
	out := make([]float64, s.Len())
	for i, o := range s.Observations {
		v, ok := o.Value(f)
		if !ok {
			return nil, ConfigErrorf("unknown field %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// Validate checks the fixed-frequency index invariant (no gaps, no duplicates,
// strictly increasing) and that every value is finite. A missing value would
// otherwise be trimmed as warm-up and leave a hole in the feature index.
func (s *TimeSeries) Validate() error {
	if s.Len() == 0 {
		return ConfigErrorf("time series is empty")
	}
	if s.Frequency <= 0 {
		return ConfigErrorf("frequency must be > 0, got %s", s.Frequency)
	}
	for i := 1; i < len(s.Observations); i++ {
		prev := s.Observations[i-1].Timestamp
		cur := s.Observations[i].Timestamp
		if d := cur.Sub(prev); d != s.Frequency {
			return fmt.Errorf("%w: observation %d at %s is %s after its predecessor, want %s",
				ErrConfig, i, cur.Format(time.RFC3339), d, s.Frequency)
		}
	}
	for i, o := range s.Observations {
		for _, f := range BaseFields {
			if v, _ := o.Value(f); math.IsNaN(v) || math.IsInf(v, 0) {
				return ConfigErrorf("observation %d at %s has non-finite %s %v",
					i, o.Timestamp.Format(time.RFC3339), f, v)
			}
		}
	}
	return nil
}
