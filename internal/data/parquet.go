package data

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"forecast-backtest/internal/model"

	"github.com/parquet-go/parquet-go"
)

// SeriesRecord is the Parquet schema for one observation.
type SeriesRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Load      float64 `parquet:"load"`
	Temp      float64 `parquet:"temp"`
}

func WriteSeriesParquet(path string, s *model.TimeSeries) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	records := make([]SeriesRecord, len(s.Observations))
	for i, o := range s.Observations {
		records[i] = SeriesRecord{
			Timestamp: o.Timestamp.UnixMilli(),
			Price:     o.Price,
			Load:      o.Load,
			Temp:      o.Temp,
		}
	}
	return parquet.WriteFile(path, records)
}

// ReadSeriesParquet loads a series written by WriteSeriesParquet. Rows must
// already be in time order; frequency is inferred as for CSV.
func ReadSeriesParquet(path string) (*model.TimeSeries, error) {
	records, err := parquet.ReadFile[SeriesRecord](path)
	if err != nil {
		return nil, err
	}
	s := &model.TimeSeries{Observations: make([]model.Observation, len(records))}
	for i, r := range records {
		s.Observations[i] = model.Observation{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Price:     r.Price,
			Load:      r.Load,
			Temp:      r.Temp,
		}
	}
	s.Frequency = inferFrequency(s)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func inferFrequency(s *model.TimeSeries) time.Duration {
	if len(s.Observations) > 1 {
		return s.Observations[1].Timestamp.Sub(s.Observations[0].Timestamp)
	}
	return time.Hour
}
