package data

import (
	"encoding/json"
	"os"
	"time"

	"forecast-backtest/internal/model"
)

// seriesDocument is the JSON shape of a stored series.
type seriesDocument struct {
	FrequencySeconds int64               `json:"frequency_seconds"`
	Data             []model.Observation `json:"data"`
}

func LoadSeriesJSON(path string) (*model.TimeSeries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc seriesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	s := &model.TimeSeries{
		Frequency:    time.Duration(doc.FrequencySeconds) * time.Second,
		Observations: doc.Data,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func SaveSeriesJSON(path string, s *model.TimeSeries) error {
	raw, err := json.MarshalIndent(seriesDocument{
		FrequencySeconds: int64(s.Frequency / time.Second),
		Data:             s.Observations,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
