package data

import (
	"path/filepath"
	"strings"

	"forecast-backtest/internal/model"
)

// LoadSeries reads a stored series, choosing the decoder from the extension.
func LoadSeries(path string) (*model.TimeSeries, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadSeriesCSV(path)
	case ".json":
		return LoadSeriesJSON(path)
	case ".parquet":
		return ReadSeriesParquet(path)
	default:
		return nil, model.ConfigErrorf("unsupported series file %q (want .csv, .json or .parquet)", path)
	}
}

// SaveSeries writes s in the format named by the extension of path.
func SaveSeries(path string, s *model.TimeSeries) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return WriteSeriesCSV(path, s)
	case ".json":
		return SaveSeriesJSON(path, s)
	case ".parquet":
		return WriteSeriesParquet(path, s)
	default:
		return model.ConfigErrorf("unsupported series file %q (want .csv, .json or .parquet)", path)
	}
}
