package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"forecast-backtest/internal/model"
)

var seriesHeader = []string{"timestamp", "price", "load", "temp"}

// WriteSeriesCSV writes a series as timestamp,price,load,temp rows.
func WriteSeriesCSV(path string, s *model.TimeSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(seriesHeader); err != nil {
		return err
	}
	for _, o := range s.Observations {
		row := []string{
			o.Timestamp.Format(time.RFC3339),
			fmtFloat(o.Price),
			fmtFloat(o.Load),
			fmtFloat(o.Temp),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadSeriesCSV loads a series written by WriteSeriesCSV (or any file with the
// same header). The frequency is inferred from the first two rows and the
// fixed-frequency invariant is checked.
func ReadSeriesCSV(path string) (*model.TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	s := &model.TimeSeries{}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := time.Parse(time.RFC3339, rec[idx["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("line %d timestamp: %w", line, err)
		}
		var vals [3]float64
		for i, name := range seriesHeader[1:] {
			v, err := strconv.ParseFloat(rec[idx[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, name, err)
			}
			vals[i] = v
		}
		s.Observations = append(s.Observations, model.Observation{
			Timestamp: ts,
			Price:     vals[0],
			Load:      vals[1],
			Temp:      vals[2],
		})
	}

	s.Frequency = inferFrequency(s)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, want := range seriesHeader {
		if _, ok := idx[want]; !ok {
			return nil, model.ConfigErrorf("series file is missing column %q", want)
		}
	}
	return idx, nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
