package store

import (
	"os"
	"path/filepath"
	"time"

	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/features"
	"forecast-backtest/internal/model"

	"github.com/parquet-go/parquet-go"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// FeatureRecord is one cell of a feature matrix in long format, so the schema
// does not depend on the configured lag and window sets.
type FeatureRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Column    string  `parquet:"column,dict"`
	Value     float64 `parquet:"value"`
}

// LedgerRecord is the Parquet schema for one realised backtest period.
type LedgerRecord struct {
	Index     int64   `parquet:"index"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	NextPrice float64 `parquet:"next_price"`
	Forecast  float64 `parquet:"forecast"`
	Position  int32   `parquet:"position"`
	PNL       float64 `parquet:"pnl"`
	CumPNL    float64 `parquet:"cum_pnl"`
}

// ---------------------------------------------------------------------------
// Feature matrix
// ---------------------------------------------------------------------------

// WriteMatrixParquet writes m row by row, each row's cells in column order.
func WriteMatrixParquet(path string, m *features.Matrix) error {
	cols := m.Columns()
	index := m.Index()
	data := make([][]float64, len(cols))
	for j, c := range cols {
		data[j], _ = m.Column(c)
	}
	records := make([]FeatureRecord, 0, len(index)*len(cols))
	for i, ts := range index {
		for j, c := range cols {
			records = append(records, FeatureRecord{Timestamp: ts.UnixMilli(), Column: c, Value: data[j][i]})
		}
	}
	return writeParquetFile(path, records)
}

// ReadMatrixParquet rebuilds a matrix written by WriteMatrixParquet. Column
// order is the order of first appearance.
func ReadMatrixParquet(path string) (*features.Matrix, error) {
	records, err := readParquetFile[FeatureRecord](path)
	if err != nil {
		return nil, err
	}
	var (
		cols  []string
		index []time.Time
		data  = map[string][]float64{}
		rowOf = map[int64]int{}
	)
	for _, r := range records {
		row, ok := rowOf[r.Timestamp]
		if !ok {
			row = len(index)
			rowOf[r.Timestamp] = row
			index = append(index, time.UnixMilli(r.Timestamp).UTC())
		}
		if _, ok := data[r.Column]; !ok {
			cols = append(cols, r.Column)
		}
		col := data[r.Column]
		if len(col) != row {
			return nil, model.ConfigErrorf("%s: column %q is not dense at row %d", path, r.Column, row)
		}
		data[r.Column] = append(col, r.Value)
	}
	return features.NewMatrix(index, cols, data)
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

func WriteLedgerParquet(path string, rows []backtest.LedgerRow) error {
	records := make([]LedgerRecord, len(rows))
	for i, r := range rows {
		records[i] = LedgerRecord{
			Index:     int64(r.Index),
			Timestamp: r.Timestamp.UnixMilli(),
			Price:     r.Price,
			NextPrice: r.NextPrice,
			Forecast:  r.Forecast,
			Position:  int32(r.Position),
			PNL:       r.PNL,
			CumPNL:    r.CumPNL,
		}
	}
	return writeParquetFile(path, records)
}

func ReadLedgerParquet(path string) ([]backtest.LedgerRow, error) {
	records, err := readParquetFile[LedgerRecord](path)
	if err != nil {
		return nil, err
	}
	rows := make([]backtest.LedgerRow, len(records))
	for i, r := range records {
		rows[i] = backtest.LedgerRow{
			Index:     int(r.Index),
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Price:     r.Price,
			NextPrice: r.NextPrice,
			Forecast:  r.Forecast,
			Position:  model.Position(r.Position),
			PNL:       r.PNL,
			CumPNL:    r.CumPNL,
		}
	}
	return rows, nil
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
