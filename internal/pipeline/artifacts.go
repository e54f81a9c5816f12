package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/store"
)

type artifact struct {
	name  string
	write func(path string) error
}

// WriteArtifacts writes the run's output files into dir and returns their
// paths: pnl.csv and equity.csv (two-column timestamp,value files) and
// ledger.csv, plus ledger.parquet and features.parquet when withParquet is set.
func WriteArtifacts(dir string, rep *Report, withParquet bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	res := rep.Result
	artifacts := []artifact{
		{"pnl.csv", func(p string) error { return backtest.WritePointsCSV(p, "pnl", res.PnL) }},
		{"equity.csv", func(p string) error { return backtest.WritePointsCSV(p, "equity", res.Equity) }},
		{"ledger.csv", func(p string) error { return backtest.WriteLedgerCSV(p, res.Ledger) }},
	}
	if withParquet {
		artifacts = append(artifacts,
			artifact{"ledger.parquet", func(p string) error { return store.WriteLedgerParquet(p, res.Ledger) }},
			artifact{"features.parquet", func(p string) error { return store.WriteMatrixParquet(p, rep.Matrix) }},
		)
	}

	var written []string
	for _, a := range artifacts {
		path := filepath.Join(dir, a.name)
		if err := a.write(path); err != nil {
			return written, fmt.Errorf("write %s: %w", a.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}
