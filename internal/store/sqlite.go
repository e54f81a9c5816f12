package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"forecast-backtest/internal/analysis"
	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/forecast"
	"forecast-backtest/internal/model"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

var ErrNotFound = errors.New("store: run not found")

// RunRecord is the persisted summary of one pipeline run.
type RunRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Oracle    string    `json:"oracle"`
	Threshold float64   `json:"threshold"`
	Scope     string    `json:"scope"`

	Periods   int `json:"periods"`
	Rows      int `json:"rows"`
	TrainRows int `json:"train_rows"`
	TestRows  int `json:"test_rows"`

	Stats    backtest.Stats   `json:"stats"`
	Forecast forecast.Metrics `json:"forecast"`
	Summary  analysis.Summary `json:"summary"`

	// Config is the effective configuration as JSON.
	Config json.RawMessage `json:"config,omitempty"`
}

// RunStore keeps run summaries and their ledgers in SQLite.
type RunStore struct {
	db *sql.DB
}

// OpenRunStore opens (or creates) the database at path and runs migrations.
// ":memory:" gives a private in-memory store.
func OpenRunStore(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}
	s := &RunStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

func (s *RunStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id             TEXT PRIMARY KEY,
			created_at     INTEGER NOT NULL,
			oracle         TEXT NOT NULL,
			threshold      REAL NOT NULL,
			scope          TEXT NOT NULL,
			periods        INTEGER,
			matrix_rows    INTEGER,
			train_rows     INTEGER,
			test_rows      INTEGER,
			pnl_sum        REAL,
			pnl_mean       REAL,
			pnl_std        REAL,
			num_trades     INTEGER,
			num_long       INTEGER,
			num_short      INTEGER,
			traded_periods INTEGER,
			mae            REAL,
			rmse           REAL,
			r2             REAL,
			eval_n         INTEGER,
			start_utc      INTEGER,
			end_utc        INTEGER,
			max_drawdown   REAL,
			hit_rate       REAL,
			p05_pnl        REAL,
			p95_pnl        REAL,
			oracle_profit  REAL,
			capture_ratio  REAL,
			config         TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,

		`CREATE TABLE IF NOT EXISTS ledger (
			run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx        INTEGER NOT NULL,
			timestamp  INTEGER NOT NULL,
			price      REAL,
			next_price REAL,
			forecast   REAL,
			position   INTEGER,
			pnl        REAL,
			cum_pnl    REAL,
			PRIMARY KEY (run_id, idx)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun inserts the run and its ledger in one transaction.
func (s *RunStore) SaveRun(ctx context.Context, r *RunRecord, ledger []backtest.LedgerRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var cfg any
	if len(r.Config) > 0 {
		cfg = string(r.Config)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
			id, created_at, oracle, threshold, scope, periods, matrix_rows, train_rows, test_rows,
			pnl_sum, pnl_mean, pnl_std, num_trades, num_long, num_short, traded_periods,
			mae, rmse, r2, eval_n,
			start_utc, end_utc, max_drawdown, hit_rate, p05_pnl, p95_pnl, oracle_profit, capture_ratio,
			config
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UnixMilli(), r.Oracle, r.Threshold, r.Scope, r.Periods, r.Rows, r.TrainRows, r.TestRows,
		r.Stats.PnLSum, nullable(r.Stats.PnLMean), nullable(r.Stats.PnLStd),
		r.Stats.NumTrades, r.Stats.NumLong, r.Stats.NumShort, r.Stats.Periods,
		nullable(r.Forecast.MAE), nullable(r.Forecast.RMSE), nullable(r.Forecast.R2), r.Forecast.N,
		r.Summary.StartUTC.UnixMilli(), r.Summary.EndUTC.UnixMilli(), r.Summary.MaxDrawdown,
		nullable(r.Summary.HitRate), r.Summary.P05PnL, r.Summary.P95PnL, r.Summary.OracleProfit,
		nullable(r.Summary.CaptureRatio), cfg,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ledger
		(run_id, idx, timestamp, price, next_price, forecast, position, pnl, cum_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range ledger {
		if _, err := stmt.ExecContext(ctx, r.ID, row.Index, row.Timestamp.UnixMilli(),
			row.Price, row.NextPrice, row.Forecast, int(row.Position), row.PNL, row.CumPNL); err != nil {
			return fmt.Errorf("insert ledger row %d: %w", row.Index, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, created_at, oracle, threshold, scope, periods, matrix_rows, train_rows, test_rows,
	pnl_sum, pnl_mean, pnl_std, num_trades, num_long, num_short, traded_periods,
	mae, rmse, r2, eval_n,
	start_utc, end_utc, max_drawdown, hit_rate, p05_pnl, p95_pnl, oracle_profit, capture_ratio,
	config`

// ListRuns returns the most recent runs first. limit <= 0 means all.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *RunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Ledger returns the stored ledger of run id in period order.
func (s *RunStore) Ledger(ctx context.Context, id string) ([]backtest.LedgerRow, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT idx, timestamp, price, next_price, forecast, position, pnl, cum_pnl
		FROM ledger WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []backtest.LedgerRow{}
	for rows.Next() {
		var (
			lr  backtest.LedgerRow
			ts  int64
			pos int
		)
		if err := rows.Scan(&lr.Index, &ts, &lr.Price, &lr.NextPrice, &lr.Forecast, &pos, &lr.PNL, &lr.CumPNL); err != nil {
			return nil, err
		}
		lr.Timestamp = time.UnixMilli(ts).UTC()
		lr.Position = model.Position(pos)
		out = append(out, lr)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var (
		r                   RunRecord
		created, start, end int64
		pnlMean, pnlStd     sql.NullFloat64
		mae, rmse, r2       sql.NullFloat64
		hitRate, capture    sql.NullFloat64
		cfg                 sql.NullString
	)
	err := sc.Scan(
		&r.ID, &created, &r.Oracle, &r.Threshold, &r.Scope, &r.Periods, &r.Rows, &r.TrainRows, &r.TestRows,
		&r.Stats.PnLSum, &pnlMean, &pnlStd, &r.Stats.NumTrades, &r.Stats.NumLong, &r.Stats.NumShort, &r.Stats.Periods,
		&mae, &rmse, &r2, &r.Forecast.N,
		&start, &end, &r.Summary.MaxDrawdown, &hitRate, &r.Summary.P05PnL, &r.Summary.P95PnL,
		&r.Summary.OracleProfit, &capture,
		&cfg,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.Stats.PnLMean = orNaN(pnlMean)
	r.Stats.PnLStd = orNaN(pnlStd)
	r.Forecast.MAE = orNaN(mae)
	r.Forecast.RMSE = orNaN(rmse)
	r.Forecast.R2 = orNaN(r2)
	r.Summary.Periods = r.Stats.Periods
	r.Summary.TotalPnL = r.Stats.PnLSum
	r.Summary.StartUTC = time.UnixMilli(start).UTC()
	r.Summary.EndUTC = time.UnixMilli(end).UTC()
	r.Summary.HitRate = orNaN(hitRate)
	r.Summary.CaptureRatio = orNaN(capture)
	if cfg.Valid {
		r.Config = json.RawMessage(cfg.String)
	}
	return &r, nil
}

// nullable maps NaN (an undefined statistic) to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
