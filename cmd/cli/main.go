package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"forecast-backtest/internal/backtest"
	"forecast-backtest/internal/config"
	"forecast-backtest/internal/data"
	"forecast-backtest/internal/features"
	"forecast-backtest/internal/logging"
	"forecast-backtest/internal/model"
	"forecast-backtest/internal/pipeline"
	"forecast-backtest/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "backtest":
		err = cmdBacktest(ctx, os.Args[2:])
	case "sweep":
		err = cmdSweep(ctx, os.Args[2:])
	case "generate":
		err = cmdGenerate(os.Args[2:])
	case "features":
		err = cmdFeatures(os.Args[2:])
	case "runs":
		err = cmdRuns(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, model.ErrConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli backtest [--config exp.yaml] [--threshold 5] [--model linear] [--scope full] [--out out]")
	fmt.Println("  cli sweep    [--config exp.yaml] --thresholds 0,1,2,5,10")
	fmt.Println("  cli generate --days 365 --seed 42 --out series.csv")
	fmt.Println("  cli features [--series series.csv] --lags 1,2,3,24 --windows 3,24 --out features.parquet")
	fmt.Println("  cli runs     --db runs.db [--id RUN_ID]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - backtest writes pnl.csv, equity.csv and ledger.csv (position=LONG/FLAT/SHORT per period)")
	fmt.Println("  - series files may be .csv, .json or .parquet")
}

// experimentFlags are the config overrides shared by backtest and sweep.
type experimentFlags struct {
	cfgPath   *string
	periods   *int
	days      *int
	seed      *int64
	series    *string
	lags      *string
	windows   *string
	modelName *string
	threshold *float64
	train     *float64
	scope     *string
	workers   *int
	out       *string
	parquet   *bool
	runsDB    *string
	logLevel  *string
}

func addExperimentFlags(fs *flag.FlagSet) *experimentFlags {
	return &experimentFlags{
		cfgPath:   fs.String("config", "", "Path to YAML config (defaults apply when empty)"),
		periods:   fs.Int("periods", 0, "Hourly periods to generate"),
		days:      fs.Int("days", 0, "Days to generate (periods = days*24)"),
		seed:      fs.Int64("seed", 0, "Generator seed"),
		series:    fs.String("series", "", "Read a recorded series instead of generating one"),
		lags:      fs.String("lags", "", "Comma-separated lag set, e.g. 1,2,3,24"),
		windows:   fs.String("windows", "", "Comma-separated rolling window set, e.g. 3,24"),
		modelName: fs.String("model", "", "Oracle: gradient_boosting, linear or persistence"),
		threshold: fs.Float64("threshold", 0, "Band half-width around the current price"),
		train:     fs.Float64("train", 0, "Train fraction in (0,1)"),
		scope:     fs.String("scope", "", "Rows to trade: test or full"),
		workers:   fs.Int("workers", 0, "Parallel sweep workers (0 = GOMAXPROCS)"),
		out:       fs.String("out", "", "Output directory"),
		parquet:   fs.Bool("parquet", false, "Also write Parquet artifacts"),
		runsDB:    fs.String("runs-db", "", "SQLite file to record runs in"),
		logLevel:  fs.String("log-level", "", "trace, debug, info, warn or error"),
	}
}

// resolve loads the config file (or defaults) and applies the flags that were
// set explicitly, so a flag can also set a value to zero.
func (f *experimentFlags) resolve(fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if *f.cfgPath != "" {
		var err error
		if cfg, err = config.LoadUnchecked(*f.cfgPath); err != nil {
			return nil, err
		}
	}

	var err error
	fs.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "periods":
			cfg.Data.Periods = *f.periods
		case "days":
			cfg.Data.NumDays, cfg.Data.Periods = *f.days, 0
		case "seed":
			cfg.Data.Seed = *f.seed
		case "series":
			cfg.Data.SeriesPath = *f.series
		case "lags":
			cfg.Features.Lags, err = parseInts(*f.lags)
		case "windows":
			cfg.Features.Windows, err = parseInts(*f.windows)
		case "model":
			cfg.Model.Name, cfg.Model.Params = *f.modelName, nil
		case "threshold":
			cfg.Backtest.Threshold = *f.threshold
		case "train":
			cfg.Backtest.TrainFraction = *f.train
		case "scope":
			cfg.Backtest.Scope = *f.scope
		case "workers":
			cfg.Backtest.Workers = *f.workers
		case "out":
			cfg.Output.Dir = *f.out
		case "parquet":
			cfg.Output.Parquet = *f.parquet
		case "runs-db":
			cfg.Output.RunsDB = *f.runsDB
		case "log-level":
			cfg.Logging.Level = *f.logLevel
		}
	})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRunner(cfg *config.Config) (*pipeline.Runner, func(), error) {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	r := &pipeline.Runner{Log: log}
	cleanup := func() {}
	if cfg.Output.RunsDB != "" {
		s, err := store.OpenRunStore(cfg.Output.RunsDB)
		if err != nil {
			return nil, nil, err
		}
		r.Store = s
		cleanup = func() { s.Close() }
	}
	return r, cleanup, nil
}

func cmdBacktest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	ef := addExperimentFlags(fs)
	_ = fs.Parse(args)

	cfg, err := ef.resolve(fs)
	if err != nil {
		return err
	}
	runner, cleanup, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rep, err := runner.Run(ctx, cfg)
	if err != nil {
		return err
	}
	paths, err := pipeline.WriteArtifacts(cfg.Output.Dir, rep, cfg.Output.Parquet)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s, scope=%s, threshold=%g)\n", rep.RunID, rep.Oracle, rep.Scope, rep.Threshold)
	fmt.Printf("Rows: %d (train %d, test %d)\n", rep.Rows, rep.TrainRows, rep.TestRows)
	fmt.Println("Model metrics:")
	fmt.Printf("  mae: %.4f\n  rmse: %.4f\n  r2: %.4f\n", rep.Forecast.MAE, rep.Forecast.RMSE, rep.Forecast.R2)
	fmt.Println("Backtest stats:")
	printStats(rep)
	for _, p := range paths {
		fmt.Printf("Wrote %s\n", p)
	}
	return nil
}

func printStats(rep *pipeline.Report) {
	s := rep.Stats
	fmt.Printf("  pnl_sum: %.4f\n  pnl_mean: %.4f\n  pnl_std: %.4f\n  num_trades: %d\n", s.PnLSum, s.PnLMean, s.PnLStd, s.NumTrades)
	fmt.Printf("  num_long: %d\n  num_short: %d\n", s.NumLong, s.NumShort)
	fmt.Printf("  max_drawdown: %.4f\n  hit_rate: %.4f\n  capture_ratio: %.4f\n",
		rep.Summary.MaxDrawdown, rep.Summary.HitRate, rep.Summary.CaptureRatio)
}

func cmdSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	ef := addExperimentFlags(fs)
	thresholds := fs.String("thresholds", "", "Comma-separated thresholds (default: backtest.sweep_thresholds)")
	_ = fs.Parse(args)

	cfg, err := ef.resolve(fs)
	if err != nil {
		return err
	}
	var grid []float64
	if *thresholds != "" {
		if grid, err = parseFloats(*thresholds); err != nil {
			return err
		}
	}
	runner, cleanup, err := newRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	rep, err := runner.Sweep(ctx, cfg, grid)
	if err != nil {
		return err
	}

	fmt.Printf("Sweep %s (%s, scope=%s, %d rows, test mae=%.4f)\n", rep.RunID, rep.Oracle, rep.Scope, rep.Rows, rep.Forecast.MAE)
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "rank\tthreshold\tpnl_sum\ttrades\tlong/short\tmax_dd\thit_rate")
	for _, r := range rep.Rankings {
		fmt.Fprintf(tw, "%d\t%g\t%.2f\t%d\t%d/%d\t%.2f\t%.3f\n",
			r.Rank, r.Threshold, r.Stats.PnLSum, r.Stats.NumTrades, r.Stats.NumLong, r.Stats.NumShort,
			r.Summary.MaxDrawdown, r.Summary.HitRate)
	}
	return tw.Flush()
}

func cmdGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	days := fs.Int("days", 365, "Days of hourly data")
	periods := fs.Int("periods", 0, "Hourly periods (overrides --days)")
	seed := fs.Int64("seed", 42, "Generator seed")
	out := fs.String("out", "series.csv", "Output path (.csv, .json or .parquet)")
	_ = fs.Parse(args)

	n := *periods
	if n == 0 {
		n = *days * 24
	}
	s, err := data.Generate(n, *seed)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(*out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := data.SaveSeries(*out, s); err != nil {
		return err
	}
	fmt.Printf("Wrote %d observations to %s\n", s.Len(), *out)
	return nil
}

func cmdFeatures(args []string) error {
	fs := flag.NewFlagSet("features", flag.ExitOnError)
	series := fs.String("series", "", "Series file (generates one when empty)")
	days := fs.Int("days", 365, "Days to generate when --series is empty")
	seed := fs.Int64("seed", 42, "Generator seed")
	lags := fs.String("lags", "1,2,3,24", "Comma-separated lag set")
	windows := fs.String("windows", "3,24", "Comma-separated rolling window set")
	out := fs.String("out", "", "Optional Parquet output for the feature matrix")
	_ = fs.Parse(args)

	var (
		s   *model.TimeSeries
		err error
	)
	if *series != "" {
		s, err = data.LoadSeries(*series)
	} else {
		s, err = data.GenerateDays(*days, *seed)
	}
	if err != nil {
		return err
	}
	lagSet, err := parseInts(*lags)
	if err != nil {
		return err
	}
	windowSet, err := parseInts(*windows)
	if err != nil {
		return err
	}
	m, err := features.Build(s, lagSet, windowSet)
	if err != nil {
		return err
	}

	fmt.Printf("Series: %d periods; dropped %d warm-up rows; matrix: %d rows\n",
		s.Len(), s.Len()-m.Len(), m.Len())
	fmt.Printf("Columns (%d): %s\n", len(m.Columns()), strings.Join(m.Columns(), ", "))
	if *out != "" {
		if err := store.WriteMatrixParquet(*out, m); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", *out)
	}
	return nil
}

func cmdRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", "runs.db", "SQLite run store")
	limit := fs.Int("limit", 20, "Runs to list (0 = all)")
	id := fs.String("id", "", "Show one run and write its ledger as CSV to --ledger-out")
	ledgerOut := fs.String("ledger-out", "", "Ledger CSV path when --id is set")
	_ = fs.Parse(args)

	s, err := store.OpenRunStore(*dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if *id != "" {
		return showRun(ctx, s, *id, *ledgerOut)
	}

	runs, err := s.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tcreated\toracle\tscope\tthreshold\tpnl_sum\ttrades\tmae")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\t%.2f\t%d\t%.3f\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Oracle, r.Scope, r.Threshold,
			r.Stats.PnLSum, r.Stats.NumTrades, r.Forecast.MAE)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, s *store.RunStore, id, ledgerOut string) error {
	r, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Run %s created %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  oracle=%s scope=%s threshold=%g rows=%d\n", r.Oracle, r.Scope, r.Threshold, r.Rows)
	fmt.Printf("  pnl_sum=%.4f trades=%d max_drawdown=%.4f\n", r.Stats.PnLSum, r.Stats.NumTrades, r.Summary.MaxDrawdown)
	if len(r.Config) > 0 {
		fmt.Printf("  config=%s\n", r.Config)
	}
	if ledgerOut == "" {
		return nil
	}
	ledger, err := s.Ledger(ctx, id)
	if err != nil {
		return err
	}
	if err := backtest.WriteLedgerCSV(ledgerOut, ledger); err != nil {
		return err
	}
	fmt.Printf("Wrote %d ledger rows to %s\n", len(ledger), ledgerOut)
	return nil
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, p := range splitList(s) {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, model.ConfigErrorf("invalid integer %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, p := range splitList(s) {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, model.ConfigErrorf("invalid number %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
