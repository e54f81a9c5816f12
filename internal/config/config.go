package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"forecast-backtest/internal/features"
	"forecast-backtest/internal/forecast"
	"forecast-backtest/internal/model"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	ScopeTest = "test"
	ScopeFull = "full"
)

// MaxPeriods caps the length of a generated series (about 22 years hourly).
const MaxPeriods = 200_000

// Config is the on-disk configuration shape (YAML). The same shape is accepted
// as JSON by the HTTP API.
type Config struct {
	Data     DataConfig     `yaml:"data" json:"data"`
	Features FeaturesConfig `yaml:"features" json:"features"`
	Model    ModelConfig    `yaml:"model" json:"model"`
	Backtest BacktestConfig `yaml:"backtest" json:"backtest"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

type DataConfig struct {
	// Periods wins over NumDays when both are set.
	NumDays int   `yaml:"num_days" json:"num_days" validate:"gte=0,lte=8333"`
	Periods int   `yaml:"periods" json:"periods" validate:"gte=0,lte=200000"`
	Seed    int64 `yaml:"seed" json:"seed"`
	// Optional: read a recorded series (.csv, .json or .parquet) instead of generating one.
	SeriesPath string `yaml:"series_path" json:"series_path,omitempty"`
}

type FeaturesConfig struct {
	Lags    []int `yaml:"lags" json:"lags" validate:"dive,gt=0"`
	Windows []int `yaml:"windows" json:"windows" validate:"dive,gt=0"`
}

type ModelConfig struct {
	Name   string         `yaml:"name" json:"name"`
	Params map[string]any `yaml:"params" json:"params,omitempty"`
}

type BacktestConfig struct {
	Threshold     float64 `yaml:"threshold" json:"threshold" validate:"gte=0"`
	TrainFraction float64 `yaml:"train_fraction" json:"train_fraction" validate:"gt=0,lt=1"`
	// Scope selects the rows that are traded: "test" (out-of-sample suffix)
	// or "full" (every row, including those the oracle was fitted on).
	Scope           string    `yaml:"scope" json:"scope" validate:"oneof=test full"`
	SweepThresholds []float64 `yaml:"sweep_thresholds" json:"sweep_thresholds,omitempty" validate:"dive,gte=0"`
	Workers         int       `yaml:"workers" json:"workers" validate:"gte=0"`
}

type OutputConfig struct {
	Dir     string `yaml:"dir" json:"dir,omitempty"`
	Parquet bool   `yaml:"parquet" json:"parquet,omitempty"`
	RunsDB  string `yaml:"runs_db" json:"runs_db,omitempty"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format     string `yaml:"format" json:"format" validate:"omitempty,oneof=text json"`
	Filename   string `yaml:"filename" json:"filename,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb,omitempty" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups,omitempty" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days,omitempty" validate:"gte=0"`
}

var validate = validator.New()

// Default returns the configuration of the reference experiment: one year of
// hourly data, lags {1,2,3,24}, windows {3,24}, a 70/30 split and a 5.0 band.
func Default() *Config {
	return &Config{
		Data: DataConfig{NumDays: 365, Seed: 42},
		Features: FeaturesConfig{
			Lags:    []int{1, 2, 3, 24},
			Windows: []int{3, 24},
		},
		Model: ModelConfig{Name: forecast.DefaultOracle},
		Backtest: BacktestConfig{
			Threshold:     5,
			TrainFraction: 0.7,
			Scope:         ScopeTest,
		},
		Output:  OutputConfig{Dir: "out"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads path over Default(), but does not validate the result.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Data.SeriesPath != "" && !filepath.IsAbs(c.Data.SeriesPath) {
		// Prefer interpreting relative paths as relative to the config file directory,
		// but fall back to the provided path (relative to cwd) if that doesn't exist.
		cand := filepath.Join(filepath.Dir(path), c.Data.SeriesPath)
		if _, err := os.Stat(cand); err == nil {
			c.Data.SeriesPath = cand
		}
	}
	return c, nil
}

// Validate checks field constraints and the cross-field rules the tags cannot
// express. Every failure wraps model.ErrConfig.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return model.ConfigErrorf("%s", strings.Join(msgs, "; "))
		}
		return model.ConfigErrorf("%v", err)
	}
	if c.Data.SeriesPath == "" && c.Periods() <= 0 {
		return model.ConfigErrorf("data.periods or data.num_days must be > 0")
	}
	if c.Data.SeriesPath == "" && c.Periods() > MaxPeriods {
		return model.ConfigErrorf("series of %d periods exceeds the limit of %d", c.Periods(), MaxPeriods)
	}
	if c.Data.SeriesPath == "" {
		if warm := features.WarmupRows(c.Features.Lags, c.Features.Windows); warm >= c.Periods() {
			return model.ConfigErrorf("warm-up of %d rows consumes all %d periods", warm, c.Periods())
		}
	}
	if !forecast.Known(c.Model.Name) {
		return model.ConfigErrorf("unsupported oracle: %q", c.Model.Name)
	}
	return nil
}

// Periods is the length of the generated series.
func (c *Config) Periods() int {
	if c.Data.Periods > 0 {
		return c.Data.Periods
	}
	return c.Data.NumDays * 24
}

// Thresholds returns the sweep grid, or the single configured threshold.
func (c *Config) Thresholds() []float64 {
	if len(c.Backtest.SweepThresholds) > 0 {
		return append([]float64(nil), c.Backtest.SweepThresholds...)
	}
	return []float64{c.Backtest.Threshold}
}

// Clone returns a deep copy so request-scoped overrides never leak into a
// shared base configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Features.Lags = append([]int(nil), c.Features.Lags...)
	out.Features.Windows = append([]int(nil), c.Features.Windows...)
	out.Backtest.SweepThresholds = append([]float64(nil), c.Backtest.SweepThresholds...)
	if c.Model.Params != nil {
		out.Model.Params = make(map[string]any, len(c.Model.Params))
		for k, v := range c.Model.Params {
			out.Model.Params[k] = v
		}
	}
	return &out
}

// Overlay decodes a JSON config document over a copy of base. Only keys
// present in raw change the result, so zero values (threshold 0, seed 0, an
// empty lag list) are applied as given. An empty or null document returns a
// plain copy.
//
// Setting num_days without periods clears the base periods, since periods
// wins when both are set. Naming a different model drops the base model's
// params unless the document supplies new ones.
func Overlay(base *Config, raw []byte) (*Config, error) {
	out := base.Clone()
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, model.ConfigErrorf("decode config: %v", err)
	}

	var present struct {
		Data struct {
			NumDays *int `json:"num_days"`
			Periods *int `json:"periods"`
		} `json:"data"`
		Model struct {
			Params map[string]any `json:"params"`
		} `json:"model"`
	}
	if err := json.Unmarshal(raw, &present); err != nil {
		return nil, model.ConfigErrorf("decode config: %v", err)
	}
	if present.Data.NumDays != nil && present.Data.Periods == nil {
		out.Data.Periods = 0
	}
	if out.Model.Name != base.Model.Name {
		out.Model.Params = present.Model.Params
	}
	return out, nil
}
