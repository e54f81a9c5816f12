package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"forecast-backtest/internal/api/models"
	"forecast-backtest/internal/config"
	"forecast-backtest/internal/forecast"
	"forecast-backtest/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PresetHandler serves experiment presets: YAML config files in one directory.
type PresetHandler struct {
	dir string
	log *logrus.Logger
}

// NewPresetHandler creates a preset handler rooted at dir. An empty dir
// disables presets.
func NewPresetHandler(dir string, log *logrus.Logger) *PresetHandler {
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
	}
	return &PresetHandler{dir: dir, log: log}
}

// ListPresets handles GET /api/v1/presets
func (h *PresetHandler) ListPresets(c *gin.Context) {
	presets := []models.PresetInfo{}
	if h.dir == "" {
		c.JSON(http.StatusOK, gin.H{"presets": presets})
		return
	}

	entries, err := os.ReadDir(h.dir)
	if err != nil {
		h.log.WithError(err).WithField("dir", h.dir).Warn("preset directory unreadable")
		c.JSON(http.StatusOK, gin.H{"presets": presets})
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		path := filepath.Join(h.dir, entry.Name())
		cfg, err := config.LoadUnchecked(path)
		if err != nil {
			h.log.WithError(err).WithField("file", path).Warn("skipping invalid preset")
			continue
		}
		name := cfg.Model.Name
		if name == "" {
			name = forecast.DefaultOracle
		}
		presets = append(presets, models.PresetInfo{
			ID:        presetID(entry.Name()),
			File:      path,
			Model:     name,
			Periods:   cfg.Periods(),
			Seed:      cfg.Data.Seed,
			Threshold: cfg.Backtest.Threshold,
			Scope:     cfg.Backtest.Scope,
		})
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

// Load returns the preset with the given ID (the file name without extension).
func (h *PresetHandler) Load(id string) (*config.Config, error) {
	if h.dir == "" {
		return nil, model.ConfigErrorf("presets are not enabled")
	}
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, model.ConfigErrorf("invalid preset id %q", id)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(h.dir, id+ext)
		if _, err := os.Stat(path); err == nil {
			cfg, err := config.LoadUnchecked(path)
			if err != nil {
				return nil, model.ConfigErrorf("preset %q: %v", id, err)
			}
			return cfg, nil
		}
	}
	return nil, model.ConfigErrorf("unknown preset %q", id)
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// presetID keeps the full filename without extension as the ID
// (e.g. "hourly_year.yaml" -> "hourly_year").
func presetID(filename string) string {
	return strings.TrimSuffix(strings.TrimSuffix(filename, ".yaml"), ".yml")
}

// Dir returns the resolved preset directory (for startup logging).
func (h *PresetHandler) Dir() string {
	return h.dir
}
