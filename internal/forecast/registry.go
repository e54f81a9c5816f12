package forecast

import (
	"fmt"
	"sort"

	"forecast-backtest/internal/model"
)

// ParameterInfo describes one tunable of an oracle.
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "float", "int", "string"
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// Info describes an oracle available through New.
type Info struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// DefaultOracle is used when a configuration leaves the model name empty.
const DefaultOracle = "gradient_boosting"

var catalog = map[string]Info{
	"gradient_boosting": {
		Name:        "gradient_boosting",
		Description: "Squared-loss gradient-boosted regression trees with histogram splits.",
		Parameters: []ParameterInfo{
			{Name: "n_estimators", Type: "int", Description: "Number of boosting stages", Default: 100},
			{Name: "learning_rate", Type: "float", Description: "Shrinkage applied to each tree", Default: 0.1},
			{Name: "max_depth", Type: "int", Description: "Depth of each regression tree", Default: 3},
			{Name: "min_samples_leaf", Type: "int", Description: "Minimum rows in a leaf", Default: 1},
			{Name: "max_bins", Type: "int", Description: "Quantile bins per feature for split search", Default: 64},
		},
	},
	"linear": {
		Name:        "linear",
		Description: "Ridge least squares on standardised features.",
		Parameters: []ParameterInfo{
			{Name: "ridge", Type: "float", Description: "L2 penalty per training row", Default: 1e-3},
		},
	},
	"persistence": {
		Name:        "persistence",
		Description: "No-skill baseline: forecasts the previous period's value of a lag column.",
		Parameters: []ParameterInfo{
			{Name: "column", Type: "string", Description: "Feature column to replay", Default: "price_lag1"},
		},
	},
}

// Available lists the registered oracles sorted by name.
func Available() []Info {
	out := make([]Info, 0, len(catalog))
	for _, info := range catalog {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Known reports whether name (or the default, when empty) is registered.
func Known(name string) bool {
	if name == "" {
		name = DefaultOracle
	}
	_, ok := catalog[name]
	return ok
}

// New builds an unfitted oracle by name. featureNames are the predictor
// columns in Design order; only oracles that address columns by name use them.
func New(name string, params map[string]any, featureNames []string) (Oracle, error) {
	if name == "" {
		name = DefaultOracle
	}
	switch name {
	case "gradient_boosting":
		g := NewGradientBoosting()
		g.NEstimators = int(num(params, "n_estimators", float64(g.NEstimators)))
		g.LearningRate = num(params, "learning_rate", g.LearningRate)
		g.MaxDepth = int(num(params, "max_depth", float64(g.MaxDepth)))
		g.MinSamplesLeaf = int(num(params, "min_samples_leaf", float64(g.MinSamplesLeaf)))
		g.MaxBins = int(num(params, "max_bins", float64(g.MaxBins)))
		return g, nil
	case "linear":
		l := NewLinear()
		l.Ridge = num(params, "ridge", l.Ridge)
		return l, nil
	case "persistence":
		return NewPersistence(str(params, "column", "price_lag1"), featureNames)
	default:
		return nil, model.ConfigErrorf("unsupported oracle: %q", name)
	}
}

func errParam(oracle, msg string) error {
	return model.ConfigErrorf("%s: %s", oracle, msg)
}

func num(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		switch x := v.(type) {
		case float64:
			return x
		case float32:
			return float64(x)
		case int:
			return float64(x)
		case int64:
			return float64(x)
		}
	}
	return def
}

func str(m map[string]any, key string, def string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// Describe formats an oracle name with its non-default parameters for logs.
func Describe(name string, params map[string]any) string {
	if name == "" {
		name = DefaultOracle
	}
	if len(params) == 0 {
		return name
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := name + "("
	for i, k := range keys {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s=%v", k, params[k])
	}
	return s + ")"
}
