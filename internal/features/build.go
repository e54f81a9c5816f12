package features

import (
	"math"
	"sort"
	"time"

	"forecast-backtest/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Build turns a series into a feature matrix in two explicit steps:
// AddColumns (derive lag and rolling columns, NaN where history is missing)
// and DropIncomplete (warm-up trimming). The series is not modified.
func Build(s *model.TimeSeries, lags, windows []int) (*Matrix, error) {
	frame, err := AddColumns(s, lags, windows)
	if err != nil {
		return nil, err
	}
	return DropIncomplete(frame)
}

// AddColumns derives, for every base field and every lag k, the column whose
// value at row t is the field at row t-k; and for price and load and every
// window w, the mean of the w values at rows t-1..t-w. Cells that would need
// rows before the start of the series are NaN.
func AddColumns(s *model.TimeSeries, lags, windows []int) (*Frame, error) {
	if s.Len() == 0 {
		return nil, model.ConfigErrorf("time series is empty")
	}
	lagSet, err := NormalizeSet("lag", lags)
	if err != nil {
		return nil, err
	}
	windowSet, err := NormalizeSet("rolling window", windows)
	if err != nil {
		return nil, err
	}

	f := &Frame{table: newTable(s.Timestamps())}
	base := make(map[model.Field][]float64, len(model.BaseFields))
	for _, field := range model.BaseFields {
		v, err := s.Values(field)
		if err != nil {
			return nil, err
		}
		base[field] = v
		f.add(string(field), v)
	}

	for _, k := range lagSet {
		for _, field := range model.BaseFields {
			f.add(LagName(field, k), shift(base[field], k))
		}
	}
	for _, w := range windowSet {
		for _, field := range RollingFields {
			f.add(RollMeanName(field, w), rollingMean(shift(base[field], 1), w))
		}
	}
	return f, nil
}

// DropIncomplete keeps only the rows of f without undefined cells, preserving
// order. It fails when no row survives.
func DropIncomplete(f *Frame) (*Matrix, error) {
	keep := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		if f.Complete(i) {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, model.ConfigErrorf("feature warm-up drops all %d rows; reduce lags or rolling windows", f.Len())
	}

	index := make([]time.Time, len(keep))
	for j, i := range keep {
		index[j] = f.index[i]
	}
	m := &Matrix{table: newTable(index)}
	for _, name := range f.columns {
		src := f.data[name]
		dst := make([]float64, len(keep))
		for j, i := range keep {
			dst[j] = src[i]
		}
		m.add(name, dst)
	}
	return m, nil
}

// WarmupRows is the number of leading rows DropIncomplete removes from a
// series without missing values.
func WarmupRows(lags, windows []int) int {
	n := 0
	for _, k := range lags {
		n = max(n, k)
	}
	for _, w := range windows {
		n = max(n, w)
	}
	return n
}

// NormalizeSet deduplicates and sorts a lag or window set, rejecting
// non-positive members.
func NormalizeSet(kind string, values []int) ([]int, error) {
	seen := make(map[int]bool, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v <= 0 {
			return nil, model.ConfigErrorf("%s must be > 0, got %d", kind, v)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out, nil
}

// shift moves x forward by k rows: out[t] = x[t-k], NaN for t < k.
func shift(x []float64, k int) []float64 {
	out := nanSlice(len(x))
	for t := k; t < len(x); t++ {
		out[t] = x[t-k]
	}
	return out
}

// rollingMean is the trailing mean over w rows ending at t, inclusive.
// Windows touching a NaN are NaN.
func rollingMean(x []float64, w int) []float64 {
	out := nanSlice(len(x))
	for t := w - 1; t < len(x); t++ {
		win := x[t-w+1 : t+1]
		if hasNaN(win) {
			continue
		}
		out[t] = stat.Mean(win, nil)
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
