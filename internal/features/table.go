package features

import (
	"math"
	"time"

	"forecast-backtest/internal/model"
)

// table is the column store shared by Frame and Matrix.
// Columns keep insertion order; every column has len(index) values.
type table struct {
	index   []time.Time
	columns []string
	data    map[string][]float64
}

func newTable(index []time.Time) table {
	return table{
		index: index,
		data:  make(map[string][]float64),
	}
}

func (t *table) add(name string, values []float64) {
	if _, ok := t.data[name]; !ok {
		t.columns = append(t.columns, name)
	}
	t.data[name] = values
}

// Len is the number of rows.
func (t *table) Len() int { return len(t.index) }

// Index returns a copy of the row timestamps.
func (t *table) Index() []time.Time {
	return append([]time.Time(nil), t.index...)
}

// Columns returns the column names in insertion order.
func (t *table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *table) Has(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Column returns a copy of the named column.
func (t *table) Column(name string) ([]float64, bool) {
	v, ok := t.data[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

// Value returns one cell.
func (t *table) Value(row int, name string) (float64, bool) {
	v, ok := t.data[name]
	if !ok || row < 0 || row >= len(v) {
		return math.NaN(), false
	}
	return v[row], true
}

// Frame is the output of AddColumns: every configured column is present and
// cells without enough history are NaN. Rows have not been trimmed yet.
type Frame struct {
	table
}

// Complete reports whether row i has no undefined cells.
func (f *Frame) Complete(i int) bool {
	for _, name := range f.columns {
		if math.IsNaN(f.data[name][i]) {
			return false
		}
	}
	return true
}

// Matrix is the supervised-learning feature matrix: only rows with complete
// history, in the original order. A Matrix is never mutated after it is built.
type Matrix struct {
	table
}

// NewMatrix assembles a Matrix from columns. Every column must be as long as
// the index; the slices are copied.
func NewMatrix(index []time.Time, columns []string, data map[string][]float64) (*Matrix, error) {
	m := &Matrix{table: newTable(append([]time.Time(nil), index...))}
	for _, name := range columns {
		v, ok := data[name]
		if !ok {
			return nil, model.ConfigErrorf("column %q has no data", name)
		}
		if len(v) != len(index) {
			return nil, model.ConfigErrorf("column %q has %d values, index has %d", name, len(v), len(index))
		}
		m.add(name, append([]float64(nil), v...))
	}
	return m, nil
}

// FeatureNames returns the columns except the excluded ones, in order.
func (m *Matrix) FeatureNames(exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}
	out := make([]string, 0, len(m.columns))
	for _, name := range m.columns {
		if !skip[name] {
			out = append(out, name)
		}
	}
	return out
}

// Design returns the row-major predictor matrix: every column except the
// excluded ones (normally the target), in FeatureNames order.
func (m *Matrix) Design(exclude ...string) [][]float64 {
	names := m.FeatureNames(exclude...)
	X := make([][]float64, m.Len())
	for i := range X {
		row := make([]float64, len(names))
		for j, name := range names {
			row[j] = m.data[name][i]
		}
		X[i] = row
	}
	return X
}

// Slice returns rows [lo, hi) as an independent Matrix.
func (m *Matrix) Slice(lo, hi int) *Matrix {
	if lo < 0 {
		lo = 0
	}
	if hi > m.Len() {
		hi = m.Len()
	}
	if hi < lo {
		hi = lo
	}
	out := &Matrix{table: newTable(append([]time.Time(nil), m.index[lo:hi]...))}
	for _, name := range m.columns {
		out.add(name, append([]float64(nil), m.data[name][lo:hi]...))
	}
	return out
}

// Split cuts the matrix into a contiguous training prefix and evaluation
// suffix. The split point is floor(Len*fraction); both sides must be non-empty.
func (m *Matrix) Split(fraction float64) (train, test *Matrix, err error) {
	if !(fraction > 0 && fraction < 1) {
		return nil, nil, model.ConfigErrorf("train_fraction must be in (0, 1), got %v", fraction)
	}
	n := m.Len()
	at := int(float64(n) * fraction)
	if at <= 0 || at >= n {
		return nil, nil, model.ConfigErrorf("train_fraction %v leaves an empty split of %d rows", fraction, n)
	}
	return m.Slice(0, at), m.Slice(at, n), nil
}
