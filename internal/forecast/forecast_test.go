package forecast

import (
	"math"
	"testing"

	"forecast-backtest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := float64(i%17) - 8
		b := float64((i*7)%13) / 3
		X[i] = []float64{a, b}
		y[i] = 3*a - 2*b + 5
	}
	return X, y
}

func TestFixedAndFunc(t *testing.T) {
	o := Fixed([]float64{1, 2, 3})
	require.NoError(t, o.Fit(nil, nil))
	got, err := o.Predict(make([][]float64, 3))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)

	_, err = o.Predict(make([][]float64, 2))
	assert.Error(t, err)
	assert.Equal(t, "func", o.Name())
}

func TestLinearRecoversPlane(t *testing.T) {
	X, y := grid(200)
	l := NewLinear()
	l.Ridge = 0
	require.NoError(t, l.Fit(X, y))

	pred, err := l.Predict([][]float64{{0, 0}, {1, 1}, {-4, 2.5}})
	require.NoError(t, err)
	assert.InDelta(t, 5, pred[0], 1e-6)
	assert.InDelta(t, 6, pred[1], 1e-6)
	assert.InDelta(t, -12, pred[2], 1e-6)
}

func TestLinearHandlesCollinearFeatures(t *testing.T) {
	X, y := grid(100)
	for i := range X {
		X[i] = append(X[i], X[i][0]) // duplicate column
	}
	l := NewLinear()
	require.NoError(t, l.Fit(X, y))
	pred, err := l.Predict(X[:5])
	require.NoError(t, err)
	for i := range pred {
		assert.InDelta(t, y[i], pred[i], 0.5)
	}
}

func TestGradientBoostingFitsStep(t *testing.T) {
	n := 300
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n)
		X[i] = []float64{x, float64(i % 5)}
		if x < 0.5 {
			y[i] = 10
		} else {
			y[i] = 20
		}
	}
	g := NewGradientBoosting()
	require.NoError(t, g.Fit(X, y))

	pred, err := g.Predict([][]float64{{0.1, 0}, {0.9, 3}})
	require.NoError(t, err)
	assert.InDelta(t, 10, pred[0], 0.1)
	assert.InDelta(t, 20, pred[1], 0.1)
}

func TestGradientBoostingDeterministic(t *testing.T) {
	X, y := grid(250)
	a := NewGradientBoosting()
	b := NewGradientBoosting()
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)

	m, err := Evaluate(y, pa)
	require.NoError(t, err)
	assert.Greater(t, m.R2, 0.95)
}

func TestGradientBoostingErrors(t *testing.T) {
	g := NewGradientBoosting()
	_, err := g.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)

	assert.Error(t, g.Fit(nil, nil))
	assert.Error(t, g.Fit([][]float64{{1}, {2}}, []float64{1}))
	assert.Error(t, g.Fit([][]float64{{1}, {2, 3}}, []float64{1, 2}))

	require.NoError(t, g.Fit([][]float64{{1}, {2}, {3}}, []float64{1, 2, 3}))
	_, err = g.Predict([][]float64{{1, 2}})
	assert.Error(t, err)

	bad := NewGradientBoosting()
	bad.NEstimators = 0
	assert.ErrorIs(t, bad.Fit([][]float64{{1}}, []float64{1}), model.ErrConfig)
}

func TestGradientBoostingConstantTarget(t *testing.T) {
	X, _ := grid(40)
	y := make([]float64, len(X))
	for i := range y {
		y[i] = 7
	}
	g := NewGradientBoosting()
	require.NoError(t, g.Fit(X, y))
	pred, err := g.Predict(X[:3])
	require.NoError(t, err)
	for _, p := range pred {
		assert.InDelta(t, 7, p, 1e-12)
	}
}

func TestBinEdges(t *testing.T) {
	assert.Nil(t, binEdges([]float64{2, 2, 2}, 8))
	assert.Equal(t, []float64{1.5, 2.5}, binEdges([]float64{3, 1, 2, 1}, 8))

	col := make([]float64, 1000)
	for i := range col {
		col[i] = float64(i)
	}
	e := binEdges(col, 10)
	assert.Len(t, e, 9)
	assert.Equal(t, 99.0, e[0], "edges sit on empirical deciles")
	assert.Equal(t, 899.0, e[8])
	assert.Equal(t, 0, binOf(e, -1))
	assert.Equal(t, len(e), binOf(e, 5000))
}

func TestPersistence(t *testing.T) {
	p, err := NewPersistence("price_lag1", []string{"load", "price_lag1"})
	require.NoError(t, err)
	require.NoError(t, p.Fit([][]float64{{1, 2}}, []float64{3}))
	got, err := p.Predict([][]float64{{1, 2}, {5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 6}, got)

	_, err = NewPersistence("price_lag1", []string{"load"})
	assert.ErrorIs(t, err, model.ErrConfig)
}

func TestEvaluate(t *testing.T) {
	m, err := Evaluate([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 6})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, m.MAE, 1e-12)
	assert.InDelta(t, 1, m.RMSE, 1e-12)
	assert.InDelta(t, 1-4.0/5.0, m.R2, 1e-12)
	assert.Equal(t, 4, m.N)

	_, err = Evaluate([]float64{1}, nil)
	assert.Error(t, err)
	_, err = Evaluate(nil, nil)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	names := []string{}
	for _, info := range Available() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"gradient_boosting", "linear", "persistence"}, names)

	o, err := New("", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "gradient_boosting", o.Name())

	o, err = New("gradient_boosting", map[string]any{"n_estimators": 10, "learning_rate": 0.5}, nil)
	require.NoError(t, err)
	g := o.(*GradientBoosting)
	assert.Equal(t, 10, g.NEstimators)
	assert.Equal(t, 0.5, g.LearningRate)

	o, err = New("linear", map[string]any{"ridge": 0.0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, o.(*Linear).Ridge)

	_, err = New("persistence", nil, []string{"load"})
	assert.ErrorIs(t, err, model.ErrConfig)

	_, err = New("xgboost", nil, nil)
	assert.ErrorIs(t, err, model.ErrConfig)

	assert.Equal(t, "linear(ridge=0.5)", Describe("linear", map[string]any{"ridge": 0.5}))
	assert.Equal(t, "gradient_boosting", Describe("", nil))
	assert.False(t, math.IsNaN(mean([]float64{1, 2})))
}
