package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Linear is ridge-regularised least squares on standardised features with an
// unpenalised intercept.
type Linear struct {
	Ridge float64

	means []float64
	scale []float64
	coef  []float64
	bias  float64
}

func NewLinear() *Linear { return &Linear{Ridge: 1e-3} }

func (l *Linear) Name() string { return "linear" }

func (l *Linear) Fit(X [][]float64, y []float64) error {
	p, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	if l.Ridge < 0 || math.IsNaN(l.Ridge) {
		return errParam("linear", "ridge must be >= 0")
	}
	n := len(X)

	means := make([]float64, p)
	scale := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		m, sd := stat.MeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		means[j], scale[j] = m, sd
	}

	z := mat.NewDense(n, p, nil)
	for i, row := range X {
		for j, v := range row {
			z.Set(i, j, (v-means[j])/scale[j])
		}
	}
	ym := stat.Mean(y, nil)
	yc := mat.NewVecDense(n, nil)
	for i, v := range y {
		yc.SetVec(i, v-ym)
	}

	var a mat.Dense
	a.Mul(z.T(), z)
	for j := 0; j < p; j++ {
		a.Set(j, j, a.At(j, j)+l.Ridge*float64(n))
	}
	var b mat.VecDense
	b.MulVec(z.T(), yc)

	var beta mat.VecDense
	if err := beta.SolveVec(&a, &b); err != nil {
		// An ill-conditioned system still yields a usable solution.
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return fmt.Errorf("linear: solve normal equations: %w", err)
		}
	}

	l.means, l.scale = means, scale
	l.coef = make([]float64, p)
	for j := range l.coef {
		l.coef[j] = beta.AtVec(j)
	}
	l.bias = ym
	return nil
}

func (l *Linear) Predict(X [][]float64) ([]float64, error) {
	if l.coef == nil {
		return nil, ErrNotFitted
	}
	if _, err := checkWidth(X, len(l.coef)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := l.bias
		for j, x := range row {
			v += l.coef[j] * (x - l.means[j]) / l.scale[j]
		}
		out[i] = v
	}
	return out, nil
}

// Coefficients returns the fitted weights on the standardised features.
func (l *Linear) Coefficients() []float64 {
	return append([]float64(nil), l.coef...)
}
