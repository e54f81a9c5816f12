package forecast

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GradientBoosting is a squared-loss gradient-boosted ensemble of regression
// trees. Split candidates come from per-feature quantile bins computed once at
// Fit time. There is no row or feature subsampling, so fitting is
// deterministic.
type GradientBoosting struct {
	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
	MaxBins        int

	width int
	init  float64
	trees []*treeNode
}

// NewGradientBoosting returns an ensemble with 100 depth-3 trees and a 0.1
// learning rate.
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 1,
		MaxBins:        64,
	}
}

func (g *GradientBoosting) Name() string { return "gradient_boosting" }

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	bin       int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (n *treeNode) predictBinned(bins [][]uint16, i int) float64 {
	for !n.leaf {
		if int(bins[n.feature][i]) <= n.bin {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (g *GradientBoosting) Fit(X [][]float64, y []float64) error {
	width, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	if g.NEstimators <= 0 || g.LearningRate <= 0 || g.MaxDepth <= 0 {
		return errParam("gradient_boosting", "n_estimators, learning_rate and max_depth must be > 0")
	}
	minLeaf := max(g.MinSamplesLeaf, 1)
	maxBins := min(max(g.MaxBins, 2), 1<<16-1)

	n := len(X)
	edges := make([][]float64, width)
	bins := make([][]uint16, width)
	col := make([]float64, n)
	for j := 0; j < width; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		edges[j] = binEdges(col, maxBins)
		bins[j] = make([]uint16, n)
		for i, v := range col {
			bins[j][i] = uint16(binOf(edges[j], v))
		}
	}

	g.init = mean(y)
	F := make([]float64, n)
	for i := range F {
		F[i] = g.init
	}
	resid := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}

	b := &treeBuilder{
		edges:    edges,
		bins:     bins,
		resid:    resid,
		maxDepth: g.MaxDepth,
		minLeaf:  minLeaf,
	}
	g.trees = g.trees[:0]
	for m := 0; m < g.NEstimators; m++ {
		for i := range resid {
			resid[i] = y[i] - F[i]
		}
		idx := append([]int(nil), all...)
		tree := b.grow(idx, 0)
		for i := range F {
			F[i] += g.LearningRate * tree.predictBinned(bins, i)
		}
		g.trees = append(g.trees, tree)
	}
	g.width = width
	return nil
}

func (g *GradientBoosting) Predict(X [][]float64) ([]float64, error) {
	if g.trees == nil {
		return nil, ErrNotFitted
	}
	if _, err := checkWidth(X, g.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		v := g.init
		for _, t := range g.trees {
			v += g.LearningRate * t.predict(x)
		}
		out[i] = v
	}
	return out, nil
}

type treeBuilder struct {
	edges    [][]float64
	bins     [][]uint16
	resid    []float64
	maxDepth int
	minLeaf  int
}

func (b *treeBuilder) grow(idx []int, depth int) *treeNode {
	sum := 0.0
	for _, i := range idx {
		sum += b.resid[i]
	}
	node := &treeNode{leaf: true, value: sum / float64(len(idx))}
	if depth >= b.maxDepth || len(idx) < 2*b.minLeaf {
		return node
	}

	feature, bin, ok := b.bestSplit(idx, sum)
	if !ok {
		return node
	}

	// Stable partition keeps row order inside each child.
	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if int(b.bins[feature][i]) <= bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.leaf = false
	node.feature = feature
	node.bin = bin
	node.threshold = b.edges[feature][bin]
	node.left = b.grow(left, depth+1)
	node.right = b.grow(right, depth+1)
	return node
}

// bestSplit scans every feature's bin histogram for the split with the largest
// reduction in squared error. Ties keep the earliest (feature, bin).
func (b *treeBuilder) bestSplit(idx []int, total float64) (feature, bin int, ok bool) {
	n := float64(len(idx))
	parent := total * total / n
	bestGain := 1e-12

	for j, e := range b.edges {
		if len(e) == 0 {
			continue
		}
		sums := make([]float64, len(e)+1)
		counts := make([]int, len(e)+1)
		for _, i := range idx {
			k := b.bins[j][i]
			sums[k] += b.resid[i]
			counts[k]++
		}

		ls, lc := 0.0, 0
		for k := 0; k < len(e); k++ {
			ls += sums[k]
			lc += counts[k]
			rc := len(idx) - lc
			if lc < b.minLeaf || rc < b.minLeaf {
				continue
			}
			rs := total - ls
			gain := ls*ls/float64(lc) + rs*rs/float64(rc) - parent
			if gain > bestGain {
				bestGain, feature, bin, ok = gain, j, k, true
			}
		}
	}
	return feature, bin, ok
}

// binEdges returns ascending split thresholds for one feature column.
// With few distinct values the thresholds are midpoints between neighbours;
// otherwise they are taken at evenly spaced quantiles.
func binEdges(col []float64, maxBins int) []float64 {
	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)

	uniq := sorted[:0:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) <= 1 {
		return nil
	}

	if len(uniq) <= maxBins {
		out := make([]float64, len(uniq)-1)
		for i := range out {
			out[i] = uniq[i] + (uniq[i+1]-uniq[i])/2
		}
		return out
	}

	out := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		v := stat.Quantile(float64(k)/float64(maxBins), stat.Empirical, sorted, nil)
		if len(out) == 0 || v > out[len(out)-1] {
			out = append(out, v)
		}
	}
	// The largest value must fall in the last bin so every edge splits something.
	if len(out) > 0 && out[len(out)-1] >= sorted[len(sorted)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// binOf returns the first bin whose upper edge is >= v.
func binOf(edges []float64, v float64) int {
	return sort.Search(len(edges), func(e int) bool { return v <= edges[e] })
}
