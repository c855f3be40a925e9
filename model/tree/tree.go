// Package tree implements CART decision trees: gini-impurity classification
// and variance-reduction regression. Trees record per-feature impurity
// decrease, which is the native importance source for the tree ensembles
// built on top of them.
package tree

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/pkg/errors"
)

// Node is a single tree node. Fields are exported so fitted trees serialize
// into artifacts.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x[Feature] <= Threshold goes left
	Left      *Node
	Right     *Node

	// Leaf payload: Value is the predicted target (class label for
	// classifiers, mean for regressors); Probas is the class distribution
	// for classification leaves, aligned with the tree's class labels.
	Value   float64
	Probas  []float64
	Samples int
}

// Params are the tree hyperparameters shared by both variants.
type Params struct {
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int   // 0 means all features; ensembles subsample
	RandomState     int64 // seeds the feature subsampling
}

// DefaultParams returns the defaults used when hyperparameters are omitted.
func DefaultParams() Params {
	return Params{MaxDepth: 10, MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

// criterion abstracts the impurity measure and leaf construction so one
// grower serves both classification and regression.
type criterion interface {
	impurity(indices []int) float64
	leaf(indices []int) *Node
}

// grower carries the recursion state for one Fit call.
type grower struct {
	x           [][]float64
	params      Params
	crit        criterion
	rng         *rand.Rand
	nFeatures   int
	total       int
	importances []float64
}

func (g *grower) grow(indices []int, depth int) *Node {
	imp := g.crit.impurity(indices)
	if len(indices) < g.params.MinSamplesSplit || imp == 0 ||
		(g.params.MaxDepth > 0 && depth >= g.params.MaxDepth) {
		return g.crit.leaf(indices)
	}

	feature, threshold, gain, left, right := g.bestSplit(indices, imp)
	if feature < 0 {
		return g.crit.leaf(indices)
	}

	// Weighted impurity decrease, normalized later over the whole tree.
	g.importances[feature] += float64(len(indices)) / float64(g.total) * gain

	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      g.grow(left, depth+1),
		Right:     g.grow(right, depth+1),
		Samples:   len(indices),
	}
}

// bestSplit scans candidate features for the split with the largest impurity
// decrease. feature is -1 when no valid split exists.
func (g *grower) bestSplit(indices []int, parentImpurity float64) (feature int, threshold, gain float64, left, right []int) {
	feature = -1
	candidates := g.candidateFeatures()

	for _, f := range candidates {
		sorted := append([]int{}, indices...)
		sort.Slice(sorted, func(i, j int) bool { return g.x[sorted[i]][f] < g.x[sorted[j]][f] })

		for cut := g.params.MinSamplesLeaf; cut <= len(sorted)-g.params.MinSamplesLeaf; cut++ {
			if cut == 0 || cut == len(sorted) {
				continue
			}
			lo, hi := g.x[sorted[cut-1]][f], g.x[sorted[cut]][f]
			if lo == hi {
				continue
			}
			l, r := sorted[:cut], sorted[cut:]
			childImpurity := (float64(len(l))*g.crit.impurity(l) + float64(len(r))*g.crit.impurity(r)) / float64(len(sorted))
			decrease := parentImpurity - childImpurity
			if decrease > gain {
				feature = f
				threshold = (lo + hi) / 2
				gain = decrease
				left = append([]int{}, l...)
				right = append([]int{}, r...)
			}
		}
	}
	return feature, threshold, gain, left, right
}

func (g *grower) candidateFeatures() []int {
	all := make([]int, g.nFeatures)
	for i := range all {
		all[i] = i
	}
	k := g.params.MaxFeatures
	if k <= 0 || k >= g.nFeatures {
		return all
	}
	g.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	subset := all[:k]
	sort.Ints(subset)
	return subset
}

func predictRow(node *Node, row []float64) *Node {
	for !node.Leaf {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func toRows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		for j := 0; j < c; j++ {
			row[j] = X.At(i, j)
		}
		rows[i] = row
	}
	return rows
}

func validateFit(name string, X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, name+".Fit")
	}
	if yRows != nSamples {
		return errors.NewDimensionError(name+".Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.Newf("%s.Fit: y must be a column vector, got shape (%d, %d)", name, yRows, yCols)
	}
	return nil
}

func normalize(importances []float64) {
	var sum float64
	for _, v := range importances {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range importances {
		importances[i] /= sum
	}
}

// giniCriterion measures classification impurity over class indices.
type giniCriterion struct {
	classIdx []int
	labels   []float64
}

func (c *giniCriterion) counts(indices []int) []float64 {
	counts := make([]float64, len(c.labels))
	for _, i := range indices {
		counts[c.classIdx[i]]++
	}
	return counts
}

func (c *giniCriterion) impurity(indices []int) float64 {
	counts := c.counts(indices)
	n := float64(len(indices))
	gini := 1.0
	for _, count := range counts {
		p := count / n
		gini -= p * p
	}
	return gini
}

func (c *giniCriterion) leaf(indices []int) *Node {
	counts := c.counts(indices)
	probas := make([]float64, len(counts))
	best := 0
	for i, count := range counts {
		probas[i] = count / float64(len(indices))
		if count > counts[best] {
			best = i
		}
	}
	return &Node{Leaf: true, Value: c.labels[best], Probas: probas, Samples: len(indices)}
}

// varianceCriterion measures regression impurity as target variance.
type varianceCriterion struct {
	y []float64
}

func (c *varianceCriterion) impurity(indices []int) float64 {
	n := float64(len(indices))
	var mean float64
	for _, i := range indices {
		mean += c.y[i]
	}
	mean /= n
	var variance float64
	for _, i := range indices {
		diff := c.y[i] - mean
		variance += diff * diff
	}
	return variance / n
}

func (c *varianceCriterion) leaf(indices []int) *Node {
	var mean float64
	for _, i := range indices {
		mean += c.y[i]
	}
	return &Node{Leaf: true, Value: mean / float64(len(indices)), Samples: len(indices)}
}

// DecisionTreeClassifier is a CART classifier over gini impurity.
type DecisionTreeClassifier struct {
	State       *model.StateManager
	Params      Params
	Root        *Node
	ClassLabels []float64
	Importances []float64
	NFeatures   int
}

// NewDecisionTreeClassifier creates a classifier with the given parameters.
func NewDecisionTreeClassifier(params Params) *DecisionTreeClassifier {
	return &DecisionTreeClassifier{State: model.NewStateManager(), Params: params}
}

// Fit grows the tree on X and integer-coded labels y.
func (t *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := validateFit("DecisionTreeClassifier", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	t.NFeatures = nFeatures

	seen := make(map[float64]bool)
	for i := 0; i < nSamples; i++ {
		seen[y.At(i, 0)] = true
	}
	t.ClassLabels = make([]float64, 0, len(seen))
	for label := range seen {
		t.ClassLabels = append(t.ClassLabels, label)
	}
	sort.Float64s(t.ClassLabels)

	index := make(map[float64]int, len(t.ClassLabels))
	for i, label := range t.ClassLabels {
		index[label] = i
	}
	classIdx := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		classIdx[i] = index[y.At(i, 0)]
	}

	g := &grower{
		x:           toRows(X),
		params:      withDefaults(t.Params),
		crit:        &giniCriterion{classIdx: classIdx, labels: t.ClassLabels},
		rng:         rand.New(rand.NewSource(t.Params.RandomState)),
		nFeatures:   nFeatures,
		total:       nSamples,
		importances: make([]float64, nFeatures),
	}
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	t.Root = g.grow(indices, 0)
	normalize(g.importances)
	t.Importances = g.importances

	if t.State == nil {
		t.State = model.NewStateManager()
	}
	t.State.SetDimensions(nFeatures, nSamples)
	t.State.SetFitted()
	return nil
}

// Predict returns the majority class of the leaf each row lands in.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if t.State == nil || !t.State.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "Predict")
	}
	rows := toRows(X)
	predictions := mat.NewDense(len(rows), 1, nil)
	for i, row := range rows {
		predictions.Set(i, 0, predictRow(t.Root, row).Value)
	}
	return predictions, nil
}

// PredictProba returns the leaf class distributions, columns in ascending
// class-label order.
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if t.State == nil || !t.State.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", "PredictProba")
	}
	rows := toRows(X)
	proba := mat.NewDense(len(rows), len(t.ClassLabels), nil)
	for i, row := range rows {
		leaf := predictRow(t.Root, row)
		for k, p := range leaf.Probas {
			proba.Set(i, k, p)
		}
	}
	return proba, nil
}

// FeatureImportances returns normalized impurity-decrease importances.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	return t.Importances
}

// Classes returns the sorted class labels, matching PredictProba columns.
func (t *DecisionTreeClassifier) Classes() []float64 {
	return t.ClassLabels
}

// DecisionTreeRegressor is a CART regressor over variance reduction.
type DecisionTreeRegressor struct {
	State       *model.StateManager
	Params      Params
	Root        *Node
	Importances []float64
	NFeatures   int
}

// NewDecisionTreeRegressor creates a regressor with the given parameters.
func NewDecisionTreeRegressor(params Params) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{State: model.NewStateManager(), Params: params}
}

// Fit grows the tree on X and continuous targets y.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	if err := validateFit("DecisionTreeRegressor", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	t.NFeatures = nFeatures

	targets := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		targets[i] = y.At(i, 0)
	}

	g := &grower{
		x:           toRows(X),
		params:      withDefaults(t.Params),
		crit:        &varianceCriterion{y: targets},
		rng:         rand.New(rand.NewSource(t.Params.RandomState)),
		nFeatures:   nFeatures,
		total:       nSamples,
		importances: make([]float64, nFeatures),
	}
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	t.Root = g.grow(indices, 0)
	normalize(g.importances)
	t.Importances = g.importances

	if t.State == nil {
		t.State = model.NewStateManager()
	}
	t.State.SetDimensions(nFeatures, nSamples)
	t.State.SetFitted()
	return nil
}

// Predict returns the leaf mean for each row.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if t.State == nil || !t.State.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	}
	rows := toRows(X)
	predictions := mat.NewDense(len(rows), 1, nil)
	for i, row := range rows {
		predictions.Set(i, 0, predictRow(t.Root, row).Value)
	}
	return predictions, nil
}

// FeatureImportances returns normalized impurity-decrease importances.
func (t *DecisionTreeRegressor) FeatureImportances() []float64 {
	return t.Importances
}

// withDefaults fills zero-valued structural limits so the grower always
// terminates.
func withDefaults(p Params) Params {
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	if p.MaxDepth < 0 {
		p.MaxDepth = 0
	}
	if p.MaxDepth == 0 {
		// Unlimited depth is bounded in practice by sample count; cap to
		// avoid pathological recursion on adversarial data.
		p.MaxDepth = int(math.MaxInt32)
	}
	return p
}
