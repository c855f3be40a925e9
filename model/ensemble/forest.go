// Package ensemble implements the tree ensembles: bootstrap random forests
// and gradient-boosted trees, both built on the CART trees in model/tree.
// Importances are averaged over member trees, giving the ensembles a native
// importance source.
package ensemble

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/model/tree"
	"github.com/mlinsights/tabular/pkg/errors"
)

// ForestParams are the random-forest hyperparameters.
type ForestParams struct {
	NEstimators int
	MaxDepth    int
	MaxFeatures int // 0 means sqrt(n_features)
	RandomState int64
}

// DefaultForestParams returns the defaults used when hyperparameters are
// omitted.
func DefaultForestParams() ForestParams {
	return ForestParams{NEstimators: 100, MaxDepth: 10}
}

func (p ForestParams) featureSubset(nFeatures int) int {
	if p.MaxFeatures > 0 {
		return p.MaxFeatures
	}
	k := int(math.Sqrt(float64(nFeatures)))
	if k < 1 {
		k = 1
	}
	return k
}

// bootstrap draws n indices with replacement.
func bootstrap(n int, rng *rand.Rand) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = rng.Intn(n)
	}
	return indices
}

func subsetMatrix(X mat.Matrix, indices []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(idx, j))
		}
	}
	return out
}

func subsetColumn(y mat.Matrix, indices []int) *mat.Dense {
	out := mat.NewDense(len(indices), 1, nil)
	for i, idx := range indices {
		out.Set(i, 0, y.At(idx, 0))
	}
	return out
}

func averageImportances(perTree [][]float64, nFeatures int) []float64 {
	if len(perTree) == 0 {
		return nil
	}
	out := make([]float64, nFeatures)
	for _, imp := range perTree {
		for j, v := range imp {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(perTree))
	}
	return out
}

// RandomForestClassifier averages the class distributions of bootstrap-grown
// trees.
type RandomForestClassifier struct {
	State       *model.StateManager
	Params      ForestParams
	Trees       []*tree.DecisionTreeClassifier
	ClassLabels []float64
	Importances []float64
	NFeatures   int
}

// NewRandomForestClassifier creates a forest with the given parameters.
func NewRandomForestClassifier(params ForestParams) *RandomForestClassifier {
	if params.NEstimators < 1 {
		params.NEstimators = DefaultForestParams().NEstimators
	}
	return &RandomForestClassifier{State: model.NewStateManager(), Params: params}
}

// Fit grows NEstimators trees on bootstrap samples with feature subsampling.
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomForestClassifier.Fit")
	}
	f.NFeatures = nFeatures

	seen := make(map[float64]bool)
	for i := 0; i < nSamples; i++ {
		seen[y.At(i, 0)] = true
	}
	f.ClassLabels = make([]float64, 0, len(seen))
	for label := range seen {
		f.ClassLabels = append(f.ClassLabels, label)
	}
	sort.Float64s(f.ClassLabels)

	rng := rand.New(rand.NewSource(f.Params.RandomState))
	f.Trees = make([]*tree.DecisionTreeClassifier, f.Params.NEstimators)
	perTree := make([][]float64, 0, f.Params.NEstimators)

	for m := 0; m < f.Params.NEstimators; m++ {
		indices := bootstrap(nSamples, rng)
		member := tree.NewDecisionTreeClassifier(tree.Params{
			MaxDepth:    f.Params.MaxDepth,
			MaxFeatures: f.Params.featureSubset(nFeatures),
			RandomState: rng.Int63(),
		})
		if err := member.Fit(subsetMatrix(X, indices), subsetColumn(y, indices)); err != nil {
			return errors.Wrapf(err, "RandomForestClassifier.Fit: tree %d", m)
		}
		f.Trees[m] = member
		perTree = append(perTree, member.Importances)
	}
	f.Importances = averageImportances(perTree, nFeatures)

	if f.State == nil {
		f.State = model.NewStateManager()
	}
	f.State.SetDimensions(nFeatures, nSamples)
	f.State.SetFitted()
	return nil
}

// Predict returns the class with the highest averaged probability.
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, nClasses := proba.Dims()
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		best, bestProb := 0, proba.At(i, 0)
		for k := 1; k < nClasses; k++ {
			if proba.At(i, k) > bestProb {
				best, bestProb = k, proba.At(i, k)
			}
		}
		predictions.Set(i, 0, f.ClassLabels[best])
	}
	return predictions, nil
}

// PredictProba averages member-tree distributions, mapping each tree's local
// class columns onto the forest's label set (a bootstrap sample can miss a
// class entirely).
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if f.State == nil || !f.State.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}

	index := make(map[float64]int, len(f.ClassLabels))
	for i, label := range f.ClassLabels {
		index[label] = i
	}

	r, _ := X.Dims()
	proba := mat.NewDense(r, len(f.ClassLabels), nil)
	for _, member := range f.Trees {
		memberProba, err := member.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			for k, label := range member.ClassLabels {
				col := index[label]
				proba.Set(i, col, proba.At(i, col)+memberProba.At(i, k))
			}
		}
	}
	proba.Scale(1/float64(len(f.Trees)), proba)
	return proba, nil
}

// FeatureImportances returns importances averaged across member trees.
func (f *RandomForestClassifier) FeatureImportances() []float64 {
	return f.Importances
}

// Classes returns the sorted class labels, matching PredictProba columns.
func (f *RandomForestClassifier) Classes() []float64 {
	return f.ClassLabels
}

// RandomForestRegressor averages the predictions of bootstrap-grown trees.
type RandomForestRegressor struct {
	State       *model.StateManager
	Params      ForestParams
	Trees       []*tree.DecisionTreeRegressor
	Importances []float64
	NFeatures   int
}

// NewRandomForestRegressor creates a forest with the given parameters.
func NewRandomForestRegressor(params ForestParams) *RandomForestRegressor {
	if params.NEstimators < 1 {
		params.NEstimators = DefaultForestParams().NEstimators
	}
	return &RandomForestRegressor{State: model.NewStateManager(), Params: params}
}

// Fit grows NEstimators trees on bootstrap samples with feature subsampling.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomForestRegressor.Fit")
	}
	f.NFeatures = nFeatures

	rng := rand.New(rand.NewSource(f.Params.RandomState))
	f.Trees = make([]*tree.DecisionTreeRegressor, f.Params.NEstimators)
	perTree := make([][]float64, 0, f.Params.NEstimators)

	for m := 0; m < f.Params.NEstimators; m++ {
		indices := bootstrap(nSamples, rng)
		member := tree.NewDecisionTreeRegressor(tree.Params{
			MaxDepth:    f.Params.MaxDepth,
			MaxFeatures: f.Params.featureSubset(nFeatures),
			RandomState: rng.Int63(),
		})
		if err := member.Fit(subsetMatrix(X, indices), subsetColumn(y, indices)); err != nil {
			return errors.Wrapf(err, "RandomForestRegressor.Fit: tree %d", m)
		}
		f.Trees[m] = member
		perTree = append(perTree, member.Importances)
	}
	f.Importances = averageImportances(perTree, nFeatures)

	if f.State == nil {
		f.State = model.NewStateManager()
	}
	f.State.SetDimensions(nFeatures, nSamples)
	f.State.SetFitted()
	return nil
}

// Predict returns the mean member-tree prediction per row.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if f.State == nil || !f.State.IsFitted() {
		return nil, errors.NewNotFittedError("RandomForestRegressor", "Predict")
	}

	r, _ := X.Dims()
	predictions := mat.NewDense(r, 1, nil)
	for _, member := range f.Trees {
		memberPred, err := member.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			predictions.Set(i, 0, predictions.At(i, 0)+memberPred.At(i, 0))
		}
	}
	predictions.Scale(1/float64(len(f.Trees)), predictions)
	return predictions, nil
}

// FeatureImportances returns importances averaged across member trees.
func (f *RandomForestRegressor) FeatureImportances() []float64 {
	return f.Importances
}
