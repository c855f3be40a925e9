package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/model/tree"
	"github.com/mlinsights/tabular/pkg/errors"
)

// BoostingParams are the gradient-boosting hyperparameters. Boosting grows
// shallow regression trees on the loss gradient, so MaxDepth defaults far
// lower than the forest's.
type BoostingParams struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	RandomState  int64
}

// DefaultBoostingParams returns the defaults used when hyperparameters are
// omitted.
func DefaultBoostingParams() BoostingParams {
	return BoostingParams{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3}
}

func (p BoostingParams) withDefaults() BoostingParams {
	d := DefaultBoostingParams()
	if p.NEstimators < 1 {
		p.NEstimators = d.NEstimators
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.MaxDepth < 1 {
		p.MaxDepth = d.MaxDepth
	}
	return p
}

// Booster is one additive model: a constant initial score plus
// shrinkage-weighted regression trees fit to successive gradients.
type Booster struct {
	Init  float64
	Trees []*tree.DecisionTreeRegressor
}

func (s *Booster) scores(X mat.Matrix, learningRate float64) (*mat.VecDense, error) {
	r, _ := X.Dims()
	scores := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		scores.SetVec(i, s.Init)
	}
	for _, member := range s.Trees {
		pred, err := member.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			scores.SetVec(i, scores.AtVec(i)+learningRate*pred.At(i, 0))
		}
	}
	return scores, nil
}

// fitScorer runs the boosting loop: at each stage the pseudo-residuals for
// the current scores are computed by gradient and a regression tree is fit to
// them.
func fitScorer(X mat.Matrix, init float64, params BoostingParams,
	gradient func(scores []float64) []float64) (*Booster, error) {

	nSamples, _ := X.Dims()
	scorer := &Booster{Init: init, Trees: make([]*tree.DecisionTreeRegressor, 0, params.NEstimators)}

	scores := make([]float64, nSamples)
	for i := range scores {
		scores[i] = init
	}

	for m := 0; m < params.NEstimators; m++ {
		residuals := gradient(scores)
		target := mat.NewDense(nSamples, 1, residuals)

		member := tree.NewDecisionTreeRegressor(tree.Params{
			MaxDepth:    params.MaxDepth,
			RandomState: params.RandomState + int64(m),
		})
		if err := member.Fit(X, target); err != nil {
			return nil, errors.Wrapf(err, "gradient boosting: stage %d", m)
		}
		scorer.Trees = append(scorer.Trees, member)

		pred, err := member.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < nSamples; i++ {
			scores[i] += params.LearningRate * pred.At(i, 0)
		}
	}
	return scorer, nil
}

func (s *Booster) treeImportances() [][]float64 {
	out := make([][]float64, 0, len(s.Trees))
	for _, member := range s.Trees {
		out = append(out, member.Importances)
	}
	return out
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// GradientBoostingRegressor fits regression trees to the residuals of a
// running prediction, starting from the target mean.
type GradientBoostingRegressor struct {
	State       *model.StateManager
	Params      BoostingParams
	Scorer      *Booster
	Importances []float64
	NFeatures   int
}

// NewGradientBoostingRegressor creates a regressor with the given parameters.
func NewGradientBoostingRegressor(params BoostingParams) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{State: model.NewStateManager(), Params: params.withDefaults()}
}

// Fit runs the boosting loop against squared-error gradients.
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GradientBoostingRegressor.Fit")
	}
	g.NFeatures = nFeatures

	targets := make([]float64, nSamples)
	var mean float64
	for i := 0; i < nSamples; i++ {
		targets[i] = y.At(i, 0)
		mean += targets[i]
	}
	mean /= float64(nSamples)

	scorer, err := fitScorer(X, mean, g.Params, func(scores []float64) []float64 {
		residuals := make([]float64, nSamples)
		for i := range residuals {
			residuals[i] = targets[i] - scores[i]
		}
		return residuals
	})
	if err != nil {
		return err
	}
	g.Scorer = scorer
	g.Importances = averageImportances(scorer.treeImportances(), nFeatures)

	if g.State == nil {
		g.State = model.NewStateManager()
	}
	g.State.SetDimensions(nFeatures, nSamples)
	g.State.SetFitted()
	return nil
}

// Predict returns the accumulated boosted score per row.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if g.State == nil || !g.State.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}
	scores, err := g.Scorer.scores(X, g.Params.LearningRate)
	if err != nil {
		return nil, err
	}
	r := scores.Len()
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		predictions.Set(i, 0, scores.AtVec(i))
	}
	return predictions, nil
}

// FeatureImportances returns importances averaged across boosting stages.
func (g *GradientBoostingRegressor) FeatureImportances() []float64 {
	return g.Importances
}

// GradientBoostingClassifier boosts against the logistic loss. Binary
// problems use a single scorer; multiclass problems fit one scorer per class
// on indicator targets and normalize the sigmoid scores.
type GradientBoostingClassifier struct {
	State       *model.StateManager
	Params      BoostingParams
	Scorers     []*Booster
	ClassLabels []float64
	Importances []float64
	NFeatures   int
}

// NewGradientBoostingClassifier creates a classifier with the given
// parameters.
func NewGradientBoostingClassifier(params BoostingParams) *GradientBoostingClassifier {
	return &GradientBoostingClassifier{State: model.NewStateManager(), Params: params.withDefaults()}
}

// Fit runs the boosting loop against logistic-loss gradients, one scorer per
// positive class (a single scorer in the binary case).
func (g *GradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "GradientBoostingClassifier.Fit")
	}
	g.NFeatures = nFeatures

	labels := make([]float64, nSamples)
	seen := make(map[float64]bool)
	for i := 0; i < nSamples; i++ {
		labels[i] = y.At(i, 0)
		seen[labels[i]] = true
	}
	g.ClassLabels = make([]float64, 0, len(seen))
	for label := range seen {
		g.ClassLabels = append(g.ClassLabels, label)
	}
	sort.Float64s(g.ClassLabels)
	if len(g.ClassLabels) < 2 {
		return errors.Newf("GradientBoostingClassifier.Fit: need at least 2 classes, got %d", len(g.ClassLabels))
	}

	// Binary: one scorer for the greater label. Multiclass: one per class.
	positives := g.ClassLabels[1:]
	if len(g.ClassLabels) > 2 {
		positives = g.ClassLabels
	}

	g.Scorers = make([]*Booster, 0, len(positives))
	perTree := make([][]float64, 0, len(positives)*g.Params.NEstimators)
	for _, positive := range positives {
		indicator := make([]float64, nSamples)
		var nPos int
		for i, label := range labels {
			if label == positive {
				indicator[i] = 1
				nPos++
			}
		}

		// Log-odds of the positive rate, clamped away from the
		// degenerate all-or-nothing cases.
		rate := float64(nPos) / float64(nSamples)
		rate = math.Min(math.Max(rate, 1e-12), 1-1e-12)
		init := math.Log(rate / (1 - rate))

		scorer, err := fitScorer(X, init, g.Params, func(scores []float64) []float64 {
			residuals := make([]float64, nSamples)
			for i := range residuals {
				residuals[i] = indicator[i] - sigmoid(scores[i])
			}
			return residuals
		})
		if err != nil {
			return err
		}
		g.Scorers = append(g.Scorers, scorer)
		perTree = append(perTree, scorer.treeImportances()...)
	}
	g.Importances = averageImportances(perTree, nFeatures)

	if g.State == nil {
		g.State = model.NewStateManager()
	}
	g.State.SetDimensions(nFeatures, nSamples)
	g.State.SetFitted()
	return nil
}

// Predict returns the class with the highest probability.
func (g *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := g.PredictProba(X)
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
		predictions.Set(i, 0, g.ClassLabels[best])
	}
	return predictions, nil
}

// PredictProba returns per-class probabilities, columns in ascending
// class-label order.
func (g *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if g.State == nil || !g.State.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", "PredictProba")
	}

	r, _ := X.Dims()
	proba := mat.NewDense(r, len(g.ClassLabels), nil)

	if len(g.Scorers) == 1 {
		scores, err := g.Scorers[0].scores(X, g.Params.LearningRate)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			p := sigmoid(scores.AtVec(i))
			proba.Set(i, 0, 1-p)
			proba.Set(i, 1, p)
		}
		return proba, nil
	}

	for k, scorer := range g.Scorers {
		scores, err := scorer.scores(X, g.Params.LearningRate)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			proba.Set(i, k, sigmoid(scores.AtVec(i)))
		}
	}
	for i := 0; i < r; i++ {
		var total float64
		for k := range g.ClassLabels {
			total += proba.At(i, k)
		}
		if total == 0 {
			continue
		}
		for k := range g.ClassLabels {
			proba.Set(i, k, proba.At(i, k)/total)
		}
	}
	return proba, nil
}

// FeatureImportances returns importances averaged across all boosted trees.
func (g *GradientBoostingClassifier) FeatureImportances() []float64 {
	return g.Importances
}

// Classes returns the sorted class labels, matching PredictProba columns.
func (g *GradientBoostingClassifier) Classes() []float64 {
	return g.ClassLabels
}
