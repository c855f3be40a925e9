package linear

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/pkg/errors"
)

// LogisticRegression is a gradient-descent logistic classifier: sigmoid for
// binary problems, one-vs-rest for multiclass. Fitted parameters are plain
// slices so the model serializes into an artifact.
type LogisticRegression struct {
	State *model.StateManager

	// Hyperparameters.
	C           float64 // inverse L2 regularization strength
	MaxIter     int
	Tol         float64
	RandomState int64

	// Fitted parameters. Coef has one row for binary problems and one row
	// per class for one-vs-rest.
	Coef        [][]float64
	Intercepts  []float64
	ClassLabels []float64
	NFeatures   int
}

// LogisticRegressionOption configures a LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// WithC sets the inverse regularization strength.
func WithC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.C = c }
}

// WithMaxIter sets the maximum gradient-descent iterations.
func WithMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.MaxIter = maxIter }
}

// WithTol sets the gradient-norm stopping tolerance.
func WithTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.Tol = tol }
}

// WithRandomState sets the seed for weight initialization.
func WithRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) { lr.RandomState = seed }
}

// NewLogisticRegression creates a classifier with sklearn-like defaults.
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		State:       model.NewStateManager(),
		C:           1.0,
		MaxIter:     100,
		Tol:         1e-4,
		RandomState: 42,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

func sigmoid(z float64) float64 {
	if z > 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

// Fit trains the classifier on X (n_samples, n_features) and integer-coded
// labels y (n_samples, 1).
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LogisticRegression.Fit")
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.Newf("LogisticRegression.Fit: y must be a column vector, got shape (%d, %d)", yRows, yCols)
	}

	lr.NFeatures = nFeatures
	lr.extractClasses(y)

	rng := rand.New(rand.NewSource(lr.RandomState))

	if len(lr.ClassLabels) == 2 {
		lr.Coef = [][]float64{initialWeights(nFeatures, rng)}
		lr.Intercepts = make([]float64, 1)
		lr.fitOne(X, lr.binaryTargets(y, lr.ClassLabels[1]), 0)
	} else {
		lr.Coef = make([][]float64, len(lr.ClassLabels))
		lr.Intercepts = make([]float64, len(lr.ClassLabels))
		for classIdx, label := range lr.ClassLabels {
			lr.Coef[classIdx] = initialWeights(nFeatures, rng)
			lr.fitOne(X, lr.binaryTargets(y, label), classIdx)
		}
	}

	if lr.State == nil {
		lr.State = model.NewStateManager()
	}
	lr.State.SetDimensions(nFeatures, nSamples)
	lr.State.SetFitted()
	return nil
}

func initialWeights(nFeatures int, rng *rand.Rand) []float64 {
	weights := make([]float64, nFeatures)
	for j := range weights {
		weights[j] = rng.NormFloat64() * 0.01
	}
	return weights
}

func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	seen := make(map[float64]bool)
	for i := 0; i < rows; i++ {
		seen[y.At(i, 0)] = true
	}
	lr.ClassLabels = make([]float64, 0, len(seen))
	for label := range seen {
		lr.ClassLabels = append(lr.ClassLabels, label)
	}
	sort.Float64s(lr.ClassLabels)
}

// binaryTargets returns a 0/1 slice marking rows whose label equals positive.
func (lr *LogisticRegression) binaryTargets(y mat.Matrix, positive float64) []float64 {
	rows, _ := y.Dims()
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		if y.At(i, 0) == positive {
			out[i] = 1.0
		}
	}
	return out
}

// fitOne runs gradient descent for one binary target against the weight row
// at classIdx.
func (lr *LogisticRegression) fitOne(X mat.Matrix, target []float64, classIdx int) {
	nSamples, nFeatures := X.Dims()
	weights := lr.Coef[classIdx]
	intercept := &lr.Intercepts[classIdx]
	lambda := 1.0 / lr.C

	const baseLearningRate = 1.0

	for iter := 0; iter < lr.MaxIter; iter++ {
		gradWeights := make([]float64, nFeatures)
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - target[i]
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] = gradWeights[j]/float64(nSamples) + lambda*weights[j]
		}
		gradIntercept /= float64(nSamples)

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		*intercept -= learningRate * gradIntercept

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			if math.Abs(g) > maxGrad {
				maxGrad = math.Abs(g)
			}
		}
		if maxGrad < lr.Tol {
			break
		}
	}
}

// decisionValues computes the raw scores z = Xw + b for one weight row.
func (lr *LogisticRegression) decisionValues(X mat.Matrix, classIdx int) []float64 {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		z := lr.Intercepts[classIdx]
		for j := 0; j < lr.NFeatures; j++ {
			z += X.At(i, j) * lr.Coef[classIdx][j]
		}
		out[i] = z
	}
	return out
}

// Predict returns the most probable class label per row.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := lr.PredictProba(X)
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
		predictions.Set(i, 0, lr.ClassLabels[best])
	}
	return predictions, nil
}

// PredictProba returns per-class probabilities with columns in ascending
// class-label order. One-vs-rest scores are normalized to sum to 1.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if lr.State == nil || !lr.State.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "PredictProba")
	}
	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LogisticRegression.PredictProba", lr.NFeatures, c, 1)
	}

	nClasses := len(lr.ClassLabels)
	proba := mat.NewDense(r, nClasses, nil)

	if nClasses == 2 {
		scores := lr.decisionValues(X, 0)
		for i := 0; i < r; i++ {
			p := sigmoid(scores[i])
			proba.Set(i, 0, 1-p)
			proba.Set(i, 1, p)
		}
		return proba, nil
	}

	for classIdx := range lr.ClassLabels {
		scores := lr.decisionValues(X, classIdx)
		for i := 0; i < r; i++ {
			proba.Set(i, classIdx, sigmoid(scores[i]))
		}
	}
	for i := 0; i < r; i++ {
		sum := 0.0
		for k := 0; k < nClasses; k++ {
			sum += proba.At(i, k)
		}
		if sum > 0 {
			for k := 0; k < nClasses; k++ {
				proba.Set(i, k, proba.At(i, k)/sum)
			}
		}
	}
	return proba, nil
}

// Coefficients exposes the fitted weight rows.
func (lr *LogisticRegression) Coefficients() [][]float64 {
	return lr.Coef
}

// Classes returns the sorted class labels, matching PredictProba columns.
func (lr *LogisticRegression) Classes() []float64 {
	return lr.ClassLabels
}
