// Package neighbors implements k-nearest-neighbor models. KNN is lazy: Fit
// stores the training data and Predict searches it. Neither variant exposes a
// feature-importance source.
package neighbors

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/pkg/errors"
)

// KNNBase holds the stored training data shared by both variants.
type KNNBase struct {
	State  *model.StateManager
	K      int
	XTrain [][]float64
	YTrain []float64
}

func (b *KNNBase) fit(name string, X, y mat.Matrix) error {
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
	if b.K < 1 {
		return errors.NewConfigurationError("n_neighbors", "must be at least 1", b.K)
	}

	b.XTrain = make([][]float64, nSamples)
	b.YTrain = make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		row := make([]float64, nFeatures)
		for j := 0; j < nFeatures; j++ {
			row[j] = X.At(i, j)
		}
		b.XTrain[i] = row
		b.YTrain[i] = y.At(i, 0)
	}

	if b.State == nil {
		b.State = model.NewStateManager()
	}
	b.State.SetDimensions(nFeatures, nSamples)
	b.State.SetFitted()
	return nil
}

func (b *KNNBase) checkPredict(name string, X mat.Matrix) error {
	if b.State == nil || !b.State.IsFitted() {
		return errors.NewNotFittedError(name, "Predict")
	}
	_, c := X.Dims()
	if len(b.XTrain) > 0 && c != len(b.XTrain[0]) {
		return errors.NewDimensionError(name+".Predict", len(b.XTrain[0]), c, 1)
	}
	return nil
}

// neighborIndices returns the indices of the k training rows closest to the
// query in Euclidean distance.
func (b *KNNBase) neighborIndices(query []float64) []int {
	type distIdx struct {
		dist float64
		idx  int
	}
	distances := make([]distIdx, len(b.XTrain))
	for i, row := range b.XTrain {
		var sum float64
		for j := range row {
			d := row[j] - query[j]
			sum += d * d
		}
		distances[i] = distIdx{dist: sum, idx: i}
	}
	sort.Slice(distances, func(i, j int) bool {
		if distances[i].dist != distances[j].dist {
			return distances[i].dist < distances[j].dist
		}
		return distances[i].idx < distances[j].idx
	})

	k := b.K
	if k > len(distances) {
		k = len(distances)
	}
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = distances[i].idx
	}
	return out
}

func rowAt(X mat.Matrix, i int) []float64 {
	_, c := X.Dims()
	row := make([]float64, c)
	for j := 0; j < c; j++ {
		row[j] = X.At(i, j)
	}
	return row
}

// KNNClassifier predicts the majority label among the k nearest training
// rows; neighbor label frequencies double as class probabilities.
type KNNClassifier struct {
	KNNBase
	ClassLabels []float64
}

// NewKNNClassifier creates a classifier with the given neighbor count.
func NewKNNClassifier(k int) *KNNClassifier {
	return &KNNClassifier{KNNBase: KNNBase{State: model.NewStateManager(), K: k}}
}

// Fit stores the training data and the sorted distinct class labels.
func (c *KNNClassifier) Fit(X, y mat.Matrix) error {
	if err := c.fit("KNNClassifier", X, y); err != nil {
		return err
	}
	seen := make(map[float64]bool)
	for _, label := range c.YTrain {
		seen[label] = true
	}
	c.ClassLabels = make([]float64, 0, len(seen))
	for label := range seen {
		c.ClassLabels = append(c.ClassLabels, label)
	}
	sort.Float64s(c.ClassLabels)
	return nil
}

// Predict returns the majority class among the k nearest neighbors.
func (c *KNNClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
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
		predictions.Set(i, 0, c.ClassLabels[best])
	}
	return predictions, nil
}

// PredictProba returns neighbor label frequencies per class, columns in
// ascending class-label order.
func (c *KNNClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.checkPredict("KNNClassifier", X); err != nil {
		return nil, err
	}

	index := make(map[float64]int, len(c.ClassLabels))
	for i, label := range c.ClassLabels {
		index[label] = i
	}

	r, _ := X.Dims()
	proba := mat.NewDense(r, len(c.ClassLabels), nil)
	for i := 0; i < r; i++ {
		neighbors := c.neighborIndices(rowAt(X, i))
		for _, idx := range neighbors {
			col := index[c.YTrain[idx]]
			proba.Set(i, col, proba.At(i, col)+1)
		}
		for k := 0; k < len(c.ClassLabels); k++ {
			proba.Set(i, k, proba.At(i, k)/float64(len(neighbors)))
		}
	}
	return proba, nil
}

// Classes returns the sorted class labels, matching PredictProba columns.
func (c *KNNClassifier) Classes() []float64 {
	return c.ClassLabels
}

// KNNRegressor predicts the mean target of the k nearest training rows.
type KNNRegressor struct {
	KNNBase
}

// NewKNNRegressor creates a regressor with the given neighbor count.
func NewKNNRegressor(k int) *KNNRegressor {
	return &KNNRegressor{KNNBase: KNNBase{State: model.NewStateManager(), K: k}}
}

// Fit stores the training data.
func (r *KNNRegressor) Fit(X, y mat.Matrix) error {
	return r.fit("KNNRegressor", X, y)
}

// Predict returns the mean neighbor target per row.
func (r *KNNRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.checkPredict("KNNRegressor", X); err != nil {
		return nil, err
	}

	rows, _ := X.Dims()
	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		neighbors := r.neighborIndices(rowAt(X, i))
		var sum float64
		for _, idx := range neighbors {
			sum += r.YTrain[idx]
		}
		predictions.Set(i, 0, sum/math.Max(float64(len(neighbors)), 1))
	}
	return predictions, nil
}
