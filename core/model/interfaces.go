// Package model defines the estimator capability interfaces and fitted-state
// tracking shared by every algorithm implementation.
//
// Capabilities are explicit optional interfaces asserted at the point of use:
// a caller that needs probabilities checks for ProbabilityPredictor, one that
// needs importances checks ImportanceProvider or CoefficientProvider. There is
// no runtime attribute probing.
package model

import "gonum.org/v1/gonum/mat"

// Estimator is the core fit/predict contract. X is (n_samples, n_features);
// y and the returned predictions are (n_samples, 1) column matrices.
type Estimator interface {
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilityPredictor is implemented by classifiers that can produce
// per-class probabilities. The returned matrix is (n_samples, n_classes) with
// columns ordered by ascending class label.
type ProbabilityPredictor interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// ImportanceProvider is implemented by models with a native per-feature
// importance measure (tree ensembles). The slice has one entry per training
// feature, in feature order.
type ImportanceProvider interface {
	FeatureImportances() []float64
}

// CoefficientProvider is implemented by linear models. The outer slice has
// one entry per class for multiclass classifiers and exactly one entry for
// binary classifiers and regressors; inner slices are in feature order.
type CoefficientProvider interface {
	Coefficients() [][]float64
}

// ClassProvider is implemented by classifiers and reports the sorted distinct
// class labels seen during fitting, in the column order used by PredictProba.
type ClassProvider interface {
	Classes() []float64
}
