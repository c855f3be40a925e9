// Package training dispatches (problem type, algorithm) pairs to model
// factories, validates hyperparameters against per-algorithm schemas, and
// runs the fit/evaluate loop that produces a persistable artifact.
package training

import (
	"github.com/mlinsights/tabular/pkg/errors"
)

// Algorithm identifies a supported learning algorithm. The set is closed:
// anything else is rejected at request-validation time.
type Algorithm string

const (
	LogisticRegression Algorithm = "logistic_regression"
	LinearRegression   Algorithm = "linear_regression"
	RandomForest       Algorithm = "random_forest"
	GradientBoosting   Algorithm = "gradient_boosting"
	KNN                Algorithm = "knn"
)

// ProblemType identifies the supervised task.
type ProblemType string

const (
	Classification ProblemType = "classification"
	Regression     ProblemType = "regression"
)

// ParseAlgorithm validates an algorithm identifier from a request.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case LogisticRegression, LinearRegression, RandomForest, GradientBoosting, KNN:
		return a, nil
	}
	return "", errors.NewConfigurationError("algorithm", "unknown algorithm", s)
}

// ParseProblemType validates a problem-type identifier from a request.
func ParseProblemType(s string) (ProblemType, error) {
	switch p := ProblemType(s); p {
	case Classification, Regression:
		return p, nil
	}
	return "", errors.NewConfigurationError("problem_type", "must be classification or regression", s)
}

// RequiresScaling reports whether the algorithm is sensitive to feature
// magnitudes. Tree ensembles split on thresholds and are scale-invariant.
func RequiresScaling(a Algorithm) bool {
	return a == LogisticRegression || a == KNN
}
