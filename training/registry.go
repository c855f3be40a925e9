package training

import (
	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/model/ensemble"
	"github.com/mlinsights/tabular/model/linear"
	"github.com/mlinsights/tabular/model/neighbors"
	"github.com/mlinsights/tabular/pkg/errors"
)

// factory builds a model from schema-resolved hyperparameters. Parameters
// are complete by construction: ResolveHyperparameters fills every key with
// its default.
type factory func(params map[string]float64) model.Estimator

type registryKey struct {
	problem   ProblemType
	algorithm Algorithm
}

var registry = map[registryKey]factory{
	{Classification, LogisticRegression}: func(p map[string]float64) model.Estimator {
		return linear.NewLogisticRegression(
			linear.WithC(p["C"]),
			linear.WithMaxIter(int(p["max_iter"])),
			linear.WithTol(p["tol"]),
			linear.WithRandomState(int64(p["random_state"])),
		)
	},
	{Classification, RandomForest}: func(p map[string]float64) model.Estimator {
		return ensemble.NewRandomForestClassifier(forestParams(p))
	},
	{Classification, GradientBoosting}: func(p map[string]float64) model.Estimator {
		return ensemble.NewGradientBoostingClassifier(boostingParams(p))
	},
	{Classification, KNN}: func(p map[string]float64) model.Estimator {
		return neighbors.NewKNNClassifier(int(p["n_neighbors"]))
	},
	{Regression, LinearRegression}: func(p map[string]float64) model.Estimator {
		return linear.NewLinearRegression()
	},
	{Regression, RandomForest}: func(p map[string]float64) model.Estimator {
		return ensemble.NewRandomForestRegressor(forestParams(p))
	},
	{Regression, GradientBoosting}: func(p map[string]float64) model.Estimator {
		return ensemble.NewGradientBoostingRegressor(boostingParams(p))
	},
	{Regression, KNN}: func(p map[string]float64) model.Estimator {
		return neighbors.NewKNNRegressor(int(p["n_neighbors"]))
	},
}

func forestParams(p map[string]float64) ensemble.ForestParams {
	return ensemble.ForestParams{
		NEstimators: int(p["n_estimators"]),
		MaxDepth:    int(p["max_depth"]),
		MaxFeatures: int(p["max_features"]),
		RandomState: int64(p["random_state"]),
	}
}

func boostingParams(p map[string]float64) ensemble.BoostingParams {
	return ensemble.BoostingParams{
		NEstimators:  int(p["n_estimators"]),
		LearningRate: p["learning_rate"],
		MaxDepth:     int(p["max_depth"]),
		RandomState:  int64(p["random_state"]),
	}
}

// NewModel resolves the (problem, algorithm) pair and builds a model from
// validated hyperparameters. Unsupported combinations fail before any data
// is touched.
func NewModel(problem ProblemType, a Algorithm, raw map[string]any) (model.Estimator, error) {
	build, ok := registry[registryKey{problem, a}]
	if !ok {
		return nil, errors.NewConfigurationError(
			"algorithm", "not supported for problem type "+string(problem), string(a))
	}
	params, err := ResolveHyperparameters(a, raw)
	if err != nil {
		return nil, err
	}
	return build(params), nil
}

// Supported reports whether the (problem, algorithm) pair has a factory.
func Supported(problem ProblemType, a Algorithm) bool {
	_, ok := registry[registryKey{problem, a}]
	return ok
}
