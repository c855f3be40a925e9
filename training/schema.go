package training

import (
	"math"
	"sort"
	"strings"

	"github.com/mlinsights/tabular/pkg/errors"
)

// paramKind constrains the accepted value shape for a hyperparameter. All
// values arrive as JSON numbers; integer parameters additionally require an
// integral value.
type paramKind int

const (
	kindInt paramKind = iota
	kindFloat
)

type paramSpec struct {
	kind     paramKind
	def      float64
	min      float64
	minValid bool
}

func intParam(def float64) paramSpec   { return paramSpec{kind: kindInt, def: def} }
func floatParam(def float64) paramSpec { return paramSpec{kind: kindFloat, def: def} }

func (p paramSpec) atLeast(min float64) paramSpec {
	p.min, p.minValid = min, true
	return p
}

// schemas lists the allowed hyperparameter keys per algorithm, with defaults
// matching the model constructors. Unknown keys are rejected rather than
// passed through.
var schemas = map[Algorithm]map[string]paramSpec{
	LogisticRegression: {
		"C":            floatParam(1.0).atLeast(1e-12),
		"max_iter":     intParam(100).atLeast(1),
		"tol":          floatParam(1e-4).atLeast(0),
		"random_state": intParam(42),
	},
	LinearRegression: {},
	RandomForest: {
		"n_estimators": intParam(100).atLeast(1),
		"max_depth":    intParam(10).atLeast(1),
		"max_features": intParam(0).atLeast(0),
		"random_state": intParam(42),
	},
	GradientBoosting: {
		"n_estimators":  intParam(100).atLeast(1),
		"learning_rate": floatParam(0.1).atLeast(1e-12),
		"max_depth":     intParam(3).atLeast(1),
		"random_state":  intParam(42),
	},
	KNN: {
		"n_neighbors": intParam(5).atLeast(1),
	},
}

// ResolveHyperparameters validates raw request hyperparameters against the
// algorithm's schema and returns the full parameter set with defaults filled
// in. Unknown keys, non-numeric values, fractional integers, and
// out-of-range values are all configuration errors.
func ResolveHyperparameters(a Algorithm, raw map[string]any) (map[string]float64, error) {
	schema, ok := schemas[a]
	if !ok {
		return nil, errors.NewConfigurationError("algorithm", "unknown algorithm", string(a))
	}

	resolved := make(map[string]float64, len(schema))
	for key, spec := range schema {
		resolved[key] = spec.def
	}

	for key, value := range raw {
		spec, ok := schema[key]
		if !ok {
			return nil, errors.NewConfigurationError(
				"hyperparameters."+key,
				"unknown hyperparameter for "+string(a)+"; allowed: "+strings.Join(allowedKeys(schema), ", "),
				value)
		}

		num, ok := numericValue(value)
		if !ok {
			return nil, errors.NewConfigurationError("hyperparameters."+key, "must be a number", value)
		}
		if spec.kind == kindInt && num != math.Trunc(num) {
			return nil, errors.NewConfigurationError("hyperparameters."+key, "must be an integer", value)
		}
		if spec.minValid && num < spec.min {
			return nil, errors.NewConfigurationError("hyperparameters."+key, "below minimum", value)
		}
		resolved[key] = num
	}
	return resolved, nil
}

func allowedKeys(schema map[string]paramSpec) []string {
	keys := make([]string, 0, len(schema))
	for key := range schema {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
