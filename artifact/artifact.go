// Package artifact persists a trained model together with everything
// inference needs: the fitted preprocessing state, the feature-name order,
// and the target label encoding. The bundle is self-contained: prediction
// loads it and nothing else.
package artifact

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/model/ensemble"
	"github.com/mlinsights/tabular/model/linear"
	"github.com/mlinsights/tabular/model/neighbors"
	"github.com/mlinsights/tabular/model/tree"
	"github.com/mlinsights/tabular/pkg/errors"
	"github.com/mlinsights/tabular/preprocessing"
)

// Model is stored behind the Estimator interface, so every concrete model
// type must be registered for gob.
func init() {
	gob.Register(&linear.LinearRegression{})
	gob.Register(&linear.LogisticRegression{})
	gob.Register(&neighbors.KNNClassifier{})
	gob.Register(&neighbors.KNNRegressor{})
	gob.Register(&tree.DecisionTreeClassifier{})
	gob.Register(&tree.DecisionTreeRegressor{})
	gob.Register(&ensemble.RandomForestClassifier{})
	gob.Register(&ensemble.RandomForestRegressor{})
	gob.Register(&ensemble.GradientBoostingClassifier{})
	gob.Register(&ensemble.GradientBoostingRegressor{})
}

// Artifact is the self-contained training output. TargetEncoder is nil for
// regression and for classification with a numeric target.
type Artifact struct {
	AlgorithmID   string
	ProblemType   string
	FeatureNames  []string
	Model         model.Estimator
	Preprocessing *preprocessing.State
	TargetEncoder *preprocessing.CategoryEncoder
}

// Save writes the artifact atomically: encode to a temp file in the target
// directory, then rename over the destination.
func (a *Artifact) Save(path string) error {
	if a.Model == nil {
		return errors.NewPersistenceError("save", path, errors.New("artifact has no model"))
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return errors.NewPersistenceError("save", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(a); err != nil {
		tmp.Close()
		return errors.NewPersistenceError("save", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewPersistenceError("save", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.NewPersistenceError("save", path, err)
	}
	return nil
}

// Load reads an artifact written by Save.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewPersistenceError("load", path, err)
	}
	defer f.Close()

	var a Artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, errors.NewPersistenceError("load", path, err)
	}
	if a.Model == nil || a.Preprocessing == nil {
		return nil, errors.NewPersistenceError("load", path, errors.New("artifact is incomplete"))
	}
	return &a, nil
}
