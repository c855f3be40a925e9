package artifact

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/model/linear"
	"github.com/mlinsights/tabular/pkg/errors"
	"github.com/mlinsights/tabular/preprocessing"
)

func fittedBundle(t *testing.T) *Artifact {
	t.Helper()

	X := dataset.New([]string{"amount", "city"})
	X.Rows = [][]string{
		{"1", "tokyo"}, {"2", "tokyo"}, {"3", "kyoto"}, {"4", "kyoto"},
		{"11", "tokyo"}, {"12", "kyoto"}, {"13", "tokyo"}, {"14", "kyoto"},
	}
	y := []string{"no", "no", "no", "no", "yes", "yes", "yes", "yes"}

	state, err := preprocessing.Fit(X, true)
	if err != nil {
		t.Fatalf("preprocessing.Fit() error = %v", err)
	}
	features, err := state.Transform(X)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	codes, enc, err := preprocessing.EncodeClassificationTarget(y)
	if err != nil {
		t.Fatalf("EncodeClassificationTarget() error = %v", err)
	}

	clf := linear.NewLogisticRegression()
	if err := clf.Fit(features, mat.NewDense(len(codes), 1, codes)); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	return &Artifact{
		AlgorithmID:   "logistic_regression",
		ProblemType:   "classification",
		FeatureNames:  state.FeatureNames,
		Model:         clf,
		Preprocessing: state,
		TargetEncoder: enc,
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	bundle := fittedBundle(t)
	path := filepath.Join(t.TempDir(), "model.bin")

	if err := bundle.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.AlgorithmID != bundle.AlgorithmID || loaded.ProblemType != bundle.ProblemType {
		t.Errorf("identity = %s/%s, want %s/%s",
			loaded.AlgorithmID, loaded.ProblemType, bundle.AlgorithmID, bundle.ProblemType)
	}
	if len(loaded.FeatureNames) != 2 {
		t.Fatalf("feature names length = %d, want 2", len(loaded.FeatureNames))
	}
	if loaded.TargetEncoder == nil {
		t.Fatal("target encoder lost in round trip")
	}

	// Loaded preprocessing and model must reproduce the original pipeline.
	X := dataset.New([]string{"amount", "city"})
	X.Rows = [][]string{{"2", "tokyo"}, {"13", "kyoto"}}

	origFeatures, err := bundle.Preprocessing.Transform(X)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	loadedFeatures, err := loaded.Preprocessing.Transform(X)
	if err != nil {
		t.Fatalf("loaded Transform() error = %v", err)
	}
	if !mat.EqualApprox(origFeatures, loadedFeatures, 1e-12) {
		t.Error("loaded preprocessing diverged from original")
	}

	origPred, err := bundle.Model.Predict(origFeatures)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	loadedPred, err := loaded.Model.Predict(loadedFeatures)
	if err != nil {
		t.Fatalf("loaded Predict() error = %v", err)
	}
	if !mat.EqualApprox(origPred, loadedPred, 1e-12) {
		t.Error("loaded model diverged from original")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.bin"))
	if err == nil {
		t.Fatal("expected error loading a missing file")
	}
	var pErr *errors.PersistenceError
	if !errors.As(err, &pErr) {
		t.Errorf("error type = %T, want *PersistenceError", err)
	}
}

func TestSaveRejectsEmptyArtifact(t *testing.T) {
	empty := &Artifact{}
	if err := empty.Save(filepath.Join(t.TempDir(), "model.bin")); err == nil {
		t.Error("expected error saving an artifact without a model")
	}
}
