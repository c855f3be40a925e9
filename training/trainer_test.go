package training

import (
	"fmt"
	"math"
	"testing"

	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/metrics"
)

// binaryTable builds 100 rows with one informative numeric feature, one
// non-informative categorical feature, and a text label split at x = 50.
func binaryTable() (*dataset.Table, []string) {
	X := dataset.New([]string{"score", "color"})
	y := make([]string, 0, 100)
	colors := []string{"red", "green", "blue"}
	for i := 0; i < 100; i++ {
		X.Rows = append(X.Rows, []string{fmt.Sprintf("%d", i), colors[i%3]})
		if i < 50 {
			y = append(y, "ham")
		} else {
			y = append(y, "spam")
		}
	}
	return X, y
}

func regressionTable() (*dataset.Table, []string) {
	X := dataset.New([]string{"x"})
	y := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		X.Rows = append(X.Rows, []string{fmt.Sprintf("%d", i)})
		y = append(y, fmt.Sprintf("%d", 3*i+2))
	}
	return X, y
}

func TestTrainerClassificationEndToEnd(t *testing.T) {
	X, y := binaryTable()
	trainX, testX, trainY, testY, err := dataset.TrainTestSplit(X, y, 0.8, true)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	trainer, err := NewTrainer(Classification, LogisticRegression, nil, nil)
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	result, bundle, err := trainer.Train(trainX, testX, trainY, testY)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	report, ok := result.Metrics.(*metrics.ClassificationReport)
	if !ok {
		t.Fatalf("Metrics type = %T, want *ClassificationReport", result.Metrics)
	}
	if report.Accuracy < 0 || report.Accuracy > 1 {
		t.Errorf("accuracy = %v, want within [0, 1]", report.Accuracy)
	}
	if report.ROCAUC == nil {
		t.Error("binary classification with probabilities must produce roc_auc")
	}

	if len(result.FeatureImportance) != 2 {
		t.Fatalf("importance entries = %d, want one per feature", len(result.FeatureImportance))
	}
	for i := 1; i < len(result.FeatureImportance); i++ {
		if result.FeatureImportance[i].Importance > result.FeatureImportance[i-1].Importance {
			t.Error("feature importance not sorted descending")
		}
	}
	if result.FeatureImportance[0].Feature != "score" {
		t.Errorf("top feature = %q, want the informative column", result.FeatureImportance[0].Feature)
	}

	if bundle.AlgorithmID != "logistic_regression" || bundle.ProblemType != "classification" {
		t.Errorf("artifact identity = %s/%s", bundle.AlgorithmID, bundle.ProblemType)
	}
	if bundle.TargetEncoder == nil {
		t.Error("text target must produce a target encoder")
	}
	if bundle.Preprocessing == nil || bundle.Preprocessing.Scaler == nil {
		t.Error("logistic regression must carry a fitted scaler")
	}
	if got := len(bundle.FeatureNames); got != 2 {
		t.Errorf("feature names length = %d, want 2", got)
	}
}

func TestTrainerRegressionEndToEnd(t *testing.T) {
	X, y := regressionTable()
	trainX, testX, trainY, testY, err := dataset.TrainTestSplit(X, y, 0.8, false)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	trainer, err := NewTrainer(Regression, LinearRegression, nil, nil)
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	result, bundle, err := trainer.Train(trainX, testX, trainY, testY)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	report, ok := result.Metrics.(*metrics.RegressionReport)
	if !ok {
		t.Fatalf("Metrics type = %T, want *RegressionReport", result.Metrics)
	}
	if report.R2 > 1 {
		t.Errorf("r2 = %v, must not exceed 1", report.R2)
	}
	if report.R2 < 0.99 {
		t.Errorf("r2 = %v, want near 1 for an exact linear target", report.R2)
	}
	if report.RMSE > 1e-6 {
		t.Errorf("rmse = %v, want near 0", report.RMSE)
	}

	if bundle.TargetEncoder != nil {
		t.Error("regression must not produce a target encoder")
	}
	if bundle.Preprocessing.Scaler != nil {
		t.Error("linear regression must not carry a scaler")
	}
}

func TestTrainerKNNHasNoImportance(t *testing.T) {
	X, y := binaryTable()
	trainX, testX, trainY, testY, err := dataset.TrainTestSplit(X, y, 0.8, true)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	trainer, err := NewTrainer(Classification, KNN, map[string]any{"n_neighbors": float64(5)}, nil)
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	result, _, err := trainer.Train(trainX, testX, trainY, testY)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if len(result.FeatureImportance) != 0 {
		t.Errorf("knn importance entries = %d, want empty", len(result.FeatureImportance))
	}
}

func TestNewTrainerRejectsBadConfiguration(t *testing.T) {
	if _, err := NewTrainer(Regression, LogisticRegression, nil, nil); err == nil {
		t.Error("expected error for unsupported (problem, algorithm) pair")
	}
	if _, err := NewTrainer(Classification, KNN, map[string]any{"bogus": 1.0}, nil); err == nil {
		t.Error("expected error for unknown hyperparameter")
	}
}

func TestTrainerRegressionRejectsTextTarget(t *testing.T) {
	X := dataset.New([]string{"x"})
	X.Rows = append(X.Rows, []string{"1"}, []string{"2"}, []string{"3"}, []string{"4"})
	y := []string{"low", "low", "high", "high"}
	trainX, testX, trainY, testY, err := dataset.TrainTestSplit(X, y, 0.5, false)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	trainer, err := NewTrainer(Regression, LinearRegression, nil, nil)
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	if _, _, err := trainer.Train(trainX, testX, trainY, testY); err == nil {
		t.Error("expected error for non-numeric regression target")
	}
}

func TestTrainerRegressionConstantTarget(t *testing.T) {
	// A constant target has no variance; the run must still complete with
	// finite metrics rather than abort.
	X := dataset.New([]string{"x"})
	y := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		X.Rows = append(X.Rows, []string{fmt.Sprintf("%d", i)})
		y = append(y, "7")
	}
	trainX, testX, trainY, testY, err := dataset.TrainTestSplit(X, y, 0.8, false)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}

	trainer, err := NewTrainer(Regression, LinearRegression, nil, nil)
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	result, _, err := trainer.Train(trainX, testX, trainY, testY)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	report, ok := result.Metrics.(*metrics.RegressionReport)
	if !ok {
		t.Fatalf("Metrics type = %T, want *RegressionReport", result.Metrics)
	}
	if math.IsNaN(report.R2) || math.IsInf(report.R2, 0) || report.R2 > 1 {
		t.Errorf("r2 = %v, want finite and <= 1", report.R2)
	}
	if report.RMSE > 1e-6 {
		t.Errorf("rmse = %v, want near 0 for a constant target fit exactly", report.RMSE)
	}
}
