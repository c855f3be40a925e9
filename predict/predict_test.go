package predict

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/mlinsights/tabular/artifact"
	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/pkg/errors"
	"github.com/mlinsights/tabular/training"
)

func trainedBundle(t *testing.T, problem training.ProblemType, alg training.Algorithm) *artifact.Artifact {
	t.Helper()

	X := dataset.New([]string{"score", "group"})
	y := make([]string, 0, 60)
	groups := []string{"a", "b"}
	for i := 0; i < 60; i++ {
		X.Rows = append(X.Rows, []string{fmt.Sprintf("%d", i), groups[i%2]})
		switch problem {
		case training.Classification:
			if i < 30 {
				y = append(y, "low")
			} else {
				y = append(y, "high")
			}
		default:
			y = append(y, fmt.Sprintf("%d", 2*i))
		}
	}

	stratify := problem == training.Classification
	trainX, testX, trainY, testY, err := dataset.TrainTestSplit(X, y, 0.8, stratify)
	if err != nil {
		t.Fatalf("TrainTestSplit() error = %v", err)
	}
	trainer, err := training.NewTrainer(problem, alg, nil, nil)
	if err != nil {
		t.Fatalf("NewTrainer() error = %v", err)
	}
	_, bundle, err := trainer.Train(trainX, testX, trainY, testY)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return bundle
}

func TestPredictorClassificationDecodesLabels(t *testing.T) {
	bundle := trainedBundle(t, training.Classification, training.LogisticRegression)

	X := dataset.New([]string{"score", "group", "extra"})
	X.Rows = [][]string{
		{"2", "a", "ignored"},
		{"55", "b", "ignored"},
	}

	predictions, out, err := NewPredictor(nil).Predict(bundle, X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(predictions) != 2 {
		t.Fatalf("predictions = %d, want 2", len(predictions))
	}
	if predictions[0].Value != "low" {
		t.Errorf("row 0 prediction = %q, want low", predictions[0].Value)
	}
	if predictions[1].Value != "high" {
		t.Errorf("row 1 prediction = %q, want high", predictions[1].Value)
	}

	for i, pred := range predictions {
		if pred.Confidence == nil {
			t.Fatalf("row %d: confidence missing", i)
		}
		if *pred.Confidence < 0.5 || *pred.Confidence > 1 {
			t.Errorf("row %d: confidence = %v, want within [0.5, 1]", i, *pred.Confidence)
		}
		if len(pred.ClassProbabilities) != 2 {
			t.Fatalf("row %d: class probabilities = %d, want 2", i, len(pred.ClassProbabilities))
		}
		sum := pred.ClassProbabilities[0] + pred.ClassProbabilities[1]
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("row %d: probability sum = %v, want 1", i, sum)
		}
	}

	want := []string{"score", "group", "extra", "prediction", "confidence",
		"probability_class_0", "probability_class_1"}
	if got := strings.Join(out.Columns, ","); got != strings.Join(want, ",") {
		t.Errorf("output columns = %v, want %v", out.Columns, want)
	}
	if out.Rows[0][3] != "low" {
		t.Errorf("output prediction cell = %q, want low", out.Rows[0][3])
	}
}

func TestPredictorRegressionNumericOutput(t *testing.T) {
	bundle := trainedBundle(t, training.Regression, training.LinearRegression)

	X := dataset.New([]string{"score", "group"})
	X.Rows = [][]string{{"10", "a"}, {"20", "b"}}

	predictions, out, err := NewPredictor(nil).Predict(bundle, X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i, wantApprox := range []float64{20, 40} {
		got, err := strconv.ParseFloat(predictions[i].Value, 64)
		if err != nil {
			t.Fatalf("row %d: prediction %q is not numeric", i, predictions[i].Value)
		}
		if got < wantApprox-1 || got > wantApprox+1 {
			t.Errorf("row %d: prediction = %v, want near %v", i, got, wantApprox)
		}
		if predictions[i].Confidence != nil {
			t.Errorf("row %d: regression must not produce a confidence", i)
		}
	}

	want := []string{"score", "group", "prediction"}
	if got := strings.Join(out.Columns, ","); got != strings.Join(want, ",") {
		t.Errorf("output columns = %v, want %v", out.Columns, want)
	}
}

func TestPredictorEnumeratesMissingColumns(t *testing.T) {
	bundle := trainedBundle(t, training.Classification, training.LogisticRegression)

	X := dataset.New([]string{"unrelated"})
	X.Rows = [][]string{{"1"}}

	_, _, err := NewPredictor(nil).Predict(bundle, X)
	if err == nil {
		t.Fatal("expected error for missing feature columns")
	}
	var vErr *errors.DataValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *DataValidationError", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "score") || !strings.Contains(msg, "group") {
		t.Errorf("error %q does not enumerate the missing columns", msg)
	}
}

func TestPredictorRejectsUnseenCategory(t *testing.T) {
	bundle := trainedBundle(t, training.Classification, training.LogisticRegression)

	X := dataset.New([]string{"score", "group"})
	X.Rows = [][]string{{"5", "zz"}}

	_, _, err := NewPredictor(nil).Predict(bundle, X)
	if err == nil {
		t.Fatal("expected error for a category unseen at fit time")
	}
	var vErr *errors.DataValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("error type = %T, want *DataValidationError", err)
	}
}

func TestPredictorEmptyInputWritesEmptyTable(t *testing.T) {
	bundle := trainedBundle(t, training.Classification, training.LogisticRegression)

	X := dataset.New([]string{"score", "group"})

	predictions, out, err := NewPredictor(nil).Predict(bundle, X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(predictions) != 0 {
		t.Errorf("predictions = %d, want 0", len(predictions))
	}
	if out.NumRows() != 0 {
		t.Errorf("output rows = %d, want 0", out.NumRows())
	}

	want := []string{"score", "group", "prediction", "confidence",
		"probability_class_0", "probability_class_1"}
	if got := strings.Join(out.Columns, ","); got != strings.Join(want, ",") {
		t.Errorf("output columns = %v, want %v", out.Columns, want)
	}
}

func TestPredictorEmptyInputStillValidatesColumns(t *testing.T) {
	bundle := trainedBundle(t, training.Classification, training.LogisticRegression)

	X := dataset.New([]string{"score"})

	_, _, err := NewPredictor(nil).Predict(bundle, X)
	if err == nil {
		t.Fatal("expected error for a missing feature column")
	}
	var vErr *errors.DataValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("error type = %T, want *DataValidationError", err)
	}
}
