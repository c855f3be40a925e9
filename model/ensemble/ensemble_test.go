package ensemble

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// clusterData builds two well-separated clusters in one feature plus a
// constant second feature.
func clusterData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(12, 2, []float64{
		1, 5, 1.5, 5, 2, 5, 2.5, 5, 3, 5, 3.5, 5,
		7, 5, 7.5, 5, 8, 5, 8.5, 5, 9, 5, 9.5, 5,
	})
	y := mat.NewDense(12, 1, []float64{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1})
	return X, y
}

func TestRandomForestClassifierSeparable(t *testing.T) {
	X, y := clusterData()
	clf := NewRandomForestClassifier(ForestParams{NEstimators: 25, MaxDepth: 5, RandomState: 42})
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	pred, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	rows, _ := pred.Dims()
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) != y.At(i, 0) {
			t.Errorf("row %d: predicted %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
}

func TestRandomForestClassifierProbaRowsSumToOne(t *testing.T) {
	X, y := clusterData()
	clf := NewRandomForestClassifier(ForestParams{NEstimators: 10, MaxDepth: 3, RandomState: 1})
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	rows, cols := proba.Dims()
	if cols != 2 {
		t.Fatalf("proba columns = %d, want 2", cols)
	}
	for i := 0; i < rows; i++ {
		var sum float64
		for k := 0; k < cols; k++ {
			sum += proba.At(i, k)
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d: proba sum = %v, want 1", i, sum)
		}
	}
}

func TestRandomForestImportances(t *testing.T) {
	X, y := clusterData()
	clf := NewRandomForestClassifier(ForestParams{NEstimators: 25, MaxDepth: 5, MaxFeatures: 2, RandomState: 7})
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	imp := clf.FeatureImportances()
	if len(imp) != 2 {
		t.Fatalf("importances length = %d, want 2", len(imp))
	}
	if imp[0] <= imp[1] {
		t.Errorf("informative feature importance %v not above constant feature %v", imp[0], imp[1])
	}
}

func TestRandomForestDeterministicSeed(t *testing.T) {
	X, y := clusterData()
	a := NewRandomForestClassifier(ForestParams{NEstimators: 10, MaxDepth: 4, RandomState: 99})
	b := NewRandomForestClassifier(ForestParams{NEstimators: 10, MaxDepth: 4, RandomState: 99})
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	pa, err := a.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	pb, err := b.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	if !mat.EqualApprox(pa, pb, 1e-12) {
		t.Error("same seed produced different probabilities")
	}
}

func TestRandomForestRegressorStepFunction(t *testing.T) {
	X := mat.NewDense(10, 1, []float64{1, 1.5, 2, 2.5, 3, 7, 7.5, 8, 8.5, 9})
	y := mat.NewDense(10, 1, []float64{10, 10, 10, 10, 10, 50, 50, 50, 50, 50})

	reg := NewRandomForestRegressor(ForestParams{NEstimators: 25, MaxDepth: 5, RandomState: 42})
	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	pred, err := reg.Predict(mat.NewDense(2, 1, []float64{2, 8}))
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if math.Abs(pred.At(0, 0)-10) > 5 {
		t.Errorf("left prediction = %v, want near 10", pred.At(0, 0))
	}
	if math.Abs(pred.At(1, 0)-50) > 5 {
		t.Errorf("right prediction = %v, want near 50", pred.At(1, 0))
	}
}

func TestRandomForestNotFitted(t *testing.T) {
	clf := NewRandomForestClassifier(DefaultForestParams())
	if _, err := clf.Predict(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("expected error predicting before Fit")
	}
}

func TestGradientBoostingRegressorFitsResiduals(t *testing.T) {
	// y = 3x over a small grid; enough stages should drive error low.
	X := mat.NewDense(10, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	y := mat.NewDense(10, 1, []float64{3, 6, 9, 12, 15, 18, 21, 24, 27, 30})

	reg := NewGradientBoostingRegressor(BoostingParams{NEstimators: 100, LearningRate: 0.3, MaxDepth: 2})
	if err := reg.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	pred, err := reg.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		if math.Abs(pred.At(i, 0)-y.At(i, 0)) > 1.0 {
			t.Errorf("row %d: predicted %v, want near %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
}

func TestGradientBoostingClassifierSeparable(t *testing.T) {
	X, y := clusterData()
	clf := NewGradientBoostingClassifier(BoostingParams{NEstimators: 50, LearningRate: 0.2, MaxDepth: 2})
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	pred, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	rows, _ := pred.Dims()
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) != y.At(i, 0) {
			t.Errorf("row %d: predicted %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}

	proba, err := clf.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	for i := 0; i < rows; i++ {
		sum := proba.At(i, 0) + proba.At(i, 1)
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d: proba sum = %v, want 1", i, sum)
		}
	}
}

func TestGradientBoostingClassifierMulticlass(t *testing.T) {
	X := mat.NewDense(9, 1, []float64{1, 1.5, 2, 5, 5.5, 6, 9, 9.5, 10})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	clf := NewGradientBoostingClassifier(BoostingParams{NEstimators: 40, LearningRate: 0.2, MaxDepth: 2})
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if got := len(clf.Classes()); got != 3 {
		t.Fatalf("Classes() length = %d, want 3", got)
	}
	pred, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < 9; i++ {
		if pred.At(i, 0) != y.At(i, 0) {
			t.Errorf("row %d: predicted %v, want %v", i, pred.At(i, 0), y.At(i, 0))
		}
	}
}

func TestGradientBoostingClassifierSingleClass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := mat.NewDense(3, 1, []float64{1, 1, 1})

	clf := NewGradientBoostingClassifier(DefaultBoostingParams())
	if err := clf.Fit(X, y); err == nil {
		t.Error("expected error fitting a single-class target")
	}
}

func TestBoostingParamsDefaults(t *testing.T) {
	p := BoostingParams{}.withDefaults()
	if p.NEstimators != 100 || p.LearningRate != 0.1 || p.MaxDepth != 3 {
		t.Errorf("withDefaults() = %+v, want 100/0.1/3", p)
	}
}
