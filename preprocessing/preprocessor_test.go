package preprocessing

import (
	"math"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/pkg/errors"
)

func TestFitTransformNumericPassthrough(t *testing.T) {
	// With no missing values and no scaling, numeric columns come through
	// untouched.
	X := &dataset.Table{
		Columns: []string{"a", "b"},
		Rows: [][]string{
			{"1", "10"},
			{"2", "20"},
			{"3", "30"},
		},
	}

	state, err := Fit(X, false)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	got, err := state.Transform(X)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	want := mat.NewDense(3, 2, []float64{1, 10, 2, 20, 3, 30})
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Errorf("Transform() = %v, want raw values", mat.Formatted(got))
	}
}

func TestImputationUsesFittedMean(t *testing.T) {
	train := &dataset.Table{
		Columns: []string{"a"},
		Rows:    [][]string{{"1"}, {"3"}, {""}},
	}

	state, err := Fit(train, false)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if got := state.ImputeMeans["a"]; got != 2 {
		t.Fatalf("fitted mean = %v, want 2 (mean of observed values)", got)
	}

	// The training-time mean is replayed at inference, not recomputed.
	infer := &dataset.Table{Columns: []string{"a"}, Rows: [][]string{{"NaN"}, {"5"}}}
	got, err := state.Transform(infer)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got.At(0, 0) != 2 {
		t.Errorf("imputed value = %v, want fitted mean 2", got.At(0, 0))
	}
	if got.At(1, 0) != 5 {
		t.Errorf("observed value = %v, want 5", got.At(1, 0))
	}
}

func TestCategoricalEncodingReplayed(t *testing.T) {
	train := &dataset.Table{
		Columns: []string{"city"},
		Rows:    [][]string{{"tokyo"}, {"osaka"}, {"tokyo"}, {"kyoto"}},
	}

	state, err := Fit(train, false)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// Sorted vocabulary: kyoto=0, osaka=1, tokyo=2. Inference sees a subset
	// but must reuse the fitted codes.
	infer := &dataset.Table{Columns: []string{"city"}, Rows: [][]string{{"tokyo"}, {"kyoto"}}}
	got, err := state.Transform(infer)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got.At(0, 0) != 2 || got.At(1, 0) != 0 {
		t.Errorf("codes = [%v %v], want [2 0]", got.At(0, 0), got.At(1, 0))
	}
}

func TestUnseenCategoryRejected(t *testing.T) {
	train := &dataset.Table{
		Columns: []string{"city"},
		Rows:    [][]string{{"tokyo"}, {"osaka"}},
	}
	state, err := Fit(train, false)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	infer := &dataset.Table{Columns: []string{"city"}, Rows: [][]string{{"sapporo"}}}
	_, err = state.Transform(infer)
	var dve *errors.DataValidationError
	if !errors.As(err, &dve) {
		t.Fatalf("expected DataValidationError for unseen category, got %v", err)
	}
}

func TestTransformReindexesColumns(t *testing.T) {
	train := &dataset.Table{
		Columns: []string{"a", "b"},
		Rows:    [][]string{{"1", "100"}, {"2", "200"}},
	}
	state, err := Fit(train, false)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	// Same data, columns swapped and one extra column; output must be in
	// fitted order with the extra ignored.
	infer := &dataset.Table{
		Columns: []string{"extra", "b", "a"},
		Rows:    [][]string{{"9", "100", "1"}},
	}
	got, err := state.Transform(infer)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if got.At(0, 0) != 1 || got.At(0, 1) != 100 {
		t.Errorf("row = [%v %v], want [1 100]", got.At(0, 0), got.At(0, 1))
	}
}

func TestTransformIdempotent(t *testing.T) {
	X := &dataset.Table{
		Columns: []string{"a", "city"},
		Rows:    [][]string{{"1", "x"}, {"", "y"}, {"4", "x"}},
	}
	state, err := Fit(X, true)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	first, err := state.Transform(X)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	second, err := state.Transform(X)
	if err != nil {
		t.Fatalf("second Transform() error = %v", err)
	}
	if !mat.EqualApprox(first, second, 0) {
		t.Error("repeated Transform on identical input differs")
	}
}

func TestScalingProducesZeroMeanUnitVariance(t *testing.T) {
	X := &dataset.Table{
		Columns: []string{"a"},
		Rows:    [][]string{{"2"}, {"4"}, {"6"}, {"8"}},
	}
	state, err := Fit(X, true)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	got, err := state.Transform(X)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	n, _ := got.Dims()
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		sum += got.At(i, 0)
	}
	mean := sum / float64(n)
	for i := 0; i < n; i++ {
		sumSq += (got.At(i, 0) - mean) * (got.At(i, 0) - mean)
	}
	if math.Abs(mean) > 1e-12 {
		t.Errorf("scaled mean = %v, want 0", mean)
	}
	if math.Abs(sumSq/float64(n)-1) > 1e-12 {
		t.Errorf("scaled variance = %v, want 1", sumSq/float64(n))
	}
}

func TestEncodeClassificationTarget(t *testing.T) {
	codes, enc, err := EncodeClassificationTarget([]string{"spam", "ham", "spam"})
	if err != nil {
		t.Fatalf("EncodeClassificationTarget() error = %v", err)
	}
	if enc == nil {
		t.Fatal("expected a fitted target encoder for non-numeric labels")
	}
	// ham=0, spam=1 in sorted order.
	if !reflect.DeepEqual(codes, []float64{1, 0, 1}) {
		t.Errorf("codes = %v, want [1 0 1]", codes)
	}

	decoded, err := enc.InverseTransform(codes)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}
	if !reflect.DeepEqual(decoded, []string{"spam", "ham", "spam"}) {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestEncodeClassificationTargetNumericPassthrough(t *testing.T) {
	codes, enc, err := EncodeClassificationTarget([]string{"0", "1", "1"})
	if err != nil {
		t.Fatalf("EncodeClassificationTarget() error = %v", err)
	}
	if enc != nil {
		t.Error("numeric targets must not be label-encoded")
	}
	if !reflect.DeepEqual(codes, []float64{0, 1, 1}) {
		t.Errorf("codes = %v", codes)
	}
}

func TestEncodeRegressionTargetRejectsStrings(t *testing.T) {
	_, err := EncodeRegressionTarget([]string{"1.5", "high"})
	var ce *errors.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
