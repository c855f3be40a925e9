// Package predict replays a saved artifact against new rows: the fitted
// preprocessing state is applied transform-only, the model scores the
// result, and predictions are decoded back to the original label space.
package predict

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/artifact"
	coremodel "github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/pkg/errors"
	"github.com/mlinsights/tabular/pkg/log"
)

// Prediction is one scored row. Confidence is the maximum class probability,
// nil when the model has no probability output. ClassProbabilities is set
// only for binary classification, columns in ascending encoded-class order.
type Prediction struct {
	Value              string
	Confidence         *float64
	ClassProbabilities []float64
}

// Predictor scores tables against a loaded artifact.
type Predictor struct {
	logger log.Logger
}

// NewPredictor creates a predictor. A nil logger disables logging.
func NewPredictor(logger log.Logger) *Predictor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Predictor{logger: logger}
}

// Predict validates the input against the artifact's feature names, scores
// every row, and returns the per-row predictions plus the input table
// augmented with prediction columns. Missing feature columns are enumerated
// and rejected before any row is processed.
func (p *Predictor) Predict(bundle *artifact.Artifact, X *dataset.Table) ([]Prediction, *dataset.Table, error) {
	var missing []string
	for _, name := range bundle.FeatureNames {
		if X.ColumnIndex(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, nil, errors.NewMissingColumnsError("predict", missing)
	}

	p.logger.Info("scoring started",
		log.AlgorithmKey, bundle.AlgorithmID,
		log.SamplesKey, X.NumRows(),
		log.FeaturesKey, len(bundle.FeatureNames))

	// A headers-only input is valid: emit the augmented empty table rather
	// than pushing zero rows through the preprocessing matrix.
	if X.NumRows() == 0 {
		out, err := augment(X, nil, hasProbabilities(bundle), isBinary(bundle))
		if err != nil {
			return nil, nil, err
		}
		return []Prediction{}, out, nil
	}

	features, err := p.transform(bundle, X)
	if err != nil {
		return nil, nil, err
	}
	predM, err := bundle.Model.Predict(features)
	if err != nil {
		return nil, nil, err
	}

	n := X.NumRows()
	codes := make([]float64, n)
	for i := 0; i < n; i++ {
		codes[i] = predM.At(i, 0)
	}

	values, err := p.decode(bundle, codes)
	if err != nil {
		return nil, nil, err
	}

	predictions := make([]Prediction, n)
	for i := range predictions {
		predictions[i].Value = values[i]
	}

	binary := false
	hasProba := false
	if pp, ok := bundle.Model.(coremodel.ProbabilityPredictor); ok {
		hasProba = true
		proba, err := pp.PredictProba(features)
		if err != nil {
			return nil, nil, err
		}
		_, nClasses := proba.Dims()
		binary = nClasses == 2
		for i := 0; i < n; i++ {
			conf := rowMax(proba, i, nClasses)
			predictions[i].Confidence = &conf
			if binary {
				predictions[i].ClassProbabilities = []float64{proba.At(i, 0), proba.At(i, 1)}
			}
		}
	}

	out, err := augment(X, predictions, hasProba, binary)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Info("scoring finished", log.SamplesKey, n)
	return predictions, out, nil
}

// transform reindexes the input to the fitted feature order and replays the
// fitted encoding and scaling.
func (p *Predictor) transform(bundle *artifact.Artifact, X *dataset.Table) (*mat.Dense, error) {
	features, err := X.Select(bundle.FeatureNames)
	if err != nil {
		return nil, err
	}
	return bundle.Preprocessing.Transform(features)
}

// decode maps numeric predictions back to output strings, through the target
// encoder when the artifact has one.
func (p *Predictor) decode(bundle *artifact.Artifact, codes []float64) ([]string, error) {
	if bundle.TargetEncoder != nil {
		return bundle.TargetEncoder.InverseTransform(codes)
	}
	values := make([]string, len(codes))
	for i, c := range codes {
		values[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}
	return values, nil
}

func rowMax(proba mat.Matrix, i, nClasses int) float64 {
	best := proba.At(i, 0)
	for k := 1; k < nClasses; k++ {
		if proba.At(i, k) > best {
			best = proba.At(i, k)
		}
	}
	return best
}

// hasProbabilities reports whether the artifact's model exposes probability
// output, which determines the confidence column.
func hasProbabilities(bundle *artifact.Artifact) bool {
	_, ok := bundle.Model.(coremodel.ProbabilityPredictor)
	return ok
}

// isBinary reports whether the artifact's model is a two-class classifier
// with probability output, which determines the per-class columns.
func isBinary(bundle *artifact.Artifact) bool {
	cp, ok := bundle.Model.(coremodel.ClassProvider)
	return ok && hasProbabilities(bundle) && len(cp.Classes()) == 2
}

// augment appends the prediction columns to a copy of the input table.
func augment(X *dataset.Table, predictions []Prediction, hasConfidence, binary bool) (*dataset.Table, error) {
	out := dataset.New(append([]string{}, X.Columns...))
	for _, row := range X.Rows {
		out.Rows = append(out.Rows, append([]string{}, row...))
	}

	values := make([]string, len(predictions))
	for i, pred := range predictions {
		values[i] = pred.Value
	}
	if err := out.AddColumn("prediction", values); err != nil {
		return nil, err
	}

	if hasConfidence {
		conf := make([]string, len(predictions))
		for i, pred := range predictions {
			conf[i] = strconv.FormatFloat(*pred.Confidence, 'g', -1, 64)
		}
		if err := out.AddColumn("confidence", conf); err != nil {
			return nil, err
		}
	}

	if binary {
		p0 := make([]string, len(predictions))
		p1 := make([]string, len(predictions))
		for i, pred := range predictions {
			p0[i] = strconv.FormatFloat(pred.ClassProbabilities[0], 'g', -1, 64)
			p1[i] = strconv.FormatFloat(pred.ClassProbabilities[1], 'g', -1, 64)
		}
		if err := out.AddColumn("probability_class_0", p0); err != nil {
			return nil, err
		}
		if err := out.AddColumn("probability_class_1", p1); err != nil {
			return nil, err
		}
	}
	return out, nil
}
