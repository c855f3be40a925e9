package training

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/artifact"
	coremodel "github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/metrics"
	"github.com/mlinsights/tabular/pkg/errors"
	"github.com/mlinsights/tabular/pkg/log"
	"github.com/mlinsights/tabular/preprocessing"
)

// ImportancePair is one feature's contribution, in the output shape the
// training response uses.
type ImportancePair struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Result is the evaluation output of one training run. Metrics holds either
// a *metrics.ClassificationReport or a *metrics.RegressionReport.
type Result struct {
	Metrics           any              `json:"metrics"`
	FeatureImportance []ImportancePair `json:"feature_importance"`
	Duration          time.Duration    `json:"-"`
}

// Trainer runs one fit/evaluate pass for a validated (problem, algorithm)
// pair. Construct it with NewTrainer, which fails fast on unsupported
// combinations and bad hyperparameters before any data is touched.
type Trainer struct {
	algorithm Algorithm
	problem   ProblemType
	hyperRaw  map[string]any
	logger    log.Logger
}

// NewTrainer validates the request configuration and returns a ready
// trainer. A nil logger disables logging.
func NewTrainer(problem ProblemType, a Algorithm, hyperparameters map[string]any, logger log.Logger) (*Trainer, error) {
	if !Supported(problem, a) {
		return nil, errors.NewConfigurationError(
			"algorithm", "not supported for problem type "+string(problem), string(a))
	}
	if _, err := ResolveHyperparameters(a, hyperparameters); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Trainer{
		algorithm: a,
		problem:   problem,
		hyperRaw:  hyperparameters,
		logger:    logger.With(log.AlgorithmKey, string(a), log.ProblemKey, string(problem)),
	}, nil
}

// Train fits preprocessing and the model on the training split, evaluates on
// the test split, and returns the evaluation result plus a ready-to-save
// artifact. The split itself happens upstream.
func (t *Trainer) Train(trainX, testX *dataset.Table, trainY, testY []string) (*Result, *artifact.Artifact, error) {
	start := time.Now()
	t.logger.Info("training started",
		log.SamplesKey, trainX.NumRows(), log.FeaturesKey, trainX.NumCols())

	state, err := preprocessing.Fit(trainX, RequiresScaling(t.algorithm))
	if err != nil {
		return nil, nil, err
	}
	trainM, err := state.Transform(trainX)
	if err != nil {
		return nil, nil, err
	}
	testM, err := state.Transform(testX)
	if err != nil {
		return nil, nil, err
	}

	yTrain, yTest, targetEncoder, err := t.encodeTargets(trainY, testY)
	if err != nil {
		return nil, nil, err
	}

	model, err := NewModel(t.problem, t.algorithm, t.hyperRaw)
	if err != nil {
		return nil, nil, err
	}
	nTrain := len(yTrain)
	if err := model.Fit(trainM, mat.NewDense(nTrain, 1, yTrain)); err != nil {
		return nil, nil, err
	}

	predM, err := model.Predict(testM)
	if err != nil {
		return nil, nil, err
	}
	yPred := columnVec(predM)
	yTrue := mat.NewVecDense(len(yTest), yTest)

	report, err := t.evaluate(model, testM, yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	importance := t.extractImportance(model, state.FeatureNames)

	result := &Result{
		Metrics:           report,
		FeatureImportance: importance,
		Duration:          time.Since(start),
	}
	bundle := &artifact.Artifact{
		AlgorithmID:   string(t.algorithm),
		ProblemType:   string(t.problem),
		FeatureNames:  state.FeatureNames,
		Model:         model,
		Preprocessing: state,
		TargetEncoder: targetEncoder,
	}

	t.logger.Info("training finished", log.DurationKey, result.Duration)
	return result, bundle, nil
}

// encodeTargets converts both target splits to numeric form. The encoder is
// fit on the training split only; test labels outside it are a data error.
func (t *Trainer) encodeTargets(trainY, testY []string) (yTrain, yTest []float64, enc *preprocessing.CategoryEncoder, err error) {
	if t.problem == Regression {
		if yTrain, err = preprocessing.EncodeRegressionTarget(trainY); err != nil {
			return nil, nil, nil, err
		}
		if yTest, err = preprocessing.EncodeRegressionTarget(testY); err != nil {
			return nil, nil, nil, err
		}
		return yTrain, yTest, nil, nil
	}

	yTrain, enc, err = preprocessing.EncodeClassificationTarget(trainY)
	if err != nil {
		return nil, nil, nil, err
	}
	if enc != nil {
		yTest, err = enc.Transform(testY)
	} else {
		var ok bool
		if yTest, ok = preprocessing.ParseNumericTarget(testY); !ok {
			err = errors.NewDataValidationError("encode target",
				"test split target is not numeric while training target was")
		}
	}
	if err != nil {
		return nil, nil, nil, err
	}
	return yTrain, yTest, enc, nil
}

// evaluate computes the metric report for the problem type. For binary
// classification the positive-class probabilities feed ROC-AUC; the
// probability column is located through the model's sorted class labels.
func (t *Trainer) evaluate(model coremodel.Estimator, testM mat.Matrix, yTrue, yPred *mat.VecDense) (any, error) {
	if t.problem == Regression {
		return metrics.CalculateRegression(yTrue, yPred)
	}

	var posScores *mat.VecDense
	if pp, ok := model.(coremodel.ProbabilityPredictor); ok && len(metrics.DistinctLabels(yTrue)) == 2 {
		proba, err := pp.PredictProba(testM)
		if err != nil {
			errors.Warn(errors.NewComputationWarning("roc_auc", err.Error()))
		} else {
			_, cols := proba.Dims()
			col := cols - 1 // probability columns are in ascending label order
			if cp, ok := model.(coremodel.ClassProvider); ok {
				col = positiveColumn(cp.Classes())
			}
			posScores = mat.NewVecDense(yTrue.Len(), nil)
			for i := 0; i < yTrue.Len(); i++ {
				posScores.SetVec(i, proba.At(i, col))
			}
		}
	}
	return metrics.CalculateClassification(yTrue, yPred, posScores)
}

func positiveColumn(classes []float64) int {
	best := 0
	for i, c := range classes {
		if c > classes[best] {
			best = i
		}
	}
	return best
}

// extractImportance pulls feature importances through the capability
// interfaces: native importances first, else mean absolute coefficients
// across classes, else empty with a logged warning. Non-empty output has one
// entry per feature, sorted descending.
func (t *Trainer) extractImportance(model coremodel.Estimator, featureNames []string) []ImportancePair {
	values := importanceValues(model, len(featureNames))
	if values == nil {
		w := errors.NewComputationWarning("feature_importance",
			"model exposes neither importances nor coefficients")
		errors.Warn(w)
		t.logger.Warn("feature importance unavailable", log.OperationKey, "train")
		return []ImportancePair{}
	}
	if len(values) != len(featureNames) {
		errors.Warn(errors.NewComputationWarning("feature_importance", "importance length mismatch"))
		return []ImportancePair{}
	}

	pairs := make([]ImportancePair, len(featureNames))
	for i, name := range featureNames {
		pairs[i] = ImportancePair{Feature: name, Importance: values[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Importance > pairs[j].Importance })
	return pairs
}

func importanceValues(model coremodel.Estimator, nFeatures int) []float64 {
	if ip, ok := model.(coremodel.ImportanceProvider); ok {
		if imp := ip.FeatureImportances(); imp != nil {
			return imp
		}
	}
	cp, ok := model.(coremodel.CoefficientProvider)
	if !ok {
		return nil
	}
	coef := cp.Coefficients()
	if len(coef) == 0 {
		return nil
	}
	values := make([]float64, nFeatures)
	for _, row := range coef {
		for j, v := range row {
			if j < nFeatures {
				values[j] += math.Abs(v)
			}
		}
	}
	for j := range values {
		values[j] /= float64(len(coef))
	}
	return values
}

func columnVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
