package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/pkg/errors"
)

// Averaging strategies for precision/recall/F1. Binary is used when exactly
// two distinct true-label values exist, weighted otherwise.
const (
	AverageBinary   = "binary"
	AverageWeighted = "weighted"
)

// Accuracy computes the fraction of exact label matches.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "Accuracy")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// DistinctLabels returns the sorted distinct values of y.
func DistinctLabels(y *mat.VecDense) []float64 {
	seen := make(map[float64]bool)
	for i := 0; i < y.Len(); i++ {
		seen[y.AtVec(i)] = true
	}
	labels := make([]float64, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Float64s(labels)
	return labels
}

// PrecisionRecallF1 computes precision, recall, and F1. With AverageBinary
// the positive class is the greater of the two label values; with
// AverageWeighted per-class scores are averaged weighted by true-label
// support. Zero-division cases yield 0 rather than an error.
func PrecisionRecallF1(yTrue, yPred *mat.VecDense, average string) (precision, recall, f1 float64, err error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, 0, 0, errors.Wrap(errors.ErrEmptyData, "PrecisionRecallF1")
	}
	if yPred.Len() != n {
		return 0, 0, 0, errors.NewDimensionError("PrecisionRecallF1", n, yPred.Len(), 0)
	}

	labels := DistinctLabels(yTrue)

	switch average {
	case AverageBinary:
		if len(labels) != 2 {
			return 0, 0, 0, errors.Newf("PrecisionRecallF1: binary averaging requires 2 classes, got %d", len(labels))
		}
		p, r, f := classScores(yTrue, yPred, labels[1])
		return p, r, f, nil
	case AverageWeighted:
		var sumP, sumR, sumF float64
		for _, label := range labels {
			p, r, f := classScores(yTrue, yPred, label)
			support := labelCount(yTrue, label)
			weight := float64(support) / float64(n)
			sumP += weight * p
			sumR += weight * r
			sumF += weight * f
		}
		return sumP, sumR, sumF, nil
	default:
		return 0, 0, 0, errors.Newf("PrecisionRecallF1: unknown average %q", average)
	}
}

// classScores computes one-vs-rest precision, recall, and F1 for a single
// positive label. Undefined ratios are 0.
func classScores(yTrue, yPred *mat.VecDense, positive float64) (precision, recall, f1 float64) {
	var tp, fp, fn float64
	for i := 0; i < yTrue.Len(); i++ {
		predPos := yPred.AtVec(i) == positive
		truePos := yTrue.AtVec(i) == positive
		switch {
		case predPos && truePos:
			tp++
		case predPos && !truePos:
			fp++
		case !predPos && truePos:
			fn++
		}
	}
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

func labelCount(y *mat.VecDense, label float64) int {
	count := 0
	for i := 0; i < y.Len(); i++ {
		if y.AtVec(i) == label {
			count++
		}
	}
	return count
}

// AUC computes the binary ROC-AUC from positive-class scores using the
// rank-based (Mann-Whitney) formulation. With only one class present the
// curve is undefined and 0.5 is returned.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, "AUC")
	}
	if yScore.Len() != n {
		return 0, errors.NewDimensionError("AUC", n, yScore.Len(), 0)
	}

	labels := DistinctLabels(yTrue)
	if len(labels) > 2 {
		return 0, errors.Newf("AUC: requires binary labels, got %d classes", len(labels))
	}

	positive := labels[len(labels)-1]
	var nPos, nNeg int
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == positive {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}

	// Rank scores ascending; tied scores share their average rank.
	type scored struct {
		score float64
		pos   bool
	}
	items := make([]scored, n)
	for i := 0; i < n; i++ {
		items[i] = scored{score: yScore.AtVec(i), pos: yTrue.AtVec(i) == positive}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].score < items[j].score })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && items[j].score == items[i].score {
			j++
		}
		avgRank := float64(i+1+j) / 2.0
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	var rankSum float64
	for i, item := range items {
		if item.pos {
			rankSum += ranks[i]
		}
	}
	auc := (rankSum - float64(nPos)*float64(nPos+1)/2.0) / (float64(nPos) * float64(nNeg))
	return auc, nil
}

// ConfusionMatrix builds the square count matrix over the sorted distinct
// true-label values: rows are true labels, columns predicted labels.
func ConfusionMatrix(yTrue, yPred *mat.VecDense) ([][]int, []float64, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "ConfusionMatrix")
	}
	if yPred.Len() != n {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}

	labels := DistinctLabels(yTrue)
	index := make(map[float64]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	matrix := make([][]int, len(labels))
	for i := range matrix {
		matrix[i] = make([]int, len(labels))
	}
	for i := 0; i < n; i++ {
		row, ok := index[yTrue.AtVec(i)]
		if !ok {
			continue
		}
		col, ok := index[yPred.AtVec(i)]
		if !ok {
			continue
		}
		matrix[row][col]++
	}
	return matrix, labels, nil
}

// ClassificationReport is the metrics record for a classification run.
// ROCAUC is nil when the curve cannot be computed (more than two classes, no
// probability output, or a soft computation failure).
type ClassificationReport struct {
	Accuracy        float64  `json:"accuracy"`
	Precision       float64  `json:"precision"`
	Recall          float64  `json:"recall"`
	F1Score         float64  `json:"f1_score"`
	ROCAUC          *float64 `json:"roc_auc"`
	ConfusionMatrix [][]int  `json:"confusion_matrix"`
}

// CalculateClassification computes the full classification metrics record.
// posScores, when non-nil, holds the positive-class probability per sample
// and enables ROC-AUC for binary problems; an AUC failure degrades to a nil
// metric and a warning rather than an error.
func CalculateClassification(yTrue, yPred *mat.VecDense, posScores *mat.VecDense) (*ClassificationReport, error) {
	accuracy, err := Accuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	average := AverageWeighted
	labels := DistinctLabels(yTrue)
	if len(labels) == 2 {
		average = AverageBinary
	}
	precision, recall, f1, err := PrecisionRecallF1(yTrue, yPred, average)
	if err != nil {
		return nil, err
	}

	report := &ClassificationReport{
		Accuracy:  accuracy,
		Precision: precision,
		Recall:    recall,
		F1Score:   f1,
	}

	if len(labels) == 2 && posScores != nil {
		auc, err := AUC(yTrue, posScores)
		if err != nil {
			errors.Warn(errors.NewComputationWarning("roc_auc", err.Error()))
		} else {
			report.ROCAUC = &auc
		}
	}

	matrix, _, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	report.ConfusionMatrix = matrix
	return report, nil
}
