package dataset

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/mlinsights/tabular/pkg/errors"
)

// SplitSeed fixes the shuffle used by TrainTestSplit so repeated runs over
// the same dataset produce the same split.
const SplitSeed int64 = 42

// TrainTestSplit partitions features and target into train and test subsets.
// trainFrac is the fraction of rows assigned to the training split. When
// stratify is true the split preserves the per-label row proportions, which
// is how classification targets are split.
func TrainTestSplit(X *Table, y []string, trainFrac float64, stratify bool) (trainX, testX *Table, trainY, testY []string, err error) {
	n := X.NumRows()
	if n != len(y) {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", n, len(y), 0)
	}
	if trainFrac <= 0 || trainFrac >= 1 {
		return nil, nil, nil, nil, errors.NewConfigurationError("train_test_split", "must be in (0, 1)", trainFrac)
	}
	if n < 2 {
		return nil, nil, nil, nil, errors.Wrap(errors.ErrEmptyData, "TrainTestSplit: need at least 2 rows")
	}

	rng := rand.New(rand.NewSource(SplitSeed))

	var trainIdx, testIdx []int
	if stratify {
		trainIdx, testIdx, err = stratifiedIndices(y, trainFrac, rng)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	} else {
		perm := rng.Perm(n)
		cut := int(float64(n) * trainFrac)
		if cut == 0 {
			cut = 1
		}
		if cut == n {
			cut = n - 1
		}
		trainIdx, testIdx = perm[:cut], perm[cut:]
	}

	sort.Ints(trainIdx)
	sort.Ints(testIdx)

	trainX, testX = X.subset(trainIdx), X.subset(testIdx)
	trainY = make([]string, len(trainIdx))
	for i, idx := range trainIdx {
		trainY[i] = y[idx]
	}
	testY = make([]string, len(testIdx))
	for i, idx := range testIdx {
		testY[i] = y[idx]
	}
	return trainX, testX, trainY, testY, nil
}

// stratifiedIndices splits row indices per label so each label keeps roughly
// the trainFrac proportion. Groups are visited in sorted label order to keep
// the shuffle deterministic. A label with a single row cannot appear on both
// sides of the split and is rejected by name.
func stratifiedIndices(y []string, trainFrac float64, rng *rand.Rand) (train, test []int, err error) {
	groups := make(map[string][]int)
	for i, label := range y {
		groups[label] = append(groups[label], i)
	}

	labels := make([]string, 0, len(groups))
	var singletons []string
	for label, indices := range groups {
		if len(indices) < 2 {
			singletons = append(singletons, strconv.Quote(label))
			continue
		}
		labels = append(labels, label)
	}
	if len(singletons) > 0 {
		sort.Strings(singletons)
		return nil, nil, errors.NewDataValidationError("TrainTestSplit",
			"stratified splitting needs at least 2 rows per class; under-populated: "+
				strings.Join(singletons, ", "))
	}
	sort.Strings(labels)

	for _, label := range labels {
		indices := groups[label]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		cut := int(float64(len(indices)) * trainFrac)
		if cut == 0 {
			cut = 1
		}
		if cut == len(indices) {
			cut = len(indices) - 1
		}
		train = append(train, indices[:cut]...)
		test = append(test, indices[cut:]...)
	}
	return train, test, nil
}
