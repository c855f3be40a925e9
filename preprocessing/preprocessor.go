package preprocessing

import (
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/dataset"
	"github.com/mlinsights/tabular/pkg/errors"
)

// State holds every fitted preprocessing parameter: feature order, per-column
// imputation means, per-categorical-column encoding tables, and the optional
// scaler. It is fit exactly once, on the training split, and treated as
// immutable afterwards; the artifact serializes it so inference replays the
// identical transformation.
type State struct {
	// FeatureNames fixes the column order every transform reindexes to.
	FeatureNames []string

	// ImputeMeans maps numeric column names to the fitted mean used for
	// missing cells.
	ImputeMeans map[string]float64

	// Encoders maps categorical column names to their fitted encoding tables.
	Encoders map[string]*CategoryEncoder

	// Scaler is non-nil only when the selected algorithm is sensitive to
	// feature magnitude.
	Scaler *StandardScaler
}

// Fit learns imputation means, categorical encodings, and (when withScaling
// is set) scaler statistics from the training features. The returned State is
// the only product; Fit keeps no hidden mutable state.
func Fit(X *dataset.Table, withScaling bool) (*State, error) {
	if X.NumRows() == 0 || X.NumCols() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "preprocessing.Fit")
	}

	state := &State{
		FeatureNames: append([]string{}, X.Columns...),
		ImputeMeans:  make(map[string]float64),
		Encoders:     make(map[string]*CategoryEncoder),
	}

	for _, name := range X.Columns {
		values, err := X.Column(name)
		if err != nil {
			return nil, err
		}
		if columnIsNumeric(values) {
			state.ImputeMeans[name] = columnMean(values)
		} else {
			enc := NewCategoryEncoder()
			if err := enc.Fit(values); err != nil {
				return nil, errors.Wrapf(err, "preprocessing.Fit: column %s", name)
			}
			state.Encoders[name] = enc
		}
	}

	if withScaling {
		matrix, err := state.encode(X)
		if err != nil {
			return nil, err
		}
		state.Scaler = NewStandardScaler()
		if err := state.Scaler.Fit(matrix); err != nil {
			return nil, err
		}
	}

	return state, nil
}

// Transform applies the fitted imputation, encoding, and scaling to X without
// altering the state. X must contain every fitted feature column; extra
// columns are ignored and the output is reindexed to the fitted order.
func (s *State) Transform(X *dataset.Table) (*mat.Dense, error) {
	ordered, err := X.Select(s.FeatureNames)
	if err != nil {
		return nil, err
	}
	matrix, err := s.encode(ordered)
	if err != nil {
		return nil, err
	}
	if s.Scaler != nil {
		return s.Scaler.Transform(matrix)
	}
	return matrix, nil
}

// encode builds the numeric matrix from a table already in fitted column
// order, applying imputation and categorical encoding but not scaling.
func (s *State) encode(X *dataset.Table) (*mat.Dense, error) {
	n := X.NumRows()
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "preprocessing.Transform")
	}

	out := mat.NewDense(n, len(s.FeatureNames), nil)
	for j, name := range s.FeatureNames {
		values, err := X.Column(name)
		if err != nil {
			return nil, err
		}

		if enc, ok := s.Encoders[name]; ok {
			codes, err := enc.Transform(values)
			if err != nil {
				return nil, errors.Wrapf(err, "column %s", name)
			}
			for i, code := range codes {
				out.Set(i, j, code)
			}
			continue
		}

		mean := s.ImputeMeans[name]
		for i, v := range values {
			if dataset.IsMissing(v) {
				out.Set(i, j, mean)
				continue
			}
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, errors.NewDataValidationError("preprocessing.Transform",
					"non-numeric value "+strconv.Quote(v)+" in numeric column "+name)
			}
			out.Set(i, j, parsed)
		}
	}
	return out, nil
}

// columnIsNumeric reports whether every non-missing cell parses as a float.
// A column with no observed values at all counts as numeric.
func columnIsNumeric(values []string) bool {
	for _, v := range values {
		if dataset.IsMissing(v) {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

// columnMean is the mean of the non-missing cells, 0 if there are none.
func columnMean(values []string) float64 {
	sum, count := 0.0, 0
	for _, v := range values {
		if dataset.IsMissing(v) {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		sum += parsed
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
