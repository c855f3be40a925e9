package preprocessing

import (
	"strconv"

	"github.com/mlinsights/tabular/pkg/errors"
)

// ParseNumericTarget parses a target column as floats. ok is false when any
// non-missing value fails to parse, meaning the target needs label encoding.
func ParseNumericTarget(values []string) (parsed []float64, ok bool) {
	parsed = make([]float64, len(values))
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		parsed[i] = f
	}
	return parsed, true
}

// EncodeClassificationTarget converts a classification target to numeric
// codes. Numeric targets are passed through with a nil encoder; non-numeric
// targets get a fitted CategoryEncoder that the artifact keeps for decoding
// predictions back to the original label space.
func EncodeClassificationTarget(values []string) ([]float64, *CategoryEncoder, error) {
	if len(values) == 0 {
		return nil, nil, errors.Wrap(errors.ErrEmptyData, "EncodeClassificationTarget")
	}
	if parsed, ok := ParseNumericTarget(values); ok {
		return parsed, nil, nil
	}
	enc := NewCategoryEncoder()
	codes, err := enc.FitTransform(values)
	if err != nil {
		return nil, nil, err
	}
	return codes, enc, nil
}

// EncodeRegressionTarget parses a regression target, which is assumed numeric
// and never label-encoded. A non-numeric value is a configuration error.
func EncodeRegressionTarget(values []string) ([]float64, error) {
	if len(values) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "EncodeRegressionTarget")
	}
	parsed, ok := ParseNumericTarget(values)
	if !ok {
		return nil, errors.NewConfigurationError("target_column",
			"regression target must be numeric", nil)
	}
	return parsed, nil
}
