package preprocessing

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/pkg/errors"
)

// missingToken is the canonical category used for missing cells in
// categorical columns, so that missing values encode consistently between
// training and inference.
const missingToken = ""

// CategoryEncoder maps category values to integer codes. Codes are assigned
// by sorted value order, fit once, and replayed verbatim at inference; a
// value never seen during fitting is a validation error, not a fresh code.
type CategoryEncoder struct {
	State *model.StateManager

	// Classes holds the distinct fitted values in sorted order; the code of
	// Classes[i] is i.
	Classes []string

	// index is rebuilt lazily after gob decoding.
	index map[string]int
}

// NewCategoryEncoder creates an unfitted CategoryEncoder.
func NewCategoryEncoder() *CategoryEncoder {
	return &CategoryEncoder{State: model.NewStateManager()}
}

func canonical(value string) string {
	if isMissingValue(value) {
		return missingToken
	}
	return value
}

func isMissingValue(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

// Fit learns the encoding table from the given values.
func (e *CategoryEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "CategoryEncoder.Fit")
	}

	seen := make(map[string]bool)
	for _, v := range values {
		seen[canonical(v)] = true
	}
	e.Classes = make([]string, 0, len(seen))
	for v := range seen {
		e.Classes = append(e.Classes, v)
	}
	sort.Strings(e.Classes)

	e.index = make(map[string]int, len(e.Classes))
	for i, v := range e.Classes {
		e.index[v] = i
	}

	if e.State == nil {
		e.State = model.NewStateManager()
	}
	e.State.SetFitted()
	return nil
}

// Transform maps values to their fitted codes. Unseen values are rejected
// with a DataValidationError naming the value.
func (e *CategoryEncoder) Transform(values []string) ([]float64, error) {
	if e.State == nil || !e.State.IsFitted() {
		return nil, errors.NewNotFittedError("CategoryEncoder", "Transform")
	}
	e.ensureIndex()

	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.index[canonical(v)]
		if !ok {
			return nil, errors.NewDataValidationError("CategoryEncoder.Transform",
				"unseen category value "+strconv.Quote(v))
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform fits the encoder and transforms the same values.
func (e *CategoryEncoder) FitTransform(values []string) ([]float64, error) {
	if err := e.Fit(values); err != nil {
		return nil, err
	}
	return e.Transform(values)
}

// InverseTransform maps integer codes back to the original values. Codes are
// rounded to the nearest integer before lookup so model output can be passed
// in directly.
func (e *CategoryEncoder) InverseTransform(codes []float64) ([]string, error) {
	if e.State == nil || !e.State.IsFitted() {
		return nil, errors.NewNotFittedError("CategoryEncoder", "InverseTransform")
	}

	out := make([]string, len(codes))
	for i, code := range codes {
		idx := int(code + 0.5)
		if code < 0 || idx >= len(e.Classes) {
			return nil, errors.NewDataValidationError("CategoryEncoder.InverseTransform",
				"code out of range")
		}
		out[i] = e.Classes[idx]
	}
	return out, nil
}

// NumClasses returns the number of fitted categories.
func (e *CategoryEncoder) NumClasses() int { return len(e.Classes) }

func (e *CategoryEncoder) ensureIndex() {
	if e.index != nil {
		return
	}
	e.index = make(map[string]int, len(e.Classes))
	for i, v := range e.Classes {
		e.index[v] = i
	}
}
