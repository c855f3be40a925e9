// Package linear implements the linear model family: ordinary least squares
// regression and logistic regression. Both expose their coefficients so the
// importance extractor can rank features by absolute weight.
package linear

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mlinsights/tabular/core/model"
	"github.com/mlinsights/tabular/pkg/errors"
)

// LinearRegression fits ordinary least squares via the normal equations
// w = (X^T X)^-1 X^T y. Parameters are stored as plain slices so the fitted
// model serializes cleanly into an artifact.
type LinearRegression struct {
	State     *model.StateManager
	Weights   []float64
	Intercept float64
	NFeatures int
}

// NewLinearRegression creates an unfitted LinearRegression.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{State: model.NewStateManager()}
}

// Fit solves the normal equations on X (n_samples, n_features) and y
// (n_samples, 1).
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.Wrap(errors.ErrEmptyData, "LinearRegression.Fit")
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.Newf("LinearRegression.Fit: y must be a column vector, got shape (%d, %d)", ry, cy)
	}

	lr.NFeatures = c

	// Prepend an all-ones column for the intercept.
	XIntercept := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		XIntercept.Set(i, 0, 1.0)
		for j := 0; j < c; j++ {
			XIntercept.Set(i, j+1, X.At(i, j))
		}
	}

	var xt mat.Dense
	xt.CloneFrom(XIntercept.T())

	var xtx mat.Dense
	xtx.Mul(&xt, XIntercept)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return errors.Wrap(errors.ErrSingularMatrix, "LinearRegression.Fit")
	}

	yVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	var xty mat.VecDense
	xty.MulVec(&xt, yVec)

	weights := mat.NewVecDense(c+1, nil)
	weights.MulVec(&xtxInv, &xty)

	lr.Intercept = weights.AtVec(0)
	lr.Weights = make([]float64, c)
	for j := 0; j < c; j++ {
		lr.Weights[j] = weights.AtVec(j + 1)
	}

	if lr.State == nil {
		lr.State = model.NewStateManager()
	}
	lr.State.SetDimensions(c, r)
	lr.State.SetFitted()
	return nil
}

// Predict returns y = X w + b as an (n_samples, 1) matrix.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if lr.State == nil || !lr.State.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		sum := lr.Intercept
		for j := 0; j < c; j++ {
			sum += X.At(i, j) * lr.Weights[j]
		}
		predictions.Set(i, 0, sum)
	}
	return predictions, nil
}

// Coefficients exposes the fitted weights as a single row.
func (lr *LinearRegression) Coefficients() [][]float64 {
	return [][]float64{lr.Weights}
}
