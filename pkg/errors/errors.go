// Package errors provides the error taxonomy shared by the training and
// prediction pipelines, together with a process-wide warning channel for
// computations that degrade instead of aborting.
package errors

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("tabular-warning: %v\n", w)
	}
)

// SetWarningHandler replaces the handler invoked by Warn. Binaries install a
// handler that routes warnings to their structured logger.
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// Warn reports a soft failure. Soft failures never abort the run; the caller
// continues with a degraded result (nil metric, empty importance list).
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ConfigurationError reports an invalid training request: an unsupported
// (problem type, algorithm) pair, an unknown hyperparameter, or a missing
// target column. Always fatal; nothing is trained and no artifact is written.
type ConfigurationError struct {
	Field  string
	Reason string
	Value  interface{}
}

func (e *ConfigurationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("tabular: invalid configuration for %q: %s (got: %v)", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("tabular: invalid configuration for %q: %s", e.Field, e.Reason)
}

// MarshalZerologObject adds the structured configuration failure to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("field", e.Field).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a ConfigurationError with a stack trace.
func NewConfigurationError(field, reason string, value interface{}) error {
	err := &ConfigurationError{Field: field, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// DataValidationError reports input data that cannot be scored: required
// feature columns absent at inference time, or a categorical value never seen
// during fitting. MissingColumns holds the exact set of absent names when the
// failure is a column check.
type DataValidationError struct {
	Op             string
	Reason         string
	MissingColumns []string
}

func (e *DataValidationError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("tabular: %s: missing required features: %s", e.Op, strings.Join(e.MissingColumns, ", "))
	}
	return fmt.Sprintf("tabular: %s: %s", e.Op, e.Reason)
}

// MarshalZerologObject adds the structured validation failure to a zerolog event.
func (e *DataValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Strs("missing_columns", e.MissingColumns).
		Str("type", "DataValidationError")
}

// NewDataValidationError creates a DataValidationError with a stack trace.
func NewDataValidationError(op, reason string) error {
	err := &DataValidationError{Op: op, Reason: reason}
	return errors.WithStack(err)
}

// NewMissingColumnsError creates a DataValidationError enumerating exactly the
// columns absent from the input.
func NewMissingColumnsError(op string, missing []string) error {
	err := &DataValidationError{Op: op, Reason: "missing required features", MissingColumns: missing}
	return errors.WithStack(err)
}

// PersistenceError reports an artifact that is missing, unreadable, or
// corrupt. Fatal to the invoking process.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tabular: %s: artifact %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("tabular: %s: artifact %q", e.Op, e.Path)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the structured persistence failure to a zerolog event.
func (e *PersistenceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("path", e.Path).
		Str("type", "PersistenceError")
	if e.Err != nil {
		event.AnErr("cause", e.Err)
	}
}

// NewPersistenceError creates a PersistenceError with a stack trace.
func NewPersistenceError(op, path string, err error) error {
	perr := &PersistenceError{Op: op, Path: path, Err: err}
	return errors.WithStack(perr)
}

// NotFittedError is returned when Predict or Transform is called on an
// estimator or preprocessing state that has not been fitted.
type NotFittedError struct {
	Name   string
	Method string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("tabular: %s: not fitted yet. Call Fit() before using %s()", e.Name, e.Method)
}

// MarshalZerologObject adds the structured error to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("name", e.Name).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(name, method string) error {
	err := &NotFittedError{Name: name, Method: method}
	return errors.WithStack(err)
}

// DimensionError reports a shape mismatch between fitted and supplied data.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("tabular: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the structured error to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ComputationWarning describes an optional computation (ROC-AUC, feature
// importance) that could not be completed. It is passed to Warn, never
// returned up the pipeline.
type ComputationWarning struct {
	Computation string
	Reason      string
}

func (w *ComputationWarning) Error() string {
	return fmt.Sprintf("could not compute %s: %s", w.Computation, w.Reason)
}

// MarshalZerologObject adds the structured warning to a zerolog event.
func (w *ComputationWarning) MarshalZerologObject(event *zerolog.Event) {
	event.Str("computation", w.Computation).
		Str("reason", w.Reason).
		Str("type", "ComputationWarning")
}

// NewComputationWarning creates a new ComputationWarning.
func NewComputationWarning(computation, reason string) *ComputationWarning {
	return &ComputationWarning{Computation: computation, Reason: reason}
}

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target's type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an existing error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

var (
	// ErrEmptyData is returned when a fit or transform receives no rows.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when a linear solve hits a singular matrix.
	ErrSingularMatrix = New("singular matrix")
)
