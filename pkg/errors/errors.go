// Package errors provides the error and warning types shared by every grf package.
// Constructors attach a stack trace through cockroachdb/errors, and most types
// know how to render themselves as structured zerolog objects.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("grf-warning: %v\n", w)
	}
	// set by pkg/log to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the handler used by Warn.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a structured warning sink. It takes precedence over
// the handler set with SetWarningHandler.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	Warnings
//
// ===========================================================================

// EmptyNeighborhoodWarning reports test samples that landed only in empty leaves.
// Their point estimates are NaN and no variance is computed for them.
type EmptyNeighborhoodWarning struct {
	Samples int
	Total   int
}

func (w *EmptyNeighborhoodWarning) Error() string {
	return fmt.Sprintf("%d of %d samples had no contributing leaves; their predictions are NaN", w.Samples, w.Total)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *EmptyNeighborhoodWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Int("samples", w.Samples).
		Int("total", w.Total).
		Str("type", "EmptyNeighborhoodWarning")
}

// NewEmptyNeighborhoodWarning creates a new EmptyNeighborhoodWarning.
func NewEmptyNeighborhoodWarning(samples, total int) *EmptyNeighborhoodWarning {
	return &EmptyNeighborhoodWarning{Samples: samples, Total: total}
}

// ===========================================================================
//
//	Structured errors
//
// ===========================================================================

// NotFittedError is returned when a model is used before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("grf: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError is returned when input dimensions disagree with what was expected.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns
}

func (e *DimensionError) Error() string {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("grf: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "columns"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError is returned when a configuration parameter is rejected.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("grf: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// LengthMismatchError signals a prediction strategy that produced a vector whose
// length differs from its declared prediction length. It is a defect in the
// strategy, never an input problem.
type LengthMismatchError struct {
	Sample   int
	Expected int
	Got      int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("grf: prediction for sample %d did not have the expected length. Expected %d, got %d", e.Sample, e.Expected, e.Got)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *LengthMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("sample", e.Sample).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Str("type", "LengthMismatchError")
}

// NewLengthMismatchError creates a LengthMismatchError with a stack trace.
func NewLengthMismatchError(sample, expected, got int) error {
	return errors.WithStack(&LengthMismatchError{Sample: sample, Expected: expected, Got: got})
}

// InsufficientCandidatesError is returned by draws without replacement that ask
// for more values than the candidate pool holds.
type InsufficientCandidatesError struct {
	Op        string
	Requested int
	Available int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("grf: %s: requested %d draws without replacement but only %d candidates are available", e.Op, e.Requested, e.Available)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *InsufficientCandidatesError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("requested", e.Requested).
		Int("available", e.Available).
		Str("type", "InsufficientCandidatesError")
}

// NewInsufficientCandidatesError creates an InsufficientCandidatesError with a stack trace.
func NewInsufficientCandidatesError(op string, requested, available int) error {
	return errors.WithStack(&InsufficientCandidatesError{Op: op, Requested: requested, Available: available})
}

// ValueError is returned when an argument has an invalid value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("grf: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ModelError is a general model failure carrying the operation that failed.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grf: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("grf: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack attaches a stack trace to err.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Sentinels
//
// ===========================================================================

var (
	// ErrEmptyData is returned when a dataset has no rows or columns.
	ErrEmptyData = New("empty data")

	// ErrNoGoodGroups is returned by variance estimation when no tree group
	// contributed a value for every one of its trees. It usually means
	// ci_group_size is too large for the forest or the sample is rarely OOB.
	ErrNoGoodGroups = New("no complete tree groups for variance estimation")
)
