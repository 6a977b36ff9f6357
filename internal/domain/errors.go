package domain

import (
	"errors"
	"fmt"
)

// Base error types (sentinel errors).
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnsupported  = errors.New("unsupported operation")
	ErrInternal     = errors.New("internal error")
	ErrUnavailable  = errors.New("service unavailable")
)

// Referencing errors. Each is fatal for the call that produced it and is never retried.
var (
	ErrOperationNotFound   = errors.New("coordinate operation not found")
	ErrMismatchedDimension = errors.New("mismatched dimension")
	ErrSingularMatrix      = errors.New("singular matrix")
	ErrNoConvergence       = errors.New("iteration did not converge")
	ErrNoninvertible       = errors.New("transform is not invertible")
)

// Specific errors.
var (
	ErrCRSNotFound           = fmt.Errorf("crs: %w", ErrNotFound)
	ErrInvalidCode           = fmt.Errorf("crs code: %w", ErrInvalidInput)
	ErrInvalidCoordinate     = fmt.Errorf("coordinate: %w", ErrInvalidInput)
	ErrTooManyPoints         = fmt.Errorf("too many points: %w", ErrInvalidInput)
	ErrUnsupportedProjection = fmt.Errorf("projection: %w", ErrUnsupported)
	ErrAxisMismatch          = fmt.Errorf("axis mismatch: %w", ErrOperationNotFound)
	ErrNotReady              = fmt.Errorf("service not ready: %w", ErrUnavailable)
)

// Stage names the resolution step in which an operation search failed.
type Stage string

// Resolution stages, in the order the factory visits them.
const (
	StageStart       Stage = "start"
	StageDecompose   Stage = "decompose"
	StageDatum       Stage = "match or bridge datums"
	StageAxes        Stage = "normalize axes and units"
	StageConcatenate Stage = "concatenate steps"
)

// ValidationError represents a detailed validation error.
type ValidationError struct {
	Field      string      // Field that failed validation
	Value      interface{} // The invalid value
	Constraint string      // The constraint that was violated
	Message    string      // Human-readable message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v, constraint: %s)",
		e.Field, e.Message, e.Value, e.Constraint)
}

// Unwrap returns the underlying error type.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// OperationNotFoundError reports that no coordinate operation exists between two CRSs
// under the factory's policy.
type OperationNotFoundError struct {
	Source string // Source CRS name
	Target string // Target CRS name
	Stage  Stage  // Step that could not be resolved
	Reason string // Human-readable reason
	Err    error  // Underlying error, may be nil
}

// Error implements the error interface.
func (e *OperationNotFoundError) Error() string {
	msg := fmt.Sprintf("no operation from %q to %q (%s): %s", e.Source, e.Target, e.Stage, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *OperationNotFoundError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrOperationNotFound, regardless of the wrapped cause.
func (e *OperationNotFoundError) Is(target error) bool {
	return target == ErrOperationNotFound
}

// MismatchedDimensionError reports incompatible matrix or transform dimensions.
type MismatchedDimensionError struct {
	Context  string // What was being built
	Expected int    // Dimension required
	Actual   int    // Dimension found
}

// Error implements the error interface.
func (e *MismatchedDimensionError) Error() string {
	return fmt.Sprintf("mismatched dimension in %s: expected %d, got %d",
		e.Context, e.Expected, e.Actual)
}

// Unwrap returns the underlying error type.
func (e *MismatchedDimensionError) Unwrap() error {
	return ErrMismatchedDimension
}

// AxisMismatchError reports that two axis lists cannot be mapped onto each other.
type AxisMismatchError struct {
	Axis   string // Target axis that failed
	Reason string // "axis not in source", "colinear axes", ...
}

// Error implements the error interface.
func (e *AxisMismatchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Axis)
}

// Unwrap returns the underlying error type.
func (e *AxisMismatchError) Unwrap() error {
	return ErrAxisMismatch
}

// ConvergenceError reports an iterative solver that ran out of iterations.
type ConvergenceError struct {
	Algorithm  string  // Solver name
	Iterations int     // Iterations performed
	Residual   float64 // Last correction
}

// Error implements the error interface.
func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s did not converge after %d iterations (residual %g)",
		e.Algorithm, e.Iterations, e.Residual)
}

// Unwrap returns the underlying error type.
func (e *ConvergenceError) Unwrap() error {
	return ErrNoConvergence
}

// PointLimitError reports a request that would transform more points than allowed.
type PointLimitError struct {
	Field     string // Request field that sets the point count
	Requested int    // Points or value requested
	Limit     int    // Largest accepted value
}

// Error implements the error interface.
func (e *PointLimitError) Error() string {
	return fmt.Sprintf("too many points from %s: %d, limit is %d", e.Field, e.Requested, e.Limit)
}

// Unwrap returns the underlying error type.
func (e *PointLimitError) Unwrap() error {
	return ErrTooManyPoints
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string // Configuration field
	Message string // Error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidInput
}
