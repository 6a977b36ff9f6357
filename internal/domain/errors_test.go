package domain

import (
	"errors"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:      "axes",
		Value:      "north, south",
		Constraint: "non-colinear directions",
		Message:    "colinear axes in coordinate system",
	}

	// Test Error() output
	got := err.Error()
	if got == "" {
		t.Error("Error() should not return empty string")
	}

	// Test Unwrap()
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}
}

func TestOperationNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationNotFoundError
	}{
		{
			name: "with cause",
			err: &OperationNotFoundError{
				Source: "NAD27",
				Target: "WGS 84",
				Stage:  StageAxes,
				Reason: "axis not in source",
				Err:    &AxisMismatchError{Axis: "Up", Reason: "axis not in source"},
			},
		},
		{
			name: "without cause",
			err: &OperationNotFoundError{
				Source: "NAD27",
				Target: "WGS 84",
				Stage:  StageDatum,
				Reason: "no Bursa-Wolf parameters available",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got == "" {
				t.Error("Error() should not return empty string")
			}

			if !errors.Is(tt.err, ErrOperationNotFound) {
				t.Error("OperationNotFoundError should match ErrOperationNotFound")
			}

			if tt.err.Err != nil && !errors.Is(tt.err, tt.err.Err) {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestMismatchedDimensionError(t *testing.T) {
	err := &MismatchedDimensionError{Context: "concatenate", Expected: 2, Actual: 3}

	want := "mismatched dimension in concatenate: expected 2, got 3"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(err, ErrMismatchedDimension) {
		t.Error("MismatchedDimensionError should unwrap to ErrMismatchedDimension")
	}
}

func TestConvergenceError(t *testing.T) {
	err := &ConvergenceError{Algorithm: "geocentric to geographic", Iterations: 10, Residual: 1e-6}

	if got := err.Error(); got == "" {
		t.Error("Error() should not return empty string")
	}

	if !errors.Is(err, ErrNoConvergence) {
		t.Error("ConvergenceError should unwrap to ErrNoConvergence")
	}
}

func TestPointLimitError(t *testing.T) {
	err := &PointLimitError{Field: "points", Requested: 11, Limit: 10}

	if got, want := err.Error(), "too many points from points: 11, limit is 10"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTooManyPoints) {
		t.Error("PointLimitError should unwrap to ErrTooManyPoints")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("PointLimitError should be ErrInvalidInput")
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "referencing.datum_shift_method",
		Message: "unknown method",
	}

	got := err.Error()
	if got == "" {
		t.Error("Error() should not return empty string")
	}

	// Test Unwrap
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ConfigError should unwrap to ErrInvalidInput")
	}
}

func TestSentinelErrors(t *testing.T) {
	// Test that specific errors wrap base errors correctly
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"ErrCRSNotFound", ErrCRSNotFound, ErrNotFound},
		{"ErrInvalidCode", ErrInvalidCode, ErrInvalidInput},
		{"ErrInvalidCoordinate", ErrInvalidCoordinate, ErrInvalidInput},
		{"ErrUnsupportedProjection", ErrUnsupportedProjection, ErrUnsupported},
		{"ErrAxisMismatch", ErrAxisMismatch, ErrOperationNotFound},
		{"ErrNotReady", ErrNotReady, ErrUnavailable},
		{"AxisMismatchError", &AxisMismatchError{Axis: "North", Reason: "colinear axes"}, ErrOperationNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.wantErr) {
				t.Errorf("%s should wrap %v", tt.name, tt.wantErr)
			}
		})
	}
}
