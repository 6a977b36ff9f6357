// Package transform implements the math transforms that coordinate operations are
// built from: identity, affine, geographic/geocentric conversion, Molodenski datum
// shifts, map projections, concatenations and pass-through wrappers.
//
// All transforms are immutable and safe for concurrent use.
package transform

import (
	"fmt"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
)

// MathTransform maps coordinate tuples of a fixed source dimension to tuples of a fixed
// target dimension.
type MathTransform interface {
	SourceDimensions() int
	TargetDimensions() int
	// Transform reads numPts points from src and writes them to dst. Offsets are
	// expressed by reslicing. src and dst may be the same slice.
	Transform(src, dst []float64, numPts int) error
	Inverse() (MathTransform, error)
	IsIdentity() bool
	String() string
}

// Linear is a transform fully described by an affine matrix.
type Linear interface {
	MathTransform
	// Matrix returns a copy of the (target+1) x (source+1) matrix.
	Matrix() *matrix.Matrix
}

// TransformPoint transforms a single point and returns a new slice.
func TransformPoint(t MathTransform, p []float64) ([]float64, error) {
	if len(p) != t.SourceDimensions() {
		return nil, &domain.MismatchedDimensionError{Context: "transform point", Expected: t.SourceDimensions(), Actual: len(p)}
	}
	out := make([]float64, t.TargetDimensions())
	if err := t.Transform(p, out, 1); err != nil {
		return nil, err
	}
	return out, nil
}

// checkBuffers validates the slice lengths for a bulk call and returns the slice to
// read from. When the target dimension is larger, writing dst could overrun unread
// points of a shared buffer, so the input is copied first.
func checkBuffers(t MathTransform, src, dst []float64, numPts int) ([]float64, error) {
	srcDim, tgtDim := t.SourceDimensions(), t.TargetDimensions()
	if numPts < 0 {
		return nil, &domain.ValidationError{Field: "numPts", Value: numPts, Constraint: ">= 0", Message: "negative point count"}
	}
	if len(src) < numPts*srcDim {
		return nil, &domain.MismatchedDimensionError{Context: "source buffer", Expected: numPts * srcDim, Actual: len(src)}
	}
	if len(dst) < numPts*tgtDim {
		return nil, &domain.MismatchedDimensionError{Context: "target buffer", Expected: numPts * tgtDim, Actual: len(dst)}
	}
	if tgtDim > srcDim {
		cp := make([]float64, numPts*srcDim)
		copy(cp, src)
		return cp, nil
	}
	return src, nil
}

// Identity returns its input unchanged.
type Identity struct {
	dim int
}

// NewIdentity returns the identity transform of the given dimension.
func NewIdentity(dim int) *Identity {
	return &Identity{dim: dim}
}

// SourceDimensions returns the dimension.
func (t *Identity) SourceDimensions() int { return t.dim }

// TargetDimensions returns the dimension.
func (t *Identity) TargetDimensions() int { return t.dim }

// Transform copies src to dst.
func (t *Identity) Transform(src, dst []float64, numPts int) error {
	src, err := checkBuffers(t, src, dst, numPts)
	if err != nil {
		return err
	}
	copy(dst[:numPts*t.dim], src[:numPts*t.dim])
	return nil
}

// Inverse returns t.
func (t *Identity) Inverse() (MathTransform, error) { return t, nil }

// IsIdentity returns true.
func (t *Identity) IsIdentity() bool { return true }

// Matrix returns the identity matrix of size dim+1.
func (t *Identity) Matrix() *matrix.Matrix { return matrix.Identity(t.dim + 1) }

// String returns a short description.
func (t *Identity) String() string { return fmt.Sprintf("Identity(%d)", t.dim) }
