package transform

import (
	"fmt"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
)

// Affine applies a (target+1) x (source+1) matrix to homogeneous coordinates.
type Affine struct {
	m      *matrix.Matrix
	srcDim int
	tgtDim int
}

// NewLinear returns the transform described by m. An identity matrix yields an
// *Identity; any other matrix yields an *Affine. m is copied.
func NewLinear(m *matrix.Matrix) (Linear, error) {
	if m.Rows() < 1 || m.Cols() < 1 {
		return nil, &domain.MismatchedDimensionError{Context: "affine matrix", Expected: 1, Actual: 0}
	}
	if m.IsIdentity() {
		return NewIdentity(m.Rows() - 1), nil
	}
	return &Affine{m: m.Clone(), srcDim: m.Cols() - 1, tgtDim: m.Rows() - 1}, nil
}

// SourceDimensions returns the number of matrix columns minus one.
func (t *Affine) SourceDimensions() int { return t.srcDim }

// TargetDimensions returns the number of matrix rows minus one.
func (t *Affine) TargetDimensions() int { return t.tgtDim }

// Transform applies the matrix. A non-affine last row is used as projective divisor.
func (t *Affine) Transform(src, dst []float64, numPts int) error {
	src, err := checkBuffers(t, src, dst, numPts)
	if err != nil {
		return err
	}
	affine := t.m.IsAffine()
	in := make([]float64, t.srcDim)
	for p := 0; p < numPts; p++ {
		copy(in, src[p*t.srcDim:(p+1)*t.srcDim])
		w := 1.0
		if !affine {
			w = t.row(t.tgtDim, in)
		}
		out := dst[p*t.tgtDim : (p+1)*t.tgtDim]
		for j := range out {
			out[j] = t.row(j, in) / w
		}
	}
	return nil
}

func (t *Affine) row(j int, in []float64) float64 {
	sum := t.m.At(j, t.srcDim)
	for i, v := range in {
		sum += t.m.At(j, i) * v
	}
	return sum
}

// Inverse returns the inverse affine transform. Transforms that drop or add
// dimensions have no inverse.
func (t *Affine) Inverse() (MathTransform, error) {
	if t.srcDim != t.tgtDim {
		return nil, fmt.Errorf("affine %dD -> %dD: %w", t.srcDim, t.tgtDim, domain.ErrNoninvertible)
	}
	inv, err := t.m.Inverse()
	if err != nil {
		return nil, err
	}
	return NewLinear(inv)
}

// IsIdentity reports whether the matrix is the identity.
func (t *Affine) IsIdentity() bool { return t.m.IsIdentity() }

// Matrix returns a copy of the matrix.
func (t *Affine) Matrix() *matrix.Matrix { return t.m.Clone() }

// String returns a short description.
func (t *Affine) String() string {
	return fmt.Sprintf("Affine(%dD -> %dD)", t.srcDim, t.tgtDim)
}
