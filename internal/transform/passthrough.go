package transform

import (
	"fmt"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
)

// PassThrough applies a sub-transform to a contiguous range of ordinates and copies the
// leading and trailing ordinates unchanged.
type PassThrough struct {
	first    int
	sub      MathTransform
	trailing int
}

// NewPassThrough wraps sub so that it acts on ordinates [first, first+sub.SourceDimensions()).
// Linear sub-transforms are expanded into a single matrix.
func NewPassThrough(first int, sub MathTransform, trailing int) (MathTransform, error) {
	if first < 0 || trailing < 0 {
		return nil, &domain.ValidationError{Field: "pass-through", Value: fmt.Sprintf("%d/%d", first, trailing), Constraint: ">= 0", Message: "negative ordinate count"}
	}
	if first == 0 && trailing == 0 {
		return sub, nil
	}
	if sub.IsIdentity() {
		return NewIdentity(first + sub.SourceDimensions() + trailing), nil
	}
	if lin, ok := sub.(Linear); ok {
		return NewLinear(expandMatrix(lin.Matrix(), first, trailing))
	}
	if p, ok := sub.(*PassThrough); ok {
		return &PassThrough{first: first + p.first, sub: p.sub, trailing: trailing + p.trailing}, nil
	}
	return &PassThrough{first: first, sub: sub, trailing: trailing}, nil
}

// expandMatrix embeds m into a larger matrix acting as identity on the extra ordinates.
func expandMatrix(m *matrix.Matrix, first, trailing int) *matrix.Matrix {
	srcDim, tgtDim := m.Cols()-1, m.Rows()-1
	out := matrix.New(first+tgtDim+trailing+1, first+srcDim+trailing+1)
	for i := 0; i < first; i++ {
		out.Set(i, i, 1)
	}
	for j := 0; j < tgtDim; j++ {
		for i := 0; i < srcDim; i++ {
			out.Set(first+j, first+i, m.At(j, i))
		}
		out.Set(first+j, out.Cols()-1, m.At(j, srcDim))
	}
	for k := 0; k < trailing; k++ {
		out.Set(first+tgtDim+k, first+srcDim+k, 1)
	}
	out.Set(out.Rows()-1, out.Cols()-1, 1)
	return out
}

// SourceDimensions returns first + sub source + trailing.
func (t *PassThrough) SourceDimensions() int { return t.first + t.sub.SourceDimensions() + t.trailing }

// TargetDimensions returns first + sub target + trailing.
func (t *PassThrough) TargetDimensions() int { return t.first + t.sub.TargetDimensions() + t.trailing }

// Transform applies the sub-transform point by point.
func (t *PassThrough) Transform(src, dst []float64, numPts int) error {
	src, err := checkBuffers(t, src, dst, numPts)
	if err != nil {
		return err
	}
	srcDim, tgtDim := t.SourceDimensions(), t.TargetDimensions()
	subSrc, subTgt := t.sub.SourceDimensions(), t.sub.TargetDimensions()
	in := make([]float64, srcDim)
	out := make([]float64, subTgt)
	for p := 0; p < numPts; p++ {
		copy(in, src[p*srcDim:(p+1)*srcDim])
		if err := t.sub.Transform(in[t.first:t.first+subSrc], out, 1); err != nil {
			return err
		}
		d := dst[p*tgtDim : (p+1)*tgtDim]
		copy(d[:t.first], in[:t.first])
		copy(d[t.first:t.first+subTgt], out)
		copy(d[t.first+subTgt:], in[t.first+subSrc:])
	}
	return nil
}

// Inverse wraps the inverse of the sub-transform.
func (t *PassThrough) Inverse() (MathTransform, error) {
	inv, err := t.sub.Inverse()
	if err != nil {
		return nil, err
	}
	return NewPassThrough(t.first, inv, t.trailing)
}

// IsIdentity reports whether the sub-transform is the identity.
func (t *PassThrough) IsIdentity() bool { return t.sub.IsIdentity() }

// String returns a short description.
func (t *PassThrough) String() string {
	return fmt.Sprintf("PassThrough(%d, %s, %d)", t.first, t.sub, t.trailing)
}
