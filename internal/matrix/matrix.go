// Package matrix provides the affine matrices used by linear coordinate transforms.
//
// A matrix mapping n source ordinates to m target ordinates has m+1 rows and n+1
// columns; the last row is the homogeneous row [0 ... 0 1] when the matrix is affine.
package matrix

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/jobrunner/refsys/internal/domain"
)

// IdentityTolerance is the relative tolerance used by IsIdentity.
const IdentityTolerance = 1e-9

// Matrix is a dense matrix of float64 values.
type Matrix struct {
	d *mat.Dense
}

// New returns a zero matrix with the given size.
func New(rows, cols int) *Matrix {
	return &Matrix{d: mat.NewDense(rows, cols, nil)}
}

// Identity returns the size x size identity matrix.
func Identity(size int) *Matrix {
	m := New(size, size)
	for i := 0; i < size; i++ {
		m.d.Set(i, i, 1)
	}
	return m
}

// NewFromRows builds a matrix from row slices, which must all have the same length.
func NewFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, &domain.MismatchedDimensionError{Context: "matrix rows", Expected: 1, Actual: 0}
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		if len(r) != cols {
			return nil, &domain.MismatchedDimensionError{Context: "matrix row length", Expected: cols, Actual: len(r)}
		}
		data = append(data, r...)
	}
	return &Matrix{d: mat.NewDense(len(rows), cols, data)}, nil
}

// FromArray4 converts a fixed 4x4 array, as produced by domain.BursaWolf.Affine.
func FromArray4(a [4][4]float64) *Matrix {
	m := New(4, 4)
	for i := range a {
		for j := range a[i] {
			m.d.Set(i, j, a[i][j])
		}
	}
	return m
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int {
	r, _ := m.d.Dims()
	return r
}

// Cols returns the number of columns.
func (m *Matrix) Cols() int {
	_, c := m.d.Dims()
	return c
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	return m.d.At(i, j)
}

// Set sets the element at row i, column j.
func (m *Matrix) Set(i, j int, v float64) {
	m.d.Set(i, j, v)
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{d: mat.DenseCopyOf(m.d)}
}

// IsAffine reports whether the last row is [0 ... 0 1].
func (m *Matrix) IsAffine() bool {
	rows, cols := m.d.Dims()
	last := rows - 1
	for j := 0; j < cols; j++ {
		want := 0.0
		if j == cols-1 {
			want = 1
		}
		if m.d.At(last, j) != want {
			return false
		}
	}
	return true
}

// IsIdentity reports whether m is square, affine and equal to the identity within
// IdentityTolerance.
func (m *Matrix) IsIdentity() bool {
	rows, cols := m.d.Dims()
	if rows != cols || !m.IsAffine() {
		return false
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(m.d.At(i, j)-want) > IdentityTolerance*math.Max(1, math.Abs(want)) {
				return false
			}
		}
	}
	return true
}

// Equal reports whether both matrices have the same size and all elements differ by
// at most tol.
func (m *Matrix) Equal(o *Matrix, tol float64) bool {
	if o == nil {
		return false
	}
	rows, cols := m.d.Dims()
	orows, ocols := o.d.Dims()
	if rows != orows || cols != ocols {
		return false
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.Abs(m.d.At(i, j)-o.d.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

// Multiply returns m · o. The number of columns of m must equal the number of rows of o.
func (m *Matrix) Multiply(o *Matrix) (*Matrix, error) {
	if m.Cols() != o.Rows() {
		return nil, &domain.MismatchedDimensionError{Context: "matrix multiply", Expected: m.Cols(), Actual: o.Rows()}
	}
	var r mat.Dense
	r.Mul(m.d, o.d)
	return &Matrix{d: &r}, nil
}

// Inverse returns the inverse of a square matrix. A singular or numerically
// degenerate matrix yields domain.ErrSingularMatrix.
func (m *Matrix) Inverse() (*Matrix, error) {
	rows, cols := m.d.Dims()
	if rows != cols {
		return nil, &domain.MismatchedDimensionError{Context: "matrix inverse", Expected: rows, Actual: cols}
	}
	var r mat.Dense
	if err := r.Inverse(m.d); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSingularMatrix, err)
	}
	return &Matrix{d: &r}, nil
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.d)
}

// String formats the matrix one row per line.
func (m *Matrix) String() string {
	rows, cols := m.d.Dims()
	var b strings.Builder
	for i := 0; i < rows; i++ {
		b.WriteByte('[')
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%g", m.d.At(i, j))
		}
		b.WriteByte(']')
		if i < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
