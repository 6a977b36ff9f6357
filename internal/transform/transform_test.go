package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
)

func mustMatrix(t *testing.T, rows [][]float64) *matrix.Matrix {
	t.Helper()
	m, err := matrix.NewFromRows(rows)
	require.NoError(t, err)
	return m
}

func mustLinear(t *testing.T, rows [][]float64) Linear {
	t.Helper()
	lin, err := NewLinear(mustMatrix(t, rows))
	require.NoError(t, err)
	return lin
}

func TestIdentity(t *testing.T) {
	id := NewIdentity(3)

	got, err := TransformPoint(id, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)
	assert.True(t, id.IsIdentity())

	inv, err := id.Inverse()
	require.NoError(t, err)
	assert.Same(t, id, inv)
}

func TestNewLinearIdentityMatrix(t *testing.T) {
	lin, err := NewLinear(matrix.Identity(3))
	require.NoError(t, err)

	if _, ok := lin.(*Identity); !ok {
		t.Errorf("NewLinear(identity) = %T, want *Identity", lin)
	}
}

func TestAffineTransform(t *testing.T) {
	// swap axes, scale the second to feet and translate
	lin := mustLinear(t, [][]float64{
		{0, 1, 0},
		{1 / 0.3048, 0, 100},
		{0, 0, 1},
	})

	src := []float64{10, 20, 30, 40}
	dst := make([]float64, 4)
	require.NoError(t, lin.Transform(src, dst, 2))

	assert.InDelta(t, 20, dst[0], 1e-12)
	assert.InDelta(t, 10/0.3048+100, dst[1], 1e-9)
	assert.InDelta(t, 40, dst[2], 1e-12)
	assert.InDelta(t, 30/0.3048+100, dst[3], 1e-9)

	inv, err := lin.Inverse()
	require.NoError(t, err)
	back := make([]float64, 4)
	require.NoError(t, inv.Transform(dst, back, 2))
	assert.InDeltaSlice(t, src, back, 1e-9)
}

func TestAffineInPlaceWithOffsets(t *testing.T) {
	lin := mustLinear(t, [][]float64{{2, 0, 0}, {0, 2, 0}, {0, 0, 1}})

	buf := []float64{-1, 1, 2, 3, 4}
	require.NoError(t, lin.Transform(buf[1:], buf[1:], 2))
	assert.Equal(t, []float64{-1, 2, 4, 6, 8}, buf)
}

func TestAffineDimensionChange(t *testing.T) {
	// 2D -> 3D with a zero height, then drop it again
	expand := mustLinear(t, [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 0}, {0, 0, 1}})

	buf := make([]float64, 6)
	copy(buf, []float64{1, 2, 3, 4})
	require.NoError(t, expand.Transform(buf, buf, 2))
	assert.Equal(t, []float64{1, 2, 0, 3, 4, 0}, buf)

	_, err := expand.Inverse()
	if !errors.Is(err, domain.ErrNoninvertible) {
		t.Errorf("Inverse() error = %v, want ErrNoninvertible", err)
	}
}

func TestAffineSingular(t *testing.T) {
	lin := mustLinear(t, [][]float64{{1, 1, 0}, {1, 1, 0}, {0, 0, 1}})

	if _, err := lin.Inverse(); !errors.Is(err, domain.ErrSingularMatrix) {
		t.Errorf("Inverse() error = %v, want ErrSingularMatrix", err)
	}
}

func TestTransformBufferChecks(t *testing.T) {
	id := NewIdentity(2)

	tests := []struct {
		name   string
		src    []float64
		dst    []float64
		numPts int
	}{
		{"short source", []float64{1}, make([]float64, 2), 1},
		{"short target", []float64{1, 2}, make([]float64, 1), 1},
		{"negative count", nil, nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := id.Transform(tt.src, tt.dst, tt.numPts); err == nil {
				t.Error("Transform() should fail")
			}
		})
	}

	if _, err := TransformPoint(id, []float64{1, 2, 3}); !errors.Is(err, domain.ErrMismatchedDimension) {
		t.Errorf("TransformPoint() error = %v, want ErrMismatchedDimension", err)
	}
}

func TestConcatenateCollapsesLinearChain(t *testing.T) {
	swap := mustLinear(t, [][]float64{{0, 1, 0}, {1, 0, 0}, {0, 0, 1}})
	scale := mustLinear(t, [][]float64{{2, 0, 0}, {0, 3, 0}, {0, 0, 1}})
	shift := mustLinear(t, [][]float64{{1, 0, 5}, {0, 1, -7}, {0, 0, 1}})

	got, err := Concatenate(swap, scale, shift)
	require.NoError(t, err)

	lin, ok := got.(Linear)
	if !ok {
		t.Fatalf("Concatenate() = %T, want a single Linear transform", got)
	}
	if _, ok := got.(*Concatenated); ok {
		t.Fatal("Concatenate() of linear steps should not produce *Concatenated")
	}

	want, err := scale.Matrix().Multiply(swap.Matrix())
	require.NoError(t, err)
	want, err = shift.Matrix().Multiply(want)
	require.NoError(t, err)
	assert.True(t, lin.Matrix().Equal(want, 1e-9), "matrix =\n%v\nwant\n%v", lin.Matrix(), want)

	p, err := TransformPoint(got, []float64{1, 10})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{25, -4}, p, 1e-12)
}

func TestConcatenateInverseChainIsIdentity(t *testing.T) {
	swap := mustLinear(t, [][]float64{{0, -1, 0}, {-1, 0, 0}, {0, 0, 1}})
	inv, err := swap.Inverse()
	require.NoError(t, err)

	got, err := Concatenate(swap, inv)
	require.NoError(t, err)
	assert.True(t, got.IsIdentity())
}

func TestConcatenateMixedSteps(t *testing.T) {
	toGeocentric, err := NewGeographicToGeocentric(domain.WGS84Ellipsoid, 3)
	require.NoError(t, err)
	toGeographic, err := toGeocentric.Inverse()
	require.NoError(t, err)
	shift := mustLinear(t, [][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}})
	latFirst := mustLinear(t, [][]float64{{0, 1, 0, 0}, {1, 0, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}})

	got, err := Concatenate(latFirst, latFirst, toGeocentric, shift, toGeographic, latFirst)
	require.NoError(t, err)

	c, ok := got.(*Concatenated)
	require.True(t, ok, "Concatenate() = %T, want *Concatenated", got)
	// the leading swaps cancel and the identity shift is dropped
	assert.Len(t, c.Steps(), 3)

	p, err := TransformPoint(got, []float64{10, 50, 100})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{50, 10, 100}, p, 1e-6)
}

func TestConcatenateDimensionMismatch(t *testing.T) {
	_, err := Concatenate(NewIdentity(2), NewIdentity(3))

	var dimErr *domain.MismatchedDimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("Concatenate() error = %v, want MismatchedDimensionError", err)
	}
	if dimErr.Expected != 2 || dimErr.Actual != 3 {
		t.Errorf("error = %+v, want expected 2 actual 3", dimErr)
	}
}

func TestConcatenateFlattensNested(t *testing.T) {
	tm, err := NewProjection(domain.TransverseMercator, domain.WGS84Ellipsoid,
		domain.ProjectionParameters{CentralMeridian: 9, ScaleFactor: 0.9996, FalseEasting: 500000})
	require.NoError(t, err)
	inv, err := tm.Inverse()
	require.NoError(t, err)
	swap := mustLinear(t, [][]float64{{0, 1, 0}, {1, 0, 0}, {0, 0, 1}})

	inner, err := Concatenate(tm, swap)
	require.NoError(t, err)
	outer, err := Concatenate(inner, swap, inv)
	require.NoError(t, err)

	c, ok := outer.(*Concatenated)
	require.True(t, ok)
	assert.Len(t, c.Steps(), 2, "the two swaps should cancel after flattening: %v", outer)
}

func TestPassThrough(t *testing.T) {
	tm, err := NewProjection(domain.TransverseMercator, domain.WGS84Ellipsoid,
		domain.ProjectionParameters{CentralMeridian: 9, ScaleFactor: 0.9996, FalseEasting: 500000})
	require.NoError(t, err)

	pt, err := NewPassThrough(1, tm, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, pt.SourceDimensions())
	assert.Equal(t, 4, pt.TargetDimensions())

	got, err := TransformPoint(pt, []float64{42, 9, 48, 7})
	require.NoError(t, err)
	assert.Equal(t, 42.0, got[0])
	assert.InDelta(t, 500000, got[1], 1e-6)
	assert.InDelta(t, 5316300.2245, got[2], 1e-3)
	assert.Equal(t, 7.0, got[3])

	inv, err := pt.Inverse()
	require.NoError(t, err)
	back, err := TransformPoint(inv, got)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{42, 9, 48, 7}, back, 1e-9)
}

func TestPassThroughExpandsLinear(t *testing.T) {
	scale := mustLinear(t, [][]float64{{0.5, 3}, {0, 1}})

	pt, err := NewPassThrough(2, scale, 0)
	require.NoError(t, err)

	lin, ok := pt.(Linear)
	require.True(t, ok, "NewPassThrough(linear) = %T, want Linear", pt)
	assert.Equal(t, 3, lin.SourceDimensions())

	got, err := TransformPoint(pt, []float64{1, 2, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 5}, got)
}

func TestPassThroughIdentity(t *testing.T) {
	pt, err := NewPassThrough(1, NewIdentity(2), 1)
	require.NoError(t, err)
	assert.True(t, pt.IsIdentity())
	assert.Equal(t, 4, pt.SourceDimensions())
}
