package operation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
)

func axis(dir domain.AxisDirection, unit domain.Unit) domain.Axis {
	return domain.Axis{Name: dir.String(), Direction: dir, Unit: unit}
}

func TestSwapAndScaleAxesRoundTrip(t *testing.T) {
	m := domain.Metre
	tests := []struct {
		name   string
		source []domain.Axis
		target []domain.Axis
	}{
		{
			name:   "east north to north east",
			source: []domain.Axis{axis(domain.DirectionEast, m), axis(domain.DirectionNorth, m)},
			target: []domain.Axis{axis(domain.DirectionNorth, m), axis(domain.DirectionEast, m)},
		},
		{
			name:   "east north to west south",
			source: []domain.Axis{axis(domain.DirectionEast, m), axis(domain.DirectionNorth, m)},
			target: []domain.Axis{axis(domain.DirectionWest, m), axis(domain.DirectionSouth, m)},
		},
		{
			name:   "east north to south west",
			source: []domain.Axis{axis(domain.DirectionEast, m), axis(domain.DirectionNorth, m)},
			target: []domain.Axis{axis(domain.DirectionSouth, m), axis(domain.DirectionWest, m)},
		},
		{
			name: "3D permutation with units",
			source: []domain.Axis{
				axis(domain.DirectionEast, domain.Degree), axis(domain.DirectionNorth, domain.Degree), axis(domain.DirectionUp, m),
			},
			target: []domain.Axis{
				axis(domain.DirectionDown, domain.Foot), axis(domain.DirectionSouth, domain.Grad), axis(domain.DirectionEast, domain.Radian),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forward, err := SwapAndScaleAxes(tt.source, tt.target)
			require.NoError(t, err)
			backward, err := SwapAndScaleAxes(tt.target, tt.source)
			require.NoError(t, err)

			product, err := backward.Multiply(forward)
			require.NoError(t, err)
			assert.True(t, product.Equal(matrix.Identity(len(tt.source)+1), 1e-9), "product =\n%v", product)
		})
	}
}

func TestSwapAndScaleAxesCoefficients(t *testing.T) {
	source := []domain.Axis{domain.AxisGeodeticLatitude, domain.AxisGeodeticLongitude}
	target := []domain.Axis{
		axis(domain.DirectionWest, domain.Degree),
		axis(domain.DirectionNorth, domain.Grad),
	}

	got, err := SwapAndScaleAxes(source, target)
	require.NoError(t, err)

	want, err := matrix.NewFromRows([][]float64{
		{0, -1, 0},
		{200.0 / 180.0, 0, 0},
		{0, 0, 1},
	})
	require.NoError(t, err)
	assert.True(t, got.Equal(want, 1e-15), "matrix =\n%v", got)
}

func TestSwapAndScaleAxesDropsUnmatchedSource(t *testing.T) {
	got, err := SwapAndScaleAxes(domain.StandardEllipsoidal3D.Axes(), domain.StandardEllipsoidal2D.Axes())
	require.NoError(t, err)
	assert.Equal(t, 3, got.Rows())
	assert.Equal(t, 4, got.Cols())
	assert.Equal(t, 0.0, got.At(0, 2))
	assert.Equal(t, 0.0, got.At(1, 2))
}

func TestSwapAndScaleAxesErrors(t *testing.T) {
	tests := []struct {
		name   string
		source []domain.Axis
		target []domain.Axis
		reason string
	}{
		{
			name:   "axis not in source",
			source: domain.StandardEllipsoidal2D.Axes(),
			target: domain.StandardEllipsoidal3D.Axes(),
			reason: "axis not in source",
		},
		{
			name:   "colinear target axes",
			source: []domain.Axis{domain.AxisEasting, domain.AxisNorthing},
			target: []domain.Axis{domain.AxisEasting, axis(domain.DirectionWest, domain.Metre)},
			reason: "colinear axes",
		},
		{
			name:   "incompatible units",
			source: []domain.Axis{domain.AxisGeodeticLongitude},
			target: []domain.Axis{domain.AxisEasting},
			reason: "incompatible units",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SwapAndScaleAxes(tt.source, tt.target)

			var axisErr *domain.AxisMismatchError
			if !errors.As(err, &axisErr) {
				t.Fatalf("SwapAndScaleAxes() error = %v, want AxisMismatchError", err)
			}
			if axisErr.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", axisErr.Reason, tt.reason)
			}
			if !errors.Is(err, domain.ErrOperationNotFound) {
				t.Errorf("error %v should wrap ErrOperationNotFound", err)
			}
		})
	}
}

func TestSwapAndScaleAxesOtherDirectionMatchesByName(t *testing.T) {
	a := domain.Axis{Name: "Station", Direction: domain.DirectionOther, Unit: domain.Metre}
	b := domain.Axis{Name: "Offset", Direction: domain.DirectionOther, Unit: domain.Metre}

	got, err := SwapAndScaleAxes([]domain.Axis{a, b}, []domain.Axis{b, a})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.At(0, 1))
	assert.Equal(t, 1.0, got.At(1, 0))

	_, err = SwapAndScaleAxes([]domain.Axis{a}, []domain.Axis{b})
	if !errors.Is(err, domain.ErrAxisMismatch) {
		t.Errorf("SwapAndScaleAxes() error = %v, want ErrAxisMismatch", err)
	}
}

func TestGeographicNormalizationWithPrimeMeridian(t *testing.T) {
	ntfParis, err := domain.NewGeodeticDatum("Nouvelle Triangulation Francaise", domain.Clarke1880IGN, domain.Paris)
	require.NoError(t, err)
	gradCS := domain.MustCoordinateSystem(domain.CSEllipsoidal,
		domain.Axis{Name: "Lat", Direction: domain.DirectionNorth, Unit: domain.Grad},
		domain.Axis{Name: "Lon", Direction: domain.DirectionEast, Unit: domain.Grad},
	)
	c := mustGeographic(t, "NTF (Paris)", ntfParis, gradCS)

	norm, err := geographicToStandard(c)
	require.NoError(t, err)
	denorm, err := standardToGeographic(c)
	require.NoError(t, err)

	// 50 grad north on the Paris meridian
	lonLat := []float64{
		norm.At(0, 0)*50 + norm.At(0, 1)*0 + norm.At(0, 2),
		norm.At(1, 0)*50 + norm.At(1, 1)*0 + norm.At(1, 2),
	}
	assert.InDelta(t, 2.33722917, lonLat[0], 1e-8)
	assert.InDelta(t, 45, lonLat[1], 1e-12)

	product, err := denorm.Multiply(norm)
	require.NoError(t, err)
	assert.True(t, product.Equal(matrix.Identity(3), 1e-12), "product =\n%v", product)
}

func TestDimensionChange(t *testing.T) {
	up := dimensionChange(2, 3)
	assert.Equal(t, 4, up.Rows())
	assert.Equal(t, 3, up.Cols())
	assert.Equal(t, 0.0, up.At(2, 0))
	assert.Equal(t, 0.0, up.At(2, 2))
	assert.Equal(t, 1.0, up.At(3, 2))

	down := dimensionChange(3, 2)
	product, err := down.Multiply(up)
	require.NoError(t, err)
	assert.True(t, product.IsIdentity())
}
