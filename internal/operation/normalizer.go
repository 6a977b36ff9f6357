package operation

import (
	"strings"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/matrix"
)

// SwapAndScaleAxes returns the affine matrix M such that M·[source;1] = [target;1].
//
// Every target axis is matched to the source axis with the same or the opposite
// direction; opposite directions get a negative coefficient and units are scaled to the
// target unit. Source axes absent from the target are dropped. Axes with
// DirectionOther match by name.
func SwapAndScaleAxes(source, target []domain.Axis) (*matrix.Matrix, error) {
	m := matrix.New(len(target)+1, len(source)+1)
	used := make([]bool, len(source))

	for j, ta := range target {
		i := matchAxis(source, ta)
		if i < 0 {
			return nil, &domain.AxisMismatchError{Axis: ta.String(), Reason: "axis not in source"}
		}
		if used[i] {
			return nil, &domain.AxisMismatchError{Axis: ta.String(), Reason: "colinear axes"}
		}
		used[i] = true

		factor, err := source[i].Unit.ConversionFactor(ta.Unit)
		if err != nil {
			return nil, &domain.AxisMismatchError{Axis: ta.String(), Reason: "incompatible units"}
		}
		if source[i].Direction != ta.Direction {
			factor = -factor
		}
		m.Set(j, i, factor)
	}
	m.Set(len(target), len(source), 1)

	return m, nil
}

func matchAxis(source []domain.Axis, target domain.Axis) int {
	for i, a := range source {
		if a.Direction == domain.DirectionOther || target.Direction == domain.DirectionOther {
			if a.Direction == target.Direction && strings.EqualFold(a.Name, target.Name) {
				return i
			}
			continue
		}
		if a.Direction.Absolute() == target.Direction.Absolute() {
			return i
		}
	}
	return -1
}

func standardEllipsoidal(dim int) domain.CoordinateSystem {
	if dim == 3 {
		return domain.StandardEllipsoidal3D
	}
	return domain.StandardEllipsoidal2D
}

// geographicToStandard maps c's axes to longitude and latitude in degrees, plus the
// height in metres for 3D, with longitudes counted from Greenwich.
func geographicToStandard(c *domain.GeographicCRS) (*matrix.Matrix, error) {
	m, err := SwapAndScaleAxes(c.CoordinateSystem().Axes(), standardEllipsoidal(c.Dimension()).Axes())
	if err != nil {
		return nil, err
	}
	if pm := c.GeodeticDatum().PrimeMeridian().GreenwichDegrees(); pm != 0 {
		last := m.Cols() - 1
		m.Set(0, last, m.At(0, last)+pm)
	}
	return m, nil
}

// standardToGeographic is the inverse of geographicToStandard.
func standardToGeographic(c *domain.GeographicCRS) (*matrix.Matrix, error) {
	m, err := SwapAndScaleAxes(standardEllipsoidal(c.Dimension()).Axes(), c.CoordinateSystem().Axes())
	if err != nil {
		return nil, err
	}
	if pm := c.GeodeticDatum().PrimeMeridian().GreenwichDegrees(); pm != 0 {
		last := m.Cols() - 1
		for j := 0; j < m.Rows()-1; j++ {
			if k := m.At(j, 0); k != 0 {
				m.Set(j, last, m.At(j, last)-k*pm)
			}
		}
	}
	return m, nil
}

// dimensionChange maps standard geographic ordinates between 2D and 3D. Going up
// adds a zero height, going down drops it.
func dimensionChange(srcDim, tgtDim int) *matrix.Matrix {
	m := matrix.New(tgtDim+1, srcDim+1)
	for i := 0; i < min(srcDim, tgtDim); i++ {
		m.Set(i, i, 1)
	}
	m.Set(tgtDim, srcDim, 1)
	return m
}

// geographicAxisMatrix converts between two geographic CRSs sharing a datum, up to
// the prime meridian.
func geographicAxisMatrix(source, target *domain.GeographicCRS) (*matrix.Matrix, error) {
	norm, err := geographicToStandard(source)
	if err != nil {
		return nil, err
	}
	denorm, err := standardToGeographic(target)
	if err != nil {
		return nil, err
	}
	m, err := dimensionChange(source.Dimension(), target.Dimension()).Multiply(norm)
	if err != nil {
		return nil, err
	}
	return denorm.Multiply(m)
}
