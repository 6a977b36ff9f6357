package operation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/transform"
)

var (
	latLon2D = domain.MustCoordinateSystem(domain.CSEllipsoidal, domain.AxisGeodeticLatitude, domain.AxisGeodeticLongitude)
	latLon3D = domain.MustCoordinateSystem(domain.CSEllipsoidal, domain.AxisGeodeticLatitude, domain.AxisGeodeticLongitude, domain.AxisEllipsoidalHeight)
	utm32N   = domain.ProjectionParameters{CentralMeridian: 9, ScaleFactor: 0.9996, FalseEasting: 500000}
)

func mustGeographic(t *testing.T, name string, datum *domain.GeodeticDatum, cs domain.CoordinateSystem) *domain.GeographicCRS {
	t.Helper()
	c, err := domain.NewGeographicCRS(name, datum, cs)
	require.NoError(t, err)
	return c
}

func mustProjected(t *testing.T, name string, base *domain.GeographicCRS, method domain.ProjectionMethod, params domain.ProjectionParameters, cs domain.CoordinateSystem) *domain.ProjectedCRS {
	t.Helper()
	c, err := domain.NewProjectedCRS(name, base, domain.Conversion{Name: name, Method: method, Parameters: params}, cs)
	require.NoError(t, err)
	return c
}

func mustVertical(t *testing.T, name string, datum *domain.VerticalDatum, axis domain.Axis) *domain.VerticalCRS {
	t.Helper()
	c, err := domain.NewVerticalCRS(name, datum, domain.MustCoordinateSystem(domain.CSVertical, axis))
	require.NoError(t, err)
	return c
}

func mustTemporal(t *testing.T, name string, origin time.Time, axis domain.Axis) *domain.TemporalCRS {
	t.Helper()
	c, err := domain.NewTemporalCRS(name, domain.NewTemporalDatum(name, origin), domain.MustCoordinateSystem(domain.CSTemporal, axis))
	require.NoError(t, err)
	return c
}

func mustCompound(t *testing.T, name string, components ...domain.CRS) *domain.CompoundCRS {
	t.Helper()
	c, err := domain.NewCompoundCRS(name, components...)
	require.NoError(t, err)
	return c
}

func nad27Datum(t *testing.T) *domain.GeodeticDatum {
	t.Helper()
	d, err := domain.NewGeodeticDatum("North American Datum 1927", domain.Clarke1866, domain.Greenwich,
		domain.BursaWolf{Dx: -3, Dy: 142, Dz: 183})
	require.NoError(t, err)
	return d
}

func wgs84(t *testing.T, cs domain.CoordinateSystem) *domain.GeographicCRS {
	t.Helper()
	return mustGeographic(t, "WGS 84", domain.WGS84Datum, cs)
}

func transformPoint(t *testing.T, op *Operation, p ...float64) []float64 {
	t.Helper()
	got, err := transform.TransformPoint(op.MathTransform(), p)
	require.NoError(t, err)
	return got
}

// fixtureAuthority is a minimal in-memory authority.
type fixtureAuthority map[string]domain.CRS

func (a fixtureAuthority) CRS(code string) (domain.CRS, error) {
	c, ok := a[code]
	if !ok {
		return nil, domain.ErrCRSNotFound
	}
	return c, nil
}

type countingObserver struct {
	hits, misses int
}

func (o *countingObserver) RecordCacheLookup(hit bool) {
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}
