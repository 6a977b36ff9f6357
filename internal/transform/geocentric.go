package transform

import (
	"fmt"
	"math"

	"github.com/jobrunner/refsys/internal/domain"
)

// Latitude solve of GeocentricToGeographic.
const (
	GeocentricTolerance     = 1e-11 // radians
	GeocentricMaxIterations = 10
)

// GeographicToGeocentric converts (longitude, latitude[, height]) in degrees and metres
// to geocentric X, Y, Z in metres. A 2D source implies a height of zero.
type GeographicToGeocentric struct {
	ellipsoid domain.Ellipsoid
	dim       int
}

// NewGeographicToGeocentric creates the conversion for a 2D or 3D geographic source.
func NewGeographicToGeocentric(ellipsoid domain.Ellipsoid, dim int) (*GeographicToGeocentric, error) {
	if err := ellipsoid.Validate(); err != nil {
		return nil, err
	}
	if dim != 2 && dim != 3 {
		return nil, &domain.MismatchedDimensionError{Context: "geographic to geocentric", Expected: 3, Actual: dim}
	}
	return &GeographicToGeocentric{ellipsoid: ellipsoid, dim: dim}, nil
}

// SourceDimensions returns 2 or 3.
func (t *GeographicToGeocentric) SourceDimensions() int { return t.dim }

// TargetDimensions returns 3.
func (t *GeographicToGeocentric) TargetDimensions() int { return 3 }

// Transform converts geographic coordinates to geocentric coordinates.
func (t *GeographicToGeocentric) Transform(src, dst []float64, numPts int) error {
	src, err := checkBuffers(t, src, dst, numPts)
	if err != nil {
		return err
	}
	a := t.ellipsoid.SemiMajorAxis
	e2 := t.ellipsoid.EccentricitySquared()
	for p := 0; p < numPts; p++ {
		lam := src[p*t.dim] * deg
		phi := src[p*t.dim+1] * deg
		h := 0.0
		if t.dim == 3 {
			h = src[p*t.dim+2]
		}
		sinPhi, cosPhi := math.Sincos(phi)
		sinLam, cosLam := math.Sincos(lam)
		n := a / math.Sqrt(1-e2*sinPhi*sinPhi)
		dst[p*3] = (n + h) * cosPhi * cosLam
		dst[p*3+1] = (n + h) * cosPhi * sinLam
		dst[p*3+2] = (n*(1-e2) + h) * sinPhi
	}
	return nil
}

// Inverse returns the geocentric to geographic conversion.
func (t *GeographicToGeocentric) Inverse() (MathTransform, error) {
	return &GeocentricToGeographic{ellipsoid: t.ellipsoid, dim: t.dim}, nil
}

// IsIdentity returns false.
func (t *GeographicToGeocentric) IsIdentity() bool { return false }

// String returns a short description.
func (t *GeographicToGeocentric) String() string {
	return fmt.Sprintf("GeographicToGeocentric(%s, %dD)", t.ellipsoid.Name, t.dim)
}

// GeocentricToGeographic converts geocentric X, Y, Z to (longitude, latitude[, height]).
// The latitude is solved iteratively; failure to converge is an error.
type GeocentricToGeographic struct {
	ellipsoid domain.Ellipsoid
	dim       int
}

// NewGeocentricToGeographic creates the conversion for a 2D or 3D geographic target.
// A 2D target drops the height.
func NewGeocentricToGeographic(ellipsoid domain.Ellipsoid, dim int) (*GeocentricToGeographic, error) {
	fwd, err := NewGeographicToGeocentric(ellipsoid, dim)
	if err != nil {
		return nil, err
	}
	return &GeocentricToGeographic{ellipsoid: fwd.ellipsoid, dim: fwd.dim}, nil
}

// SourceDimensions returns 3.
func (t *GeocentricToGeographic) SourceDimensions() int { return 3 }

// TargetDimensions returns 2 or 3.
func (t *GeocentricToGeographic) TargetDimensions() int { return t.dim }

// Transform converts geocentric coordinates to geographic coordinates.
func (t *GeocentricToGeographic) Transform(src, dst []float64, numPts int) error {
	src, err := checkBuffers(t, src, dst, numPts)
	if err != nil {
		return err
	}
	for p := 0; p < numPts; p++ {
		lon, lat, h, err := t.solve(src[p*3], src[p*3+1], src[p*3+2])
		if err != nil {
			return err
		}
		dst[p*t.dim] = lon
		dst[p*t.dim+1] = lat
		if t.dim == 3 {
			dst[p*t.dim+2] = h
		}
	}
	return nil
}

func (t *GeocentricToGeographic) solve(x, y, z float64) (lon, lat, h float64, err error) {
	a := t.ellipsoid.SemiMajorAxis
	e2 := t.ellipsoid.EccentricitySquared()
	p := math.Hypot(x, y)

	phi := math.Atan2(z, p*(1-e2))
	converged := false
	var delta float64
	for i := 0; i < GeocentricMaxIterations; i++ {
		sinPhi := math.Sin(phi)
		n := a / math.Sqrt(1-e2*sinPhi*sinPhi)
		next := math.Atan2(z+e2*n*sinPhi, p)
		delta = math.Abs(next - phi)
		phi = next
		if delta < GeocentricTolerance {
			converged = true
			break
		}
	}
	if !converged {
		return 0, 0, 0, &domain.ConvergenceError{
			Algorithm:  "geocentric to geographic",
			Iterations: GeocentricMaxIterations,
			Residual:   delta,
		}
	}

	sinPhi, cosPhi := math.Sincos(phi)
	h = p*cosPhi + z*sinPhi - a*math.Sqrt(1-e2*sinPhi*sinPhi)
	return math.Atan2(y, x) / deg, phi / deg, h, nil
}

// Inverse returns the geographic to geocentric conversion.
func (t *GeocentricToGeographic) Inverse() (MathTransform, error) {
	return &GeographicToGeocentric{ellipsoid: t.ellipsoid, dim: t.dim}, nil
}

// IsIdentity returns false.
func (t *GeocentricToGeographic) IsIdentity() bool { return false }

// String returns a short description.
func (t *GeocentricToGeographic) String() string {
	return fmt.Sprintf("GeocentricToGeographic(%s, %dD)", t.ellipsoid.Name, t.dim)
}

const deg = math.Pi / 180
