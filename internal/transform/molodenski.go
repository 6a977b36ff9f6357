package transform

import (
	"fmt"
	"math"

	"github.com/jobrunner/refsys/internal/domain"
)

// Molodenski shifts geographic coordinates between two datums using geocentric
// translations and the difference of the ellipsoids, without a geocentric detour.
// The abridged form drops second order terms and is materially less accurate.
type Molodenski struct {
	source     domain.Ellipsoid
	target     domain.Ellipsoid
	dx, dy, dz float64
	dim        int
	abridged   bool

	// derived from the source ellipsoid and the ellipsoid deltas
	a, b, e2 float64
	da, df   float64
	adf      float64
}

// NewMolodenski creates a Molodenski transform on 2D or 3D geographic coordinates in
// degrees (and metres for height). A 2D source implies a height of zero.
func NewMolodenski(source, target domain.Ellipsoid, dx, dy, dz float64, dim int, abridged bool) (*Molodenski, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if dim != 2 && dim != 3 {
		return nil, &domain.MismatchedDimensionError{Context: "molodenski", Expected: 3, Actual: dim}
	}
	t := &Molodenski{source: source, target: target, dx: dx, dy: dy, dz: dz, dim: dim, abridged: abridged}
	t.a = source.SemiMajorAxis
	t.b = source.SemiMinorAxis()
	t.e2 = 1 - (t.b*t.b)/(t.a*t.a)
	t.da = target.SemiMajorAxis - t.a
	t.df = target.Flattening() - source.Flattening()
	t.adf = t.a*t.df + source.Flattening()*t.da
	return t, nil
}

// SourceDimensions returns 2 or 3.
func (t *Molodenski) SourceDimensions() int { return t.dim }

// TargetDimensions returns 2 or 3.
func (t *Molodenski) TargetDimensions() int { return t.dim }

// Transform shifts the coordinates.
func (t *Molodenski) Transform(src, dst []float64, numPts int) error {
	src, err := checkBuffers(t, src, dst, numPts)
	if err != nil {
		return err
	}
	for p := 0; p < numPts; p++ {
		i := p * t.dim
		lam := src[i] * deg
		phi := src[i+1] * deg
		h := 0.0
		if t.dim == 3 {
			h = src[i+2]
		}
		dLam, dPhi, dH := t.delta(lam, phi, h)
		// shifted points stay on the ellipsoid
		dst[i] = normalizeLongitude(lam+dLam) / deg
		dst[i+1] = math.Max(-math.Pi/2, math.Min(math.Pi/2, phi+dPhi)) / deg
		if t.dim == 3 {
			dst[i+2] = h + dH
		}
	}
	return nil
}

func (t *Molodenski) delta(lam, phi, h float64) (dLam, dPhi, dH float64) {
	sinLam, cosLam := math.Sincos(lam)
	sinPhi, cosPhi := math.Sincos(phi)
	sin2 := sinPhi * sinPhi
	rn := t.a / math.Sqrt(1-t.e2*sin2)
	rm := rn * (1 - t.e2) / (1 - t.e2*sin2)

	common := t.dz*cosPhi - sinPhi*(t.dy*sinLam+t.dx*cosLam)
	up := t.dx*cosPhi*cosLam + t.dy*cosPhi*sinLam + t.dz*sinPhi

	if t.abridged {
		dPhi = (common + t.adf*math.Sin(2*phi)) / rm
		dLam = t.longitudeDelta(sinLam, cosLam, cosPhi, rn)
		dH = up + t.adf*sin2 - t.da
		return dLam, dPhi, dH
	}
	dPhi = (common +
		t.da/t.a*rn*t.e2*sinPhi*cosPhi +
		t.df*(rm*(t.a/t.b)+rn*(t.b/t.a))*sinPhi*cosPhi) / (rm + h)
	dLam = t.longitudeDelta(sinLam, cosLam, cosPhi, rn+h)
	dH = up + t.df*(t.b/t.a)*rn*sin2 - t.da*t.a/rn
	return dLam, dPhi, dH
}

// longitudeDelta is undefined at the poles, where longitude is left unchanged.
func (t *Molodenski) longitudeDelta(sinLam, cosLam, cosPhi, radius float64) float64 {
	if math.Abs(cosPhi) < 1e-12 {
		return 0
	}
	return (t.dy*cosLam - t.dx*sinLam) / (radius * cosPhi)
}

// Inverse returns the Molodenski transform with negated translations and swapped
// ellipsoids.
func (t *Molodenski) Inverse() (MathTransform, error) {
	return NewMolodenski(t.target, t.source, -t.dx, -t.dy, -t.dz, t.dim, t.abridged)
}

// IsIdentity reports whether the translations and the ellipsoid deltas are zero.
func (t *Molodenski) IsIdentity() bool {
	return t.dx == 0 && t.dy == 0 && t.dz == 0 && t.da == 0 && t.df == 0
}

// Abridged reports whether the abridged formulas are used.
func (t *Molodenski) Abridged() bool { return t.abridged }

// String returns a short description.
func (t *Molodenski) String() string {
	name := "Molodenski"
	if t.abridged {
		name = "AbridgedMolodenski"
	}
	return fmt.Sprintf("%s(%s -> %s, dx=%g, dy=%g, dz=%g, %dD)",
		name, t.source.Name, t.target.Name, t.dx, t.dy, t.dz, t.dim)
}
