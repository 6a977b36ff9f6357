package transform

import (
	"fmt"
	"math"

	"github.com/jobrunner/refsys/internal/domain"
)

// projector implements one map projection method. Longitudes are in radians relative
// to the central meridian; projected values exclude false easting and northing.
type projector interface {
	forward(lam, phi float64) (x, y float64, err error)
	inverse(x, y float64) (lam, phi float64, err error)
}

// Projection converts (longitude, latitude) in degrees to (easting, northing) in
// metres, or back when inverted.
type Projection struct {
	method    domain.ProjectionMethod
	ellipsoid domain.Ellipsoid
	params    domain.ProjectionParameters
	proj      projector
	inverted  bool
}

// NewProjection creates the forward projection for method on ellipsoid.
func NewProjection(method domain.ProjectionMethod, ellipsoid domain.Ellipsoid, params domain.ProjectionParameters) (*Projection, error) {
	if err := ellipsoid.Validate(); err != nil {
		return nil, err
	}
	if err := (domain.Conversion{Method: method, Parameters: params}).Validate(); err != nil {
		return nil, err
	}

	var (
		proj projector
		err  error
	)
	switch method {
	case domain.TransverseMercator:
		proj = newTransverseMercator(ellipsoid, params)
	case domain.Mercator1SP, domain.Mercator2SP:
		proj = newMercator(ellipsoid, params, method == domain.Mercator2SP)
	case domain.LambertConformalConic1SP, domain.LambertConformalConic2SP:
		proj, err = newLambertConformalConic(ellipsoid, params, method == domain.LambertConformalConic2SP)
	default:
		err = fmt.Errorf("%q: %w", method, domain.ErrUnsupportedProjection)
	}
	if err != nil {
		return nil, err
	}

	return &Projection{method: method, ellipsoid: ellipsoid, params: params, proj: proj}, nil
}

// SourceDimensions returns 2.
func (t *Projection) SourceDimensions() int { return 2 }

// TargetDimensions returns 2.
func (t *Projection) TargetDimensions() int { return 2 }

// Transform projects (or unprojects) the points.
func (t *Projection) Transform(src, dst []float64, numPts int) error {
	src, err := checkBuffers(t, src, dst, numPts)
	if err != nil {
		return err
	}
	cm := t.params.CentralMeridian * deg
	for p := 0; p < numPts; p++ {
		u, v := src[2*p], src[2*p+1]
		if math.IsNaN(u) || math.IsNaN(v) {
			dst[2*p], dst[2*p+1] = math.NaN(), math.NaN()
			continue
		}
		if t.inverted {
			lam, phi, err := t.proj.inverse(u-t.params.FalseEasting, v-t.params.FalseNorthing)
			if err != nil {
				return err
			}
			dst[2*p] = normalizeLongitude(lam+cm) / deg
			dst[2*p+1] = phi / deg
			continue
		}
		if math.Abs(v) > 90 {
			return fmt.Errorf("latitude %g: %w", v, domain.ErrInvalidCoordinate)
		}
		x, y, err := t.proj.forward(normalizeLongitude(u*deg-cm), v*deg)
		if err != nil {
			return err
		}
		dst[2*p] = x + t.params.FalseEasting
		dst[2*p+1] = y + t.params.FalseNorthing
	}
	return nil
}

// Inverse returns the projection in the opposite direction.
func (t *Projection) Inverse() (MathTransform, error) {
	inv := *t
	inv.inverted = !t.inverted
	return &inv, nil
}

// IsIdentity returns false.
func (t *Projection) IsIdentity() bool { return false }

// Method returns the projection method.
func (t *Projection) Method() domain.ProjectionMethod { return t.method }

// String returns a short description.
func (t *Projection) String() string {
	if t.inverted {
		return fmt.Sprintf("Inverse %s(%s)", t.method, t.ellipsoid.Name)
	}
	return fmt.Sprintf("%s(%s)", t.method, t.ellipsoid.Name)
}

// transverseMercator uses the Krüger series to sixth order in the third flattening,
// accurate to a few nanometres within 3900 km of the central meridian.
type transverseMercator struct {
	e     float64
	scale float64 // k0 * A, the scaled rectifying radius
	y0    float64 // northing of the latitude of origin on the central meridian
	alpha [7]float64
	beta  [7]float64
}

func newTransverseMercator(ell domain.Ellipsoid, p domain.ProjectionParameters) *transverseMercator {
	f := ell.Flattening()
	n := f / (2 - f)
	n2 := n * n
	n3 := n2 * n
	n4 := n3 * n
	n5 := n4 * n
	n6 := n5 * n

	t := &transverseMercator{e: math.Sqrt(ell.EccentricitySquared())}
	t.scale = p.ScaleFactor * ell.SemiMajorAxis / (1 + n) * (1 + n2/4 + n4/64 + n6/256)
	t.alpha = [7]float64{0,
		n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180 - 127*n5/288 + 7891*n6/37800,
		13*n2/48 - 3*n3/5 + 557*n4/1440 + 281*n5/630 - 1983433*n6/1935360,
		61*n3/240 - 103*n4/140 + 15061*n5/26880 + 167603*n6/181440,
		49561*n4/161280 - 179*n5/168 + 6601661*n6/7257600,
		34729*n5/80640 - 3418889*n6/1995840,
		212378941 * n6 / 319334400,
	}
	t.beta = [7]float64{0,
		n/2 - 2*n2/3 + 37*n3/96 - n4/360 - 81*n5/512 + 96199*n6/604800,
		n2/48 + n3/15 - 437*n4/1440 + 46*n5/105 - 1118711*n6/3870720,
		17*n3/480 - 37*n4/840 - 209*n5/4480 + 5569*n6/90720,
		4397*n4/161280 - 11*n5/504 - 830251*n6/7257600,
		4583*n5/161280 - 108847*n6/3991680,
		20648693 * n6 / 638668800,
	}
	_, t.y0, _ = t.forward(0, p.LatitudeOfOrigin*deg)
	return t
}

func (t *transverseMercator) forward(lam, phi float64) (float64, float64, error) {
	taup := taupf(math.Tan(phi), t.e)
	sinLam, cosLam := math.Sincos(lam)
	xip := math.Atan2(taup, cosLam)
	etap := math.Asinh(sinLam / math.Hypot(taup, cosLam))

	xi, eta := xip, etap
	for j := 1; j <= 6; j++ {
		k := 2 * float64(j)
		xi += t.alpha[j] * math.Sin(k*xip) * math.Cosh(k*etap)
		eta += t.alpha[j] * math.Cos(k*xip) * math.Sinh(k*etap)
	}
	return t.scale * eta, t.scale*xi - t.y0, nil
}

func (t *transverseMercator) inverse(x, y float64) (float64, float64, error) {
	xi := (y + t.y0) / t.scale
	eta := x / t.scale

	xip, etap := xi, eta
	for j := 1; j <= 6; j++ {
		k := 2 * float64(j)
		xip -= t.beta[j] * math.Sin(k*xi) * math.Cosh(k*eta)
		etap -= t.beta[j] * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	sinXip, cosXip := math.Sincos(xip)
	sinhEtap := math.Sinh(etap)
	taup := sinXip / math.Hypot(sinhEtap, cosXip)
	lam := math.Atan2(sinhEtap, cosXip)
	tau, err := tauf(taup, t.e)
	if err != nil {
		return 0, 0, err
	}
	return lam, math.Atan(tau), nil
}

// mercator is the ellipsoidal normal Mercator. The two-parallel variant derives the
// scale factor from the standard parallel.
type mercator struct {
	e     float64
	scale float64 // a * k0
}

func newMercator(ell domain.Ellipsoid, p domain.ProjectionParameters, twoParallels bool) *mercator {
	e2 := ell.EccentricitySquared()
	k0 := p.ScaleFactor
	if twoParallels {
		sinPhi, cosPhi := math.Sincos(p.StandardParallel1 * deg)
		k0 = cosPhi / math.Sqrt(1-e2*sinPhi*sinPhi)
	}
	return &mercator{e: math.Sqrt(e2), scale: ell.SemiMajorAxis * k0}
}

func (t *mercator) forward(lam, phi float64) (float64, float64, error) {
	if math.Abs(phi) >= math.Pi/2 {
		return 0, 0, fmt.Errorf("mercator at latitude %g: %w", phi/deg, domain.ErrInvalidCoordinate)
	}
	return t.scale * lam, t.scale * isometricLatitude(phi, t.e), nil
}

func (t *mercator) inverse(x, y float64) (float64, float64, error) {
	phi, err := latitudeFromIsometric(y/t.scale, t.e)
	if err != nil {
		return 0, 0, err
	}
	return x / t.scale, phi, nil
}

// lambertConformalConic is the ellipsoidal Lambert conformal conic. The one-parallel
// variant is tangent at the latitude of origin and scaled by k0.
type lambertConformalConic struct {
	e    float64
	n    float64 // cone constant
	ak   float64 // a * k0 * F
	rho0 float64
}

func newLambertConformalConic(ell domain.Ellipsoid, p domain.ProjectionParameters, twoParallels bool) (*lambertConformalConic, error) {
	e := math.Sqrt(ell.EccentricitySquared())
	m := func(phi float64) float64 {
		s, c := math.Sincos(phi)
		return c / math.Sqrt(1-e*e*s*s)
	}
	lnT := func(phi float64) float64 { return -isometricLatitude(phi, e) }

	phi0 := p.LatitudeOfOrigin * deg
	phi1, phi2 := phi0, phi0
	k0 := p.ScaleFactor
	if twoParallels {
		phi1, phi2 = p.StandardParallel1*deg, p.StandardParallel2*deg
		k0 = 1
	}

	t := &lambertConformalConic{e: e}
	if math.Abs(phi1-phi2) > 1e-10 {
		t.n = (math.Log(m(phi1)) - math.Log(m(phi2))) / (lnT(phi1) - lnT(phi2))
	} else {
		t.n = math.Sin(phi1)
	}
	if t.n == 0 {
		return nil, &domain.ValidationError{Field: "standard_parallel", Value: p.StandardParallel1, Constraint: "cone constant != 0", Message: "degenerate cone"}
	}
	f := m(phi1) / (t.n * math.Exp(t.n*lnT(phi1)))
	t.ak = ell.SemiMajorAxis * k0 * f
	if math.Abs(phi0) >= math.Pi/2 {
		t.rho0 = 0
	} else {
		t.rho0 = t.ak * math.Exp(t.n*lnT(phi0))
	}
	return t, nil
}

func (t *lambertConformalConic) forward(lam, phi float64) (float64, float64, error) {
	var rho float64
	switch {
	case math.Abs(phi) < math.Pi/2:
		rho = t.ak * math.Exp(-t.n*isometricLatitude(phi, t.e))
	case phi*t.n > 0:
		rho = 0
	default:
		return 0, 0, fmt.Errorf("conic at opposite pole: %w", domain.ErrInvalidCoordinate)
	}
	s, c := math.Sincos(t.n * lam)
	return rho * s, t.rho0 - rho*c, nil
}

func (t *lambertConformalConic) inverse(x, y float64) (float64, float64, error) {
	dy := t.rho0 - y
	sg := 1.0
	if t.n < 0 {
		sg = -1
	}
	rho := sg * math.Hypot(x, dy)
	if rho == 0 {
		return 0, sg * math.Pi / 2, nil
	}
	theta := math.Atan2(sg*x, sg*dy)
	psi := -math.Log(rho/t.ak) / t.n
	phi, err := latitudeFromIsometric(psi, t.e)
	if err != nil {
		return 0, 0, err
	}
	return theta / t.n, phi, nil
}
