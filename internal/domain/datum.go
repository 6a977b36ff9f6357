package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// Ellipsoid is a reference ellipsoid. An InverseFlattening of zero denotes a sphere.
type Ellipsoid struct {
	Name              string
	SemiMajorAxis     float64 // metres
	InverseFlattening float64
}

// Well-known ellipsoids.
var (
	WGS84Ellipsoid    = Ellipsoid{Name: "WGS 84", SemiMajorAxis: 6378137.0, InverseFlattening: 298.257223563}
	GRS80             = Ellipsoid{Name: "GRS 1980", SemiMajorAxis: 6378137.0, InverseFlattening: 298.257222101}
	Clarke1866        = Ellipsoid{Name: "Clarke 1866", SemiMajorAxis: 6378206.4, InverseFlattening: 294.978698213901}
	Bessel1841        = Ellipsoid{Name: "Bessel 1841", SemiMajorAxis: 6377397.155, InverseFlattening: 299.1528128}
	International1924 = Ellipsoid{Name: "International 1924", SemiMajorAxis: 6378388.0, InverseFlattening: 297.0}
	Airy1830          = Ellipsoid{Name: "Airy 1830", SemiMajorAxis: 6377563.396, InverseFlattening: 299.3249646}
	Clarke1880IGN     = Ellipsoid{Name: "Clarke 1880 (IGN)", SemiMajorAxis: 6378249.2, InverseFlattening: 293.4660212936269}
)

// Validate checks the ellipsoid parameters.
func (e Ellipsoid) Validate() error {
	if !(e.SemiMajorAxis > 0) || math.IsInf(e.SemiMajorAxis, 0) {
		return &ValidationError{Field: "semi_major_axis", Value: e.SemiMajorAxis, Constraint: "> 0", Message: "invalid semi-major axis"}
	}
	if e.InverseFlattening != 0 && !(e.InverseFlattening > 1) {
		return &ValidationError{Field: "inverse_flattening", Value: e.InverseFlattening, Constraint: "0 or > 1", Message: "invalid inverse flattening"}
	}
	return nil
}

// Flattening returns f = 1/InverseFlattening, or 0 for a sphere.
func (e Ellipsoid) Flattening() float64 {
	if e.InverseFlattening == 0 || math.IsInf(e.InverseFlattening, 0) {
		return 0
	}
	return 1 / e.InverseFlattening
}

// SemiMinorAxis returns b = a(1-f).
func (e Ellipsoid) SemiMinorAxis() float64 {
	return e.SemiMajorAxis * (1 - e.Flattening())
}

// EccentricitySquared returns e² = f(2-f).
func (e Ellipsoid) EccentricitySquared() float64 {
	f := e.Flattening()
	return f * (2 - f)
}

// IsSphere reports whether the ellipsoid has no flattening.
func (e Ellipsoid) IsSphere() bool {
	return e.Flattening() == 0
}

// Equal compares the defining parameters and ignores the name.
func (e Ellipsoid) Equal(other Ellipsoid) bool {
	return e.SemiMajorAxis == other.SemiMajorAxis && e.Flattening() == other.Flattening()
}

// PrimeMeridian is the origin of longitudes.
type PrimeMeridian struct {
	Name               string
	GreenwichLongitude float64
	Unit               Unit
}

// Well-known prime meridians.
var (
	Greenwich = PrimeMeridian{Name: "Greenwich", GreenwichLongitude: 0, Unit: Degree}
	Paris     = PrimeMeridian{Name: "Paris", GreenwichLongitude: 2.5969213, Unit: Grad}
	Ferro     = PrimeMeridian{Name: "Ferro", GreenwichLongitude: -17.6666666666667, Unit: Degree}
)

// GreenwichDegrees returns the Greenwich longitude in degrees.
func (p PrimeMeridian) GreenwichDegrees() float64 {
	if p.Unit.ToBase == 0 || p.Unit.Equal(Degree) {
		return p.GreenwichLongitude
	}
	return p.GreenwichLongitude * p.Unit.ToBase / Degree.ToBase
}

// Equal compares Greenwich longitudes.
func (p PrimeMeridian) Equal(other PrimeMeridian) bool {
	return p.GreenwichDegrees() == other.GreenwichDegrees()
}

// BursaWolf holds the seven parameters of a Helmert transformation from one geodetic
// datum to Target, in the position vector convention.
type BursaWolf struct {
	Target string  // Name of the datum the parameters lead to
	Dx     float64 // metres
	Dy     float64 // metres
	Dz     float64 // metres
	Ex     float64 // arc-seconds
	Ey     float64 // arc-seconds
	Ez     float64 // arc-seconds
	PPM    float64 // parts per million
}

// WGS84DatumName is the datum name Bursa-Wolf parameters refer to by default.
const WGS84DatumName = "World Geodetic System 1984"

// IsIdentity reports whether all seven parameters are zero.
func (b BursaWolf) IsIdentity() bool {
	return b.IsTranslation() && b.Dx == 0 && b.Dy == 0 && b.Dz == 0
}

// IsTranslation reports whether the rotations and the scale are zero.
func (b BursaWolf) IsTranslation() bool {
	return b.Ex == 0 && b.Ey == 0 && b.Ez == 0 && b.PPM == 0
}

// Affine returns the 4x4 geocentric affine matrix of the parameters.
func (b BursaWolf) Affine() [4][4]float64 {
	s := 1 + b.PPM/1e6
	rs := ArcSecond.ToBase * s
	return [4][4]float64{
		{s, -b.Ez * rs, +b.Ey * rs, b.Dx},
		{+b.Ez * rs, s, -b.Ex * rs, b.Dy},
		{-b.Ey * rs, +b.Ex * rs, s, b.Dz},
		{0, 0, 0, 1},
	}
}

func (b BursaWolf) key() string {
	return fmt.Sprintf("%s[%s,%s,%s,%s,%s,%s,%s]", NormalizeDatumName(b.Target),
		formatFloat(b.Dx), formatFloat(b.Dy), formatFloat(b.Dz),
		formatFloat(b.Ex), formatFloat(b.Ey), formatFloat(b.Ez), formatFloat(b.PPM))
}

// Datum is implemented by all datum kinds.
type Datum interface {
	Name() string
	Key() string
}

// GeodeticDatum anchors an ellipsoid and a prime meridian to the Earth. It is immutable
// once constructed and may be shared.
type GeodeticDatum struct {
	name          string
	ellipsoid     Ellipsoid
	primeMeridian PrimeMeridian
	bursaWolf     []BursaWolf
}

// NewGeodeticDatum creates a geodetic datum. Bursa-Wolf parameters without a target
// lead to WGS 84.
func NewGeodeticDatum(name string, ellipsoid Ellipsoid, pm PrimeMeridian, params ...BursaWolf) (*GeodeticDatum, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Field: "datum", Value: name, Constraint: "non-empty", Message: "datum name is required"}
	}
	if err := ellipsoid.Validate(); err != nil {
		return nil, fmt.Errorf("datum %s: %w", name, err)
	}
	if pm.Unit.Kind == UnitKindUnknown {
		pm.Unit = Degree
	}

	bw := make([]BursaWolf, len(params))
	copy(bw, params)
	for i := range bw {
		if bw[i].Target == "" {
			bw[i].Target = WGS84DatumName
		}
	}

	return &GeodeticDatum{
		name:          name,
		ellipsoid:     ellipsoid,
		primeMeridian: pm,
		bursaWolf:     bw,
	}, nil
}

// WGS84Datum is the World Geodetic System 1984 datum.
var WGS84Datum = &GeodeticDatum{name: WGS84DatumName, ellipsoid: WGS84Ellipsoid, primeMeridian: Greenwich}

// Name returns the datum name.
func (d *GeodeticDatum) Name() string { return d.name }

// Ellipsoid returns the reference ellipsoid.
func (d *GeodeticDatum) Ellipsoid() Ellipsoid { return d.ellipsoid }

// PrimeMeridian returns the prime meridian.
func (d *GeodeticDatum) PrimeMeridian() PrimeMeridian { return d.primeMeridian }

// BursaWolf returns a copy of the datum shift parameters.
func (d *GeodeticDatum) BursaWolf() []BursaWolf {
	cp := make([]BursaWolf, len(d.bursaWolf))
	copy(cp, d.bursaWolf)
	return cp
}

// BursaWolfTo returns the parameters leading to the named datum.
func (d *GeodeticDatum) BursaWolfTo(target string) (BursaWolf, bool) {
	want := NormalizeDatumName(target)
	for _, bw := range d.bursaWolf {
		if NormalizeDatumName(bw.Target) == want {
			return bw, true
		}
	}
	return BursaWolf{}, false
}

// WithoutBursaWolf returns a copy of the datum with no shift parameters.
func (d *GeodeticDatum) WithoutBursaWolf() *GeodeticDatum {
	return &GeodeticDatum{name: d.name, ellipsoid: d.ellipsoid, primeMeridian: d.primeMeridian}
}

// EqualIgnorePrimeMeridian reports whether both datums have the same identity and ellipsoid.
func (d *GeodeticDatum) EqualIgnorePrimeMeridian(other *GeodeticDatum) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil {
		return false
	}
	return NormalizeDatumName(d.name) == NormalizeDatumName(other.name) && d.ellipsoid.Equal(other.ellipsoid)
}

// Equal reports whether both datums have the same identity, ellipsoid and prime meridian.
func (d *GeodeticDatum) Equal(other *GeodeticDatum) bool {
	return d.EqualIgnorePrimeMeridian(other) && d.primeMeridian.Equal(other.primeMeridian)
}

// Key returns the structural key of the datum.
func (d *GeodeticDatum) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "geodetic(%s;%s/%s;pm=%s", NormalizeDatumName(d.name),
		formatFloat(d.ellipsoid.SemiMajorAxis), formatFloat(d.ellipsoid.InverseFlattening),
		formatFloat(d.primeMeridian.GreenwichDegrees()))
	for _, bw := range d.bursaWolf {
		b.WriteString(";bw=")
		b.WriteString(bw.key())
	}
	b.WriteByte(')')
	return b.String()
}

// VerticalDatumType distinguishes the kinds of heights.
type VerticalDatumType int

// Vertical datum types.
const (
	VerticalOther VerticalDatumType = iota
	VerticalEllipsoidal
	VerticalGeoidal
	VerticalDepth
	VerticalBarometric
)

// String returns the string representation of the vertical datum type.
func (t VerticalDatumType) String() string {
	switch t {
	case VerticalEllipsoidal:
		return "ellipsoidal"
	case VerticalGeoidal:
		return "geoidal"
	case VerticalDepth:
		return "depth"
	case VerticalBarometric:
		return "barometric"
	default:
		return "other"
	}
}

// ParseVerticalDatumType parses a vertical datum type name.
func ParseVerticalDatumType(s string) (VerticalDatumType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ellipsoidal":
		return VerticalEllipsoidal, nil
	case "geoidal", "gravity", "gravity-related", "orthometric":
		return VerticalGeoidal, nil
	case "depth":
		return VerticalDepth, nil
	case "barometric":
		return VerticalBarometric, nil
	case "other", "":
		return VerticalOther, nil
	}
	return VerticalOther, &ValidationError{Field: "vertical_type", Value: s, Constraint: "ellipsoidal|geoidal|depth|barometric|other", Message: "unknown vertical datum type"}
}

// VerticalDatum is the origin of heights.
type VerticalDatum struct {
	name string
	typ  VerticalDatumType
}

// NewVerticalDatum creates a vertical datum.
func NewVerticalDatum(name string, typ VerticalDatumType) *VerticalDatum {
	return &VerticalDatum{name: name, typ: typ}
}

// EllipsoidalHeightDatum is the datum of heights measured along the ellipsoid normal.
var EllipsoidalHeightDatum = NewVerticalDatum("Ellipsoid", VerticalEllipsoidal)

// Name returns the datum name.
func (d *VerticalDatum) Name() string { return d.name }

// Type returns the kind of height.
func (d *VerticalDatum) Type() VerticalDatumType { return d.typ }

// Equal reports whether both datums have the same type and identity. Ellipsoidal datums
// are all equal to each other.
func (d *VerticalDatum) Equal(other *VerticalDatum) bool {
	if d == other {
		return true
	}
	if d == nil || other == nil || d.typ != other.typ {
		return false
	}
	return d.typ == VerticalEllipsoidal || NormalizeDatumName(d.name) == NormalizeDatumName(other.name)
}

// Key returns the structural key of the datum.
func (d *VerticalDatum) Key() string {
	if d.typ == VerticalEllipsoidal {
		return "vertical(ellipsoidal)"
	}
	return fmt.Sprintf("vertical(%s;%s)", d.typ, NormalizeDatumName(d.name))
}

// TemporalDatum is the origin of a time axis.
type TemporalDatum struct {
	name   string
	origin time.Time
}

// NewTemporalDatum creates a temporal datum.
func NewTemporalDatum(name string, origin time.Time) *TemporalDatum {
	return &TemporalDatum{name: name, origin: origin.UTC()}
}

// Name returns the datum name.
func (d *TemporalDatum) Name() string { return d.name }

// Origin returns the temporal origin.
func (d *TemporalDatum) Origin() time.Time { return d.origin }

// Key returns the structural key of the datum.
func (d *TemporalDatum) Key() string {
	return fmt.Sprintf("temporal(%s)", d.origin.Format(time.RFC3339Nano))
}

// EngineeringDatum is the origin of a local coordinate system.
type EngineeringDatum struct {
	name string
}

// NewEngineeringDatum creates an engineering datum.
func NewEngineeringDatum(name string) *EngineeringDatum {
	return &EngineeringDatum{name: name}
}

// UnknownEngineeringDatum is the datum of the generic coordinate reference systems.
var UnknownEngineeringDatum = NewEngineeringDatum("Unknown")

// Name returns the datum name.
func (d *EngineeringDatum) Name() string { return d.name }

// Key returns the structural key of the datum.
func (d *EngineeringDatum) Key() string {
	return fmt.Sprintf("engineering(%s)", NormalizeDatumName(d.name))
}

var datumAliases = map[string]string{
	"wgs84":                   "wgs84",
	"wgs1984":                 "wgs84",
	"dwgs1984":                "wgs84",
	"worldgeodeticsystem1984": "wgs84",
	"nad27":                   "northamericandatum1927",
	"dnorthamerican1927":      "northamericandatum1927",
	"nad83":                   "northamericandatum1983",
	"dnorthamerican1983":      "northamericandatum1983",
	"etrs89":                  "europeanterrestrialreferencesystem1989",
	"detrs1989":               "europeanterrestrialreferencesystem1989",
	"dhdn":                    "deutscheshauptdreiecksnetz",
}

// NormalizeDatumName reduces a datum name to a comparable identity: case, punctuation
// and common aliases are ignored.
func NormalizeDatumName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	n := b.String()
	if alias, ok := datumAliases[n]; ok {
		return alias
	}
	return n
}
