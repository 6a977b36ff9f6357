package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/jobrunner/refsys/internal/domain"
)

var ellipsoids = map[string]domain.Ellipsoid{
	"wgs84":             domain.WGS84Ellipsoid,
	"grs1980":           domain.GRS80,
	"grs80":             domain.GRS80,
	"clarke1866":        domain.Clarke1866,
	"bessel1841":        domain.Bessel1841,
	"international1924": domain.International1924,
	"intl":              domain.International1924,
	"airy1830":          domain.Airy1830,
	"clarke1880ign":     domain.Clarke1880IGN,
}

var primeMeridians = map[string]domain.PrimeMeridian{
	"greenwich": domain.Greenwich,
	"paris":     domain.Paris,
	"ferro":     domain.Ferro,
}

var wellKnownAxes = map[string]domain.Axis{
	"lon": domain.AxisGeodeticLongitude,
	"lat": domain.AxisGeodeticLatitude,
	"h":   domain.AxisEllipsoidalHeight,
	"H":   domain.AxisGravityHeight,
	"E":   domain.AxisEasting,
	"N":   domain.AxisNorthing,
	"X":   domain.AxisGeocentricX,
	"Y":   domain.AxisGeocentricY,
	"Z":   domain.AxisGeocentricZ,
	"t":   domain.AxisTime,
	"x":   domain.AxisGenericX,
	"y":   domain.AxisGenericY,
	"z":   domain.AxisGenericZ,
}

// Default axes per kind when a definition lists none. Geographic CRSs follow the
// authority order: latitude first.
var defaultAxes = map[string][]domain.Axis{
	KindGeographic:  {domain.AxisGeodeticLatitude, domain.AxisGeodeticLongitude},
	KindGeocentric:  domain.StandardGeocentric.Axes(),
	KindProjected:   domain.StandardProjected.Axes(),
	KindVertical:    {domain.AxisGravityHeight},
	KindTemporal:    {domain.AxisTime},
	KindEngineering: {domain.AxisGenericX, domain.AxisGenericY},
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func invalid(field string, value any, constraint, message string) error {
	return &domain.ValidationError{Field: field, Value: value, Constraint: constraint, Message: message}
}

// builder turns definitions into CRS objects. References to base and component CRSs
// resolve against CRSs built earlier.
type builder struct {
	built map[string]domain.CRS
}

func (b *builder) build(def Definition) (domain.CRS, error) {
	if strings.TrimSpace(def.Name) == "" {
		return nil, invalid("name", def.Name, "non-empty", "CRS name is required")
	}

	switch strings.ToLower(def.Kind) {
	case KindGeographic:
		return b.geographic(def)
	case KindGeocentric:
		return b.geocentric(def)
	case KindProjected:
		return b.projected(def)
	case KindVertical:
		return b.vertical(def)
	case KindTemporal:
		return b.temporal(def)
	case KindEngineering:
		return b.engineering(def)
	case KindCompound:
		return b.compound(def)
	case KindGeneric:
		return b.generic(def)
	default:
		return nil, invalid("kind", def.Kind, "geographic|geocentric|projected|vertical|temporal|engineering|compound|generic", "unknown CRS kind")
	}
}

func (b *builder) lookup(field, ref string) (domain.CRS, error) {
	code, err := domain.ParseCode(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	c, ok := b.built[code]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", field, code, domain.ErrCRSNotFound)
	}
	return c, nil
}

func (b *builder) geographic(def Definition) (domain.CRS, error) {
	datum, err := geodeticDatum(def.Datum)
	if err != nil {
		return nil, err
	}
	cs, err := coordinateSystem(domain.CSEllipsoidal, def)
	if err != nil {
		return nil, err
	}
	return domain.NewGeographicCRS(def.Name, datum, cs)
}

func (b *builder) geocentric(def Definition) (domain.CRS, error) {
	datum, err := geodeticDatum(def.Datum)
	if err != nil {
		return nil, err
	}
	cs, err := coordinateSystem(domain.CSCartesian, def)
	if err != nil {
		return nil, err
	}
	return domain.NewGeocentricCRS(def.Name, datum, cs)
}

func (b *builder) projected(def Definition) (domain.CRS, error) {
	ref, err := b.lookup("base", def.Base)
	if err != nil {
		return nil, err
	}
	base, ok := ref.(*domain.GeographicCRS)
	if !ok {
		return nil, invalid("base", def.Base, "geographic CRS", "projected CRS needs a geographic base")
	}
	if def.Projection == nil {
		return nil, invalid("projection", nil, "required", "projected CRS needs a projection")
	}
	conv, err := conversion(def.Name, def.Projection)
	if err != nil {
		return nil, err
	}
	cs, err := coordinateSystem(domain.CSCartesian, def)
	if err != nil {
		return nil, err
	}
	return domain.NewProjectedCRS(def.Name, base, conv, cs)
}

func (b *builder) vertical(def Definition) (domain.CRS, error) {
	if def.Datum == nil {
		return nil, invalid("datum", nil, "required", "vertical CRS needs a datum")
	}
	typ, err := domain.ParseVerticalDatumType(def.Datum.Type)
	if err != nil {
		return nil, err
	}
	datum := domain.NewVerticalDatum(def.Datum.Name, typ)
	if typ == domain.VerticalEllipsoidal {
		datum = domain.EllipsoidalHeightDatum
	}

	if len(def.Axes) == 0 && typ == domain.VerticalEllipsoidal {
		def.Axes = []AxisDefinition{{Ref: "h"}}
	}
	cs, err := coordinateSystem(domain.CSVertical, def)
	if err != nil {
		return nil, err
	}
	return domain.NewVerticalCRS(def.Name, datum, cs)
}

func (b *builder) temporal(def Definition) (domain.CRS, error) {
	if def.Datum == nil || def.Datum.Origin == nil {
		return nil, invalid("datum.origin", nil, "required", "temporal CRS needs an origin")
	}
	origin, err := cast.ToTimeE(def.Datum.Origin)
	if err != nil {
		return nil, invalid("datum.origin", def.Datum.Origin, "RFC 3339 time", err.Error())
	}
	name := def.Datum.Name
	if name == "" {
		name = def.Name
	}
	cs, err := coordinateSystem(domain.CSTemporal, def)
	if err != nil {
		return nil, err
	}
	return domain.NewTemporalCRS(def.Name, domain.NewTemporalDatum(name, origin.In(time.UTC)), cs)
}

func (b *builder) engineering(def Definition) (domain.CRS, error) {
	datum := domain.UnknownEngineeringDatum
	if def.Datum != nil && def.Datum.Name != "" {
		datum = domain.NewEngineeringDatum(def.Datum.Name)
	}
	cs, err := coordinateSystem(domain.CSCartesian, def)
	if err != nil {
		return nil, err
	}
	return domain.NewEngineeringCRS(def.Name, datum, cs)
}

func (b *builder) compound(def Definition) (domain.CRS, error) {
	if len(def.Components) == 0 {
		return nil, invalid("components", nil, ">= 1", "compound CRS needs components")
	}
	components := make([]domain.CRS, 0, len(def.Components))
	for _, ref := range def.Components {
		c, err := b.lookup("component", ref)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return domain.NewCompoundCRS(def.Name, components...)
}

func (b *builder) generic(def Definition) (domain.CRS, error) {
	switch def.Dimension {
	case 2:
		return domain.Generic2D, nil
	case 3:
		return domain.Generic3D, nil
	default:
		return nil, invalid("dimension", def.Dimension, "2 or 3", "generic CRS dimension")
	}
}

func geodeticDatum(def *DatumDefinition) (*domain.GeodeticDatum, error) {
	if def == nil {
		return nil, invalid("datum", nil, "required", "geodetic CRS needs a datum")
	}
	if def.Ellipsoid == nil {
		return nil, invalid("datum.ellipsoid", nil, "required", "geodetic datum needs an ellipsoid")
	}
	e, err := ellipsoid(def.Ellipsoid)
	if err != nil {
		return nil, err
	}
	pm := domain.Greenwich
	if def.PrimeMeridian != nil {
		if pm, err = primeMeridian(def.PrimeMeridian); err != nil {
			return nil, err
		}
	}

	var params []domain.BursaWolf
	if len(def.ToWGS84) > 0 {
		bw, err := bursaWolf(domain.WGS84DatumName, def.ToWGS84)
		if err != nil {
			return nil, err
		}
		params = append(params, bw)
	}
	for _, d := range def.BursaWolf {
		bw, err := bursaWolf(d.Target, d.Parameters)
		if err != nil {
			return nil, err
		}
		params = append(params, bw)
	}
	return domain.NewGeodeticDatum(def.Name, e, pm, params...)
}

func ellipsoid(def *EllipsoidDefinition) (domain.Ellipsoid, error) {
	if def.SemiMajorAxis == nil && def.InverseFlattening == nil {
		e, ok := ellipsoids[normalizeName(def.Name)]
		if !ok {
			return domain.Ellipsoid{}, invalid("ellipsoid", def.Name, "known ellipsoid name", "unknown ellipsoid")
		}
		return e, nil
	}

	a, err := cast.ToFloat64E(def.SemiMajorAxis)
	if err != nil {
		return domain.Ellipsoid{}, invalid("ellipsoid.semi_major_axis", def.SemiMajorAxis, "number", err.Error())
	}
	invf, err := cast.ToFloat64E(def.InverseFlattening)
	if err != nil {
		return domain.Ellipsoid{}, invalid("ellipsoid.inverse_flattening", def.InverseFlattening, "number", err.Error())
	}
	e := domain.Ellipsoid{Name: def.Name, SemiMajorAxis: a, InverseFlattening: invf}
	return e, e.Validate()
}

func primeMeridian(def *MeridianDefinition) (domain.PrimeMeridian, error) {
	if def.Longitude == nil {
		pm, ok := primeMeridians[normalizeName(def.Name)]
		if !ok {
			return domain.PrimeMeridian{}, invalid("prime_meridian", def.Name, "known prime meridian", "unknown prime meridian")
		}
		return pm, nil
	}

	lon, err := cast.ToFloat64E(def.Longitude)
	if err != nil {
		return domain.PrimeMeridian{}, invalid("prime_meridian.longitude", def.Longitude, "number", err.Error())
	}
	unit := domain.Degree
	if def.Unit != "" {
		if unit, err = domain.LookupUnit(def.Unit); err != nil {
			return domain.PrimeMeridian{}, err
		}
		if unit.Kind != domain.UnitKindAngular {
			return domain.PrimeMeridian{}, invalid("prime_meridian.unit", def.Unit, "angular unit", "prime meridian needs an angular unit")
		}
	}
	return domain.PrimeMeridian{Name: def.Name, GreenwichLongitude: lon, Unit: unit}, nil
}

func bursaWolf(target string, values []any) (domain.BursaWolf, error) {
	if len(values) != 3 && len(values) != 7 {
		return domain.BursaWolf{}, invalid("towgs84", values, "3 or 7 values", "wrong number of Bursa-Wolf parameters")
	}
	p := make([]float64, 7)
	for i, v := range values {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return domain.BursaWolf{}, invalid("towgs84", v, "number", err.Error())
		}
		p[i] = f
	}
	return domain.BursaWolf{
		Target: target,
		Dx:     p[0],
		Dy:     p[1],
		Dz:     p[2],
		Ex:     p[3],
		Ey:     p[4],
		Ez:     p[5],
		PPM:    p[6],
	}, nil
}

func conversion(name string, def *ProjectionDefinition) (domain.Conversion, error) {
	method, err := domain.ParseProjectionMethod(def.Method)
	if err != nil {
		return domain.Conversion{}, err
	}

	var p domain.ProjectionParameters
	fields := map[string]*float64{
		"central_meridian":    &p.CentralMeridian,
		"latitude_of_origin":  &p.LatitudeOfOrigin,
		"standard_parallel_1": &p.StandardParallel1,
		"standard_parallel_2": &p.StandardParallel2,
		"scale_factor":        &p.ScaleFactor,
		"false_easting":       &p.FalseEasting,
		"false_northing":      &p.FalseNorthing,
	}
	for key, value := range def.Parameters {
		dst, ok := fields[strings.ToLower(key)]
		if !ok {
			return domain.Conversion{}, invalid("projection.parameters", key, "known parameter", "unknown projection parameter")
		}
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return domain.Conversion{}, invalid("projection.parameters."+key, value, "number", err.Error())
		}
		*dst = f
	}
	if _, ok := def.Parameters["scale_factor"]; !ok && method != domain.Mercator2SP && method != domain.LambertConformalConic2SP {
		p.ScaleFactor = 1
	}

	if def.Name != "" {
		name = def.Name
	}
	c := domain.Conversion{Name: name, Method: method, Parameters: p}
	if err := c.Validate(); err != nil {
		return domain.Conversion{}, err
	}
	return c, nil
}

func coordinateSystem(typ domain.CSType, def Definition) (domain.CoordinateSystem, error) {
	if len(def.Axes) == 0 {
		axes, ok := defaultAxes[strings.ToLower(def.Kind)]
		if !ok {
			return domain.CoordinateSystem{}, invalid("axes", nil, "required", "no default axes for kind "+def.Kind)
		}
		return domain.NewCoordinateSystem(typ, axes...)
	}

	axes := make([]domain.Axis, 0, len(def.Axes))
	for _, a := range def.Axes {
		axis, err := a.axis()
		if err != nil {
			return domain.CoordinateSystem{}, err
		}
		axes = append(axes, axis)
	}
	return domain.NewCoordinateSystem(typ, axes...)
}

func (a AxisDefinition) axis() (domain.Axis, error) {
	if a.Ref != "" {
		axis, ok := wellKnownAxes[a.Ref]
		if !ok {
			return domain.Axis{}, invalid("axes", a.Ref, "known axis abbreviation", "unknown axis")
		}
		return axis, nil
	}

	dir, err := domain.ParseAxisDirection(a.Direction)
	if err != nil {
		return domain.Axis{}, err
	}
	unit, err := domain.LookupUnit(a.Unit)
	if err != nil {
		return domain.Axis{}, err
	}
	return domain.Axis{Name: a.Name, Abbreviation: a.Abbreviation, Direction: dir, Unit: unit}, nil
}
