package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CRSKind enumerates the kinds of coordinate reference systems.
type CRSKind int

// CRS kinds.
const (
	KindGeographic CRSKind = iota + 1
	KindGeocentric
	KindProjected
	KindVertical
	KindTemporal
	KindEngineering
	KindCompound
)

// String returns the string representation of the kind.
func (k CRSKind) String() string {
	switch k {
	case KindGeographic:
		return "geographic"
	case KindGeocentric:
		return "geocentric"
	case KindProjected:
		return "projected"
	case KindVertical:
		return "vertical"
	case KindTemporal:
		return "temporal"
	case KindEngineering:
		return "engineering"
	case KindCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// CRS is a coordinate reference system. Implementations are immutable and safe to share.
type CRS interface {
	Name() string
	Kind() CRSKind
	CoordinateSystem() CoordinateSystem
	Dimension() int
	// Key is a structural identity: two CRSs with equal keys describe the same
	// coordinates, whatever their names.
	Key() string
}

// SingleCRS is a CRS with exactly one datum.
type SingleCRS interface {
	CRS
	Datum() Datum
}

// Equal reports whether two CRSs are structurally equal.
func Equal(a, b CRS) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// GeographicCRS is a 2D or 3D ellipsoidal CRS.
type GeographicCRS struct {
	name  string
	datum *GeodeticDatum
	cs    CoordinateSystem
}

// NewGeographicCRS creates a geographic CRS. The coordinate system must have one
// latitude and one longitude axis in angular units and, in 3D, one linear height axis.
func NewGeographicCRS(name string, datum *GeodeticDatum, cs CoordinateSystem) (*GeographicCRS, error) {
	if datum == nil {
		return nil, &ValidationError{Field: "datum", Value: name, Constraint: "non-nil", Message: "geographic CRS needs a geodetic datum"}
	}
	dim := cs.Dimension()
	if dim != 2 && dim != 3 {
		return nil, &MismatchedDimensionError{Context: "geographic CRS " + name, Expected: 2, Actual: dim}
	}
	for _, dir := range []AxisDirection{DirectionNorth, DirectionEast} {
		i := cs.IndexOf(dir)
		if i < 0 || cs.Axis(i).Unit.Kind != UnitKindAngular {
			return nil, &ValidationError{Field: "axes", Value: name, Constraint: "angular " + dir.String() + " axis", Message: "geographic CRS needs latitude and longitude axes"}
		}
	}
	if dim == 3 {
		i := cs.IndexOf(DirectionUp)
		if i < 0 || cs.Axis(i).Unit.Kind != UnitKindLinear {
			return nil, &ValidationError{Field: "axes", Value: name, Constraint: "linear up axis", Message: "3D geographic CRS needs an ellipsoidal height axis"}
		}
	}
	return &GeographicCRS{name: name, datum: datum, cs: cs}, nil
}

// Name returns the CRS name.
func (c *GeographicCRS) Name() string { return c.name }

// Kind returns KindGeographic.
func (c *GeographicCRS) Kind() CRSKind { return KindGeographic }

// CoordinateSystem returns the ellipsoidal coordinate system.
func (c *GeographicCRS) CoordinateSystem() CoordinateSystem { return c.cs }

// Dimension returns 2 or 3.
func (c *GeographicCRS) Dimension() int { return c.cs.Dimension() }

// Datum returns the geodetic datum.
func (c *GeographicCRS) Datum() Datum { return c.datum }

// GeodeticDatum returns the geodetic datum.
func (c *GeographicCRS) GeodeticDatum() *GeodeticDatum { return c.datum }

// Key returns the structural key.
func (c *GeographicCRS) Key() string {
	return "geographic[" + c.datum.Key() + ";" + c.cs.key() + "]"
}

// GeocentricCRS is an Earth-centred cartesian CRS.
type GeocentricCRS struct {
	name  string
	datum *GeodeticDatum
	cs    CoordinateSystem
}

// NewGeocentricCRS creates a geocentric CRS with geocentric X, Y and Z axes.
func NewGeocentricCRS(name string, datum *GeodeticDatum, cs CoordinateSystem) (*GeocentricCRS, error) {
	if datum == nil {
		return nil, &ValidationError{Field: "datum", Value: name, Constraint: "non-nil", Message: "geocentric CRS needs a geodetic datum"}
	}
	if cs.Dimension() != 3 {
		return nil, &MismatchedDimensionError{Context: "geocentric CRS " + name, Expected: 3, Actual: cs.Dimension()}
	}
	for _, dir := range []AxisDirection{DirectionGeocentricX, DirectionGeocentricY, DirectionGeocentricZ} {
		i := cs.IndexOf(dir)
		if i < 0 || cs.Axis(i).Unit.Kind != UnitKindLinear {
			return nil, &ValidationError{Field: "axes", Value: name, Constraint: "linear " + dir.String() + " axis", Message: "geocentric CRS needs X, Y and Z axes"}
		}
	}
	return &GeocentricCRS{name: name, datum: datum, cs: cs}, nil
}

// Name returns the CRS name.
func (c *GeocentricCRS) Name() string { return c.name }

// Kind returns KindGeocentric.
func (c *GeocentricCRS) Kind() CRSKind { return KindGeocentric }

// CoordinateSystem returns the cartesian coordinate system.
func (c *GeocentricCRS) CoordinateSystem() CoordinateSystem { return c.cs }

// Dimension returns 3.
func (c *GeocentricCRS) Dimension() int { return 3 }

// Datum returns the geodetic datum.
func (c *GeocentricCRS) Datum() Datum { return c.datum }

// GeodeticDatum returns the geodetic datum.
func (c *GeocentricCRS) GeodeticDatum() *GeodeticDatum { return c.datum }

// Key returns the structural key.
func (c *GeocentricCRS) Key() string {
	return "geocentric[" + c.datum.Key() + ";" + c.cs.key() + "]"
}

// ProjectedCRS is a 2D cartesian CRS derived from a geographic CRS by a map projection.
type ProjectedCRS struct {
	name       string
	base       *GeographicCRS
	conversion Conversion
	cs         CoordinateSystem
}

// NewProjectedCRS creates a projected CRS.
func NewProjectedCRS(name string, base *GeographicCRS, conversion Conversion, cs CoordinateSystem) (*ProjectedCRS, error) {
	if base == nil {
		return nil, &ValidationError{Field: "base", Value: name, Constraint: "non-nil", Message: "projected CRS needs a base geographic CRS"}
	}
	if cs.Dimension() != 2 {
		return nil, &MismatchedDimensionError{Context: "projected CRS " + name, Expected: 2, Actual: cs.Dimension()}
	}
	for _, dir := range []AxisDirection{DirectionEast, DirectionNorth} {
		i := cs.IndexOf(dir)
		if i < 0 || cs.Axis(i).Unit.Kind != UnitKindLinear {
			return nil, &ValidationError{Field: "axes", Value: name, Constraint: "linear " + dir.String() + " axis", Message: "projected CRS needs easting and northing axes"}
		}
	}
	if err := conversion.Validate(); err != nil {
		return nil, fmt.Errorf("projected CRS %s: %w", name, err)
	}
	return &ProjectedCRS{name: name, base: base, conversion: conversion, cs: cs}, nil
}

// Name returns the CRS name.
func (c *ProjectedCRS) Name() string { return c.name }

// Kind returns KindProjected.
func (c *ProjectedCRS) Kind() CRSKind { return KindProjected }

// CoordinateSystem returns the cartesian coordinate system.
func (c *ProjectedCRS) CoordinateSystem() CoordinateSystem { return c.cs }

// Dimension returns 2.
func (c *ProjectedCRS) Dimension() int { return 2 }

// Datum returns the datum of the base CRS.
func (c *ProjectedCRS) Datum() Datum { return c.base.datum }

// Base returns the base geographic CRS.
func (c *ProjectedCRS) Base() *GeographicCRS { return c.base }

// Conversion returns the map projection definition.
func (c *ProjectedCRS) Conversion() Conversion { return c.conversion }

// Key returns the structural key.
func (c *ProjectedCRS) Key() string {
	return "projected[" + c.base.Key() + ";" + c.conversion.key() + ";" + c.cs.key() + "]"
}

// VerticalCRS is a 1D height or depth CRS.
type VerticalCRS struct {
	name  string
	datum *VerticalDatum
	cs    CoordinateSystem
}

// NewVerticalCRS creates a vertical CRS with one linear up or down axis.
func NewVerticalCRS(name string, datum *VerticalDatum, cs CoordinateSystem) (*VerticalCRS, error) {
	if datum == nil {
		return nil, &ValidationError{Field: "datum", Value: name, Constraint: "non-nil", Message: "vertical CRS needs a vertical datum"}
	}
	if cs.Dimension() != 1 {
		return nil, &MismatchedDimensionError{Context: "vertical CRS " + name, Expected: 1, Actual: cs.Dimension()}
	}
	if a := cs.Axis(0); a.Direction.Absolute() != DirectionUp || a.Unit.Kind != UnitKindLinear {
		return nil, &ValidationError{Field: "axes", Value: name, Constraint: "linear up or down axis", Message: "vertical CRS needs a height or depth axis"}
	}
	return &VerticalCRS{name: name, datum: datum, cs: cs}, nil
}

// Name returns the CRS name.
func (c *VerticalCRS) Name() string { return c.name }

// Kind returns KindVertical.
func (c *VerticalCRS) Kind() CRSKind { return KindVertical }

// CoordinateSystem returns the vertical coordinate system.
func (c *VerticalCRS) CoordinateSystem() CoordinateSystem { return c.cs }

// Dimension returns 1.
func (c *VerticalCRS) Dimension() int { return 1 }

// Datum returns the vertical datum.
func (c *VerticalCRS) Datum() Datum { return c.datum }

// VerticalDatum returns the vertical datum.
func (c *VerticalCRS) VerticalDatum() *VerticalDatum { return c.datum }

// Key returns the structural key.
func (c *VerticalCRS) Key() string {
	return "vertical[" + c.datum.Key() + ";" + c.cs.key() + "]"
}

// TemporalCRS is a 1D time CRS.
type TemporalCRS struct {
	name  string
	datum *TemporalDatum
	cs    CoordinateSystem
}

// NewTemporalCRS creates a temporal CRS with one future or past axis.
func NewTemporalCRS(name string, datum *TemporalDatum, cs CoordinateSystem) (*TemporalCRS, error) {
	if datum == nil {
		return nil, &ValidationError{Field: "datum", Value: name, Constraint: "non-nil", Message: "temporal CRS needs a temporal datum"}
	}
	if cs.Dimension() != 1 {
		return nil, &MismatchedDimensionError{Context: "temporal CRS " + name, Expected: 1, Actual: cs.Dimension()}
	}
	if a := cs.Axis(0); a.Direction.Absolute() != DirectionFuture || a.Unit.Kind != UnitKindTemporal {
		return nil, &ValidationError{Field: "axes", Value: name, Constraint: "temporal future or past axis", Message: "temporal CRS needs a time axis"}
	}
	return &TemporalCRS{name: name, datum: datum, cs: cs}, nil
}

// Name returns the CRS name.
func (c *TemporalCRS) Name() string { return c.name }

// Kind returns KindTemporal.
func (c *TemporalCRS) Kind() CRSKind { return KindTemporal }

// CoordinateSystem returns the temporal coordinate system.
func (c *TemporalCRS) CoordinateSystem() CoordinateSystem { return c.cs }

// Dimension returns 1.
func (c *TemporalCRS) Dimension() int { return 1 }

// Datum returns the temporal datum.
func (c *TemporalCRS) Datum() Datum { return c.datum }

// TemporalDatum returns the temporal datum.
func (c *TemporalCRS) TemporalDatum() *TemporalDatum { return c.datum }

// Key returns the structural key.
func (c *TemporalCRS) Key() string {
	return "temporal[" + c.datum.Key() + ";" + c.cs.key() + "]"
}

// EngineeringCRS is a local CRS not tied to the Earth.
type EngineeringCRS struct {
	name  string
	datum *EngineeringDatum
	cs    CoordinateSystem
}

// NewEngineeringCRS creates an engineering CRS.
func NewEngineeringCRS(name string, datum *EngineeringDatum, cs CoordinateSystem) (*EngineeringCRS, error) {
	if datum == nil {
		return nil, &ValidationError{Field: "datum", Value: name, Constraint: "non-nil", Message: "engineering CRS needs a datum"}
	}
	return &EngineeringCRS{name: name, datum: datum, cs: cs}, nil
}

// Name returns the CRS name.
func (c *EngineeringCRS) Name() string { return c.name }

// Kind returns KindEngineering.
func (c *EngineeringCRS) Kind() CRSKind { return KindEngineering }

// CoordinateSystem returns the coordinate system.
func (c *EngineeringCRS) CoordinateSystem() CoordinateSystem { return c.cs }

// Dimension returns the number of axes.
func (c *EngineeringCRS) Dimension() int { return c.cs.Dimension() }

// Datum returns the engineering datum.
func (c *EngineeringCRS) Datum() Datum { return c.datum }

// EngineeringDatum returns the engineering datum.
func (c *EngineeringCRS) EngineeringDatum() *EngineeringDatum { return c.datum }

// Key returns the structural key.
func (c *EngineeringCRS) Key() string {
	return "engineering[" + c.datum.Key() + ";" + c.cs.key() + "]"
}

// Generic cartesian CRSs used when coordinates carry no georeferencing.
var (
	Generic2D = &EngineeringCRS{
		name:  "Generic cartesian 2D",
		datum: UnknownEngineeringDatum,
		cs:    MustCoordinateSystem(CSCartesian, AxisGenericX, AxisGenericY),
	}
	Generic3D = &EngineeringCRS{
		name:  "Generic cartesian 3D",
		datum: UnknownEngineeringDatum,
		cs:    MustCoordinateSystem(CSCartesian, AxisGenericX, AxisGenericY, AxisGenericZ),
	}
)

// IsGeneric reports whether c is one of the generic wildcard CRSs.
func IsGeneric(c CRS) bool {
	return Equal(c, Generic2D) || Equal(c, Generic3D)
}

// CompoundCRS is an ordered list of single CRSs, for example horizontal + vertical.
type CompoundCRS struct {
	name       string
	components []SingleCRS
	cs         CoordinateSystem
}

// NewCompoundCRS creates a compound CRS. Nested compound CRSs are flattened; the
// dimension is the sum of the component dimensions.
func NewCompoundCRS(name string, components ...CRS) (*CompoundCRS, error) {
	var singles []SingleCRS
	for _, c := range components {
		switch v := c.(type) {
		case *CompoundCRS:
			singles = append(singles, v.components...)
		case SingleCRS:
			singles = append(singles, v)
		case nil:
			return nil, &ValidationError{Field: "components", Value: name, Constraint: "non-nil", Message: "nil component in compound CRS"}
		default:
			return nil, &ValidationError{Field: "components", Value: c.Name(), Constraint: "single CRS", Message: "unsupported compound component"}
		}
	}
	if len(singles) == 0 {
		return nil, &ValidationError{Field: "components", Value: name, Constraint: ">= 1", Message: "compound CRS needs components"}
	}

	var axes []Axis
	for _, s := range singles {
		axes = append(axes, s.CoordinateSystem().Axes()...)
	}
	cs, err := NewCoordinateSystem(CSCompound, axes...)
	if err != nil {
		return nil, fmt.Errorf("compound CRS %s: %w", name, err)
	}

	return &CompoundCRS{name: name, components: singles, cs: cs}, nil
}

// Name returns the CRS name.
func (c *CompoundCRS) Name() string { return c.name }

// Kind returns KindCompound.
func (c *CompoundCRS) Kind() CRSKind { return KindCompound }

// CoordinateSystem returns the concatenation of the component axes.
func (c *CompoundCRS) CoordinateSystem() CoordinateSystem { return c.cs }

// Dimension returns the sum of the component dimensions.
func (c *CompoundCRS) Dimension() int { return c.cs.Dimension() }

// Components returns a copy of the component list.
func (c *CompoundCRS) Components() []SingleCRS {
	cp := make([]SingleCRS, len(c.components))
	copy(cp, c.components)
	return cp
}

// Key returns the structural key.
func (c *CompoundCRS) Key() string {
	parts := make([]string, len(c.components))
	for i, s := range c.components {
		parts[i] = s.Key()
	}
	return "compound[" + strings.Join(parts, "+") + "]"
}

// Components returns the single CRSs making up c, in ordinate order.
func Components(c CRS) []SingleCRS {
	switch v := c.(type) {
	case *CompoundCRS:
		return v.Components()
	case SingleCRS:
		return []SingleCRS{v}
	default:
		return nil
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
