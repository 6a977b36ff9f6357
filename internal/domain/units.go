package domain

import (
	"fmt"
	"math"
	"strings"
)

// UnitKind is the physical quantity a unit measures.
type UnitKind int

// Unit kinds.
const (
	UnitKindUnknown UnitKind = iota
	UnitKindLinear
	UnitKindAngular
	UnitKindTemporal
	UnitKindScale
)

// String returns the string representation of the unit kind.
func (k UnitKind) String() string {
	switch k {
	case UnitKindLinear:
		return "linear"
	case UnitKindAngular:
		return "angular"
	case UnitKindTemporal:
		return "temporal"
	case UnitKindScale:
		return "scale"
	default:
		return "unknown"
	}
}

// Unit is a unit of measure. ToBase converts one unit into the base unit of its kind
// (metre, radian, second or unity).
type Unit struct {
	Name   string
	Kind   UnitKind
	ToBase float64
}

// Well-known units.
var (
	Metre        = Unit{Name: "metre", Kind: UnitKindLinear, ToBase: 1}
	Kilometre    = Unit{Name: "kilometre", Kind: UnitKindLinear, ToBase: 1000}
	Foot         = Unit{Name: "foot", Kind: UnitKindLinear, ToBase: 0.3048}
	USSurveyFoot = Unit{Name: "US survey foot", Kind: UnitKindLinear, ToBase: 1200.0 / 3937.0}
	Radian       = Unit{Name: "radian", Kind: UnitKindAngular, ToBase: 1}
	Degree       = Unit{Name: "degree", Kind: UnitKindAngular, ToBase: math.Pi / 180}
	Grad         = Unit{Name: "grad", Kind: UnitKindAngular, ToBase: math.Pi / 200}
	ArcSecond    = Unit{Name: "arc-second", Kind: UnitKindAngular, ToBase: math.Pi / 648000}
	Second       = Unit{Name: "second", Kind: UnitKindTemporal, ToBase: 1}
	Day          = Unit{Name: "day", Kind: UnitKindTemporal, ToBase: 86400}
	JulianYear   = Unit{Name: "year", Kind: UnitKindTemporal, ToBase: 31557600}
	Unity        = Unit{Name: "unity", Kind: UnitKindScale, ToBase: 1}
)

var unitsByName = map[string]Unit{
	"metre":          Metre,
	"meter":          Metre,
	"m":              Metre,
	"kilometre":      Kilometre,
	"kilometer":      Kilometre,
	"km":             Kilometre,
	"foot":           Foot,
	"ft":             Foot,
	"us survey foot": USSurveyFoot,
	"us-ft":          USSurveyFoot,
	"foot_us":        USSurveyFoot,
	"radian":         Radian,
	"rad":            Radian,
	"degree":         Degree,
	"deg":            Degree,
	"grad":           Grad,
	"gon":            Grad,
	"arc-second":     ArcSecond,
	"second":         Second,
	"s":              Second,
	"day":            Day,
	"year":           JulianYear,
	"unity":          Unity,
}

// LookupUnit returns the well-known unit with the given name.
func LookupUnit(name string) (Unit, error) {
	u, ok := unitsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Unit{}, &ValidationError{
			Field:      "unit",
			Value:      name,
			Constraint: "known unit name",
			Message:    "unknown unit of measure",
		}
	}
	return u, nil
}

// Validate checks that the unit is usable in a coordinate system.
func (u Unit) Validate() error {
	if u.Kind == UnitKindUnknown {
		return &ValidationError{Field: "unit", Value: u.Name, Constraint: "known kind", Message: "unit has no kind"}
	}
	if !(u.ToBase > 0) || math.IsInf(u.ToBase, 0) {
		return &ValidationError{Field: "unit", Value: u.ToBase, Constraint: "> 0", Message: "unit factor must be positive"}
	}
	return nil
}

// Equal reports whether both units have the same kind and the same factor.
func (u Unit) Equal(other Unit) bool {
	return u.Kind == other.Kind && u.ToBase == other.ToBase
}

// ConversionFactor returns the factor f such that a value v expressed in u equals v*f
// expressed in target.
func (u Unit) ConversionFactor(target Unit) (float64, error) {
	if u.Kind != target.Kind {
		return 0, fmt.Errorf("cannot convert %s (%s) to %s (%s): %w",
			u.Name, u.Kind, target.Name, target.Kind, ErrInvalidInput)
	}
	if u.ToBase == target.ToBase {
		return 1, nil
	}
	return u.ToBase / target.ToBase, nil
}

// String returns the unit name.
func (u Unit) String() string {
	return u.Name
}
