package domain

import (
	"fmt"
	"strings"
)

// AxisDirection is the physical sense of a coordinate system axis.
type AxisDirection int

// Axis directions. Each direction except the geocentric ones and DirectionOther has an
// opposite; a direction and its opposite are colinear.
const (
	DirectionOther AxisDirection = iota
	DirectionNorth
	DirectionSouth
	DirectionEast
	DirectionWest
	DirectionUp
	DirectionDown
	DirectionGeocentricX
	DirectionGeocentricY
	DirectionGeocentricZ
	DirectionFuture
	DirectionPast
	DirectionDisplayRight
	DirectionDisplayLeft
	DirectionDisplayUp
	DirectionDisplayDown
)

var directionNames = map[AxisDirection]string{
	DirectionOther:        "other",
	DirectionNorth:        "north",
	DirectionSouth:        "south",
	DirectionEast:         "east",
	DirectionWest:         "west",
	DirectionUp:           "up",
	DirectionDown:         "down",
	DirectionGeocentricX:  "geocentricX",
	DirectionGeocentricY:  "geocentricY",
	DirectionGeocentricZ:  "geocentricZ",
	DirectionFuture:       "future",
	DirectionPast:         "past",
	DirectionDisplayRight: "displayRight",
	DirectionDisplayLeft:  "displayLeft",
	DirectionDisplayUp:    "displayUp",
	DirectionDisplayDown:  "displayDown",
}

// String returns the string representation of the direction.
func (d AxisDirection) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "unknown"
}

// ParseAxisDirection parses a direction name, ignoring case.
func ParseAxisDirection(s string) (AxisDirection, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for d, name := range directionNames {
		if strings.ToLower(name) == want {
			return d, nil
		}
	}
	return DirectionOther, &ValidationError{
		Field:      "direction",
		Value:      s,
		Constraint: "known axis direction",
		Message:    "unknown axis direction",
	}
}

// Opposite returns the reverse direction, or d itself when it has none.
func (d AxisDirection) Opposite() AxisDirection {
	switch d {
	case DirectionNorth:
		return DirectionSouth
	case DirectionSouth:
		return DirectionNorth
	case DirectionEast:
		return DirectionWest
	case DirectionWest:
		return DirectionEast
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	case DirectionFuture:
		return DirectionPast
	case DirectionPast:
		return DirectionFuture
	case DirectionDisplayRight:
		return DirectionDisplayLeft
	case DirectionDisplayLeft:
		return DirectionDisplayRight
	case DirectionDisplayUp:
		return DirectionDisplayDown
	case DirectionDisplayDown:
		return DirectionDisplayUp
	default:
		return d
	}
}

// Absolute returns the positive direction of the pair d belongs to
// (North, East, Up, Future, DisplayRight, DisplayUp).
func (d AxisDirection) Absolute() AxisDirection {
	switch d {
	case DirectionSouth, DirectionWest, DirectionDown, DirectionPast, DirectionDisplayLeft, DirectionDisplayDown:
		return d.Opposite()
	default:
		return d
	}
}

// IsReversed reports whether d points against its absolute direction.
func (d AxisDirection) IsReversed() bool {
	return d != d.Absolute()
}

// Axis is one axis of a coordinate system.
type Axis struct {
	Name         string
	Abbreviation string
	Direction    AxisDirection
	Unit         Unit
}

// String returns a short representation such as "Lat(north, degree)".
func (a Axis) String() string {
	label := a.Abbreviation
	if label == "" {
		label = a.Name
	}
	return fmt.Sprintf("%s(%s, %s)", label, a.Direction, a.Unit.Name)
}

// Common axes.
var (
	AxisGeodeticLongitude = Axis{Name: "Geodetic longitude", Abbreviation: "Lon", Direction: DirectionEast, Unit: Degree}
	AxisGeodeticLatitude  = Axis{Name: "Geodetic latitude", Abbreviation: "Lat", Direction: DirectionNorth, Unit: Degree}
	AxisEllipsoidalHeight = Axis{Name: "Ellipsoidal height", Abbreviation: "h", Direction: DirectionUp, Unit: Metre}
	AxisGravityHeight     = Axis{Name: "Gravity-related height", Abbreviation: "H", Direction: DirectionUp, Unit: Metre}
	AxisEasting           = Axis{Name: "Easting", Abbreviation: "E", Direction: DirectionEast, Unit: Metre}
	AxisNorthing          = Axis{Name: "Northing", Abbreviation: "N", Direction: DirectionNorth, Unit: Metre}
	AxisGeocentricX       = Axis{Name: "Geocentric X", Abbreviation: "X", Direction: DirectionGeocentricX, Unit: Metre}
	AxisGeocentricY       = Axis{Name: "Geocentric Y", Abbreviation: "Y", Direction: DirectionGeocentricY, Unit: Metre}
	AxisGeocentricZ       = Axis{Name: "Geocentric Z", Abbreviation: "Z", Direction: DirectionGeocentricZ, Unit: Metre}
	AxisTime              = Axis{Name: "Time", Abbreviation: "t", Direction: DirectionFuture, Unit: Day}
	AxisGenericX          = Axis{Name: "x", Abbreviation: "x", Direction: DirectionEast, Unit: Metre}
	AxisGenericY          = Axis{Name: "y", Abbreviation: "y", Direction: DirectionNorth, Unit: Metre}
	AxisGenericZ          = Axis{Name: "z", Abbreviation: "z", Direction: DirectionUp, Unit: Metre}
)

// CSType classifies a coordinate system.
type CSType int

// Coordinate system types.
const (
	CSEllipsoidal CSType = iota + 1
	CSCartesian
	CSVertical
	CSTemporal
	CSCompound
)

// String returns the string representation of the coordinate system type.
func (t CSType) String() string {
	switch t {
	case CSEllipsoidal:
		return "ellipsoidal"
	case CSCartesian:
		return "cartesian"
	case CSVertical:
		return "vertical"
	case CSTemporal:
		return "temporal"
	case CSCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// CoordinateSystem is an ordered list of axes. It is immutable once constructed.
type CoordinateSystem struct {
	typ  CSType
	axes []Axis
}

// NewCoordinateSystem builds a coordinate system. Duplicate or colinear axis directions
// are rejected.
func NewCoordinateSystem(typ CSType, axes ...Axis) (CoordinateSystem, error) {
	if len(axes) == 0 {
		return CoordinateSystem{}, &ValidationError{
			Field:      "axes",
			Value:      0,
			Constraint: ">= 1",
			Message:    "coordinate system needs at least one axis",
		}
	}

	for i, a := range axes {
		if err := a.Unit.Validate(); err != nil {
			return CoordinateSystem{}, fmt.Errorf("axis %d (%s): %w", i, a.Name, err)
		}
		if a.Direction == DirectionOther {
			continue
		}
		for j := 0; j < i; j++ {
			if axes[j].Direction.Absolute() == a.Direction.Absolute() {
				return CoordinateSystem{}, &ValidationError{
					Field:      "axes",
					Value:      fmt.Sprintf("%s, %s", axes[j].Direction, a.Direction),
					Constraint: "non-colinear directions",
					Message:    "colinear axes in coordinate system",
				}
			}
		}
	}

	cp := make([]Axis, len(axes))
	copy(cp, axes)
	return CoordinateSystem{typ: typ, axes: cp}, nil
}

// MustCoordinateSystem is like NewCoordinateSystem but panics on error. It is meant for
// package-level definitions.
func MustCoordinateSystem(typ CSType, axes ...Axis) CoordinateSystem {
	cs, err := NewCoordinateSystem(typ, axes...)
	if err != nil {
		panic(err)
	}
	return cs
}

// Type returns the coordinate system type.
func (cs CoordinateSystem) Type() CSType {
	return cs.typ
}

// Dimension returns the number of axes.
func (cs CoordinateSystem) Dimension() int {
	return len(cs.axes)
}

// Axis returns the axis at index i.
func (cs CoordinateSystem) Axis(i int) Axis {
	return cs.axes[i]
}

// Axes returns a copy of the axes.
func (cs CoordinateSystem) Axes() []Axis {
	cp := make([]Axis, len(cs.axes))
	copy(cp, cs.axes)
	return cp
}

// IndexOf returns the index of the axis colinear with dir, or -1.
func (cs CoordinateSystem) IndexOf(dir AxisDirection) int {
	for i, a := range cs.axes {
		if a.Direction.Absolute() == dir.Absolute() {
			return i
		}
	}
	return -1
}

// key returns a structural key ignoring axis names.
func (cs CoordinateSystem) key() string {
	var b strings.Builder
	b.WriteString(cs.typ.String())
	b.WriteByte('(')
	for i, a := range cs.axes {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%s", a.Direction, formatFloat(a.Unit.ToBase))
	}
	b.WriteByte(')')
	return b.String()
}

// Standard coordinate systems used as the canonical form between operation steps.
var (
	StandardEllipsoidal2D = MustCoordinateSystem(CSEllipsoidal, AxisGeodeticLongitude, AxisGeodeticLatitude)
	StandardEllipsoidal3D = MustCoordinateSystem(CSEllipsoidal, AxisGeodeticLongitude, AxisGeodeticLatitude, AxisEllipsoidalHeight)
	StandardProjected     = MustCoordinateSystem(CSCartesian, AxisEasting, AxisNorthing)
	StandardGeocentric    = MustCoordinateSystem(CSCartesian, AxisGeocentricX, AxisGeocentricY, AxisGeocentricZ)
	StandardVertical      = MustCoordinateSystem(CSVertical, AxisEllipsoidalHeight)
)
