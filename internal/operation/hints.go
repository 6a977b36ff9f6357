package operation

import (
	"fmt"
	"strings"

	"github.com/jobrunner/refsys/internal/domain"
)

// DatumShiftMethod selects how a translation-only datum shift between geographic CRSs
// is computed.
type DatumShiftMethod string

// Datum shift methods.
const (
	MethodMolodenski         DatumShiftMethod = "molodenski"
	MethodAbridgedMolodenski DatumShiftMethod = "abridged_molodenski"
	MethodGeocentric         DatumShiftMethod = "geocentric"
)

// ParseDatumShiftMethod parses a method name. The empty string selects Molodenski.
func ParseDatumShiftMethod(s string) (DatumShiftMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "molodenski":
		return MethodMolodenski, nil
	case "abridged_molodenski", "abridged-molodenski", "abridgedmolodenski":
		return MethodAbridgedMolodenski, nil
	case "geocentric", "geocentric_translation":
		return MethodGeocentric, nil
	default:
		return "", &domain.ValidationError{
			Field:      "datum_shift_method",
			Value:      s,
			Constraint: "molodenski, abridged_molodenski or geocentric",
			Message:    "unknown datum shift method",
		}
	}
}

// Hints configure a Factory. Two factories built from equal hints behave identically.
type Hints struct {
	// LenientDatumShift substitutes an identity datum shift when no Bursa-Wolf
	// parameters relate two datums. The operation is then tagged DatumShiftOmitted.
	LenientDatumShift bool
	DatumShiftMethod  DatumShiftMethod

	// The following rewrite CRSs looked up by code.
	ForceLongitudeFirstAxisOrder bool
	ForceStandardAxisDirections  bool
	ForceStandardAxisUnits       bool
}

func (h Hints) normalized() Hints {
	if h.DatumShiftMethod == "" {
		h.DatumShiftMethod = MethodMolodenski
	}
	return h
}

// Key identifies the hint set.
func (h Hints) Key() string {
	h = h.normalized()
	return fmt.Sprintf("lenient=%t;method=%s;lonfirst=%t;directions=%t;units=%t",
		h.LenientDatumShift, h.DatumShiftMethod,
		h.ForceLongitudeFirstAxisOrder, h.ForceStandardAxisDirections, h.ForceStandardAxisUnits)
}

func (h Hints) rewritesAxes() bool {
	return h.ForceLongitudeFirstAxisOrder || h.ForceStandardAxisDirections || h.ForceStandardAxisUnits
}

// Apply rewrites the axes of c according to the Force* hints. c is returned unchanged
// when no hint applies.
func (h Hints) Apply(c domain.CRS) (domain.CRS, error) {
	if !h.rewritesAxes() {
		return c, nil
	}

	switch v := c.(type) {
	case *domain.CompoundCRS:
		changed := false
		components := make([]domain.CRS, 0, len(v.Components()))
		for _, s := range v.Components() {
			r, err := h.Apply(s)
			if err != nil {
				return nil, err
			}
			changed = changed || r != domain.CRS(s)
			components = append(components, r)
		}
		if !changed {
			return c, nil
		}
		compound, err := domain.NewCompoundCRS(v.Name(), components...)
		if err != nil {
			return nil, err
		}
		return compound, nil

	case domain.SingleCRS:
		cs := v.CoordinateSystem()
		axes, changed := h.rewriteAxes(cs.Axes(), v.Kind())
		if !changed {
			return c, nil
		}
		rewritten, err := domain.NewCoordinateSystem(cs.Type(), axes...)
		if err != nil {
			return nil, fmt.Errorf("rewrite axes of %s: %w", v.Name(), err)
		}
		return withCoordinateSystem(v, rewritten)
	}

	return c, nil
}

func (h Hints) rewriteAxes(axes []domain.Axis, kind domain.CRSKind) ([]domain.Axis, bool) {
	out := make([]domain.Axis, len(axes))
	copy(out, axes)
	changed := false

	for i, a := range out {
		if h.ForceStandardAxisDirections && a.Direction.IsReversed() {
			out[i].Direction = a.Direction.Absolute()
			changed = true
		}
		if h.ForceStandardAxisUnits && kind != domain.KindTemporal {
			switch {
			case a.Unit.Kind == domain.UnitKindAngular && !a.Unit.Equal(domain.Degree):
				out[i].Unit = domain.Degree
				changed = true
			case a.Unit.Kind == domain.UnitKindLinear && !a.Unit.Equal(domain.Metre):
				out[i].Unit = domain.Metre
				changed = true
			}
		}
	}

	if h.ForceLongitudeFirstAxisOrder && kind == domain.KindGeographic {
		lon := indexOf(out, domain.DirectionEast)
		lat := indexOf(out, domain.DirectionNorth)
		if lon > lat && lat >= 0 {
			out[lon], out[lat] = out[lat], out[lon]
			changed = true
		}
	}

	return out, changed
}

func indexOf(axes []domain.Axis, dir domain.AxisDirection) int {
	for i, a := range axes {
		if a.Direction.Absolute() == dir.Absolute() {
			return i
		}
	}
	return -1
}

func withCoordinateSystem(c domain.SingleCRS, cs domain.CoordinateSystem) (domain.CRS, error) {
	var (
		out domain.CRS
		err error
	)
	switch v := c.(type) {
	case *domain.GeographicCRS:
		out, err = domain.NewGeographicCRS(v.Name(), v.GeodeticDatum(), cs)
	case *domain.GeocentricCRS:
		out, err = domain.NewGeocentricCRS(v.Name(), v.GeodeticDatum(), cs)
	case *domain.ProjectedCRS:
		out, err = domain.NewProjectedCRS(v.Name(), v.Base(), v.Conversion(), cs)
	case *domain.VerticalCRS:
		out, err = domain.NewVerticalCRS(v.Name(), v.VerticalDatum(), cs)
	case *domain.TemporalCRS:
		out, err = domain.NewTemporalCRS(v.Name(), v.TemporalDatum(), cs)
	case *domain.EngineeringCRS:
		out, err = domain.NewEngineeringCRS(v.Name(), v.EngineeringDatum(), cs)
	default:
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rewrite axes of %s: %w", c.Name(), err)
	}
	return out, nil
}
