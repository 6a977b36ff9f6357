package domain

import (
	"fmt"
	"math"
	"strings"
)

// ProjectionMethod names a supported map projection.
type ProjectionMethod string

// Supported projection methods.
const (
	TransverseMercator       ProjectionMethod = "Transverse_Mercator"
	Mercator1SP              ProjectionMethod = "Mercator_1SP"
	Mercator2SP              ProjectionMethod = "Mercator_2SP"
	LambertConformalConic1SP ProjectionMethod = "Lambert_Conformal_Conic_1SP"
	LambertConformalConic2SP ProjectionMethod = "Lambert_Conformal_Conic_2SP"
)

var projectionAliases = map[string]ProjectionMethod{
	"transversemercator":       TransverseMercator,
	"tmerc":                    TransverseMercator,
	"gausskruger":              TransverseMercator,
	"mercator":                 Mercator1SP,
	"mercator1sp":              Mercator1SP,
	"merc":                     Mercator1SP,
	"mercator2sp":              Mercator2SP,
	"lambertconformalconic1sp": LambertConformalConic1SP,
	"lambertconformalconic2sp": LambertConformalConic2SP,
	"lambertconformalconic":    LambertConformalConic2SP,
	"lcc":                      LambertConformalConic2SP,
}

// ParseProjectionMethod parses a method name, accepting common aliases such as "tmerc"
// and "lcc". Case, spaces, dashes and underscores are ignored.
func ParseProjectionMethod(s string) (ProjectionMethod, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if m, ok := projectionAliases[b.String()]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedProjection)
}

// ProjectionParameters holds the parameters of a map projection. Angles are in
// degrees, distances in metres.
type ProjectionParameters struct {
	CentralMeridian   float64 `yaml:"central_meridian" json:"central_meridian"`
	LatitudeOfOrigin  float64 `yaml:"latitude_of_origin" json:"latitude_of_origin"`
	StandardParallel1 float64 `yaml:"standard_parallel_1" json:"standard_parallel_1"`
	StandardParallel2 float64 `yaml:"standard_parallel_2" json:"standard_parallel_2"`
	ScaleFactor       float64 `yaml:"scale_factor" json:"scale_factor"`
	FalseEasting      float64 `yaml:"false_easting" json:"false_easting"`
	FalseNorthing     float64 `yaml:"false_northing" json:"false_northing"`
}

// Conversion defines how a projected CRS is derived from its base geographic CRS.
type Conversion struct {
	Name       string
	Method     ProjectionMethod
	Parameters ProjectionParameters
}

// Validate checks the parameter ranges required by the method.
func (c Conversion) Validate() error {
	p := c.Parameters
	switch c.Method {
	case TransverseMercator, Mercator1SP, LambertConformalConic1SP:
		if !(p.ScaleFactor > 0) {
			return &ValidationError{Field: "scale_factor", Value: p.ScaleFactor, Constraint: "> 0", Message: "scale factor must be positive"}
		}
	case Mercator2SP:
		if math.Abs(p.StandardParallel1) >= 90 {
			return &ValidationError{Field: "standard_parallel_1", Value: p.StandardParallel1, Constraint: "(-90, 90)", Message: "standard parallel must not be a pole"}
		}
	case LambertConformalConic2SP:
		if math.Abs(p.StandardParallel1) >= 90 || math.Abs(p.StandardParallel2) >= 90 {
			return &ValidationError{Field: "standard_parallel", Value: p.StandardParallel1, Constraint: "(-90, 90)", Message: "standard parallels must not be poles"}
		}
		if p.StandardParallel1 == -p.StandardParallel2 {
			return &ValidationError{Field: "standard_parallel", Value: p.StandardParallel1, Constraint: "not symmetric about the equator", Message: "cone constant would be zero"}
		}
	default:
		return fmt.Errorf("%q: %w", c.Method, ErrUnsupportedProjection)
	}
	if math.Abs(p.LatitudeOfOrigin) > 90 {
		return &ValidationError{Field: "latitude_of_origin", Value: p.LatitudeOfOrigin, Constraint: "[-90, 90]", Message: "latitude of origin out of range"}
	}
	if c.Method == LambertConformalConic1SP && math.Abs(p.LatitudeOfOrigin) >= 90 {
		return &ValidationError{Field: "latitude_of_origin", Value: p.LatitudeOfOrigin, Constraint: "(-90, 90)", Message: "cone cannot touch a pole"}
	}
	return nil
}

func (c Conversion) key() string {
	p := c.Parameters
	return fmt.Sprintf("%s(%s,%s,%s,%s,%s,%s,%s)", c.Method,
		formatFloat(p.CentralMeridian), formatFloat(p.LatitudeOfOrigin),
		formatFloat(p.StandardParallel1), formatFloat(p.StandardParallel2),
		formatFloat(p.ScaleFactor), formatFloat(p.FalseEasting), formatFloat(p.FalseNorthing))
}
