// Package registry holds the explicit CRS registry: definitions keyed by authority
// code, decoded from YAML and built into domain objects.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// CRS kinds accepted in definitions.
const (
	KindGeographic  = "geographic"
	KindGeocentric  = "geocentric"
	KindProjected   = "projected"
	KindVertical    = "vertical"
	KindTemporal    = "temporal"
	KindEngineering = "engineering"
	KindCompound    = "compound"
	KindGeneric     = "generic"
)

// Document is the top-level structure of a definitions file.
type Document struct {
	CRS []Definition `yaml:"crs" json:"crs"`
}

// Definition describes one CRS. Which fields apply depends on Kind.
type Definition struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`

	Datum *DatumDefinition `yaml:"datum,omitempty" json:"datum,omitempty"`
	Axes  []AxisDefinition `yaml:"axes,omitempty" json:"axes,omitempty"`

	// Projected CRS
	Base       string                `yaml:"base,omitempty" json:"base,omitempty"`
	Projection *ProjectionDefinition `yaml:"projection,omitempty" json:"projection,omitempty"`

	// Compound CRS
	Components []string `yaml:"components,omitempty" json:"components,omitempty"`

	// Generic CRS
	Dimension int `yaml:"dimension,omitempty" json:"dimension,omitempty"`
}

// DatumDefinition describes a datum. Geodetic datums need an ellipsoid, vertical
// datums a type and temporal datums an origin.
type DatumDefinition struct {
	Name          string                `yaml:"name" json:"name"`
	Ellipsoid     *EllipsoidDefinition  `yaml:"ellipsoid,omitempty" json:"ellipsoid,omitempty"`
	PrimeMeridian *MeridianDefinition   `yaml:"prime_meridian,omitempty" json:"prime_meridian,omitempty"`
	ToWGS84       []any                 `yaml:"towgs84,omitempty" json:"towgs84,omitempty"`
	BursaWolf     []BursaWolfDefinition `yaml:"bursa_wolf,omitempty" json:"bursa_wolf,omitempty"`
	Type          string                `yaml:"type,omitempty" json:"type,omitempty"`
	Origin        any                   `yaml:"origin,omitempty" json:"origin,omitempty"`
}

// EllipsoidDefinition is either the name of a well-known ellipsoid or explicit
// parameters.
type EllipsoidDefinition struct {
	Name              string `yaml:"name" json:"name"`
	SemiMajorAxis     any    `yaml:"semi_major_axis,omitempty" json:"semi_major_axis,omitempty"`
	InverseFlattening any    `yaml:"inverse_flattening,omitempty" json:"inverse_flattening,omitempty"`
}

// UnmarshalYAML accepts a plain name as shorthand.
func (e *EllipsoidDefinition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Name = node.Value
		return nil
	}
	type plain EllipsoidDefinition
	return node.Decode((*plain)(e))
}

// MeridianDefinition is either the name of a well-known prime meridian or an explicit
// Greenwich longitude.
type MeridianDefinition struct {
	Name      string `yaml:"name" json:"name"`
	Longitude any    `yaml:"longitude,omitempty" json:"longitude,omitempty"`
	Unit      string `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// UnmarshalYAML accepts a plain name as shorthand.
func (m *MeridianDefinition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Name = node.Value
		return nil
	}
	type plain MeridianDefinition
	return node.Decode((*plain)(m))
}

// BursaWolfDefinition holds 3 or 7 shift parameters towards Target.
type BursaWolfDefinition struct {
	Target     string `yaml:"target" json:"target"`
	Parameters []any  `yaml:"parameters" json:"parameters"`
}

// AxisDefinition is either a well-known axis abbreviation ("lat", "E", "h", ...) or an
// explicit axis.
type AxisDefinition struct {
	Ref          string `yaml:"-" json:"ref,omitempty"`
	Name         string `yaml:"name" json:"name,omitempty"`
	Abbreviation string `yaml:"abbreviation,omitempty" json:"abbreviation,omitempty"`
	Direction    string `yaml:"direction" json:"direction,omitempty"`
	Unit         string `yaml:"unit" json:"unit,omitempty"`
}

// UnmarshalYAML accepts a well-known abbreviation as shorthand.
func (a *AxisDefinition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Ref = node.Value
		return nil
	}
	type plain AxisDefinition
	return node.Decode((*plain)(a))
}

// MarshalYAML writes shorthand axes back as their abbreviation.
func (a AxisDefinition) MarshalYAML() (any, error) {
	if a.Ref != "" {
		return a.Ref, nil
	}
	type plain AxisDefinition
	return plain(a), nil
}

// ProjectionDefinition names the projection method and its parameters. Parameter
// values may be numbers or numeric strings.
type ProjectionDefinition struct {
	Name       string         `yaml:"name,omitempty" json:"name,omitempty"`
	Method     string         `yaml:"method" json:"method"`
	Parameters map[string]any `yaml:"parameters" json:"parameters"`
}

// Parse decodes a YAML definitions document. Unknown fields are rejected.
func Parse(data []byte) ([]Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing definitions: %w", err)
	}
	return doc.CRS, nil
}

// ParseDefinition decodes a single YAML or JSON definition. Unknown fields are
// rejected.
func ParseDefinition(data []byte) (Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("parsing definition: %w", err)
	}
	return def, nil
}

// MarshalDefinition encodes a single definition as YAML.
func MarshalDefinition(def Definition) ([]byte, error) {
	return yaml.Marshal(def)
}

// LoadFile reads and parses a YAML definitions file.
func LoadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definitions %s: %w", path, err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Marshal encodes definitions as a YAML document.
func Marshal(defs []Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Document{CRS: defs}); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
