package domain

import (
	"errors"
	"testing"
)

func TestParseCode(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"4326", "EPSG:4326", false},
		{"epsg:4326", "EPSG:4326", false},
		{"EPSG::4326", "EPSG:4326", false},
		{"urn:ogc:def:crs:EPSG::4326", "EPSG:4326", false},
		{"urn:ogc:def:crs:EPSG:9.8:25832", "EPSG:25832", false},
		{" EPSG:04326 ", "EPSG:4326", false},
		{"refsys:Generic2D", "REFSYS:Generic2D", false},
		{"", "", true},
		{"EPSG:", "", true},
		{"EPSG:abc", "", true},
		{"EPSG:-1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCode) {
				t.Errorf("ParseCode(%q) error should wrap ErrInvalidCode", tt.input)
			}
			if got != tt.want {
				t.Errorf("ParseCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseProjectionMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    ProjectionMethod
		wantErr bool
	}{
		{"Transverse_Mercator", TransverseMercator, false},
		{"tmerc", TransverseMercator, false},
		{"Mercator (1SP)", Mercator1SP, false},
		{"Mercator_2SP", Mercator2SP, false},
		{"Lambert Conformal Conic (1SP)", LambertConformalConic1SP, false},
		{"lcc", LambertConformalConic2SP, false},
		{"Polyconic", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProjectionMethod(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProjectionMethod(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupported) {
				t.Errorf("error should wrap ErrUnsupported, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseProjectionMethod(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAccuracyPositionalError(t *testing.T) {
	if DatumShiftOmitted.PositionalError() <= DatumShiftApplied.PositionalError() {
		t.Error("an omitted datum shift should be less accurate than an applied one")
	}
}
