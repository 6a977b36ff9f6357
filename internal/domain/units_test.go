package domain

import (
	"errors"
	"math"
	"testing"
)

func TestLookupUnit(t *testing.T) {
	tests := []struct {
		name    string
		want    Unit
		wantErr bool
	}{
		{"metre", Metre, false},
		{"Meter", Metre, false},
		{"ft", Foot, false},
		{"US survey foot", USSurveyFoot, false},
		{"gon", Grad, false},
		{"furlong", Unit{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LookupUnit(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupUnit(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("LookupUnit(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestUnitConversionFactor(t *testing.T) {
	tests := []struct {
		name    string
		from    Unit
		to      Unit
		want    float64
		wantErr bool
	}{
		{"same unit", Metre, Metre, 1, false},
		{"kilometre to metre", Kilometre, Metre, 1000, false},
		{"metre to foot", Metre, Foot, 1 / 0.3048, false},
		{"grad to degree", Grad, Degree, 0.9, false},
		{"day to second", Day, Second, 86400, false},
		{"metre to degree", Metre, Degree, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.ConversionFactor(tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ConversionFactor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("error should wrap ErrInvalidInput, got %v", err)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-12*tt.want {
				t.Errorf("ConversionFactor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnitValidate(t *testing.T) {
	tests := []struct {
		name    string
		unit    Unit
		wantErr bool
	}{
		{"metre", Metre, false},
		{"no kind", Unit{Name: "x", ToBase: 1}, true},
		{"zero factor", Unit{Name: "x", Kind: UnitKindLinear}, true},
		{"negative factor", Unit{Name: "x", Kind: UnitKindLinear, ToBase: -1}, true},
		{"infinite factor", Unit{Name: "x", Kind: UnitKindLinear, ToBase: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.unit.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
