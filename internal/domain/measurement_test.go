package domain

import (
	"math"
	"testing"
)

func TestParseMeasurementUnit(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  MeasurementUnit
		ok    bool
	}{
		{name: "millimetres", input: "mm", want: UnitMillimeters, ok: true},
		{name: "centimetres", input: "cm", want: UnitCentimeters, ok: true},
		{name: "inches", input: "in", want: UnitInches, ok: true},
		{name: "uppercase", input: "MM", want: UnitMillimeters, ok: true},
		{name: "padded", input: "  cm  ", want: UnitCentimeters, ok: true},
		{name: "empty falls back", input: "", want: UnitCentimeters, ok: false},
		{name: "unknown falls back", input: "yards", want: UnitCentimeters, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseMeasurementUnit(tc.input)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("ParseMeasurementUnit(%q) = (%s, %v), want (%s, %v)", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestMeasurementUnit_ToCentimeters(t *testing.T) {
	cases := []struct {
		name  string
		unit  MeasurementUnit
		value float64
		want  float64
	}{
		{name: "mm divides by ten", unit: UnitMillimeters, value: 1200, want: 120},
		{name: "cm identity", unit: UnitCentimeters, value: 120, want: 120},
		{name: "inches multiply by 2.54", unit: UnitInches, value: 48, want: 121.92},
		{name: "unknown treated as cm", unit: MeasurementUnit("furlong"), value: 50, want: 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.unit.ToCentimeters(tc.value)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("ToCentimeters(%v) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestMeasurementUnit_RoundTrip(t *testing.T) {
	for _, unit := range []MeasurementUnit{UnitMillimeters, UnitCentimeters, UnitInches} {
		value := 137.5
		cm := unit.ToCentimeters(value)
		back := unit.FromCentimeters(cm)
		if math.Abs(back-value) > 1e-9 {
			t.Fatalf("%s round trip: %v -> %v -> %v", unit, value, cm, back)
		}
	}
}

func TestMeasurementUnit_ToMeters(t *testing.T) {
	if got := UnitMillimeters.ToMeters(1500); math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("mm ToMeters = %v, want 1.5", got)
	}
	if got := UnitCentimeters.ToMeters(150); math.Abs(got-1.5) > 1e-9 {
		t.Fatalf("cm ToMeters = %v, want 1.5", got)
	}
	if got := UnitInches.ToMeters(100); math.Abs(got-2.54) > 1e-9 {
		t.Fatalf("in ToMeters = %v, want 2.54", got)
	}
}

func TestMeasurementUnitChoices(t *testing.T) {
	choices := MeasurementUnitChoices()
	if len(choices) != 3 {
		t.Fatalf("expected 3 choices, got %d", len(choices))
	}

	selected := 0
	for _, choice := range choices {
		if choice.Selected {
			selected++
			if choice.Value != string(UnitCentimeters) {
				t.Fatalf("expected centimetres preselected, got %s", choice.Value)
			}
		}
		if choice.Label == "" || choice.Step == "" || choice.Placeholder == "" {
			t.Fatalf("choice %s missing display fields", choice.Value)
		}
	}
	if selected != 1 {
		t.Fatalf("expected exactly one selected choice, got %d", selected)
	}
}
