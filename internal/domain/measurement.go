package domain

import "strings"

// MeasurementUnit identifies the unit a customer entered a dimension in.
// Centimetres are the canonical unit; every stored dimension is converted
// through ToCentimeters before it participates in pricing.
type MeasurementUnit string

const (
	UnitMillimeters MeasurementUnit = "mm"
	UnitCentimeters MeasurementUnit = "cm"
	UnitInches      MeasurementUnit = "in"
)

// DefaultMeasurementUnit is the fallback for absent or unrecognised unit tokens.
const DefaultMeasurementUnit = UnitCentimeters

const centimetersPerInch = 2.54

// ParseMeasurementUnit resolves a submitted unit token. Unrecognised tokens
// fall back to centimetres with ok=false; callers never treat a bad unit as
// an error.
func ParseMeasurementUnit(value string) (MeasurementUnit, bool) {
	switch MeasurementUnit(strings.ToLower(strings.TrimSpace(value))) {
	case UnitMillimeters:
		return UnitMillimeters, true
	case UnitCentimeters:
		return UnitCentimeters, true
	case UnitInches:
		return UnitInches, true
	}
	return DefaultMeasurementUnit, false
}

// ToCentimeters converts a value in this unit to centimetres.
func (u MeasurementUnit) ToCentimeters(value float64) float64 {
	switch u {
	case UnitMillimeters:
		return value / 10
	case UnitInches:
		return value * centimetersPerInch
	default:
		return value
	}
}

// FromCentimeters converts a canonical centimetre value back to this unit.
func (u MeasurementUnit) FromCentimeters(value float64) float64 {
	switch u {
	case UnitMillimeters:
		return value * 10
	case UnitInches:
		return value / centimetersPerInch
	default:
		return value
	}
}

// ToMeters converts a value in this unit to metres.
func (u MeasurementUnit) ToMeters(value float64) float64 {
	switch u {
	case UnitMillimeters:
		return value / 1000
	case UnitInches:
		return (value * centimetersPerInch) / 100
	default:
		return value / 100
	}
}

// Label returns the human readable name with abbreviation.
func (u MeasurementUnit) Label() string {
	switch u {
	case UnitMillimeters:
		return "Millimeters (mm)"
	case UnitInches:
		return "Inches (in)"
	default:
		return "Centimeters (cm)"
	}
}

// Step returns the increment clients should use for numeric inputs in this unit.
func (u MeasurementUnit) Step() string {
	switch u {
	case UnitMillimeters:
		return "1"
	case UnitInches:
		return "0.25"
	default:
		return "0.1"
	}
}

// Placeholder returns the 100cm reference dimension expressed in this unit,
// used as the input placeholder on the estimator widget.
func (u MeasurementUnit) Placeholder() string {
	switch u {
	case UnitMillimeters:
		return "1000"
	case UnitInches:
		return "39.4"
	default:
		return "100"
	}
}

// MeasurementUnitChoice describes a selectable unit for the estimator widget.
type MeasurementUnitChoice struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Step        string `json:"step"`
	Placeholder string `json:"placeholder"`
	Selected    bool   `json:"selected"`
}

// MeasurementUnitChoices lists the supported units with the default preselected.
func MeasurementUnitChoices() []MeasurementUnitChoice {
	units := []MeasurementUnit{UnitMillimeters, UnitCentimeters, UnitInches}
	choices := make([]MeasurementUnitChoice, 0, len(units))
	for _, u := range units {
		choices = append(choices, MeasurementUnitChoice{
			Value:       string(u),
			Label:       u.Label(),
			Step:        u.Step(),
			Placeholder: u.Placeholder(),
			Selected:    u == DefaultMeasurementUnit,
		})
	}
	return choices
}
