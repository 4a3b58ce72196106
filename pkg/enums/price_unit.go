package enums

import (
	"fmt"
	"strings"
)

// PriceUnit is the billing unit a price list row is expressed in.
type PriceUnit string

const (
	PriceUnitTon        PriceUnit = "TON"
	PriceUnitCubicMeter PriceUnit = "M3"
	PriceUnitTrip       PriceUnit = "TRIP"
	PriceUnitKilometer  PriceUnit = "KM"
)

var validPriceUnits = []PriceUnit{
	PriceUnitTon,
	PriceUnitCubicMeter,
	PriceUnitTrip,
	PriceUnitKilometer,
}

// String implements fmt.Stringer.
func (p PriceUnit) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PriceUnit.
func (p PriceUnit) IsValid() bool {
	for _, candidate := range validPriceUnits {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceUnit converts raw input into a PriceUnit.
func ParsePriceUnit(value string) (PriceUnit, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPriceUnits {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price unit %q", value)
}
