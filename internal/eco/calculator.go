// Package eco estimates the environmental savings of a shared trip versus a
// private car journey of the same distance.
package eco

import (
	"math"

	"github.com/swiftride/dispatch/pkg/common"
)

const (
	// averageEfficiencyKmPerL is the assumed fuel efficiency of the
	// displaced private car.
	averageEfficiencyKmPerL = 15.0

	// emissionFactorKgPerL is kilograms of CO2 per litre of petrol burned.
	emissionFactorKgPerL = 2.31

	// annualCO2PerTreeKg is kilograms of CO2 a mature tree absorbs per year.
	annualCO2PerTreeKg = 21.77
)

// Impact is the savings estimate for one trip. TreesEquivalent is a
// continuous ratio; riders accumulate fractions of a tree across rides.
type Impact struct {
	CO2SavedKg      float64 `json:"co2_saved_kg"`
	FuelSavedL      float64 `json:"fuel_saved_l"`
	TreesEquivalent float64 `json:"trees_equivalent"`
}

// ForDistance computes the savings estimate for a trip of the given length.
func ForDistance(distanceKm float64) (*Impact, error) {
	if distanceKm < 0 {
		return nil, common.NewInvalidInputError("distance cannot be negative")
	}

	fuelSaved := distanceKm / averageEfficiencyKmPerL
	co2Saved := fuelSaved * emissionFactorKgPerL

	return &Impact{
		CO2SavedKg:      round2(co2Saved),
		FuelSavedL:      round2(fuelSaved),
		TreesEquivalent: co2Saved / annualCO2PerTreeKg,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
