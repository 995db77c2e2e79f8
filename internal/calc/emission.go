// Package calc holds the fixed-factor carbon calculators.
package calc

import (
	"math"

	"minecarbon/internal/apperr"
)

// Emission factors in tCO2e per unit of activity.
const (
	CoalFactor        = 2.42 // per tonne of coal produced
	ElectricityFactor = 0.82 // per MWh
	FuelFactor        = 2.68 // per kilolitre of diesel
	MethaneGWP        = 25   // 100-year GWP of CH4
)

type EmissionInput struct {
	CoalProduction   float64 `json:"coalProduction"`
	ElectricityUsage float64 `json:"electricityUsage"`
	FuelConsumption  float64 `json:"fuelConsumption"`
	MethaneEmissions float64 `json:"methaneEmissions"`
	EmployeeCount    float64 `json:"employeeCount,omitempty"`
}

type EmissionBreakdown struct {
	CoalProduction   float64 `json:"coalProduction"`
	ElectricityUsage float64 `json:"electricityUsage"`
	FuelConsumption  float64 `json:"fuelConsumption"`
	MethaneEmissions float64 `json:"methaneEmissions"`
}

type EmissionResult struct {
	TotalEmissions       float64           `json:"totalEmissions"`
	Breakdown            EmissionBreakdown `json:"breakdown"`
	EmissionsPerEmployee *float64          `json:"emissionsPerEmployee,omitempty"`
}

// Emissions converts activity data to tCO2e.
func Emissions(in EmissionInput) (EmissionResult, error) {
	fields := []struct {
		name string
		v    float64
	}{
		{"coalProduction", in.CoalProduction},
		{"electricityUsage", in.ElectricityUsage},
		{"fuelConsumption", in.FuelConsumption},
		{"methaneEmissions", in.MethaneEmissions},
		{"employeeCount", in.EmployeeCount},
	}
	for _, f := range fields {
		if err := nonNegative(f.name, f.v); err != nil {
			return EmissionResult{}, err
		}
	}

	b := EmissionBreakdown{
		CoalProduction:   in.CoalProduction * CoalFactor,
		ElectricityUsage: in.ElectricityUsage * ElectricityFactor,
		FuelConsumption:  in.FuelConsumption * FuelFactor,
		MethaneEmissions: in.MethaneEmissions * MethaneGWP,
	}
	res := EmissionResult{
		TotalEmissions: b.CoalProduction + b.ElectricityUsage + b.FuelConsumption + b.MethaneEmissions,
		Breakdown:      b,
	}
	if err := inRange("totalEmissions", res.TotalEmissions); err != nil {
		return EmissionResult{}, err
	}
	if in.EmployeeCount > 0 {
		per := res.TotalEmissions / in.EmployeeCount
		if err := inRange("emissionsPerEmployee", per); err != nil {
			return EmissionResult{}, err
		}
		res.EmissionsPerEmployee = &per
	}
	return res, nil
}

// Matches reports whether a caller-supplied figure agrees with the computed one.
func Matches(supplied, computed float64) bool {
	return math.Abs(supplied-computed) <= 1e-6*math.Max(1, math.Abs(computed))
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperr.Validationf("%s must be a number", name)
	}
	return nil
}

// inRange rejects a derived figure that overflowed float64.
func inRange(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apperr.Validationf("%s is out of range; reduce the inputs", name)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if err := finite(name, v); err != nil {
		return err
	}
	if v < 0 {
		return apperr.Validationf("%s must not be negative", name)
	}
	return nil
}
