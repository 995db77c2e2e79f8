package calc

import (
	"math"
	"strings"

	"minecarbon/internal/apperr"
)

// Base sequestration rates in tCO2 per hectare per year.
var speciesRates = map[string]float64{
	"eucalyptus": 25,
	"pine":       20,
	"oak":        15,
	"teak":       18,
	"mixed":      22,
}

var soilFactors = map[string]float64{
	"sandy":  0.8,
	"clayey": 0.9,
	"loamy":  1.1,
	"silty":  1.0,
}

var maintenanceFactors = map[string]float64{
	"low":    0.8,
	"medium": 1.0,
	"high":   1.2,
}

func ValidSpecies(s string) bool {
	_, ok := speciesRates[s]
	return ok
}

func ValidSoil(s string) bool {
	_, ok := soilFactors[s]
	return ok
}

func ValidMaintenance(s string) bool {
	_, ok := maintenanceFactors[s]
	return ok
}

type SequestrationInput struct {
	ForestArea       float64 `json:"forestArea"`
	TreeSpecies      string  `json:"treeSpecies"`
	TreeDensity      float64 `json:"treeDensity"`
	ForestAge        float64 `json:"forestAge"`
	SoilType         string  `json:"soilType"`
	MaintenanceLevel string  `json:"maintenanceLevel"`
}

type SequestrationResult struct {
	AnnualSequestration     float64 `json:"annualSequestration"`
	TenYearSequestration    float64 `json:"tenYearSequestration"`
	ThirtyYearSequestration float64 `json:"thirtyYearSequestration"`
	CarbonDensity           float64 `json:"carbonDensity"`
}

// Sequestration projects CO2 uptake linearly; no saturation is modelled.
// Species, soil and maintenance are matched case-insensitively. Unknown values
// fall back to the mixed rate and a neutral factor of 1.0.
func Sequestration(in SequestrationInput) (SequestrationResult, error) {
	if err := finite("forestArea", in.ForestArea); err != nil {
		return SequestrationResult{}, err
	}
	if in.ForestArea <= 0 {
		return SequestrationResult{}, apperr.Validationf("forestArea must be greater than zero")
	}
	if err := nonNegative("treeDensity", in.TreeDensity); err != nil {
		return SequestrationResult{}, err
	}
	if err := nonNegative("forestAge", in.ForestAge); err != nil {
		return SequestrationResult{}, err
	}

	rate, ok := speciesRates[normalize(in.TreeSpecies)]
	if !ok {
		rate = speciesRates["mixed"]
	}
	soil, ok := soilFactors[normalize(in.SoilType)]
	if !ok {
		soil = 1.0
	}
	maint, ok := maintenanceFactors[normalize(in.MaintenanceLevel)]
	if !ok {
		maint = 1.0
	}
	density := in.TreeDensity / 1000
	age := math.Max(0.5, 1-in.ForestAge/50)

	annual := in.ForestArea * rate * density * age * soil * maint
	// thirty years is the largest figure
	if err := inRange("thirtyYearSequestration", annual*30); err != nil {
		return SequestrationResult{}, err
	}
	return SequestrationResult{
		AnnualSequestration:     annual,
		TenYearSequestration:    annual * 10,
		ThirtyYearSequestration: annual * 30,
		CarbonDensity:           annual / in.ForestArea,
	}, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
