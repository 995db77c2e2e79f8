package calc

import (
	"math"

	"minecarbon/internal/apperr"
)

// rampYears is how long a strategy takes to reach full effect.
const rampYears = 5

// MaxHorizon bounds targetYear - currentYear; the yearly series grows with it.
const MaxHorizon = 100

type Strategy struct {
	Name string `json:"name"`
	// Implementation and MaxReduction are percentages (0-100).
	Implementation float64 `json:"implementation"`
	CostPerTon     float64 `json:"costPerTon"`
	MaxReduction   float64 `json:"maxReduction"`
}

// StrategyCatalog lists every reduction strategy with its default parameters.
func StrategyCatalog() []Strategy {
	return []Strategy{
		{Name: "renewableEnergy", Implementation: 50, CostPerTon: 40, MaxReduction: 40},
		{Name: "energyEfficiency", Implementation: 60, CostPerTon: 25, MaxReduction: 20},
		{Name: "methaneCapture", Implementation: 30, CostPerTon: 35, MaxReduction: 15},
		{Name: "afforestation", Implementation: 70, CostPerTon: 15, MaxReduction: 25},
		{Name: "carbonCapture", Implementation: 20, CostPerTon: 80, MaxReduction: 30},
	}
}

// DefaultStrategies is the selection simulated when the caller sends none.
func DefaultStrategies() []Strategy {
	var out []Strategy
	for _, s := range StrategyCatalog() {
		switch s.Name {
		case "renewableEnergy", "energyEfficiency", "afforestation":
			out = append(out, s)
		}
	}
	return out
}

type SimulationInput struct {
	BaselineEmissions float64    `json:"baselineEmissions"`
	TargetYear        int        `json:"targetYear"`
	Strategies        []Strategy `json:"strategies"`
}

type StrategyOutcome struct {
	Reduction  float64 `json:"reduction"`
	Cost       float64 `json:"cost"`
	CostPerTon float64 `json:"costPerTon"`
}

type YearlySeries struct {
	Years        []int     `json:"years"`
	Reductions   []float64 `json:"reductions"`
	Costs        []float64 `json:"costs"`
	NetEmissions []float64 `json:"netEmissions"`
}

type SimulationResult struct {
	BaselineEmissions    float64                    `json:"baselineEmissions"`
	TargetYear           int                        `json:"targetYear"`
	CurrentYear          int                        `json:"currentYear"`
	YearsToTarget        int                        `json:"yearsToTarget"`
	TotalReduction       float64                    `json:"totalReduction"`
	TotalCost            float64                    `json:"totalCost"`
	FinalNetEmissions    float64                    `json:"finalNetEmissions"`
	NeutralityAchieved   bool                       `json:"neutralityAchieved"`
	NeutralityPercentage float64                    `json:"neutralityPercentage"`
	YearsToNeutrality    *int                       `json:"yearsToNeutrality"`
	Reductions           map[string]StrategyOutcome `json:"reductions"`
	YearlyData           YearlySeries               `json:"yearlyData"`
}

// Simulate projects the effect of the selected strategies from currentYear to the
// target year. Each strategy ramps in linearly over at most rampYears.
func Simulate(in SimulationInput, currentYear int) (SimulationResult, error) {
	if err := finite("baselineEmissions", in.BaselineEmissions); err != nil {
		return SimulationResult{}, err
	}
	if in.BaselineEmissions <= 0 {
		return SimulationResult{}, apperr.Validationf("baselineEmissions must be greater than zero")
	}
	years := in.TargetYear - currentYear
	if years < 1 {
		return SimulationResult{}, apperr.Validationf("targetYear must be after %d", currentYear)
	}
	if years > MaxHorizon {
		return SimulationResult{}, apperr.Validationf("targetYear must be at most %d", currentYear+MaxHorizon)
	}
	strategies := in.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}

	series := YearlySeries{
		Years:        make([]int, years+1),
		Reductions:   make([]float64, years+1),
		Costs:        make([]float64, years+1),
		NetEmissions: make([]float64, years+1),
	}
	for i := range series.Years {
		series.Years[i] = currentYear + i
	}

	res := SimulationResult{
		BaselineEmissions: in.BaselineEmissions,
		TargetYear:        in.TargetYear,
		CurrentYear:       currentYear,
		YearsToTarget:     years,
		Reductions:        make(map[string]StrategyOutcome, len(strategies)),
	}

	ramp := float64(min(rampYears, years))
	for _, s := range strategies {
		if s.Name == "" {
			return SimulationResult{}, apperr.Validationf("strategy name is required")
		}
		if _, dup := res.Reductions[s.Name]; dup {
			return SimulationResult{}, apperr.Validationf("strategy %q listed twice", s.Name)
		}
		if err := percentage(s.Name+".implementation", s.Implementation); err != nil {
			return SimulationResult{}, err
		}
		if err := percentage(s.Name+".maxReduction", s.MaxReduction); err != nil {
			return SimulationResult{}, err
		}
		if err := nonNegative(s.Name+".costPerTon", s.CostPerTon); err != nil {
			return SimulationResult{}, err
		}

		reduction := in.BaselineEmissions * (s.MaxReduction / 100) * (s.Implementation / 100)
		cost := reduction * s.CostPerTon
		res.Reductions[s.Name] = StrategyOutcome{Reduction: reduction, Cost: cost, CostPerTon: s.CostPerTon}
		res.TotalReduction += reduction
		res.TotalCost += cost

		for i := 1; i <= years; i++ {
			f := math.Min(1, float64(i)/ramp)
			series.Reductions[i] += reduction * f
			series.Costs[i] += cost / float64(years) * f
		}
	}

	if err := inRange("totalReduction", res.TotalReduction); err != nil {
		return SimulationResult{}, err
	}
	if err := inRange("totalCost", res.TotalCost); err != nil {
		return SimulationResult{}, err
	}

	for i := range series.NetEmissions {
		series.NetEmissions[i] = in.BaselineEmissions - series.Reductions[i]
		if res.YearsToNeutrality == nil && series.NetEmissions[i] <= 0 {
			y := i
			res.YearsToNeutrality = &y
		}
	}

	res.FinalNetEmissions = in.BaselineEmissions - res.TotalReduction
	res.NeutralityAchieved = res.FinalNetEmissions <= 0
	res.NeutralityPercentage = math.Min(100, res.TotalReduction/in.BaselineEmissions*100)
	res.YearlyData = series
	return res, nil
}

func percentage(name string, v float64) error {
	if err := nonNegative(name, v); err != nil {
		return err
	}
	if v > 100 {
		return apperr.Validationf("%s must not exceed 100", name)
	}
	return nil
}
