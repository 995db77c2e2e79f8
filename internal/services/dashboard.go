package services

import (
	"context"
	"math"
	"sort"

	"github.com/jmoiron/sqlx"

	"minecarbon/internal/calc"
)

type MonthPoint struct {
	Month         string  `json:"month"` // YYYY-MM
	Emissions     float64 `json:"emissions"`
	Sequestration float64 `json:"sequestration"`
}

type DashboardSummary struct {
	TotalEmissions       float64                `json:"totalEmissions"`
	Breakdown            calc.EmissionBreakdown `json:"breakdown"`
	TotalSequestration   float64                `json:"totalSequestration"`
	NetEmissions         float64                `json:"netEmissions"`
	NeutralityPercentage float64                `json:"neutralityPercentage"`
	EmissionRecords      int                    `json:"emissionRecords"`
	SinkProjects         int                    `json:"sinkProjects"`
	TotalForestArea      float64                `json:"totalForestArea"`
	Monthly              []MonthPoint           `json:"monthly"`
}

// DashboardService aggregates a user's records in Go so the same code runs on
// both SQL dialects.
type DashboardService struct {
	emissions *EmissionService
	sinks     *SinkService
}

func NewDashboardService(db *sqlx.DB) *DashboardService {
	return &DashboardService{emissions: NewEmissionService(db), sinks: NewSinkService(db)}
}

func (s *DashboardService) Summary(ctx context.Context, userID int64, startDate, endDate string) (DashboardSummary, error) {
	lq := ListQuery{StartDate: startDate, EndDate: endDate, SortOrder: "asc"}
	emissions, err := s.emissions.List(ctx, userID, lq)
	if err != nil {
		return DashboardSummary{}, err
	}
	sinks, err := s.sinks.List(ctx, userID, lq)
	if err != nil {
		return DashboardSummary{}, err
	}

	out := DashboardSummary{EmissionRecords: len(emissions), SinkProjects: len(sinks)}
	months := map[string]*MonthPoint{}
	month := func(key string) *MonthPoint {
		p, ok := months[key]
		if !ok {
			p = &MonthPoint{Month: key}
			months[key] = p
		}
		return p
	}

	for _, e := range emissions {
		out.TotalEmissions += e.TotalEmissions
		out.Breakdown.CoalProduction += e.CoalProduction * calc.CoalFactor
		out.Breakdown.ElectricityUsage += e.ElectricityUsage * calc.ElectricityFactor
		out.Breakdown.FuelConsumption += e.FuelConsumption * calc.FuelFactor
		out.Breakdown.MethaneEmissions += e.MethaneEmissions * calc.MethaneGWP
		month(e.Date.UTC().Format("2006-01")).Emissions += e.TotalEmissions
	}
	for _, k := range sinks {
		out.TotalSequestration += k.AnnualSequestration
		out.TotalForestArea += k.ForestArea
		month(k.Date.UTC().Format("2006-01")).Sequestration += k.AnnualSequestration
	}

	out.NetEmissions = out.TotalEmissions - out.TotalSequestration
	switch {
	case out.TotalEmissions > 0:
		out.NeutralityPercentage = math.Min(100, out.TotalSequestration/out.TotalEmissions*100)
	case out.TotalSequestration > 0:
		out.NeutralityPercentage = 100
	}

	out.Monthly = make([]MonthPoint, 0, len(months))
	for _, p := range months {
		out.Monthly = append(out.Monthly, *p)
	}
	sort.Slice(out.Monthly, func(i, j int) bool { return out.Monthly[i].Month < out.Monthly[j].Month })
	return out, nil
}
