package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"minecarbon/internal/apperr"
)

const (
	ReportEmissions  = "emissions"
	ReportSinks      = "sinks"
	ReportNeutrality = "neutrality"
)

// Report summarises one side of a user's carbon balance over a date range.
// Total, AverageMonthly and Trend refer to total emissions, annual
// sequestration or net emissions depending on Type.
type Report struct {
	Type        string    `json:"type"`
	GeneratedAt time.Time `json:"generatedAt"`
	StartDate   string    `json:"startDate,omitempty"`
	EndDate     string    `json:"endDate,omitempty"`

	Total          float64 `json:"total"`
	AverageMonthly float64 `json:"averageMonthly"`
	// Trend is the percent change from the first to the last active month.
	// It is null with fewer than two active months or a zero first month.
	Trend *float64 `json:"trend"`
	// Highlight is the largest emission source, the sink project with the
	// highest annual uptake, or empty for neutrality reports.
	Highlight            string       `json:"highlight,omitempty"`
	NeutralityPercentage float64      `json:"neutralityPercentage"`
	Monthly              []MonthPoint `json:"monthly"`
}

type ReportService struct {
	dashboard *DashboardService
	sinks     *SinkService
	now       func() time.Time
}

func NewReportService(db *sqlx.DB) *ReportService {
	return &ReportService{dashboard: NewDashboardService(db), sinks: NewSinkService(db), now: time.Now}
}

// Generate builds a report of kind for userID. An empty kind means emissions.
func (s *ReportService) Generate(ctx context.Context, userID int64, kind, startDate, endDate string) (Report, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = ReportEmissions
	}
	var value func(MonthPoint) float64
	switch kind {
	case ReportEmissions:
		value = func(p MonthPoint) float64 { return p.Emissions }
	case ReportSinks:
		value = func(p MonthPoint) float64 { return p.Sequestration }
	case ReportNeutrality:
		value = func(p MonthPoint) float64 { return p.Emissions - p.Sequestration }
	default:
		return Report{}, apperr.Validationf("unknown report type %q", kind)
	}

	sum, err := s.dashboard.Summary(ctx, userID, startDate, endDate)
	if err != nil {
		return Report{}, err
	}
	rep := Report{
		Type:                 kind,
		GeneratedAt:          stamp(s.now()),
		StartDate:            startDate,
		EndDate:              endDate,
		NeutralityPercentage: sum.NeutralityPercentage,
		Monthly:              sum.Monthly,
	}

	switch kind {
	case ReportEmissions:
		rep.Total = sum.TotalEmissions
		rep.Highlight = largestSource(sum)
	case ReportSinks:
		rep.Total = sum.TotalSequestration
		if rep.Highlight, err = s.topProject(ctx, userID, startDate, endDate); err != nil {
			return Report{}, err
		}
	case ReportNeutrality:
		rep.Total = sum.NetEmissions
	}

	// active months are those with at least one record on the reported side
	var active []float64
	for _, p := range sum.Monthly {
		switch {
		case kind == ReportEmissions && p.Emissions == 0,
			kind == ReportSinks && p.Sequestration == 0:
			continue
		}
		active = append(active, value(p))
	}
	if len(active) > 0 {
		rep.AverageMonthly = rep.Total / float64(len(active))
	}
	if len(active) >= 2 && active[0] != 0 {
		t := (active[len(active)-1] - active[0]) / math.Abs(active[0]) * 100
		rep.Trend = &t
	}
	return rep, nil
}

func largestSource(sum DashboardSummary) string {
	b := sum.Breakdown
	sources := []struct {
		name string
		v    float64
	}{
		{"coalProduction", b.CoalProduction},
		{"electricityUsage", b.ElectricityUsage},
		{"fuelConsumption", b.FuelConsumption},
		{"methaneEmissions", b.MethaneEmissions},
	}
	best, top := "", 0.0
	for _, src := range sources {
		if src.v > top {
			best, top = src.name, src.v
		}
	}
	return best
}

func (s *ReportService) topProject(ctx context.Context, userID int64, startDate, endDate string) (string, error) {
	sinks, err := s.sinks.List(ctx, userID, ListQuery{
		StartDate: startDate,
		EndDate:   endDate,
		SortBy:    "annualSequestration",
		SortOrder: "desc",
	})
	if err != nil || len(sinks) == 0 {
		return "", err
	}
	return sinks[0].ProjectName, nil
}
