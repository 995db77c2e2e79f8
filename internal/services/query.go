package services

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"minecarbon/internal/apperr"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days (UTC). Either end may be open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds; empty strings leave that end open.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			return r, apperr.Validationf("invalid startDate; expected YYYY-MM-DD")
		}
		r.From = &t
	}
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			return r, apperr.Validationf("invalid endDate; expected YYYY-MM-DD")
		}
		r.To = &t
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return r, apperr.Validationf("endDate must not be before startDate")
	}
	return r, nil
}

// apply appends the range conditions for col. The end day is included by comparing
// against the following midnight.
func (r DateRange) apply(col string, where []string, args []any) ([]string, []any) {
	if r.From != nil {
		where = append(where, col+" >= ?")
		args = append(args, *r.From)
	}
	if r.To != nil {
		where = append(where, col+" < ?")
		args = append(args, r.To.AddDate(0, 0, 1))
	}
	return where, args
}

// SortColumn is a column name that came from an allow-list, never from the request.
type SortColumn string

type sortable map[string]SortColumn

func (s sortable) parse(v string) (SortColumn, error) {
	if v == "" {
		return "date", nil
	}
	col, ok := s[v]
	if !ok {
		return "", apperr.Validationf("invalid sortBy %q", v)
	}
	return col, nil
}

var emissionSortable = sortable{
	"date":            "date",
	"mineName":        "mine_name",
	"mine_name":       "mine_name",
	"mineLocation":    "mine_location",
	"mine_location":   "mine_location",
	"period":          "period",
	"coalProduction":  "coal_production",
	"coal_production": "coal_production",
	"totalEmissions":  "total_emissions",
	"total_emissions": "total_emissions",
}

var sinkSortable = sortable{
	"date":                 "date",
	"projectName":          "project_name",
	"project_name":         "project_name",
	"location":             "location",
	"forestArea":           "forest_area",
	"forest_area":          "forest_area",
	"annualSequestration":  "annual_sequestration",
	"annual_sequestration": "annual_sequestration",
}

// ListQuery carries the raw listing parameters from the request.
type ListQuery struct {
	StartDate string
	EndDate   string
	SortBy    string
	SortOrder string
}

type listPlan struct {
	rng    DateRange
	column SortColumn
	desc   bool
}

func (q ListQuery) parse(cols sortable) (listPlan, error) {
	rng, err := ParseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		return listPlan{}, err
	}
	col, err := cols.parse(q.SortBy)
	if err != nil {
		return listPlan{}, err
	}
	plan := listPlan{rng: rng, column: col, desc: true}
	switch strings.ToLower(q.SortOrder) {
	case "", "desc":
	case "asc":
		plan.desc = false
	default:
		return listPlan{}, apperr.Validationf("invalid sortOrder %q; expected asc or desc", q.SortOrder)
	}
	return plan, nil
}

func (s listPlan) orderBy() string {
	dir := "ASC"
	if s.desc {
		dir = "DESC"
	}
	return " ORDER BY " + string(s.column) + " " + dir + ", id " + dir
}

// setList collects the columns of a sparse UPDATE.
type setList struct {
	clauses []string
	args    []any
}

func (s *setList) add(col string, v any) {
	s.clauses = append(s.clauses, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setList) sql() string { return strings.Join(s.clauses, ", ") }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func requireText(name string, v *string) (string, error) {
	if v == nil {
		return "", apperr.Validationf("%s is required", name)
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return "", apperr.Validationf("%s must not be empty", name)
	}
	return t, nil
}

func requireNumber(name string, v *float64) (float64, error) {
	if v == nil {
		return 0, apperr.Validationf("%s is required", name)
	}
	return *v, nil
}

// stamp normalises record dates so text-stored timestamps compare correctly.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
