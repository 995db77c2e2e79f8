package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"minecarbon/internal/apperr"
	"minecarbon/internal/calc"
	"minecarbon/internal/db"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.RunMigrations(ctx, conn); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	return conn
}

func newTestUsers(conn *sqlx.DB) *UserService {
	svc := NewUserService(conn)
	svc.cost = bcrypt.MinCost
	return svc
}

func mustRegister(t *testing.T, conn *sqlx.DB, username string) int64 {
	t.Helper()
	u, err := newTestUsers(conn).Register(context.Background(), username, "secret-pass", false)
	if err != nil {
		t.Fatalf("Register(%q) error = %v", username, err)
	}
	return u.ID
}

func str(s string) *string   { return &s }
func num(f float64) *float64 { return &f }

func at(s string) *time.Time {
	tm, _ := time.Parse(time.RFC3339, s)
	return &tm
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func wantCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want code %v", code)
	}
	if got := apperr.CodeOf(err); got != code {
		t.Fatalf("CodeOf(%v) = %v, want %v", err, got, code)
	}
}

func validEmission() EmissionFields {
	return EmissionFields{
		MineName:         str("Jharia"),
		MineLocation:     str("Dhanbad"),
		Period:           str("2026-Q1"),
		CoalProduction:   num(100),
		ElectricityUsage: num(50),
		FuelConsumption:  num(20),
		MethaneEmissions: num(5),
	}
}

func validSink() SinkFields {
	return SinkFields{
		ProjectName:      str("Green Belt"),
		Location:         str("Korba"),
		ForestArea:       num(10),
		TreeSpecies:      str("mixed"),
		TreeDensity:      num(1000),
		ForestAge:        num(0),
		SoilType:         str("silty"),
		MaintenanceLevel: str("medium"),
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := newTestUsers(newTestDB(t))

	u, err := users.Register(ctx, "  miner ", "secret-pass", true)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.ID == 0 || u.Username != "miner" || !u.IsAdmin {
		t.Fatalf("Register() = %+v", u)
	}
	if u.PasswordHash == "secret-pass" {
		t.Fatal("password stored in plain text")
	}

	_, err = users.Register(ctx, "miner", "other-pass", false)
	wantCode(t, err, apperr.Conflict)

	got, err := users.Authenticate(ctx, "miner", "secret-pass")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("Authenticate() id = %d, want %d", got.ID, u.ID)
	}

	_, err = users.Authenticate(ctx, "miner", "wrong")
	wantCode(t, err, apperr.Unauthorized)
	_, err = users.Authenticate(ctx, "nobody", "secret-pass")
	wantCode(t, err, apperr.Unauthorized)

	list, err := users.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("List() returned %d users, want 1", len(list))
	}
}

func TestRegisterValidation(t *testing.T) {
	users := newTestUsers(newTestDB(t))
	tests := []struct {
		name, username, password string
	}{
		{"missing username", "", "pw"},
		{"blank username", "   ", "pw"},
		{"missing password", "miner", ""},
		{"password too long", "miner", string(make([]byte, 73))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.Register(context.Background(), tt.username, tt.password, false)
			wantCode(t, err, apperr.Validation)
		})
	}
}

func TestEmissionCreateStoresRecomputedTotal(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	svc := NewEmissionService(conn)

	f := validEmission()
	f.TotalEmissions = num(461.6)
	id, err := svc.Create(ctx, uid, f)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Get(ctx, uid, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !approx(got.TotalEmissions, 461.6) {
		t.Errorf("TotalEmissions = %v, want 461.6", got.TotalEmissions)
	}
	if got.MineName != "Jharia" || got.UserID != uid {
		t.Errorf("Get() = %+v", got)
	}
}

func TestEmissionCreateRejects(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	svc := NewEmissionService(conn)

	tests := []struct {
		name   string
		mutate func(*EmissionFields)
	}{
		{"missing mine name", func(f *EmissionFields) { f.MineName = nil }},
		{"empty location", func(f *EmissionFields) { f.MineLocation = str(" ") }},
		{"missing coal", func(f *EmissionFields) { f.CoalProduction = nil }},
		{"negative fuel", func(f *EmissionFields) { f.FuelConsumption = num(-1) }},
		{"mismatched total", func(f *EmissionFields) { f.TotalEmissions = num(100) }},
		{"overflowing total", func(f *EmissionFields) { f.CoalProduction = num(1e308) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validEmission()
			tt.mutate(&f)
			_, err := svc.Create(ctx, uid, f)
			wantCode(t, err, apperr.Validation)
		})
	}

	list, err := svc.List(ctx, uid, ListQuery{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("rejected creates stored %d rows", len(list))
	}
}

func TestEmissionCreateUnknownUser(t *testing.T) {
	_, err := NewEmissionService(newTestDB(t)).Create(context.Background(), 999, validEmission())
	if err == nil {
		t.Fatal("Create() for a missing user succeeded")
	}
}

func TestEmissionListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	other := mustRegister(t, conn, "other")
	svc := NewEmissionService(conn)

	create := func(user int64, name string, coal float64, date string) {
		t.Helper()
		f := validEmission()
		f.MineName = str(name)
		f.CoalProduction = num(coal)
		f.Date = at(date)
		if _, err := svc.Create(ctx, user, f); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}
	create(uid, "A", 30, "2026-03-01T10:00:00Z")
	create(uid, "B", 10, "2026-03-31T23:00:00Z")
	create(uid, "C", 20, "2026-04-01T00:00:00Z")
	create(other, "X", 99, "2026-03-15T00:00:00Z")

	tests := []struct {
		name  string
		query ListQuery
		want  []string
	}{
		{"default newest first", ListQuery{}, []string{"C", "B", "A"}},
		{"inclusive range", ListQuery{StartDate: "2026-03-01", EndDate: "2026-03-31"}, []string{"B", "A"}},
		{"open start", ListQuery{EndDate: "2026-03-01"}, []string{"A"}},
		{"open end", ListQuery{StartDate: "2026-04-01"}, []string{"C"}},
		{"by coal asc", ListQuery{SortBy: "coalProduction", SortOrder: "ASC"}, []string{"B", "C", "A"}},
		{"snake case name desc", ListQuery{SortBy: "mine_name", SortOrder: "desc"}, []string{"C", "B", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.List(ctx, uid, tt.query)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []string
			for _, e := range list {
				got = append(got, e.MineName)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("List() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestEmissionListRejectsBadQuery(t *testing.T) {
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	svc := NewEmissionService(conn)

	for _, q := range []ListQuery{
		{SortBy: "password_hash"},
		{SortBy: "date; DROP TABLE emissions"},
		{SortOrder: "sideways"},
		{StartDate: "01/03/2026"},
		{StartDate: "2026-04-02", EndDate: "2026-04-01"},
	} {
		_, err := svc.List(context.Background(), uid, q)
		wantCode(t, err, apperr.Validation)
	}
}

func TestEmissionUpdate(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	other := mustRegister(t, conn, "other")
	svc := NewEmissionService(conn)

	id, err := svc.Create(ctx, uid, validEmission())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Update(ctx, uid, id, EmissionFields{CoalProduction: num(200), Period: str("2026-Q2")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := svc.Get(ctx, uid, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// 200*2.42 + 41 + 53.6 + 125
	if !approx(got.TotalEmissions, 703.6) {
		t.Errorf("TotalEmissions = %v, want 703.6", got.TotalEmissions)
	}
	if got.Period != "2026-Q2" || got.MineName != "Jharia" {
		t.Errorf("Update() merged wrongly: %+v", got)
	}

	wantCode(t, svc.Update(ctx, uid, id, EmissionFields{}), apperr.Validation)
	wantCode(t, svc.Update(ctx, uid, id, EmissionFields{MineName: str("")}), apperr.Validation)
	wantCode(t, svc.Update(ctx, uid, id, EmissionFields{TotalEmissions: num(1)}), apperr.Validation)
	wantCode(t, svc.Update(ctx, other, id, EmissionFields{Period: str("x")}), apperr.NotFound)
	wantCode(t, svc.Update(ctx, uid, id+100, EmissionFields{Period: str("x")}), apperr.NotFound)

	got, _ = svc.Get(ctx, uid, id)
	if got.Period != "2026-Q2" {
		t.Errorf("failed update changed period to %q", got.Period)
	}
}

func TestEmissionDelete(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	other := mustRegister(t, conn, "other")
	svc := NewEmissionService(conn)

	id, err := svc.Create(ctx, uid, validEmission())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	wantCode(t, svc.Delete(ctx, other, id), apperr.NotFound)
	if err := svc.Delete(ctx, uid, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	wantCode(t, svc.Delete(ctx, uid, id), apperr.NotFound)
}

func TestSinkLifecycle(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "forester")
	svc := NewSinkService(conn)

	f := validSink()
	f.AnnualSequestration = num(220)
	f.CarbonDensity = num(22)
	id, err := svc.Create(ctx, uid, f)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Get(ctx, uid, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !approx(got.AnnualSequestration, 220) || !approx(got.ThirtyYearSequestration, 6600) {
		t.Errorf("sequestration = %v / %v, want 220 / 6600", got.AnnualSequestration, got.ThirtyYearSequestration)
	}

	if err := svc.Update(ctx, uid, id, SinkFields{MaintenanceLevel: str("HIGH")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ = svc.Get(ctx, uid, id)
	if got.MaintenanceLevel != "high" || !approx(got.AnnualSequestration, 264) {
		t.Errorf("after update = %s / %v, want high / 264", got.MaintenanceLevel, got.AnnualSequestration)
	}

	list, err := svc.List(ctx, uid, ListQuery{SortBy: "annualSequestration"})
	if err != nil || len(list) != 1 {
		t.Fatalf("List() = %d rows, err %v", len(list), err)
	}

	if err := svc.Delete(ctx, uid, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestSinkCreateRejects(t *testing.T) {
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "forester")
	svc := NewSinkService(conn)

	tests := []struct {
		name   string
		mutate func(*SinkFields)
	}{
		{"missing project", func(f *SinkFields) { f.ProjectName = nil }},
		{"zero area", func(f *SinkFields) { f.ForestArea = num(0) }},
		{"unknown species", func(f *SinkFields) { f.TreeSpecies = str("bamboo") }},
		{"unknown soil", func(f *SinkFields) { f.SoilType = str("rocky") }},
		{"missing maintenance", func(f *SinkFields) { f.MaintenanceLevel = nil }},
		{"mismatched ten year", func(f *SinkFields) { f.TenYearSequestration = num(1) }},
		{"overflowing area", func(f *SinkFields) { f.ForestArea = num(1e308) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validSink()
			tt.mutate(&f)
			_, err := svc.Create(context.Background(), uid, f)
			wantCode(t, err, apperr.Validation)
		})
	}
}

func TestSinkAcceptsCalculatorTotals(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "forester")
	svc := NewSinkService(conn)

	res, err := calc.Sequestration(calc.SequestrationInput{
		ForestArea: 10, TreeSpecies: "Oak", TreeDensity: 1000, SoilType: "Sandy", MaintenanceLevel: "High",
	})
	if err != nil {
		t.Fatalf("Sequestration() error = %v", err)
	}
	f := validSink()
	f.TreeSpecies = str("Oak")
	f.SoilType = str("Sandy")
	f.MaintenanceLevel = str("High")
	f.AnnualSequestration = num(res.AnnualSequestration)
	f.ThirtyYearSequestration = num(res.ThirtyYearSequestration)
	id, err := svc.Create(ctx, uid, f)
	if err != nil {
		t.Fatalf("Create() with calculator totals error = %v", err)
	}
	got, _ := svc.Get(ctx, uid, id)
	if got.TreeSpecies != "oak" || !approx(got.AnnualSequestration, 144) {
		t.Errorf("stored %s / %v, want oak / 144", got.TreeSpecies, got.AnnualSequestration)
	}
}

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	emissions := NewEmissionService(conn)
	sinks := NewSinkService(conn)

	for _, date := range []string{"2026-01-10T00:00:00Z", "2026-02-10T00:00:00Z"} {
		f := validEmission()
		f.Date = at(date)
		if _, err := emissions.Create(ctx, uid, f); err != nil {
			t.Fatalf("Create emission: %v", err)
		}
	}
	k := validSink()
	k.Date = at("2026-02-20T00:00:00Z")
	if _, err := sinks.Create(ctx, uid, k); err != nil {
		t.Fatalf("Create sink: %v", err)
	}

	got, err := NewDashboardService(conn).Summary(ctx, uid, "", "")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if got.EmissionRecords != 2 || got.SinkProjects != 1 {
		t.Errorf("counts = %d/%d, want 2/1", got.EmissionRecords, got.SinkProjects)
	}
	if !approx(got.TotalEmissions, 923.2) || !approx(got.NetEmissions, 703.2) {
		t.Errorf("totals = %v net %v", got.TotalEmissions, got.NetEmissions)
	}
	if !approx(got.Breakdown.MethaneEmissions, 250) {
		t.Errorf("methane breakdown = %v, want 250", got.Breakdown.MethaneEmissions)
	}
	if len(got.Monthly) != 2 || got.Monthly[0].Month != "2026-01" || !approx(got.Monthly[1].Sequestration, 220) {
		t.Errorf("monthly = %+v", got.Monthly)
	}

	got, err = NewDashboardService(conn).Summary(ctx, uid, "2026-02-01", "2026-02-28")
	if err != nil {
		t.Fatalf("Summary(range) error = %v", err)
	}
	if got.EmissionRecords != 1 || !approx(got.NeutralityPercentage, 220/461.6*100) {
		t.Errorf("ranged summary = %+v", got)
	}
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	emissions := NewEmissionService(conn)
	sinks := NewSinkService(conn)

	jan := validEmission()
	jan.Date = at("2026-01-10T00:00:00Z")
	feb := validEmission()
	feb.CoalProduction = num(200)
	feb.Date = at("2026-02-10T00:00:00Z")
	for _, f := range []EmissionFields{jan, feb} {
		if _, err := emissions.Create(ctx, uid, f); err != nil {
			t.Fatalf("Create emission: %v", err)
		}
	}
	small := validSink()
	small.Date = at("2026-02-01T00:00:00Z")
	big := validSink()
	big.ProjectName = str("Big Belt")
	big.ForestArea = num(20)
	big.Date = at("2026-02-02T00:00:00Z")
	for _, f := range []SinkFields{small, big} {
		if _, err := sinks.Create(ctx, uid, f); err != nil {
			t.Fatalf("Create sink: %v", err)
		}
	}

	svc := NewReportService(conn)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	// Jan 461.6, Feb 703.6, sinks 220 + 440 in Feb
	tests := []struct {
		kind      string
		total     float64
		average   float64
		trend     *float64
		highlight string
	}{
		{"", 1165.2, 582.6, num((703.6 - 461.6) / 461.6 * 100), "coalProduction"},
		{"Sinks", 660, 660, nil, "Big Belt"},
		{"neutrality", 505.2, 252.6, num((43.6 - 461.6) / 461.6 * 100), ""},
	}
	for _, tt := range tests {
		t.Run("type "+tt.kind, func(t *testing.T) {
			got, err := svc.Generate(ctx, uid, tt.kind, "", "")
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if !approx(got.Total, tt.total) || !approx(got.AverageMonthly, tt.average) {
				t.Errorf("total %v average %v, want %v %v", got.Total, got.AverageMonthly, tt.total, tt.average)
			}
			switch {
			case tt.trend == nil && got.Trend != nil:
				t.Errorf("trend = %v, want nil", *got.Trend)
			case tt.trend != nil && (got.Trend == nil || math.Abs(*got.Trend-*tt.trend) > 1e-9):
				t.Errorf("trend = %v, want %v", got.Trend, *tt.trend)
			}
			if got.Highlight != tt.highlight {
				t.Errorf("highlight = %q, want %q", got.Highlight, tt.highlight)
			}
			if got.GeneratedAt.Month() != time.March {
				t.Errorf("generatedAt = %v", got.GeneratedAt)
			}
		})
	}

	got, err := svc.Generate(ctx, uid, "emissions", "2026-02-01", "2026-02-28")
	if err != nil {
		t.Fatalf("Generate(range) error = %v", err)
	}
	if !approx(got.Total, 703.6) || got.Trend != nil || len(got.Monthly) != 1 {
		t.Errorf("ranged report = %+v", got)
	}

	_, err = svc.Generate(ctx, uid, "weather", "", "")
	wantCode(t, err, apperr.Validation)
	_, err = svc.Generate(ctx, uid, "sinks", "2026-02-10", "2026-02-01")
	wantCode(t, err, apperr.Validation)
}

func TestAdmin(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	users := newTestUsers(conn)
	admin, err := users.Register(ctx, "root", "secret-pass", true)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	plain := mustRegister(t, conn, "miner")
	if _, err := NewEmissionService(conn).Create(ctx, plain, validEmission()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	svc := NewAdminService(conn)
	if err := svc.RequireAdmin(ctx, admin.ID); err != nil {
		t.Errorf("RequireAdmin(admin) error = %v", err)
	}
	wantCode(t, svc.RequireAdmin(ctx, plain), apperr.Forbidden)
	wantCode(t, svc.RequireAdmin(ctx, 999), apperr.Forbidden)

	got, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if got.TotalUsers != 2 || got.EmissionRecords != 1 || got.SinkProjects != 0 || !approx(got.TotalEmissions, 461.6) {
		t.Errorf("Overview() = %+v", got)
	}
}

func TestImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	conn := newTestDB(t)
	uid := mustRegister(t, conn, "miner")
	svc := NewImportService(conn)

	bad := validSink()
	bad.SoilType = str("lava")
	_, err := svc.Import(ctx, uid, ImportBatch{
		Emissions: []EmissionFields{validEmission(), validEmission()},
		Sinks:     []SinkFields{validSink(), bad},
	})
	wantCode(t, err, apperr.Validation)
	if got := err.Error(); got != `sinks[1]: unknown soilType "lava"` {
		t.Errorf("error = %q", got)
	}

	emissions, _ := NewEmissionService(conn).List(ctx, uid, ListQuery{})
	if len(emissions) != 0 {
		t.Fatalf("failed import left %d emissions behind", len(emissions))
	}

	res, err := svc.Import(ctx, uid, ImportBatch{
		Emissions: []EmissionFields{validEmission(), validEmission()},
		Sinks:     []SinkFields{validSink()},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Emissions != 2 || res.Sinks != 1 {
		t.Errorf("Import() = %+v, want 2 emissions and 1 sink", res)
	}

	_, err = svc.Import(ctx, uid, ImportBatch{})
	wantCode(t, err, apperr.Validation)
}
