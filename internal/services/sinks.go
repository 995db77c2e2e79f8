package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"minecarbon/internal/apperr"
	"minecarbon/internal/calc"
	"minecarbon/internal/models"
)

const sinkColumns = `id, user_id, project_name, location, forest_area, tree_species, tree_density,
	forest_age, soil_type, maintenance_level, annual_sequestration, ten_year_sequestration,
	thirty_year_sequestration, carbon_density, date`

// SinkFields is the writable part of a sink record. The sequestration figures are
// derived; when supplied they must agree with the computed values.
type SinkFields struct {
	ProjectName             *string    `json:"projectName"`
	Location                *string    `json:"location"`
	ForestArea              *float64   `json:"forestArea"`
	TreeSpecies             *string    `json:"treeSpecies"`
	TreeDensity             *float64   `json:"treeDensity"`
	ForestAge               *float64   `json:"forestAge"`
	SoilType                *string    `json:"soilType"`
	MaintenanceLevel        *string    `json:"maintenanceLevel"`
	AnnualSequestration     *float64   `json:"annualSequestration"`
	TenYearSequestration    *float64   `json:"tenYearSequestration"`
	ThirtyYearSequestration *float64   `json:"thirtyYearSequestration"`
	CarbonDensity           *float64   `json:"carbonDensity"`
	Date                    *time.Time `json:"date"`
}

func (f SinkFields) empty() bool {
	return f.ProjectName == nil && f.Location == nil && f.ForestArea == nil &&
		f.TreeSpecies == nil && f.TreeDensity == nil && f.ForestAge == nil &&
		f.SoilType == nil && f.MaintenanceLevel == nil && f.AnnualSequestration == nil &&
		f.TenYearSequestration == nil && f.ThirtyYearSequestration == nil &&
		f.CarbonDensity == nil && f.Date == nil
}

type SinkService struct {
	db *sqlx.DB
}

func NewSinkService(db *sqlx.DB) *SinkService {
	return &SinkService{db: db}
}

func (s *SinkService) Create(ctx context.Context, userID int64, f SinkFields) (int64, error) {
	return insertSink(ctx, s.db, userID, f)
}

func insertSink(ctx context.Context, q sqlx.ExtContext, userID int64, f SinkFields) (int64, error) {
	k := models.Sink{UserID: userID, Date: stamp(time.Now())}
	var err error
	if k.ProjectName, err = requireText("projectName", f.ProjectName); err != nil {
		return 0, err
	}
	if k.Location, err = requireText("location", f.Location); err != nil {
		return 0, err
	}
	if k.ForestArea, err = requireNumber("forestArea", f.ForestArea); err != nil {
		return 0, err
	}
	if k.TreeSpecies, err = requireChoice("treeSpecies", f.TreeSpecies, calc.ValidSpecies); err != nil {
		return 0, err
	}
	if k.TreeDensity, err = requireNumber("treeDensity", f.TreeDensity); err != nil {
		return 0, err
	}
	if k.ForestAge, err = requireNumber("forestAge", f.ForestAge); err != nil {
		return 0, err
	}
	if k.SoilType, err = requireChoice("soilType", f.SoilType, calc.ValidSoil); err != nil {
		return 0, err
	}
	if k.MaintenanceLevel, err = requireChoice("maintenanceLevel", f.MaintenanceLevel, calc.ValidMaintenance); err != nil {
		return 0, err
	}
	if f.Date != nil {
		k.Date = stamp(*f.Date)
	}
	if err := recomputeSink(&k, f); err != nil {
		return 0, err
	}

	query := q.Rebind(`INSERT INTO sinks (user_id, project_name, location, forest_area, tree_species,
		tree_density, forest_age, soil_type, maintenance_level, annual_sequestration,
		ten_year_sequestration, thirty_year_sequestration, carbon_density, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = q.QueryRowxContext(ctx, query, k.UserID, k.ProjectName, k.Location, k.ForestArea, k.TreeSpecies,
		k.TreeDensity, k.ForestAge, k.SoilType, k.MaintenanceLevel, k.AnnualSequestration,
		k.TenYearSequestration, k.ThirtyYearSequestration, k.CarbonDensity, k.Date).Scan(&k.ID)
	if err != nil {
		return 0, errors.Wrap(err, "insert sink")
	}
	return k.ID, nil
}

func (s *SinkService) List(ctx context.Context, userID int64, lq ListQuery) ([]models.Sink, error) {
	plan, err := lq.parse(sinkSortable)
	if err != nil {
		return nil, err
	}
	where, args := plan.rng.apply("date", []string{"user_id = ?"}, []any{userID})
	q := `SELECT ` + sinkColumns + ` FROM sinks WHERE ` + strings.Join(where, " AND ") + plan.orderBy()

	out := []models.Sink{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "list sinks")
	}
	return out, nil
}

func (s *SinkService) Get(ctx context.Context, userID, id int64) (models.Sink, error) {
	return getSink(ctx, s.db, userID, id)
}

func (s *SinkService) Update(ctx context.Context, userID, id int64, f SinkFields) error {
	if f.empty() {
		return apperr.Validationf("no fields to update")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	k, err := getSink(ctx, tx, userID, id)
	if err != nil {
		return err
	}

	var set setList
	if f.ProjectName != nil {
		if k.ProjectName, err = requireText("projectName", f.ProjectName); err != nil {
			return err
		}
		set.add("project_name", k.ProjectName)
	}
	if f.Location != nil {
		if k.Location, err = requireText("location", f.Location); err != nil {
			return err
		}
		set.add("location", k.Location)
	}
	if f.ForestArea != nil {
		k.ForestArea = *f.ForestArea
		set.add("forest_area", k.ForestArea)
	}
	if f.TreeSpecies != nil {
		if k.TreeSpecies, err = requireChoice("treeSpecies", f.TreeSpecies, calc.ValidSpecies); err != nil {
			return err
		}
		set.add("tree_species", k.TreeSpecies)
	}
	if f.TreeDensity != nil {
		k.TreeDensity = *f.TreeDensity
		set.add("tree_density", k.TreeDensity)
	}
	if f.ForestAge != nil {
		k.ForestAge = *f.ForestAge
		set.add("forest_age", k.ForestAge)
	}
	if f.SoilType != nil {
		if k.SoilType, err = requireChoice("soilType", f.SoilType, calc.ValidSoil); err != nil {
			return err
		}
		set.add("soil_type", k.SoilType)
	}
	if f.MaintenanceLevel != nil {
		if k.MaintenanceLevel, err = requireChoice("maintenanceLevel", f.MaintenanceLevel, calc.ValidMaintenance); err != nil {
			return err
		}
		set.add("maintenance_level", k.MaintenanceLevel)
	}
	if f.Date != nil {
		set.add("date", stamp(*f.Date))
	}
	if err := recomputeSink(&k, f); err != nil {
		return err
	}
	set.add("annual_sequestration", k.AnnualSequestration)
	set.add("ten_year_sequestration", k.TenYearSequestration)
	set.add("thirty_year_sequestration", k.ThirtyYearSequestration)
	set.add("carbon_density", k.CarbonDensity)

	q := tx.Rebind(`UPDATE sinks SET ` + set.sql() + ` WHERE id = ? AND user_id = ?`)
	res, err := tx.ExecContext(ctx, q, append(set.args, id, userID)...)
	if err != nil {
		return errors.Wrap(err, "update sink")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("sink record not found")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *SinkService) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sinks WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return errors.Wrap(err, "delete sink")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("sink record not found")
	}
	return nil
}

func getSink(ctx context.Context, q sqlx.ExtContext, userID, id int64) (models.Sink, error) {
	var k models.Sink
	err := sqlx.GetContext(ctx, q, &k, q.Rebind(`SELECT `+sinkColumns+` FROM sinks WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Sink{}, apperr.NotFoundf("sink record not found")
		}
		return models.Sink{}, errors.Wrap(err, "select sink")
	}
	return k, nil
}

func recomputeSink(k *models.Sink, f SinkFields) error {
	res, err := calc.Sequestration(calc.SequestrationInput{
		ForestArea:       k.ForestArea,
		TreeSpecies:      k.TreeSpecies,
		TreeDensity:      k.TreeDensity,
		ForestAge:        k.ForestAge,
		SoilType:         k.SoilType,
		MaintenanceLevel: k.MaintenanceLevel,
	})
	if err != nil {
		return err
	}
	checks := []struct {
		name     string
		supplied *float64
		computed float64
	}{
		{"annualSequestration", f.AnnualSequestration, res.AnnualSequestration},
		{"tenYearSequestration", f.TenYearSequestration, res.TenYearSequestration},
		{"thirtyYearSequestration", f.ThirtyYearSequestration, res.ThirtyYearSequestration},
		{"carbonDensity", f.CarbonDensity, res.CarbonDensity},
	}
	for _, c := range checks {
		if c.supplied != nil && !calc.Matches(*c.supplied, c.computed) {
			return apperr.Validationf("%s %g does not match computed %g", c.name, *c.supplied, c.computed)
		}
	}
	k.AnnualSequestration = res.AnnualSequestration
	k.TenYearSequestration = res.TenYearSequestration
	k.ThirtyYearSequestration = res.ThirtyYearSequestration
	k.CarbonDensity = res.CarbonDensity
	return nil
}

func requireChoice(name string, v *string, valid func(string) bool) (string, error) {
	t, err := requireText(name, v)
	if err != nil {
		return "", err
	}
	t = strings.ToLower(t)
	if !valid(t) {
		return "", apperr.Validationf("unknown %s %q", name, t)
	}
	return t, nil
}
