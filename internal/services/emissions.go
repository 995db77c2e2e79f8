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

const emissionColumns = `id, user_id, mine_name, mine_location, period, coal_production,
	electricity_usage, fuel_consumption, methane_emissions, total_emissions, date`

// EmissionFields is the writable part of an emission record. Create needs every
// field except TotalEmissions and Date; Update takes any non-empty subset.
type EmissionFields struct {
	MineName         *string    `json:"mineName"`
	MineLocation     *string    `json:"mineLocation"`
	Period           *string    `json:"period"`
	CoalProduction   *float64   `json:"coalProduction"`
	ElectricityUsage *float64   `json:"electricityUsage"`
	FuelConsumption  *float64   `json:"fuelConsumption"`
	MethaneEmissions *float64   `json:"methaneEmissions"`
	TotalEmissions   *float64   `json:"totalEmissions"`
	Date             *time.Time `json:"date"`
}

func (f EmissionFields) empty() bool {
	return f.MineName == nil && f.MineLocation == nil && f.Period == nil &&
		f.CoalProduction == nil && f.ElectricityUsage == nil && f.FuelConsumption == nil &&
		f.MethaneEmissions == nil && f.TotalEmissions == nil && f.Date == nil
}

type EmissionService struct {
	db *sqlx.DB
}

func NewEmissionService(db *sqlx.DB) *EmissionService {
	return &EmissionService{db: db}
}

// Create validates f, recomputes the total and inserts the record for userID.
func (s *EmissionService) Create(ctx context.Context, userID int64, f EmissionFields) (int64, error) {
	return insertEmission(ctx, s.db, userID, f)
}

func insertEmission(ctx context.Context, q sqlx.ExtContext, userID int64, f EmissionFields) (int64, error) {
	e := models.Emission{UserID: userID, Date: stamp(time.Now())}
	var err error
	if e.MineName, err = requireText("mineName", f.MineName); err != nil {
		return 0, err
	}
	if e.MineLocation, err = requireText("mineLocation", f.MineLocation); err != nil {
		return 0, err
	}
	if e.Period, err = requireText("period", f.Period); err != nil {
		return 0, err
	}
	if e.CoalProduction, err = requireNumber("coalProduction", f.CoalProduction); err != nil {
		return 0, err
	}
	if e.ElectricityUsage, err = requireNumber("electricityUsage", f.ElectricityUsage); err != nil {
		return 0, err
	}
	if e.FuelConsumption, err = requireNumber("fuelConsumption", f.FuelConsumption); err != nil {
		return 0, err
	}
	if e.MethaneEmissions, err = requireNumber("methaneEmissions", f.MethaneEmissions); err != nil {
		return 0, err
	}
	if f.Date != nil {
		e.Date = stamp(*f.Date)
	}
	if err := recomputeEmission(&e, f.TotalEmissions); err != nil {
		return 0, err
	}

	query := q.Rebind(`INSERT INTO emissions (user_id, mine_name, mine_location, period, coal_production,
		electricity_usage, fuel_consumption, methane_emissions, total_emissions, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err = q.QueryRowxContext(ctx, query, e.UserID, e.MineName, e.MineLocation, e.Period, e.CoalProduction,
		e.ElectricityUsage, e.FuelConsumption, e.MethaneEmissions, e.TotalEmissions, e.Date).Scan(&e.ID)
	if err != nil {
		return 0, errors.Wrap(err, "insert emission")
	}
	return e.ID, nil
}

func (s *EmissionService) List(ctx context.Context, userID int64, lq ListQuery) ([]models.Emission, error) {
	plan, err := lq.parse(emissionSortable)
	if err != nil {
		return nil, err
	}
	where, args := plan.rng.apply("date", []string{"user_id = ?"}, []any{userID})
	q := `SELECT ` + emissionColumns + ` FROM emissions WHERE ` + strings.Join(where, " AND ") + plan.orderBy()

	out := []models.Emission{}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "list emissions")
	}
	return out, nil
}

func (s *EmissionService) Get(ctx context.Context, userID, id int64) (models.Emission, error) {
	return getEmission(ctx, s.db, userID, id)
}

// Update applies a sparse patch. The derived total is always rewritten.
func (s *EmissionService) Update(ctx context.Context, userID, id int64, f EmissionFields) error {
	if f.empty() {
		return apperr.Validationf("no fields to update")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	e, err := getEmission(ctx, tx, userID, id)
	if err != nil {
		return err
	}

	var set setList
	if f.MineName != nil {
		if e.MineName, err = requireText("mineName", f.MineName); err != nil {
			return err
		}
		set.add("mine_name", e.MineName)
	}
	if f.MineLocation != nil {
		if e.MineLocation, err = requireText("mineLocation", f.MineLocation); err != nil {
			return err
		}
		set.add("mine_location", e.MineLocation)
	}
	if f.Period != nil {
		if e.Period, err = requireText("period", f.Period); err != nil {
			return err
		}
		set.add("period", e.Period)
	}
	if f.CoalProduction != nil {
		e.CoalProduction = *f.CoalProduction
		set.add("coal_production", e.CoalProduction)
	}
	if f.ElectricityUsage != nil {
		e.ElectricityUsage = *f.ElectricityUsage
		set.add("electricity_usage", e.ElectricityUsage)
	}
	if f.FuelConsumption != nil {
		e.FuelConsumption = *f.FuelConsumption
		set.add("fuel_consumption", e.FuelConsumption)
	}
	if f.MethaneEmissions != nil {
		e.MethaneEmissions = *f.MethaneEmissions
		set.add("methane_emissions", e.MethaneEmissions)
	}
	if f.Date != nil {
		set.add("date", stamp(*f.Date))
	}
	if err := recomputeEmission(&e, f.TotalEmissions); err != nil {
		return err
	}
	set.add("total_emissions", e.TotalEmissions)

	q := tx.Rebind(`UPDATE emissions SET ` + set.sql() + ` WHERE id = ? AND user_id = ?`)
	res, err := tx.ExecContext(ctx, q, append(set.args, id, userID)...)
	if err != nil {
		return errors.Wrap(err, "update emission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("emission record not found")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (s *EmissionService) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM emissions WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return errors.Wrap(err, "delete emission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundf("emission record not found")
	}
	return nil
}

func getEmission(ctx context.Context, q sqlx.ExtContext, userID, id int64) (models.Emission, error) {
	var e models.Emission
	err := sqlx.GetContext(ctx, q, &e, q.Rebind(`SELECT `+emissionColumns+` FROM emissions WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Emission{}, apperr.NotFoundf("emission record not found")
		}
		return models.Emission{}, errors.Wrap(err, "select emission")
	}
	return e, nil
}

// recomputeEmission sets e.TotalEmissions from its activity data and rejects a
// supplied total that disagrees.
func recomputeEmission(e *models.Emission, supplied *float64) error {
	res, err := calc.Emissions(calc.EmissionInput{
		CoalProduction:   e.CoalProduction,
		ElectricityUsage: e.ElectricityUsage,
		FuelConsumption:  e.FuelConsumption,
		MethaneEmissions: e.MethaneEmissions,
	})
	if err != nil {
		return err
	}
	if supplied != nil && !calc.Matches(*supplied, res.TotalEmissions) {
		return apperr.Validationf("totalEmissions %g does not match computed %g", *supplied, res.TotalEmissions)
	}
	e.TotalEmissions = res.TotalEmissions
	return nil
}
