package services

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"minecarbon/internal/apperr"
)

type AdminOverview struct {
	TotalUsers         int     `json:"totalUsers" db:"total_users"`
	EmissionRecords    int     `json:"emissionRecords" db:"emission_records"`
	SinkProjects       int     `json:"sinkProjects" db:"sink_projects"`
	TotalEmissions     float64 `json:"totalEmissions" db:"total_emissions"`
	TotalSequestration float64 `json:"totalSequestration" db:"total_sequestration"`
}

type AdminService struct {
	db *sqlx.DB
}

func NewAdminService(db *sqlx.DB) *AdminService { return &AdminService{db: db} }

// RequireAdmin reads the flag from the users table rather than trusting the token.
func (s *AdminService) RequireAdmin(ctx context.Context, userID int64) error {
	var isAdmin bool
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT is_admin FROM users WHERE id = ?`), userID).Scan(&isAdmin)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "select is_admin")
	}
	if !isAdmin {
		return apperr.Forbiddenf("admin access required")
	}
	return nil
}

func (s *AdminService) Overview(ctx context.Context) (AdminOverview, error) {
	var out AdminOverview
	err := s.db.GetContext(ctx, &out, `SELECT
		(SELECT COUNT(*) FROM users) AS total_users,
		(SELECT COUNT(*) FROM emissions) AS emission_records,
		(SELECT COUNT(*) FROM sinks) AS sink_projects,
		(SELECT COALESCE(SUM(total_emissions), 0) FROM emissions) AS total_emissions,
		(SELECT COALESCE(SUM(annual_sequestration), 0) FROM sinks) AS total_sequestration`)
	if err != nil {
		return AdminOverview{}, errors.Wrap(err, "admin overview")
	}
	return out, nil
}
