package db

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// RunMigrations creates the users, emissions and sinks tables. It never drops
// anything, so it is safe to run on every start.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == DriverPostgres {
		schema = postgresSchema
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create schema")
	}
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    is_admin BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS emissions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    mine_name TEXT NOT NULL,
    mine_location TEXT NOT NULL,
    period TEXT NOT NULL,
    coal_production REAL NOT NULL,
    electricity_usage REAL NOT NULL,
    fuel_consumption REAL NOT NULL,
    methane_emissions REAL NOT NULL,
    total_emissions REAL NOT NULL,
    date TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emissions_user_date ON emissions(user_id, date);

CREATE TABLE IF NOT EXISTS sinks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id),
    project_name TEXT NOT NULL,
    location TEXT NOT NULL,
    forest_area REAL NOT NULL,
    tree_species TEXT NOT NULL,
    tree_density REAL NOT NULL,
    forest_age REAL NOT NULL,
    soil_type TEXT NOT NULL,
    maintenance_level TEXT NOT NULL,
    annual_sequestration REAL NOT NULL,
    ten_year_sequestration REAL NOT NULL,
    thirty_year_sequestration REAL NOT NULL,
    carbon_density REAL NOT NULL,
    date TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sinks_user_date ON sinks(user_id, date);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    is_admin BOOLEAN NOT NULL DEFAULT false,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS emissions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    mine_name TEXT NOT NULL,
    mine_location TEXT NOT NULL,
    period TEXT NOT NULL,
    coal_production DOUBLE PRECISION NOT NULL,
    electricity_usage DOUBLE PRECISION NOT NULL,
    fuel_consumption DOUBLE PRECISION NOT NULL,
    methane_emissions DOUBLE PRECISION NOT NULL,
    total_emissions DOUBLE PRECISION NOT NULL,
    date TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_emissions_user_date ON emissions(user_id, date);

CREATE TABLE IF NOT EXISTS sinks (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    project_name TEXT NOT NULL,
    location TEXT NOT NULL,
    forest_area DOUBLE PRECISION NOT NULL,
    tree_species TEXT NOT NULL,
    tree_density DOUBLE PRECISION NOT NULL,
    forest_age DOUBLE PRECISION NOT NULL,
    soil_type TEXT NOT NULL,
    maintenance_level TEXT NOT NULL,
    annual_sequestration DOUBLE PRECISION NOT NULL,
    ten_year_sequestration DOUBLE PRECISION NOT NULL,
    thirty_year_sequestration DOUBLE PRECISION NOT NULL,
    carbon_density DOUBLE PRECISION NOT NULL,
    date TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_sinks_user_date ON sinks(user_id, date);
`
