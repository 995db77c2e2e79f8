package models

import "time"

type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"isAdmin"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Emission is one reporting period of a mine. TotalEmissions is in tCO2e.
type Emission struct {
	ID               int64     `db:"id" json:"id"`
	UserID           int64     `db:"user_id" json:"userId"`
	MineName         string    `db:"mine_name" json:"mineName"`
	MineLocation     string    `db:"mine_location" json:"mineLocation"`
	Period           string    `db:"period" json:"period"`
	CoalProduction   float64   `db:"coal_production" json:"coalProduction"`
	ElectricityUsage float64   `db:"electricity_usage" json:"electricityUsage"`
	FuelConsumption  float64   `db:"fuel_consumption" json:"fuelConsumption"`
	MethaneEmissions float64   `db:"methane_emissions" json:"methaneEmissions"`
	TotalEmissions   float64   `db:"total_emissions" json:"totalEmissions"`
	Date             time.Time `db:"date" json:"date"`
}

// Sink is an afforestation project. Sequestration figures are tCO2.
type Sink struct {
	ID                      int64     `db:"id" json:"id"`
	UserID                  int64     `db:"user_id" json:"userId"`
	ProjectName             string    `db:"project_name" json:"projectName"`
	Location                string    `db:"location" json:"location"`
	ForestArea              float64   `db:"forest_area" json:"forestArea"`
	TreeSpecies             string    `db:"tree_species" json:"treeSpecies"`
	TreeDensity             float64   `db:"tree_density" json:"treeDensity"`
	ForestAge               float64   `db:"forest_age" json:"forestAge"`
	SoilType                string    `db:"soil_type" json:"soilType"`
	MaintenanceLevel        string    `db:"maintenance_level" json:"maintenanceLevel"`
	AnnualSequestration     float64   `db:"annual_sequestration" json:"annualSequestration"`
	TenYearSequestration    float64   `db:"ten_year_sequestration" json:"tenYearSequestration"`
	ThirtyYearSequestration float64   `db:"thirty_year_sequestration" json:"thirtyYearSequestration"`
	CarbonDensity           float64   `db:"carbon_density" json:"carbonDensity"`
	Date                    time.Time `db:"date" json:"date"`
}
