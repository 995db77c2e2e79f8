package services

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"minecarbon/internal/apperr"
)

// ImportBatch carries records collected offline, typically by the dashboard
// before the user signed in.
type ImportBatch struct {
	Emissions []EmissionFields `json:"emissions"`
	Sinks     []SinkFields     `json:"sinks"`
}

type ImportResult struct {
	Emissions int `json:"emissions"`
	Sinks     int `json:"sinks"`
}

type ImportService struct {
	db *sqlx.DB
}

func NewImportService(db *sqlx.DB) *ImportService { return &ImportService{db: db} }

// Import stores the whole batch for userID or nothing. The first invalid record
// aborts the batch and is named by its position.
func (s *ImportService) Import(ctx context.Context, userID int64, b ImportBatch) (ImportResult, error) {
	if len(b.Emissions) == 0 && len(b.Sinks) == 0 {
		return ImportResult{}, apperr.Validationf("no emissions or sinks provided")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	var res ImportResult
	for i, f := range b.Emissions {
		if _, err := insertEmission(ctx, tx, userID, f); err != nil {
			return ImportResult{}, atIndex("emissions", i, err)
		}
		res.Emissions++
	}
	for i, f := range b.Sinks {
		if _, err := insertSink(ctx, tx, userID, f); err != nil {
			return ImportResult{}, atIndex("sinks", i, err)
		}
		res.Sinks++
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, errors.Wrap(err, "commit")
	}
	return res, nil
}

func atIndex(kind string, i int, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Code == apperr.Validation {
		return apperr.Validationf("%s[%d]: %s", kind, i, ae.Message)
	}
	return errors.Wrapf(err, "%s[%d]", kind, i)
}
