package models

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Settings related errors
var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrInvalidSettings  = errors.New("invalid settings")
)

// Analysis history related errors
var (
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrInvalidReport    = errors.New("report failed validation")
)

// Repository reference errors
var (
	ErrInvalidRepositoryURL = errors.New("invalid GitHub repository URL")
)

// translate maps Postgres constraint violations to invalid and wraps
// everything else with op.
func translate(op string, err error, invalid error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return fmt.Errorf("%s: %w: %s", op, invalid, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
