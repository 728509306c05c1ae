package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/veriscope/console/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict("a snapshot with this key already exists")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Undefined table (42P01)
	case "42P01":
		return errors.Internal("snapshot table is missing; run the store migration")

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "key_not_empty"):
		return errors.Validation(map[string]string{
			"key": "must not be empty",
		})
	case strings.Contains(constraint, "payload_object"):
		return errors.Validation(map[string]string{
			"payload": "must be a JSON object",
		})
	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}
