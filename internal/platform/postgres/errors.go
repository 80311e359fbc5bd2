package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/studio-api/internal/store"
)

// PostgreSQL error codes translated by MapError.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// constraintMessages describes the schema's named constraints.
var constraintMessages = map[string]string{
	"generations_pkey":                  "generation already exists",
	"artifacts_pkey":                    "artifact index already stored",
	"artifacts_generation_id_fkey":      "artifact references an unknown generation",
	"credit_entries_pkey":               "credit entry already exists",
	"credit_entries_generation_id_fkey": "credit entry references an unknown generation",
	"idx_credit_entries_refund":         "generation already refunded",
	"idx_credit_entries_daily_bonus":    "daily bonus already claimed",
	"tasks_pkey":                        "task already exists",
}

// MapError translates a database error into a store error. Constraint
// violations are not wrapped: the driver error carries table, column and
// row detail that must not travel further up the stack.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %s", store.ErrDuplicate, describeViolation(pgErr))
	case foreignKeyViolationCode, checkViolationCode, notNullViolationCode:
		return fmt.Errorf("%w: %s", store.ErrInvalidEntity, describeViolation(pgErr))
	default:
		return err
	}
}

func describeViolation(pgErr *pgconn.PgError) string {
	if msg, ok := constraintMessages[pgErr.ConstraintName]; ok {
		return msg
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		return "duplicate key"
	case foreignKeyViolationCode:
		return "reference to a missing row"
	case notNullViolationCode:
		return "missing required value"
	default:
		return "value violates a check constraint"
	}
}

// checkRowsAffected returns notFound when an UPDATE or DELETE matched no rows.
func checkRowsAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
