package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"magasin/internal/core/apperror"
)

// PostgreSQL error codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint failure,
// optionally restricted to one constraint name.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err is a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

// MapWriteError turns constraint violations into Conflict errors and leaves
// anything else untouched.
func MapWriteError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return apperror.NewConflict(entity+" already exists").
			WithDetail("entity", entity).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case codeForeignKeyViolation:
		return apperror.NewConflict(entity+" references a missing or used row").
			WithDetail("entity", entity).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	}
	return err
}
