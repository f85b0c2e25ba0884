package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// violatedConstraint returns the constraint name of a unique/foreign key violation
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// DuplicateField maps a unique violation to the column that collided,
// relying on the constraint names created by EnsureSchema.
func DuplicateField(err error) string {
	name := violatedConstraint(err)
	switch {
	case strings.HasSuffix(name, "_locale_title_key"):
		return "title"
	case strings.HasSuffix(name, "_locale_slug_key"):
		return "slug"
	case strings.HasSuffix(name, "_parent_locale_key"):
		return "locale"
	default:
		return ""
	}
}
