// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

// Package postgres implements the auth credential and token stores on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool used by the repositories.
// Each call acquires a connection from the pool and releases it before returning.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// pgErrorCode returns the SQLSTATE of err, or "" if err is not a server error.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgerrcode.UniqueViolation
}

// isForeignKeyViolation reports whether err is a foreign key violation.
func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgerrcode.ForeignKeyViolation
}

// unavailable classifies a storage failure so callers see ErrDatabaseUnavailable.
// The original error is kept in the chain for logging.
func unavailable(operation string, err error) error {
	return oops.Code(auth.CodeDatabaseUnavailable).
		With("operation", operation).
		With("sqlstate", pgErrorCode(err)).
		Wrap(errors.Join(auth.ErrDatabaseUnavailable, err))
}
