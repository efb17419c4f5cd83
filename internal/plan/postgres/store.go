// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

// Package postgres implements the meal plan store on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/internal/plan"
)

type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements plan.Store using PostgreSQL.
type Store struct {
	pool poolIface
}

// NewStore creates a new Store.
func NewStore(pool poolIface) *Store {
	return &Store{pool: pool}
}

// Save stores a plan.
func (s *Store) Save(ctx context.Context, p *plan.Plan) error {
	request, err := json.Marshal(p.Request)
	if err != nil {
		return oops.Code("PLAN_ENCODE_FAILED").With("plan_id", p.ID.String()).Wrap(err)
	}
	titles := p.Titles
	if titles == nil {
		titles = []string{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO meal_plans (id, user_id, request, content, titles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID.String(), p.UserID.String(), request, p.Content, titles, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return oops.Code("PLAN_UNKNOWN_USER").With("user_id", p.UserID.String()).Wrap(err)
		}
		return unavailable("insert plan", err)
	}
	return nil
}

// ListByUser returns the user's plans, newest first.
func (s *Store) ListByUser(ctx context.Context, userID ulid.ULID, limit int) ([]*plan.Plan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, request, content, titles, created_at
		FROM meal_plans
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID.String(), limit)
	if err != nil {
		return nil, unavailable("list plans", err)
	}
	defer rows.Close()

	var plans []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate plans", err)
	}
	return plans, nil
}

// Get returns a plan owned by userID.
func (s *Store) Get(ctx context.Context, userID, id ulid.ULID) (*plan.Plan, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, request, content, titles, created_at
		FROM meal_plans
		WHERE id = $1 AND user_id = $2
	`, id.String(), userID.String())

	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(plan.CodeNotFound).With("plan_id", id.String()).Wrap(plan.ErrPlanNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPlan(row pgx.Row) (*plan.Plan, error) {
	var (
		idStr, userIDStr string
		request          []byte
		p                plan.Plan
		createdAt        time.Time
	)
	if err := row.Scan(&idStr, &userIDStr, &request, &p.Content, &p.Titles, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers map to ErrPlanNotFound
		}
		return nil, unavailable("scan plan", err)
	}

	var err error
	if p.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("PLAN_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if p.UserID, err = ulid.Parse(userIDStr); err != nil {
		return nil, oops.Code("PLAN_INVALID_ID").With("user_id", userIDStr).Wrap(err)
	}
	if err := json.Unmarshal(request, &p.Request); err != nil {
		return nil, oops.Code("PLAN_DECODE_FAILED").With("id", idStr).Wrap(err)
	}
	p.CreatedAt = createdAt.UTC()
	p.Recipes = plan.Parse(p.Content).Recipes
	p.Saved = true
	return &p, nil
}

func unavailable(operation string, err error) error {
	return oops.Code(plan.CodeStoreUnavailable).
		With("operation", operation).
		Wrap(errors.Join(plan.ErrStoreUnavailable, err))
}

// Compile-time interface check.
var _ plan.Store = (*Store)(nil)
