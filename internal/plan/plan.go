// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

// Package plan generates daily meal plans from a list of ingredients and keeps
// each user's plan history.
package plan

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// Error codes attached to plan errors.
const (
	CodeNoIngredients    = "PLAN_NO_INGREDIENTS"
	CodeInvalidKcal      = "PLAN_INVALID_KCAL"
	CodeExtraTooLong     = "PLAN_EXTRA_TOO_LONG"
	CodeGenerationFailed = "PLAN_GENERATION_FAILED"
	CodeNotFound         = "PLAN_NOT_FOUND"
	CodeStoreUnavailable = "PLAN_STORE_UNAVAILABLE"
)

var (
	// ErrInvalidRequest is wrapped by every request validation failure.
	ErrInvalidRequest = errors.New("invalid plan request")

	// ErrGenerationFailed is returned when the model could not produce a plan.
	ErrGenerationFailed = errors.New("meal plan generation failed")

	// ErrPlanNotFound is returned when a plan does not exist or belongs to another user.
	ErrPlanNotFound = errors.New("meal plan not found")

	// ErrStoreUnavailable is returned when the plan store cannot be reached.
	ErrStoreUnavailable = errors.New("plan store unavailable")
)

// Plan is a generated meal plan.
type Plan struct {
	ID        ulid.ULID `json:"id"`
	UserID    ulid.ULID `json:"user_id"`
	Request   Request   `json:"request"`
	Content   string    `json:"content"`
	Recipes   []string  `json:"recipes"`
	Titles    []string  `json:"titles"`
	CreatedAt time.Time `json:"created_at"`
	// Saved is false when the plan was generated but could not be stored.
	Saved bool `json:"saved"`
}

// Store persists plans.
type Store interface {
	// Save stores a plan.
	Save(ctx context.Context, p *Plan) error

	// ListByUser returns the user's plans, newest first, at most limit of them.
	ListByUser(ctx context.Context, userID ulid.ULID, limit int) ([]*Plan, error)

	// Get returns a plan owned by userID. Returns ErrPlanNotFound otherwise.
	Get(ctx context.Context, userID, id ulid.ULID) (*Plan, error)
}
