// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package plan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/pkg/errutil"
)

// DefaultListLimit is the number of plans List returns when no limit is given.
const DefaultListLimit = 20

// Recorder observes generation outcomes. Implemented by the metrics layer.
type Recorder interface {
	PlanGenerated(result string)
}

type noopRecorder struct{}

func (noopRecorder) PlanGenerated(string) {}

// Service generates and stores meal plans.
type Service struct {
	generator Generator
	store     Store
	sanitizer *Sanitizer
	recorder  Recorder
	now       func() time.Time
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithServiceClock overrides the time source.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service.
func NewService(generator Generator, store Store, opts ...ServiceOption) (*Service, error) {
	if generator == nil {
		return nil, oops.Code("PLAN_INVALID_DEPENDENCY").Errorf("generator is required")
	}
	if store == nil {
		return nil, oops.Code("PLAN_INVALID_DEPENDENCY").Errorf("plan store is required")
	}
	s := &Service{
		generator: generator,
		store:     store,
		sanitizer: NewSanitizer(),
		recorder:  noopRecorder{},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Generate validates req, asks the model for a plan and stores the result.
// A plan that was generated but could not be stored is still returned, with Saved false.
func (s *Service) Generate(ctx context.Context, userID ulid.ULID, req Request) (*Plan, error) {
	req = s.sanitizer.Request(req.Normalize())
	if err := req.Validate(); err != nil {
		s.recorder.PlanGenerated("invalid")
		return nil, err
	}

	answer, err := s.generator.Generate(ctx, SystemRole, BuildPrompt(req))
	if err != nil {
		s.recorder.PlanGenerated("error")
		errutil.LogError(s.logger, "meal plan generation failed", err)
		return nil, oops.Code(CodeGenerationFailed).
			With("user_id", userID.String()).
			Wrap(errors.Join(ErrGenerationFailed, err))
	}

	content := s.sanitizer.Text(answer)
	parsed := Parse(content)
	now := s.now().UTC()
	p := &Plan{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		UserID:    userID,
		Request:   req,
		Content:   content,
		Recipes:   parsed.Recipes,
		Titles:    parsed.Titles,
		CreatedAt: now,
	}

	if err := s.store.Save(ctx, p); err != nil {
		errutil.LogError(s.logger, "meal plan not saved", err)
		s.recorder.PlanGenerated("unsaved")
		return p, nil
	}
	p.Saved = true
	s.recorder.PlanGenerated("ok")

	s.logger.InfoContext(ctx, "meal plan generated",
		"user_id", userID.String(),
		"plan_id", p.ID.String(),
		"recipes", len(p.Recipes),
	)
	return p, nil
}

// List returns the user's most recent plans.
func (s *Service) List(ctx context.Context, userID ulid.ULID, limit int) ([]*Plan, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultListLimit
	}
	plans, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, oops.With("operation", "list plans").Wrap(err)
	}
	return plans, nil
}

// Get returns one of the user's plans.
func (s *Service) Get(ctx context.Context, userID, id ulid.ULID) (*Plan, error) {
	p, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, oops.With("operation", "get plan").Wrap(err)
	}
	return p, nil
}
