// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package plan

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[ulid.ULID]*Plan
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[ulid.ULID]*Plan)}
}

// Save stores a copy of p.
func (s *MemoryStore) Save(_ context.Context, p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := clonePlan(p)
	stored.Saved = true
	s.plans[p.ID] = stored
	return nil
}

// ListByUser returns the user's plans, newest first.
func (s *MemoryStore) ListByUser(_ context.Context, userID ulid.ULID, limit int) ([]*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Plan
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, clonePlan(p))
		}
	}
	slices.SortFunc(out, func(a, b *Plan) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID.Compare(a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get returns a plan owned by userID.
func (s *MemoryStore) Get(_ context.Context, userID, id ulid.ULID) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok || p.UserID != userID {
		return nil, oops.Code(CodeNotFound).With("plan_id", id.String()).Wrap(ErrPlanNotFound)
	}
	return clonePlan(p), nil
}

func clonePlan(p *Plan) *Plan {
	c := *p
	c.Request.Ingredients = slices.Clone(p.Request.Ingredients)
	c.Recipes = slices.Clone(p.Recipes)
	c.Titles = slices.Clone(p.Titles)
	return &c
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
