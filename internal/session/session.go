// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

// Package session ties the transient, per-client authenticated session to the
// durable remember-me token kept in a cookie.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/mealplanner/mealplanner/internal/auth"
)

// Session is the authentication state of one client. It is safe for
// concurrent use by requests of the same client.
type Session struct {
	mu            sync.RWMutex
	authenticated bool
	user          *auth.UserInfo
	// verifiedAt is when the user was last confirmed against the credential store.
	verifiedAt time.Time
	// revokePending marks a logout whose token could not be revoked yet.
	revokePending bool
}

// New returns an unauthenticated session.
func New() *Session {
	return &Session{}
}

// Authenticated reports whether the session is logged in.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// User returns a copy of the logged-in user, or nil.
func (s *Session) User() *auth.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SignIn marks the session as authenticated for user. The user is treated as
// unverified, so the next Restore re-checks it.
func (s *Session) SignIn(user *auth.UserInfo) {
	s.signIn(user, time.Time{})
}

func (s *Session) signIn(user *auth.UserInfo, verifiedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.user = &u
	s.authenticated = true
	s.verifiedAt = verifiedAt
	s.revokePending = false
}

// Clear resets the session to unauthenticated.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.authenticated = false
	s.verifiedAt = time.Time{}
}

func (s *Session) verified() (*auth.UserInfo, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, time.Time{}
	}
	u := *s.user
	return &u, s.verifiedAt
}

func (s *Session) setRevokePending(pending bool) {
	s.mu.Lock()
	s.revokePending = pending
	s.mu.Unlock()
}

func (s *Session) hasRevokePending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revokePending
}

type ctxKey struct{}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	return sess, ok
}
