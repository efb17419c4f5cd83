// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package session_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/internal/auth"
)

// fakeCookies is an in-memory CookieStore whose readiness can be toggled.
type fakeCookies struct {
	ready   bool
	values  map[string]string
	expires map[string]time.Time
	saves   int
	saveErr error
}

func newFakeCookies() *fakeCookies {
	return &fakeCookies{
		ready:   true,
		values:  make(map[string]string),
		expires: make(map[string]time.Time),
	}
}

func (c *fakeCookies) Ready() bool { return c.ready }

func (c *fakeCookies) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *fakeCookies) Set(key, value string, expires time.Time) {
	c.values[key] = value
	c.expires[key] = expires
}

func (c *fakeCookies) Delete(key string) {
	delete(c.values, key)
	delete(c.expires, key)
}

func (c *fakeCookies) Save() error {
	c.saves++
	return c.saveErr
}

// fakeAuth records calls and lets tests choose outcomes.
type fakeAuth struct {
	mu sync.Mutex

	user        *auth.UserInfo
	password    string
	tokens      map[string]time.Time
	issueErr    error
	validateErr error
	revokeErr   error
	currentErr  error
	inactive    bool

	issued  int
	revoked []string
	checks  int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		user:     &auth.UserInfo{UserID: ulid.Make(), Username: "cook", Email: "cook@example.com"},
		password: "Secur3P@ss",
		tokens:   make(map[string]time.Time),
	}
}

func (a *fakeAuth) Authenticate(_ context.Context, email, password string) (*auth.UserInfo, error) {
	if email != a.user.Email || password != a.password {
		return nil, oops.Code(auth.CodeInvalidCredentials).Wrap(auth.ErrInvalidCredentials)
	}
	u := *a.user
	return &u, nil
}

func (a *fakeAuth) IssueToken(_ context.Context, _ ulid.ULID) (*auth.IssuedToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.issueErr != nil {
		return nil, a.issueErr
	}
	a.issued++
	tok, _, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}
	exp := time.Now().Add(auth.DefaultTokenTTL)
	a.tokens[tok] = exp
	return &auth.IssuedToken{Token: tok, ExpiresAt: exp}, nil
}

func (a *fakeAuth) ValidateToken(_ context.Context, token string) (*auth.UserInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.validateErr != nil {
		return nil, a.validateErr
	}
	if _, ok := a.tokens[token]; !ok {
		return nil, oops.Code(auth.CodeTokenInvalid).Wrap(auth.ErrTokenInvalid)
	}
	u := *a.user
	return &u, nil
}

func (a *fakeAuth) RevokeToken(_ context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked = append(a.revoked, token)
	if a.revokeErr != nil {
		return a.revokeErr
	}
	delete(a.tokens, token)
	return nil
}

func (a *fakeAuth) CurrentUser(_ context.Context, userID ulid.ULID) (*auth.UserInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checks++
	if a.currentErr != nil {
		return nil, a.currentErr
	}
	if a.inactive || userID != a.user.UserID {
		return nil, oops.Code(auth.CodeInvalidCredentials).Wrap(auth.ErrInvalidCredentials)
	}
	u := *a.user
	return &u, nil
}

func unavailable() error {
	return oops.Code(auth.CodeDatabaseUnavailable).Wrap(errors.Join(auth.ErrDatabaseUnavailable, errors.New("connection refused")))
}
