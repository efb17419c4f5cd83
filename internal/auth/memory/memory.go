// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

// Package memory provides in-process implementations of the auth stores for
// development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/internal/auth"
)

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create stores a new user. The email check and insert happen under one lock.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return oops.Code(auth.CodeDuplicateUser).
			With("email", user.Email).
			Wrap(auth.ErrDuplicateUser)
	}
	if _, exists := r.byID[user.ID]; exists {
		return oops.Code("USER_CREATE_FAILED").
			With("id", user.ID.String()).
			Errorf("duplicate user id")
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, oops.Code(auth.CodeUserNotFound).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	clone := *user
	return &clone, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code(auth.CodeUserNotFound).
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	clone := *r.byID[id]
	return &clone, nil
}

// UpdatePassword replaces the password hash for a user.
func (r *UserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	return r.update(id, func(u *auth.User) {
		u.PasswordHash = passwordHash
	})
}

// SetActive sets the is_active flag for a user.
func (r *UserRepository) SetActive(_ context.Context, id ulid.ULID, active bool) error {
	return r.update(id, func(u *auth.User) {
		u.IsActive = active
	})
}

// Ping always succeeds.
func (r *UserRepository) Ping(context.Context) error {
	return nil
}

func (r *UserRepository) update(id ulid.ULID, fn func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return oops.Code(auth.CodeUserNotFound).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	fn(user)
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// TokenRepository implements auth.TokenRepository in memory.
type TokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]*auth.Token
}

// NewTokenRepository creates an empty TokenRepository.
func NewTokenRepository() *TokenRepository {
	return &TokenRepository{tokens: make(map[string]*auth.Token)}
}

// Create stores a new token.
func (r *TokenRepository) Create(_ context.Context, token *auth.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[token.TokenHash]; exists {
		return oops.Code("TOKEN_CREATE_FAILED").Errorf("duplicate token hash")
	}
	stored := *token
	r.tokens[token.TokenHash] = &stored
	return nil
}

// GetByHash retrieves a token by its hash.
func (r *TokenRepository) GetByHash(_ context.Context, tokenHash string) (*auth.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	clone := *token
	return &clone, nil
}

// Delete removes a token by hash.
func (r *TokenRepository) Delete(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, tokenHash)
	return nil
}

// DeleteByUser removes all tokens for a user.
func (r *TokenRepository) DeleteByUser(_ context.Context, userID ulid.ULID) (int64, error) {
	return r.deleteWhere(func(t *auth.Token) bool {
		return t.UserID == userID
	}), nil
}

// DeleteExpired removes all tokens with expires_at <= now.
func (r *TokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(t *auth.Token) bool {
		return t.IsExpiredAt(now)
	}), nil
}

// Len returns the number of stored tokens.
func (r *TokenRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

func (r *TokenRepository) deleteWhere(match func(*auth.Token) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for hash, t := range r.tokens {
		if match(t) {
			delete(r.tokens, hash)
			n++
		}
	}
	return n
}

// Compile-time interface checks.
var (
	_ auth.UserRepository  = (*UserRepository)(nil)
	_ auth.TokenRepository = (*TokenRepository)(nil)
)
