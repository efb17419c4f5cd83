// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/internal/auth"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool poolIface
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool poolIface) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Create stores a new token.
func (r *TokenRepository) Create(ctx context.Context, token *auth.Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_tokens (token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`,
		token.TokenHash,
		token.UserID.String(),
		token.CreatedAt,
		token.ExpiresAt,
	)
	if isForeignKeyViolation(err) {
		return oops.Code(auth.CodeUserNotFound).
			With("user_id", token.UserID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return unavailable("insert token", err)
	}
	return nil
}

// GetByHash retrieves a token by its hash.
func (r *TokenRepository) GetByHash(ctx context.Context, tokenHash string) (*auth.Token, error) {
	var (
		token     auth.Token
		userIDStr string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT token_hash, user_id, created_at, expires_at
		FROM auth_tokens
		WHERE token_hash = $1
	`, tokenHash).Scan(&token.TokenHash, &userIDStr, &token.CreatedAt, &token.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get token", err)
	}

	token.UserID, err = ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID_USER_ID").
			With("operation", "parse token user id").
			With("user_id", userIDStr).
			Wrap(err)
	}
	return &token, nil
}

// Delete removes a token by hash. Deleting an absent token is not an error.
func (r *TokenRepository) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return unavailable("delete token", err)
	}
	return nil
}

// DeleteByUser removes all tokens for a user.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID.String())
	if err != nil {
		return 0, unavailable("delete user tokens", err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes all tokens with expires_at <= now.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, unavailable("delete expired tokens", err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)
