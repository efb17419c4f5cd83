// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token configuration.
const (
	TokenBytes        = 32 // 256 bits, 43 base64url chars
	DefaultExpiryDays = 30
	DefaultTokenTTL   = DefaultExpiryDays * 24 * time.Hour
)

// Token is a persisted remember-me token. Only the SHA-256 digest of the
// token string is stored.
type Token struct {
	TokenHash string
	UserID    ulid.ULID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IssuedToken is the plaintext token handed to the client once.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// NewToken creates a validated Token record.
func NewToken(userID ulid.ULID, tokenHash string, createdAt, expiresAt time.Time) (*Token, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("TOKEN_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("TOKEN_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if !expiresAt.After(createdAt) {
		return nil, oops.Code("TOKEN_INVALID_EXPIRY").
			With("created_at", createdAt).
			With("expires_at", expiresAt).
			Errorf("expiry must be after creation")
	}
	return &Token{
		TokenHash: tokenHash,
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// IsExpiredAt reports whether the token is no longer valid at t.
// A token expires at ExpiresAt exactly.
func (t *Token) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// GenerateToken creates a URL-safe random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client; the hash is stored in the database.
func GenerateToken() (token, hash string, err error) {
	tokenBytes := make([]byte, TokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}

	token = base64.RawURLEncoding.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken computes the SHA-256 hex digest of a token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// TokenRepository is the token store.
type TokenRepository interface {
	// Create stores a new token.
	Create(ctx context.Context, token *Token) error

	// GetByHash retrieves a token by its hash.
	// Returns ErrNotFound if no token has the given hash.
	GetByHash(ctx context.Context, tokenHash string) (*Token, error)

	// Delete removes a token by hash. Deleting an absent token is not an error.
	Delete(ctx context.Context, tokenHash string) error

	// DeleteByUser removes all tokens for a user and returns the count.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes all tokens with expires_at <= now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
