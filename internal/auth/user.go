// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username length limits, counted in runes.
const (
	MinUsernameLength = 1
	MaxUsernameLength = 64
)

// emailRegex matches local@domain.tld. Every domain label must be non-empty,
// so "user@.com" is rejected.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9](?:[a-zA-Z0-9\-]*[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9\-]*[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}$`)

// User is a registered account.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserInfo is the public view of a user returned by authentication.
type UserInfo struct {
	UserID   ulid.ULID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// Info returns the public view of the user.
func (u *User) Info() *UserInfo {
	return &UserInfo{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// NewUser creates a validated, active User. The email is normalized and
// passwordHash must already be a hash.
func NewUser(username, email, passwordHash string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	now = now.UTC()
	return &User{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email looks like local@domain.tld.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeValidation).
			With("field", "email").
			Wrapf(ErrValidation, "email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code(CodeValidation).
			With("field", "email").
			Wrapf(ErrValidation, "email address is malformed")
	}
	return nil
}

// ValidateUsername checks an already trimmed username: MinUsernameLength to
// MaxUsernameLength runes of valid UTF-8 with no control characters.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeValidation).
			With("field", "username").
			Wrapf(ErrValidation, "username cannot be empty")
	}
	if !utf8.ValidString(username) {
		return oops.Code(CodeValidation).
			With("field", "username").
			Wrapf(ErrValidation, "username must be valid UTF-8")
	}
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return oops.Code(CodeValidation).
			With("field", "username").
			With("min", MinUsernameLength).
			With("max", MaxUsernameLength).
			Wrapf(ErrValidation, "username must be %d to %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if strings.IndexFunc(username, unicode.IsControl) >= 0 {
		return oops.Code(CodeValidation).
			With("field", "username").
			Wrapf(ErrValidation, "username cannot contain control characters")
	}
	return nil
}

// UserRepository is the credential store.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateUser if the email is taken;
	// uniqueness is enforced by the store itself.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by normalized email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetActive sets the is_active flag for a user.
	SetActive(ctx context.Context, id ulid.ULID, active bool) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
