// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package auth

import (
	"errors"
	"fmt"
)

// Error codes attached to auth errors via oops. Handlers and logs switch on these.
const (
	CodeValidation          = "AUTH_VALIDATION"
	CodeWeakPassword        = "AUTH_WEAK_PASSWORD"
	CodeDuplicateUser       = "AUTH_DUPLICATE_USER"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeTokenInvalid        = "AUTH_TOKEN_INVALID"
	CodeDatabaseUnavailable = "AUTH_DB_UNAVAILABLE"
	CodeUserNotFound        = "AUTH_USER_NOT_FOUND"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed input such as an invalid email.
	ErrValidation = errors.New("validation failed")

	// ErrWeakPassword is returned when a password fails the strength policy.
	// The concrete error is a *WeakPasswordError naming the unmet rule.
	ErrWeakPassword = errors.New("password does not meet policy")

	// ErrDuplicateUser is returned when a user with the same email already exists.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrTokenInvalid covers missing, expired and revoked tokens as well as
	// tokens whose user is inactive.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrDatabaseUnavailable is returned when the backing store cannot be reached.
	ErrDatabaseUnavailable = errors.New("database unavailable")
)

// WeakPasswordError reports the first password rule that was not satisfied.
type WeakPasswordError struct {
	Rule PasswordRule
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("weak password: %s", e.Rule.Description())
}

// Unwrap lets errors.Is match ErrWeakPassword.
func (e *WeakPasswordError) Unwrap() error {
	return ErrWeakPassword
}
