// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

// Package auth provides account registration, password authentication and
// remember-me tokens for the meal planner.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates an active User with a validated username and normalized email
//   - NewToken - creates a Token record with a validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Stores
//
// UserRepository (the credential store) and TokenRepository (the token store)
// are implemented by the postgres and memory subpackages. Both enforce email
// uniqueness themselves and classify outages as ErrDatabaseUnavailable.
//
// # Manager
//
// Manager is a stateless service over the two stores:
//   - Register - validates input, hashes the password, stores the user
//   - Authenticate - checks credentials without revealing which part was wrong
//   - IssueToken / ValidateToken / RevokeToken - fixed-lifetime remember-me tokens
//   - ChangePassword - replaces the hash and revokes every token of the user
//
// Errors carry an oops code (see the Code* constants) and wrap one of the
// package sentinels so callers can use errors.Is.
package auth
