// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// fallbackDummyHash is only used if the configured hasher cannot produce a
// dummy hash. It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const fallbackDummyHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Manager registers and authenticates users and manages remember-me tokens.
// It holds no persistent state of its own.
type Manager struct {
	users    UserRepository
	tokens   TokenRepository
	hasher   PasswordHasher
	policy   PasswordPolicy
	tokenTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithTokenTTL sets the default token lifetime used by IssueToken.
func WithTokenTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.tokenTTL = ttl
		}
	}
}

// WithPasswordPolicy overrides the password policy.
func WithPasswordPolicy(policy PasswordPolicy) ManagerOption {
	return func(m *Manager) {
		m.policy = policy
	}
}

// NewManager creates a new Manager.
func NewManager(users UserRepository, tokens TokenRepository, hasher PasswordHasher, opts ...ManagerOption) (*Manager, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("user repository is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}

	m := &Manager{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		policy:   DefaultPasswordPolicy(),
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Register creates a new active user.
func (m *Manager) Register(ctx context.Context, username, email, password string) (*UserInfo, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := m.policy.Validate(password); err != nil {
		return nil, err
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, email, hash, m.now())
	if err != nil {
		return nil, err
	}

	if err := m.users.Create(ctx, user); err != nil {
		// The store classifies duplicates and outages; keep its code.
		return nil, oops.With("operation", "create user").Wrap(err)
	}

	m.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user.Info(), nil
}

// Authenticate checks an email and password. Unknown email, inactive account
// and wrong password all produce the same ErrInvalidCredentials.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*UserInfo, error) {
	email = NormalizeEmail(email)

	user, lookupErr := m.users.GetByEmail(ctx, email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.With("operation", "get user by email").Wrap(lookupErr)
	}

	// Always verify so that response time does not depend on whether the user exists.
	targetHash := m.dummy()
	if user != nil {
		targetHash = user.PasswordHash
	}

	valid, verifyErr := m.hasher.Verify(password, targetHash)
	if verifyErr != nil && user != nil {
		m.logger.WarnContext(ctx, "stored password hash is unreadable",
			"user_id", user.ID.String(),
			"error", verifyErr,
		)
	}

	if user == nil || verifyErr != nil || !valid || !user.IsActive {
		return nil, invalidCredentials()
	}

	if m.hasher.NeedsUpgrade(user.PasswordHash) {
		m.upgradeHash(ctx, user, password)
	}

	return user.Info(), nil
}

// upgradeHash rehashes with the current parameters. Failures are logged; the
// login succeeds regardless.
func (m *Manager) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := m.hasher.Hash(password)
	if err != nil {
		m.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID.String(), "error", err)
		return
	}
	if err := m.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		m.logger.WarnContext(ctx, "password rehash not stored", "user_id", user.ID.String(), "error", err)
	}
}

// IssueToken creates a remember-me token with the default lifetime.
func (m *Manager) IssueToken(ctx context.Context, userID ulid.ULID) (*IssuedToken, error) {
	return m.issue(ctx, userID, m.tokenTTL)
}

// IssueTokenFor creates a remember-me token valid for expiryDays days.
func (m *Manager) IssueTokenFor(ctx context.Context, userID ulid.ULID, expiryDays int) (*IssuedToken, error) {
	if expiryDays <= 0 {
		return nil, oops.Code(CodeValidation).
			With("field", "expiry_days").
			Wrapf(ErrValidation, "expiry must be at least one day")
	}
	return m.issue(ctx, userID, time.Duration(expiryDays)*24*time.Hour)
}

func (m *Manager) issue(ctx context.Context, userID ulid.ULID, ttl time.Duration) (*IssuedToken, error) {
	plain, hash, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	token, err := NewToken(userID, hash, now, now.Add(ttl))
	if err != nil {
		return nil, err
	}

	if err := m.tokens.Create(ctx, token); err != nil {
		return nil, oops.With("operation", "create token").With("user_id", userID.String()).Wrap(err)
	}

	return &IssuedToken{Token: plain, ExpiresAt: token.ExpiresAt}, nil
}

// ValidateToken returns the token's user if the token exists, has not expired
// and belongs to an active user. Every other case returns ErrTokenInvalid.
// Expiry is never extended.
func (m *Manager) ValidateToken(ctx context.Context, token string) (*UserInfo, error) {
	if token == "" {
		return nil, tokenInvalid()
	}

	stored, err := m.tokens.GetByHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, tokenInvalid()
		}
		return nil, oops.With("operation", "get token").Wrap(err)
	}

	if stored.IsExpiredAt(m.now()) {
		return nil, tokenInvalid()
	}

	user, err := m.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, tokenInvalid()
		}
		return nil, oops.With("operation", "get token user").Wrap(err)
	}
	if !user.IsActive {
		return nil, tokenInvalid()
	}

	return user.Info(), nil
}

// RevokeToken deletes a token. Unknown or empty tokens are a no-op.
func (m *Manager) RevokeToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.tokens.Delete(ctx, HashToken(token)); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.With("operation", "revoke token").Wrap(err)
	}
	return nil
}

// RevokeAllTokens deletes every token belonging to userID.
func (m *Manager) RevokeAllTokens(ctx context.Context, userID ulid.ULID) (int64, error) {
	n, err := m.tokens.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, oops.With("operation", "revoke all tokens").With("user_id", userID.String()).Wrap(err)
	}
	return n, nil
}

// ChangePassword checks the current password, revokes all of the user's
// tokens and then stores the new hash. If storing fails the tokens stay
// revoked and the old password still works.
func (m *Manager) ChangePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword string) error {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidCredentials()
		}
		return oops.With("operation", "get user").Wrap(err)
	}

	valid, err := m.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil || !valid || !user.IsActive {
		return invalidCredentials()
	}

	if err := m.policy.Validate(newPassword); err != nil {
		return err
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	revoked, err := m.RevokeAllTokens(ctx, userID)
	if err != nil {
		return err
	}
	if err := m.users.UpdatePassword(ctx, userID, hash); err != nil {
		return oops.With("operation", "update password").With("tokens_revoked", revoked).Wrap(err)
	}

	m.logger.InfoContext(ctx, "password changed",
		"user_id", userID.String(),
		"tokens_revoked", revoked,
	)
	return nil
}

// CurrentUser returns the public view of an active user. A missing or
// inactive user returns ErrInvalidCredentials. Used to re-check sessions that
// were signed in earlier.
func (m *Manager) CurrentUser(ctx context.Context, userID ulid.ULID) (*UserInfo, error) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, oops.With("operation", "get user").With("user_id", userID.String()).Wrap(err)
	}
	if !user.IsActive {
		return nil, invalidCredentials()
	}
	return user.Info(), nil
}

// SetActive activates or deactivates the user with the given email.
func (m *Manager) SetActive(ctx context.Context, email string, active bool) error {
	email = NormalizeEmail(email)
	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		return oops.With("operation", "get user by email").With("email", email).Wrap(err)
	}
	if err := m.users.SetActive(ctx, user.ID, active); err != nil {
		return oops.With("operation", "set active").Wrap(err)
	}
	m.logger.InfoContext(ctx, "user activation changed",
		"user_id", user.ID.String(),
		"active", active,
	)
	return nil
}

// PurgeExpiredTokens deletes all expired tokens.
func (m *Manager) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := m.tokens.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, oops.With("operation", "purge expired tokens").Wrap(err)
	}
	return n, nil
}

// Ping reports whether the credential store is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.users.Ping(ctx); err != nil {
		return oops.With("operation", "ping").Wrap(err)
	}
	return nil
}

// dummy returns a hash produced with the live hasher parameters so that
// verifying against it costs the same as verifying a real hash.
func (m *Manager) dummy() string {
	m.dummyOnce.Do(func() {
		m.dummyHash = fallbackDummyHash
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			return
		}
		if h, err := m.hasher.Hash(base64.RawStdEncoding.EncodeToString(buf)); err == nil {
			m.dummyHash = h
		}
	})
	return m.dummyHash
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func tokenInvalid() error {
	return oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
}
