// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/internal/auth/memory"
	"github.com/mealplanner/mealplanner/internal/auth/mocks"
	"github.com/mealplanner/mealplanner/pkg/errutil"
)

const (
	testEmail    = "cook@example.com"
	testPassword = "Secur3P@ss"
)

type managerFixture struct {
	manager *auth.Manager
	users   *memory.UserRepository
	tokens  *memory.TokenRepository
	now     time.Time
}

func (f *managerFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func newManagerFixture(t *testing.T, opts ...auth.ManagerOption) *managerFixture {
	t.Helper()
	f := &managerFixture{
		users:  memory.NewUserRepository(),
		tokens: memory.NewTokenRepository(),
		now:    time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	opts = append([]auth.ManagerOption{
		auth.WithClock(func() time.Time { return f.now }),
		auth.WithLogger(discardLogger()),
	}, opts...)
	m, err := auth.NewManager(f.users, f.tokens, newTestHasher(t), opts...)
	require.NoError(t, err)
	f.manager = m
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unavailableErr() error {
	return oops.Code(auth.CodeDatabaseUnavailable).
		With("backend", "test").
		Wrap(errors.Join(auth.ErrDatabaseUnavailable, errors.New("connection refused")))
}

func TestNewManager_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		tokens      auth.TokenRepository
		hasher      auth.PasswordHasher
		expectError string
	}{
		{"nil user repository", nil, mocks.NewMockTokenRepository(t), mocks.NewMockPasswordHasher(t), "user repository is required"},
		{"nil token repository", mocks.NewMockUserRepository(t), nil, mocks.NewMockPasswordHasher(t), "token repository is required"},
		{"nil password hasher", mocks.NewMockUserRepository(t), mocks.NewMockTokenRepository(t), nil, "password hasher is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := auth.NewManager(tt.users, tt.tokens, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.Contains(t, err.Error(), tt.expectError)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_DEPENDENCY")
		})
	}
}

func TestManager_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("registers and authenticates", func(t *testing.T) {
		f := newManagerFixture(t)

		info, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)
		assert.Equal(t, "cook", info.Username)
		assert.Equal(t, testEmail, info.Email)

		got, err := f.manager.Authenticate(ctx, testEmail, testPassword)
		require.NoError(t, err)
		assert.Equal(t, info.UserID, got.UserID)
	})

	t.Run("stores a hash, never the password", func(t *testing.T) {
		f := newManagerFixture(t)
		info, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)

		user, err := f.users.GetByID(ctx, info.UserID)
		require.NoError(t, err)
		assert.NotEqual(t, testPassword, user.PasswordHash)
		assert.NotContains(t, user.PasswordHash, testPassword)
		assert.True(t, user.IsActive)
	})

	t.Run("normalizes email", func(t *testing.T) {
		f := newManagerFixture(t)
		info, err := f.manager.Register(ctx, "cook", "  Cook@Example.COM ", testPassword)
		require.NoError(t, err)
		assert.Equal(t, testEmail, info.Email)

		_, err = f.manager.Authenticate(ctx, "COOK@example.com", testPassword)
		assert.NoError(t, err)
	})

	t.Run("rejects duplicate email regardless of case", func(t *testing.T) {
		f := newManagerFixture(t)
		_, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)

		_, err = f.manager.Register(ctx, "other", "COOK@example.com", "0ther!Pass")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateUser)
		errutil.AssertErrorCode(t, err, auth.CodeDuplicateUser)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		f := newManagerFixture(t)
		_, err := f.manager.Register(ctx, "cook", "user@.com", testPassword)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrValidation)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("rejects weak password", func(t *testing.T) {
		f := newManagerFixture(t)
		_, err := f.manager.Register(ctx, "cook", testEmail, "password")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrWeakPassword)

		_, err = f.users.GetByEmail(ctx, testEmail)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("rejects invalid username", func(t *testing.T) {
		f := newManagerFixture(t)
		_, err := f.manager.Register(ctx, "co\nok", testEmail, testPassword)
		assert.ErrorIs(t, err, auth.ErrValidation)
		errutil.AssertErrorContext(t, err, "field", "username")
	})

	t.Run("accepts non-ascii username", func(t *testing.T) {
		f := newManagerFixture(t)
		info, err := f.manager.Register(ctx, "  李雷 ", testEmail, testPassword)
		require.NoError(t, err)
		assert.Equal(t, "李雷", info.Username)
	})

	t.Run("custom policy is applied", func(t *testing.T) {
		f := newManagerFixture(t, auth.WithPasswordPolicy(auth.PasswordPolicy{MinLength: 12, MaxLength: 64}))
		_, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		var weak *auth.WeakPasswordError
		require.True(t, errors.As(err, &weak))
		assert.Equal(t, auth.RuleMinLength, weak.Rule)
	})

	t.Run("validation happens before hashing", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		tokens := mocks.NewMockTokenRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		m, err := auth.NewManager(users, tokens, hasher, auth.WithLogger(discardLogger()))
		require.NoError(t, err)

		_, err = m.Register(ctx, "cook", "bad", testPassword)
		require.Error(t, err)
		_, err = m.Register(ctx, "cook", testEmail, "short")
		require.Error(t, err)
		hasher.AssertNotCalled(t, "Hash", mock.Anything)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("store outage is reported as unavailable", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		tokens := mocks.NewMockTokenRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", testPassword).Return("hashed", nil)
		users.On("Create", mock.Anything, mock.AnythingOfType("*auth.User")).Return(unavailableErr())

		m, err := auth.NewManager(users, tokens, hasher, auth.WithLogger(discardLogger()))
		require.NoError(t, err)

		_, err = m.Register(ctx, "cook", testEmail, testPassword)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDatabaseUnavailable)
		errutil.AssertErrorCode(t, err, auth.CodeDatabaseUnavailable)
		errutil.AssertErrorContext(t, err, "operation", "create user")
	})
}

func TestManager_Register_ConcurrentSameEmail(t *testing.T) {
	ctx := context.Background()
	f := newManagerFixture(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.manager.Register(ctx, fmt.Sprintf("cook%d", i), testEmail, testPassword)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, auth.ErrDuplicateUser):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, dupes)
}

func TestManager_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		f := newManagerFixture(t)
		_, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)

		_, wrongPass := f.manager.Authenticate(ctx, testEmail, "Wr0ng!Pass")
		_, unknown := f.manager.Authenticate(ctx, "nobody@example.com", testPassword)

		require.Error(t, wrongPass)
		require.Error(t, unknown)
		assert.ErrorIs(t, wrongPass, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, unknown, auth.ErrInvalidCredentials)
		assert.Equal(t, wrongPass.Error(), unknown.Error())
		assert.Equal(t, errutil.Code(wrongPass), errutil.Code(unknown))
	})

	t.Run("inactive user is rejected like a wrong password", func(t *testing.T) {
		f := newManagerFixture(t)
		_, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)
		require.NoError(t, f.manager.SetActive(ctx, testEmail, false))

		_, err = f.manager.Authenticate(ctx, testEmail, testPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		require.NoError(t, f.manager.SetActive(ctx, testEmail, true))
		_, err = f.manager.Authenticate(ctx, testEmail, testPassword)
		assert.NoError(t, err)
	})

	t.Run("unknown email still runs a verification", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		tokens := mocks.NewMockTokenRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		users.On("GetByEmail", mock.Anything, "nobody@example.com").
			Return(nil, oops.Code(auth.CodeUserNotFound).Wrap(auth.ErrNotFound))
		hasher.On("Hash", mock.Anything).Return("dummy-hash", nil).Once()
		hasher.On("Verify", testPassword, "dummy-hash").Return(false, nil).Once()

		m, err := auth.NewManager(users, tokens, hasher, auth.WithLogger(discardLogger()))
		require.NoError(t, err)

		_, err = m.Authenticate(ctx, "nobody@example.com", testPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unreadable stored hash is invalid credentials", func(t *testing.T) {
		f := newManagerFixture(t)
		info, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)
		require.NoError(t, f.users.UpdatePassword(ctx, info.UserID, "garbage"))

		_, err = f.manager.Authenticate(ctx, testEmail, testPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("store outage is not reported as bad credentials", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		tokens := mocks.NewMockTokenRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		users.On("GetByEmail", mock.Anything, testEmail).Return(nil, unavailableErr())

		m, err := auth.NewManager(users, tokens, hasher, auth.WithLogger(discardLogger()))
		require.NoError(t, err)

		_, err = m.Authenticate(ctx, testEmail, testPassword)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDatabaseUnavailable)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, auth.CodeDatabaseUnavailable)
	})

	t.Run("outdated hash is upgraded on login", func(t *testing.T) {
		ctx := context.Background()
		users := memory.NewUserRepository()
		tokens := memory.NewTokenRepository()

		oldHasher, err := auth.NewArgon2idHasher(auth.Argon2Params{MemoryKiB: 32, Iterations: 1, Parallelism: 1})
		require.NoError(t, err)
		oldManager, err := auth.NewManager(users, tokens, oldHasher, auth.WithLogger(discardLogger()))
		require.NoError(t, err)
		info, err := oldManager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)

		newHasher := newTestHasher(t)
		m, err := auth.NewManager(users, tokens, newHasher, auth.WithLogger(discardLogger()))
		require.NoError(t, err)
		_, err = m.Authenticate(ctx, testEmail, testPassword)
		require.NoError(t, err)

		stored, err := users.GetByID(ctx, info.UserID)
		require.NoError(t, err)
		assert.False(t, newHasher.NeedsUpgrade(stored.PasswordHash))
	})
}

func TestManager_Tokens(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, f *managerFixture) *auth.UserInfo {
		t.Helper()
		info, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)
		return info
	}

	t.Run("token is valid for 30 days and never extended", func(t *testing.T) {
		f := newManagerFixture(t)
		user := register(t, f)
		start := f.now

		issued, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, start.Add(30*24*time.Hour), issued.ExpiresAt)

		f.advance(29 * 24 * time.Hour)
		got, err := f.manager.ValidateToken(ctx, issued.Token)
		require.NoError(t, err)
		assert.Equal(t, user.UserID, got.UserID)

		f.now = issued.ExpiresAt.Add(-time.Second)
		_, err = f.manager.ValidateToken(ctx, issued.Token)
		require.NoError(t, err)

		f.now = issued.ExpiresAt
		_, err = f.manager.ValidateToken(ctx, issued.Token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("only the hash is stored", func(t *testing.T) {
		f := newManagerFixture(t)
		user := register(t, f)

		issued, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)

		_, err = f.tokens.GetByHash(ctx, issued.Token)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		stored, err := f.tokens.GetByHash(ctx, auth.HashToken(issued.Token))
		require.NoError(t, err)
		assert.Equal(t, user.UserID, stored.UserID)
	})

	t.Run("custom expiry in days", func(t *testing.T) {
		f := newManagerFixture(t)
		user := register(t, f)

		issued, err := f.manager.IssueTokenFor(ctx, user.UserID, 1)
		require.NoError(t, err)
		assert.Equal(t, f.now.Add(24*time.Hour), issued.ExpiresAt)

		_, err = f.manager.IssueTokenFor(ctx, user.UserID, 0)
		assert.ErrorIs(t, err, auth.ErrValidation)
	})

	t.Run("configured ttl", func(t *testing.T) {
		f := newManagerFixture(t, auth.WithTokenTTL(time.Hour))
		user := register(t, f)

		issued, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, f.now.Add(time.Hour), issued.ExpiresAt)
	})

	t.Run("each login gets its own token", func(t *testing.T) {
		f := newManagerFixture(t)
		user := register(t, f)

		a, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)
		b, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)
		assert.NotEqual(t, a.Token, b.Token)
		assert.Equal(t, 2, f.tokens.Len())
	})

	t.Run("unknown and empty tokens are invalid", func(t *testing.T) {
		f := newManagerFixture(t)

		_, err := f.manager.ValidateToken(ctx, "")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
		_, err = f.manager.ValidateToken(ctx, "not-a-token")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		f := newManagerFixture(t)
		user := register(t, f)

		issued, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)

		require.NoError(t, f.manager.RevokeToken(ctx, issued.Token))
		require.NoError(t, f.manager.RevokeToken(ctx, issued.Token))
		require.NoError(t, f.manager.RevokeToken(ctx, ""))

		_, err = f.manager.ValidateToken(ctx, issued.Token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("deactivated user's tokens are invalid", func(t *testing.T) {
		f := newManagerFixture(t)
		user := register(t, f)

		issued, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)
		require.NoError(t, f.manager.SetActive(ctx, testEmail, false))

		_, err = f.manager.ValidateToken(ctx, issued.Token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("store outage during validation is not invalid token", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		tokens := mocks.NewMockTokenRepository(t)
		tokens.On("GetByHash", mock.Anything, auth.HashToken("tok")).Return(nil, unavailableErr())

		m, err := auth.NewManager(users, tokens, newTestHasher(t), auth.WithLogger(discardLogger()))
		require.NoError(t, err)

		_, err = m.ValidateToken(ctx, "tok")
		assert.ErrorIs(t, err, auth.ErrDatabaseUnavailable)
		assert.NotErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("purge removes expired tokens only", func(t *testing.T) {
		f := newManagerFixture(t)
		user := register(t, f)

		_, err := f.manager.IssueTokenFor(ctx, user.UserID, 1)
		require.NoError(t, err)
		keep, err := f.manager.IssueTokenFor(ctx, user.UserID, 10)
		require.NoError(t, err)

		f.advance(2 * 24 * time.Hour)
		n, err := f.manager.PurgeExpiredTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = f.manager.ValidateToken(ctx, keep.Token)
		assert.NoError(t, err)
	})
}

func TestManager_ChangePassword(t *testing.T) {
	ctx := context.Background()
	const newPassword = "N3w!Password"

	t.Run("replaces password and revokes every token", func(t *testing.T) {
		f := newManagerFixture(t)
		user, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)
		a, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)
		b, err := f.manager.IssueToken(ctx, user.UserID)
		require.NoError(t, err)

		require.NoError(t, f.manager.ChangePassword(ctx, user.UserID, testPassword, newPassword))

		_, err = f.manager.Authenticate(ctx, testEmail, testPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		_, err = f.manager.Authenticate(ctx, testEmail, newPassword)
		assert.NoError(t, err)

		for _, tok := range []string{a.Token, b.Token} {
			_, err = f.manager.ValidateToken(ctx, tok)
			assert.ErrorIs(t, err, auth.ErrTokenInvalid)
		}
		assert.Zero(t, f.tokens.Len())
	})

	t.Run("wrong current password", func(t *testing.T) {
		f := newManagerFixture(t)
		user, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)

		err = f.manager.ChangePassword(ctx, user.UserID, "Wr0ng!Pass", newPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("weak new password", func(t *testing.T) {
		f := newManagerFixture(t)
		user, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)

		err = f.manager.ChangePassword(ctx, user.UserID, testPassword, "weak")
		assert.ErrorIs(t, err, auth.ErrWeakPassword)
		_, err = f.manager.Authenticate(ctx, testEmail, testPassword)
		assert.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newManagerFixture(t)
		err := f.manager.ChangePassword(ctx, ulid.Make(), testPassword, newPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("revoke failure keeps the old password", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		tokens := mocks.NewMockTokenRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		userID := ulid.Make()
		users.On("GetByID", mock.Anything, userID).
			Return(&auth.User{ID: userID, PasswordHash: "stored-hash", IsActive: true}, nil)
		hasher.On("Verify", testPassword, "stored-hash").Return(true, nil)
		hasher.On("Hash", newPassword).Return("new-hash", nil)
		tokens.On("DeleteByUser", mock.Anything, userID).Return(int64(0), unavailableErr())

		m, err := auth.NewManager(users, tokens, hasher, auth.WithLogger(discardLogger()))
		require.NoError(t, err)

		err = m.ChangePassword(ctx, userID, testPassword, newPassword)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDatabaseUnavailable)
		errutil.AssertErrorContext(t, err, "operation", "revoke all tokens")
		users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("update failure leaves tokens revoked", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		tokens := mocks.NewMockTokenRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		userID := ulid.Make()
		users.On("GetByID", mock.Anything, userID).
			Return(&auth.User{ID: userID, PasswordHash: "stored-hash", IsActive: true}, nil)
		hasher.On("Verify", testPassword, "stored-hash").Return(true, nil)
		hasher.On("Hash", newPassword).Return("new-hash", nil)
		tokens.On("DeleteByUser", mock.Anything, userID).Return(int64(2), nil)
		users.On("UpdatePassword", mock.Anything, userID, "new-hash").Return(unavailableErr())

		m, err := auth.NewManager(users, tokens, hasher, auth.WithLogger(discardLogger()))
		require.NoError(t, err)

		err = m.ChangePassword(ctx, userID, testPassword, newPassword)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDatabaseUnavailable)
		errutil.AssertErrorContext(t, err, "operation", "update password")
		tokens.AssertNumberOfCalls(t, "DeleteByUser", 1)
	})
}

func TestManager_CurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("active user", func(t *testing.T) {
		f := newManagerFixture(t)
		user, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)

		got, err := f.manager.CurrentUser(ctx, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("deactivated user", func(t *testing.T) {
		f := newManagerFixture(t)
		user, err := f.manager.Register(ctx, "cook", testEmail, testPassword)
		require.NoError(t, err)
		require.NoError(t, f.manager.SetActive(ctx, testEmail, false))

		_, err = f.manager.CurrentUser(ctx, user.UserID)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newManagerFixture(t)
		_, err := f.manager.CurrentUser(ctx, ulid.Make())
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("store outage", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		users.On("GetByID", mock.Anything, mock.Anything).Return(nil, unavailableErr())
		m, err := auth.NewManager(users, mocks.NewMockTokenRepository(t), newTestHasher(t))
		require.NoError(t, err)

		_, err = m.CurrentUser(ctx, ulid.Make())
		assert.ErrorIs(t, err, auth.ErrDatabaseUnavailable)
	})
}

func TestManager_SetActive_UnknownEmail(t *testing.T) {
	f := newManagerFixture(t)
	err := f.manager.SetActive(context.Background(), "nobody@example.com", false)
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestManager_Ping(t *testing.T) {
	users := mocks.NewMockUserRepository(t)
	tokens := mocks.NewMockTokenRepository(t)
	users.On("Ping", mock.Anything).Return(nil).Once()
	users.On("Ping", mock.Anything).Return(unavailableErr()).Once()

	m, err := auth.NewManager(users, tokens, newTestHasher(t))
	require.NoError(t, err)

	assert.NoError(t, m.Ping(context.Background()))
	assert.ErrorIs(t, m.Ping(context.Background()), auth.ErrDatabaseUnavailable)
}
