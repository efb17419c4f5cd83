// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/pkg/errutil"
)

// DefaultTokenCookie is the cookie name holding the remember-me token.
const DefaultTokenCookie = "mealplanner_token"

// DefaultRecheckInterval is how long a signed-in session trusts its user
// before re-reading it from the credential store.
const DefaultRecheckInterval = 5 * time.Minute

// CodeCookiesNotReady is the oops code of ErrCookiesNotReady.
const CodeCookiesNotReady = "SESSION_COOKIES_NOT_READY"

// ErrCookiesNotReady is returned by Logout when the token could not be
// revoked yet. The revocation runs on the next Restore with a ready store.
var ErrCookiesNotReady = errors.New("cookie store not ready")

// Authenticator is the part of auth.Manager the bridge depends on.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*auth.UserInfo, error)
	IssueToken(ctx context.Context, userID ulid.ULID) (*auth.IssuedToken, error)
	ValidateToken(ctx context.Context, token string) (*auth.UserInfo, error)
	RevokeToken(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, userID ulid.ULID) (*auth.UserInfo, error)
}

// RestoreResult describes what Restore did.
type RestoreResult int

// Restore outcomes.
const (
	// RestoreSkipped means the session was already authenticated and still is.
	RestoreSkipped RestoreResult = iota
	// RestorePending means the cookie store is not ready; try again later.
	RestorePending
	// RestoreNoToken means the client holds no token.
	RestoreNoToken
	// RestoreRestored means the token was valid and the session is now authenticated.
	RestoreRestored
	// RestoreInvalid means the token was rejected and has been removed from the client.
	RestoreInvalid
	// RestoreUnavailable means the token or user could not be checked because the store is down.
	RestoreUnavailable
	// RestoreSignedOut means an authenticated session's user is gone or
	// inactive; the session has been cleared.
	RestoreSignedOut
)

func (r RestoreResult) String() string {
	switch r {
	case RestoreSkipped:
		return "skipped"
	case RestorePending:
		return "pending"
	case RestoreNoToken:
		return "no_token"
	case RestoreRestored:
		return "restored"
	case RestoreInvalid:
		return "invalid"
	case RestoreUnavailable:
		return "unavailable"
	case RestoreSignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User *auth.UserInfo
	// Remembered is true when a token was issued and written to the cookie store.
	Remembered bool
}

// Bridge moves authentication state between a Session, the cookie store and
// the auth manager.
type Bridge struct {
	auth       Authenticator
	cookieName string
	recheck    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithCookieName overrides DefaultTokenCookie.
func WithCookieName(name string) BridgeOption {
	return func(b *Bridge) {
		if name != "" {
			b.cookieName = name
		}
	}
}

// WithRecheckInterval sets how often an authenticated session is re-checked
// against the credential store. Non-positive values are ignored.
func WithRecheckInterval(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.recheck = d
		}
	}
}

// WithBridgeClock overrides the time source.
func WithBridgeClock(now func() time.Time) BridgeOption {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBridgeLogger sets the logger. Defaults to slog.Default().
func WithBridgeLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBridge creates a Bridge.
func NewBridge(authenticator Authenticator, opts ...BridgeOption) (*Bridge, error) {
	if authenticator == nil {
		return nil, oops.Code("SESSION_INVALID_DEPENDENCY").Errorf("authenticator is required")
	}
	b := &Bridge{
		auth:       authenticator,
		cookieName: DefaultTokenCookie,
		recheck:    DefaultRecheckInterval,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// CookieName returns the token cookie name.
func (b *Bridge) CookieName() string {
	return b.cookieName
}

// Restore authenticates sess from the token in cookies, if there is one.
// A restored session keeps its existing token; no new token is issued.
// An authenticated session is instead re-checked against the credential
// store once the recheck interval has passed.
func (b *Bridge) Restore(ctx context.Context, sess *Session, cookies CookieStore) RestoreResult {
	if sess.hasRevokePending() && cookies.Ready() {
		if err := b.dropToken(ctx, cookies); err == nil {
			sess.setRevokePending(false)
		}
	}
	if sess.Authenticated() {
		return b.recheckUser(ctx, sess, cookies)
	}
	if !cookies.Ready() {
		return RestorePending
	}

	token, ok := cookies.Get(b.cookieName)
	if !ok || token == "" {
		return RestoreNoToken
	}

	user, err := b.auth.ValidateToken(ctx, token)
	switch {
	case err == nil:
		sess.signIn(user, b.now())
		return RestoreRestored
	case errors.Is(err, auth.ErrTokenInvalid):
		b.forgetCookie(cookies, "failed to clear rejected token cookie")
		return RestoreInvalid
	default:
		errutil.LogError(b.logger, "token validation unavailable", err)
		return RestoreUnavailable
	}
}

// recheckUser re-reads the session's user once the recheck interval has
// passed. A store outage keeps the session and retries on the next request.
func (b *Bridge) recheckUser(ctx context.Context, sess *Session, cookies CookieStore) RestoreResult {
	user, verifiedAt := sess.verified()
	if user == nil {
		return RestoreSkipped
	}
	now := b.now()
	if !verifiedAt.IsZero() && now.Sub(verifiedAt) < b.recheck {
		return RestoreSkipped
	}

	current, err := b.auth.CurrentUser(ctx, user.UserID)
	switch {
	case err == nil:
		sess.signIn(current, now)
		return RestoreSkipped
	case errors.Is(err, auth.ErrInvalidCredentials):
		b.logger.InfoContext(ctx, "signed-in user no longer active, ending session", "user_id", user.UserID.String())
		sess.Clear()
		if cookies.Ready() {
			b.forgetCookie(cookies, "failed to clear token cookie of inactive user")
		}
		return RestoreSignedOut
	default:
		errutil.LogError(b.logger, "session recheck unavailable", err)
		return RestoreUnavailable
	}
}

// Login authenticates the credentials and signs sess in. Any token already
// held by the client is revoked first. When remember is set a new token is
// issued and stored in cookies; if that fails the login still succeeds
// without persistence.
func (b *Bridge) Login(ctx context.Context, sess *Session, cookies CookieStore, email, password string, remember bool) (*LoginResult, error) {
	user, err := b.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if cookies.Ready() {
		// Failures are logged by dropToken; the login goes ahead.
		_ = b.dropToken(ctx, cookies)
		sess.setRevokePending(false)
	}
	sess.signIn(user, b.now())

	result := &LoginResult{User: user}
	if !remember {
		return result, nil
	}

	if !cookies.Ready() {
		b.logger.WarnContext(ctx, "cookie store not ready, login not remembered", "user_id", user.UserID.String())
		return result, nil
	}

	issued, err := b.auth.IssueToken(ctx, user.UserID)
	if err != nil {
		errutil.LogError(b.logger, "token issuance failed, login not remembered", err)
		return result, nil
	}

	cookies.Set(b.cookieName, issued.Token, issued.ExpiresAt)
	if err := cookies.Save(); err != nil {
		errutil.LogError(b.logger, "failed to save token cookie", err)
		// The token cannot reach the client, so it is useless.
		if revokeErr := b.auth.RevokeToken(ctx, issued.Token); revokeErr != nil {
			errutil.LogError(b.logger, "failed to revoke unsaved token", revokeErr)
		}
		return result, nil
	}

	result.Remembered = true
	return result, nil
}

// Logout revokes the client's token, removes the cookie and clears sess.
// The local logout always completes; a revoke failure is logged and returned.
// With an unready cookie store the revocation is deferred to the next Restore
// and ErrCookiesNotReady is returned.
func (b *Bridge) Logout(ctx context.Context, sess *Session, cookies CookieStore) error {
	defer sess.Clear()

	if !cookies.Ready() {
		sess.setRevokePending(true)
		return oops.Code(CodeCookiesNotReady).Wrap(ErrCookiesNotReady)
	}

	var revokeErr error
	if token, ok := cookies.Get(b.cookieName); ok {
		if revokeErr = b.auth.RevokeToken(ctx, token); revokeErr != nil {
			errutil.LogError(b.logger, "failed to revoke token on logout", revokeErr)
		}
	}
	b.forgetCookie(cookies, "failed to clear token cookie")
	return revokeErr
}

// Forget removes the token cookie without revoking it. Used after all of a
// user's tokens have already been revoked.
func (b *Bridge) Forget(cookies CookieStore) error {
	if !cookies.Ready() {
		return nil
	}
	cookies.Delete(b.cookieName)
	return cookies.Save()
}

// dropToken revokes the token held by the client, if any, and removes the
// cookie. It returns the revoke or save error.
func (b *Bridge) dropToken(ctx context.Context, cookies CookieStore) error {
	token, ok := cookies.Get(b.cookieName)
	if !ok || token == "" {
		return nil
	}
	revokeErr := b.auth.RevokeToken(ctx, token)
	if revokeErr != nil {
		errutil.LogError(b.logger, "failed to revoke previous token", revokeErr)
	}
	cookies.Delete(b.cookieName)
	if err := cookies.Save(); err != nil {
		errutil.LogError(b.logger, "failed to clear previous token cookie", err)
		return err
	}
	return revokeErr
}

func (b *Bridge) forgetCookie(cookies CookieStore, msg string) {
	cookies.Delete(b.cookieName)
	if err := cookies.Save(); err != nil {
		errutil.LogError(b.logger, msg, err)
	}
}
