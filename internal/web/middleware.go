// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/internal/logging"
	"github.com/mealplanner/mealplanner/internal/session"
	"github.com/mealplanner/mealplanner/pkg/errutil"
)

// DefaultSessionCookie names the cookie holding the browser-session id.
const DefaultSessionCookie = "mealplanner_session"

// requestLogger logs one line per request, at WARN for 4xx and ERROR for 5xx,
// and counts it by route pattern.
func requestLogger(logger *slog.Logger, metrics Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			metrics.HTTPRequest(route, status)

			level := slog.LevelInfo
			switch {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			attrs := []any{
				"method", r.Method,
				"route", route,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000,
			}
			if sess, ok := session.FromContext(r.Context()); ok {
				if user := sess.User(); user != nil {
					attrs = append(attrs, "user_id", user.UserID.String())
				}
			}
			logger.Log(r.Context(), level, "http request", attrs...)
		})
	}
}

// requestAttrs tags every record logged with the request context with the
// request id.
func requestAttrs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithAttrs(r.Context(), slog.String("request_id", middleware.GetReqID(r.Context())))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type (
	cookiesKey   struct{}
	sessionIDKey struct{}
)

func withCookies(ctx context.Context, cookies session.CookieStore) context.Context {
	return context.WithValue(ctx, cookiesKey{}, cookies)
}

func cookiesFrom(ctx context.Context) session.CookieStore {
	cookies, _ := ctx.Value(cookiesKey{}).(session.CookieStore)
	return cookies
}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// sessionMiddleware attaches the client's transient session, creating one if
// needed, and tries to restore a login from the remember-me token. A session
// id sent by the client is replaced whenever that session becomes
// authenticated.
func (h *handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var id string
		if c, err := r.Cookie(h.sessionCookie); err == nil {
			id = c.Value
		}
		sess, ok := h.registry.Get(id)
		if !ok {
			var err error
			id, sess, err = h.registry.Create()
			if err != nil {
				errutil.LogError(h.logger, "failed to create session", err)
				writeErrorBody(w, http.StatusInternalServerError, CodeInternal, msgInternal)
				return
			}
			h.setSessionCookie(w, id)
		}

		cookies := session.NewHTTPCookieStore(w, r, h.cookieOpts)
		switch result := h.bridge.Restore(ctx, sess, cookies); result {
		case session.RestoreRestored:
			h.metrics.AuthEvent(EventRestore, "ok")
			if ok {
				id = h.rotateSession(ctx, w, id)
			}
		case session.RestoreInvalid, session.RestoreUnavailable, session.RestoreSignedOut:
			h.metrics.AuthEvent(EventRestore, result.String())
		}

		ctx = session.WithSession(ctx, sess)
		ctx = withCookies(ctx, cookies)
		ctx = context.WithValue(ctx, sessionIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handler) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionCookie,
		Value:    id,
		Path:     h.cookieOpts.Path,
		Domain:   h.cookieOpts.Domain,
		Secure:   h.cookieOpts.Secure,
		HttpOnly: true,
		SameSite: h.cookieOpts.SameSite,
	})
}

// rotateSession moves the session to a new id and sends it to the client.
// On failure the old id is kept.
func (h *handler) rotateSession(ctx context.Context, w http.ResponseWriter, id string) string {
	newID, err := h.registry.Rotate(id)
	if err != nil {
		h.logger.WarnContext(ctx, "session id not rotated", "error", err)
		return id
	}
	h.setSessionCookie(w, newID)
	return newID
}

// currentUser returns the logged-in user, writing a 401 if there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (*auth.UserInfo, bool) {
	if sess, ok := session.FromContext(r.Context()); ok {
		if user := sess.User(); user != nil {
			return user, true
		}
	}
	writeErrorBody(w, http.StatusUnauthorized, CodeAuthRequired, msgAuthRequired)
	return nil, false
}

// requireAuth rejects requests whose session is not logged in.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := session.FromContext(r.Context())
		if !ok || !sess.Authenticated() {
			writeErrorBody(w, http.StatusUnauthorized, CodeAuthRequired, msgAuthRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
