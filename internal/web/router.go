// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

// Package web serves the JSON API for registration, login, session state and
// meal plans.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/internal/plan"
	"github.com/mealplanner/mealplanner/internal/session"
)

// Auth event names passed to Metrics.AuthEvent.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventLogout         = "logout"
	EventRestore        = "restore"
	EventPasswordChange = "password_change"
)

// AccountService is the part of auth.Manager used directly by handlers.
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*auth.UserInfo, error)
	ChangePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword string) error
}

// PlanService generates and lists meal plans.
type PlanService interface {
	Generate(ctx context.Context, userID ulid.ULID, req plan.Request) (*plan.Plan, error)
	List(ctx context.Context, userID ulid.ULID, limit int) ([]*plan.Plan, error)
	Get(ctx context.Context, userID, id ulid.ULID) (*plan.Plan, error)
}

// Metrics receives request and auth counters.
type Metrics interface {
	HTTPRequest(route string, status int)
	AuthEvent(event, result string)
}

type noopMetrics struct{}

func (noopMetrics) HTTPRequest(string, int)    {}
func (noopMetrics) AuthEvent(string, string) {}

// Deps are the collaborators of the router. Plans, Limiter, Metrics and
// Logger are optional; without Plans the plan routes are not mounted.
type Deps struct {
	Accounts AccountService
	Bridge   *session.Bridge
	Registry *session.Registry
	Plans    PlanService
	Limiter  *RateLimiter
	Metrics  Metrics
	Logger   *slog.Logger

	// Cookie applies to the session and token cookies.
	Cookie session.CookieOptions
	// SessionCookie overrides DefaultSessionCookie.
	SessionCookie string
}

type handler struct {
	accounts      AccountService
	bridge        *session.Bridge
	registry      *session.Registry
	plans         PlanService
	metrics       Metrics
	logger        *slog.Logger
	cookieOpts    session.CookieOptions
	sessionCookie string
}

// NewRouter builds the API router.
func NewRouter(deps Deps) (http.Handler, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("account service is required")
	case deps.Bridge == nil:
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("session bridge is required")
	case deps.Registry == nil:
		return nil, oops.Code("WEB_INVALID_DEPENDENCY").Errorf("session registry is required")
	}

	h := &handler{
		accounts:      deps.Accounts,
		bridge:        deps.Bridge,
		registry:      deps.Registry,
		plans:         deps.Plans,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		cookieOpts:    deps.Cookie,
		sessionCookie: deps.SessionCookie,
	}
	if h.metrics == nil {
		h.metrics = noopMetrics{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.cookieOpts.Path == "" {
		h.cookieOpts = session.DefaultCookieOptions(false)
	}
	if h.sessionCookie == "" {
		h.sessionCookie = DefaultSessionCookie
	}

	limit := func(next http.Handler) http.Handler { return next }
	if deps.Limiter != nil {
		limit = deps.Limiter.Middleware(h.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestAttrs)
	r.Use(requestLogger(h.logger, h.metrics))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.sessionMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.With(limit).Post("/register", h.register)
			r.With(limit).Post("/login", h.login)
			r.Post("/logout", h.logout)
			r.Get("/session", h.sessionState)
			r.With(requireAuth).Post("/password", h.changePassword)
		})

		if h.plans != nil {
			r.Route("/plans", func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", h.createPlan)
				r.Get("/", h.listPlans)
				r.Get("/{id}", h.getPlan)
			})
		}
	})

	return r, nil
}
