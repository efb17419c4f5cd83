// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/gomega" //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mealplanner/mealplanner/internal/auth"
	authpg "github.com/mealplanner/mealplanner/internal/auth/postgres"
	"github.com/mealplanner/mealplanner/internal/observability"
	"github.com/mealplanner/mealplanner/internal/plan"
	planpg "github.com/mealplanner/mealplanner/internal/plan/postgres"
	"github.com/mealplanner/mealplanner/internal/session"
	"github.com/mealplanner/mealplanner/internal/store"
	"github.com/mealplanner/mealplanner/internal/web"
)

const planAnswer = `Breakfast: Oat Porridge
- 60 g oats
--------------------------------------------------
Lunch: Lentil Soup
- 100 g lentils
--------------------------------------------------
Dinner: Tomato Pasta
- 120 g pasta

Oat Porridge, Lentil Soup, Tomato Pasta
`

// testEnv is a PostgreSQL container, a fake chat completions API and the
// API router wired the way serve wires it.
type testEnv struct {
	ctx       context.Context
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	manager   *auth.Manager
	chat      *httptest.Server
	api       *httptest.Server
	limiter   *web.RateLimiter
}

func setupTestEnv() (*testEnv, error) {
	ctx := context.Background()
	env := &testEnv{ctx: ctx}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mealplanner_test"),
		postgres.WithUsername("mealplanner"),
		postgres.WithPassword("mealplanner"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, err
	}
	env.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	upErr := migrator.Up()
	_ = migrator.Close()
	if upErr != nil {
		env.cleanup()
		return nil, upErr
	}

	env.pool, err = store.Connect(ctx, connStr, store.PoolConfig{ConnectRetries: 3})
	if err != nil {
		env.cleanup()
		return nil, err
	}

	hasher, err := auth.NewArgon2idHasher(auth.Argon2Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1})
	if err != nil {
		env.cleanup()
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.manager, err = auth.NewManager(
		authpg.NewUserRepository(env.pool),
		authpg.NewTokenRepository(env.pool),
		hasher,
		auth.WithLogger(logger),
	)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	env.chat = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": planAnswer}},
			},
		})
	}))
	chat, err := plan.NewChatClient(plan.ChatConfig{BaseURL: env.chat.URL, APIKey: "sk-test"}, env.chat.Client())
	if err != nil {
		env.cleanup()
		return nil, err
	}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	plans, err := plan.NewService(chat, planpg.NewStore(env.pool),
		plan.WithRecorder(metrics),
		plan.WithServiceLogger(logger),
	)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	bridge, err := session.NewBridge(env.manager,
		session.WithBridgeLogger(logger),
		session.WithRecheckInterval(time.Nanosecond),
	)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.limiter = web.NewRateLimiter(web.RateLimiterConfig{PerMinute: 600, Burst: 100, CleanupInterval: time.Minute})
	router, err := web.NewRouter(web.Deps{
		Accounts: env.manager,
		Bridge:   bridge,
		Registry: session.NewRegistry(0),
		Plans:    plans,
		Limiter:  env.limiter,
		Metrics:  metrics,
		Logger:   logger,
		Cookie:   session.DefaultCookieOptions(false),
	})
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.api = httptest.NewServer(router)
	return env, nil
}

func (e *testEnv) cleanup() {
	if e.api != nil {
		e.api.Close()
	}
	if e.limiter != nil {
		e.limiter.Stop()
	}
	if e.chat != nil {
		e.chat.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}

// browser is one client with its own cookie jar.
type browser struct {
	base string
	http *http.Client
}

func (e *testEnv) newBrowser() *browser {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &browser{base: e.api.URL, http: &http.Client{Jar: jar}}
}

func (b *browser) do(method, path string, body any) (int, []byte) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.base+path, rdr)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp.StatusCode, data
}

func (b *browser) cookie(name string) string {
	u, err := url.Parse(b.base)
	Expect(err).NotTo(HaveOccurred())
	for _, c := range b.http.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (b *browser) setCookie(name, value string) {
	u, err := url.Parse(b.base)
	Expect(err).NotTo(HaveOccurred())
	b.http.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

func (b *browser) authenticated() bool {
	status, body := b.do(http.MethodGet, "/api/v1/auth/session", nil)
	Expect(status).To(Equal(http.StatusOK))
	var out struct {
		Authenticated bool `json:"authenticated"`
	}
	Expect(json.Unmarshal(body, &out)).To(Succeed())
	return out.Authenticated
}
