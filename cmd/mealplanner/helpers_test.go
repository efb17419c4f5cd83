// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	authmemory "github.com/mealplanner/mealplanner/internal/auth/memory"
	"github.com/mealplanner/mealplanner/internal/config"
	"github.com/mealplanner/mealplanner/internal/observability"
	"github.com/mealplanner/mealplanner/internal/plan"
	"github.com/mealplanner/mealplanner/internal/store"
)

// fastArgs keeps password hashing cheap in tests.
var fastArgs = []string{
	"--database.driver=memory",
	"--metrics.addr=",
	"--auth.argon2.memory_kib=64",
	"--auth.argon2.iterations=1",
	"--auth.argon2.parallelism=1",
}

type mockMigrator struct {
	mu          sync.Mutex
	upCalled    bool
	downCalled  bool
	steps       []int
	forced      []int
	closeCalled bool

	upErr    error
	closeErr error
	status   store.Status
}

func (m *mockMigrator) Up() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upCalled = true
	return m.upErr
}

func (m *mockMigrator) Down() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downCalled = true
	return nil
}

func (m *mockMigrator) Steps(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, n)
	return nil
}

func (m *mockMigrator) Force(version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced = append(m.forced, version)
	return nil
}

func (m *mockMigrator) Status() (store.Status, error) {
	return m.status, nil
}

func (m *mockMigrator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalled = true
	return m.closeErr
}

type mockObservabilityServer struct {
	readiness observability.ReadinessChecker
	metrics   *observability.Metrics
	startErr  error
	stopped   bool
}

func (m *mockObservabilityServer) Start() (<-chan error, error) {
	if m.startErr != nil {
		return nil, m.startErr
	}
	return make(chan error), nil
}

func (m *mockObservabilityServer) Stop(context.Context) error {
	m.stopped = true
	return nil
}

func (m *mockObservabilityServer) Addr() string { return "127.0.0.1:9100" }

func (m *mockObservabilityServer) Metrics() *observability.Metrics { return m.metrics }

type mockWebServer struct {
	handler http.Handler
	started chan struct{}
	errCh   chan error
	mu      sync.Mutex
	stopped bool
}

func newMockWebServer() *mockWebServer {
	return &mockWebServer{started: make(chan struct{}), errCh: make(chan error, 1)}
}

func (m *mockWebServer) Start() (<-chan error, error) {
	close(m.started)
	return m.errCh, nil
}

func (m *mockWebServer) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockWebServer) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *mockWebServer) Addr() string { return "127.0.0.1:8080" }

// memoryBackendFactory returns the same in-memory backend on every call so
// that consecutive commands see each other's writes.
func memoryBackendFactory(b *Backend) func(context.Context, *config.Config) (*Backend, error) {
	return func(context.Context, *config.Config) (*Backend, error) {
		return b, nil
	}
}

func newMemoryBackend() *Backend {
	return &Backend{
		Users:  authmemory.NewUserRepository(),
		Tokens: authmemory.NewTokenRepository(),
		Plans:  plan.NewMemoryStore(),
	}
}

func newObservability() *mockObservabilityServer {
	return &mockObservabilityServer{metrics: observability.NewMetrics(prometheus.NewRegistry())}
}

// testDeps returns deps that never touch the environment or a real database.
func testDeps(t *testing.T, env map[string]string) *Deps {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return &Deps{
		Getenv:         func(key string) string { return env[key] },
		LogWriter:      &bytes.Buffer{},
		BackendFactory: memoryBackendFactory(newMemoryBackend()),
		MigratorFactory: func(string) (Migrator, error) {
			return &mockMigrator{}, nil
		},
		PasswordReader: func(*cobra.Command, string) (string, error) {
			return "Secur3P@ss", nil
		},
		SignalNotifier: func() (<-chan os.Signal, func()) {
			return make(chan os.Signal), func() {}
		},
	}
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
