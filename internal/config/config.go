// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

// Package config loads the mealplanner configuration from flag defaults, an
// optional YAML file, explicitly set flags and environment secrets.
package config

import (
	"errors"
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/internal/logging"
	"github.com/mealplanner/mealplanner/internal/plan"
	"github.com/mealplanner/mealplanner/internal/session"
	"github.com/mealplanner/mealplanner/internal/xdg"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Environment variables holding secrets.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvAPIKey      = "OPENAI_API_KEY"
)

// ConfigFlag is the name of the flag holding the config file path.
const ConfigFlag = "config"

const redacted = "REDACTED"

// Config is the complete runtime configuration.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http" yaml:"http"`
	Metrics   MetricsConfig   `koanf:"metrics" yaml:"metrics"`
	Log       LogConfig       `koanf:"log" yaml:"log"`
	Database  DatabaseConfig  `koanf:"database" yaml:"database"`
	Auth      AuthConfig      `koanf:"auth" yaml:"auth"`
	RateLimit RateLimitConfig `koanf:"ratelimit" yaml:"ratelimit"`
	Plan      PlanConfig      `koanf:"plan" yaml:"plan"`
}

// HTTPConfig configures the web server.
type HTTPConfig struct {
	Addr               string        `koanf:"addr" yaml:"addr"`
	CookieSecure       bool          `koanf:"cookie_secure" yaml:"cookie_secure"`
	SessionIdleTimeout time.Duration `koanf:"session_idle_timeout" yaml:"session_idle_timeout"`
	// SessionMaxLifetime bounds a browser session however often it is used.
	SessionMaxLifetime time.Duration `koanf:"session_max_lifetime" yaml:"session_max_lifetime"`
	// SessionRecheckInterval is how often a signed-in session re-reads its user.
	SessionRecheckInterval time.Duration `koanf:"session_recheck_interval" yaml:"session_recheck_interval"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// DatabaseConfig configures persistence.
type DatabaseConfig struct {
	Driver         string        `koanf:"driver" yaml:"driver"`
	URL            string        `koanf:"url" yaml:"url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
	MaxConns       int32         `koanf:"max_conns" yaml:"max_conns"`
	ConnectRetries uint64        `koanf:"connect_retries" yaml:"connect_retries"`
	AutoMigrate    bool          `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// AuthConfig configures the auth manager.
type AuthConfig struct {
	TokenTTL time.Duration `koanf:"token_ttl" yaml:"token_ttl"`
	Argon2   Argon2Config  `koanf:"argon2" yaml:"argon2"`
}

// Argon2Config holds the argon2id cost parameters.
type Argon2Config struct {
	MemoryKiB   uint32 `koanf:"memory_kib" yaml:"memory_kib"`
	Iterations  uint32 `koanf:"iterations" yaml:"iterations"`
	Parallelism uint8  `koanf:"parallelism" yaml:"parallelism"`
}

// Params converts to auth.Argon2Params.
func (a Argon2Config) Params() auth.Argon2Params {
	return auth.Argon2Params{
		MemoryKiB:   a.MemoryKiB,
		Iterations:  a.Iterations,
		Parallelism: a.Parallelism,
	}
}

// RateLimitConfig limits register and login attempts per client IP.
type RateLimitConfig struct {
	AuthPerMinute float64 `koanf:"auth_per_minute" yaml:"auth_per_minute"`
	AuthBurst     int     `koanf:"auth_burst" yaml:"auth_burst"`
}

// PlanConfig configures meal-plan generation. An empty APIKey disables it.
type PlanConfig struct {
	APIBaseURL  string        `koanf:"api_base_url" yaml:"api_base_url"`
	APIKey      string        `koanf:"api_key" yaml:"api_key"`
	Model       string        `koanf:"model" yaml:"model"`
	Temperature float64       `koanf:"temperature" yaml:"temperature"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	Retries     uint64        `koanf:"retries" yaml:"retries"`
}

// ChatConfig converts to plan.ChatConfig.
func (p PlanConfig) ChatConfig() plan.ChatConfig {
	return plan.ChatConfig{
		BaseURL:     p.APIBaseURL,
		APIKey:      p.APIKey,
		Model:       p.Model,
		Temperature: p.Temperature,
		Timeout:     p.Timeout,
		Retries:     p.Retries,
	}
}

// RegisterFlags defines a flag for every non-secret key, with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	argon := auth.DefaultArgon2Params()

	fs.String("http.addr", ":8080", "web server listen address")
	fs.Bool("http.cookie_secure", false, "mark cookies Secure (enable behind TLS)")
	fs.Duration("http.session_idle_timeout", session.DefaultIdleTimeout, "drop browser sessions idle for this long")
	fs.Duration("http.session_max_lifetime", session.DefaultMaxLifetime, "drop browser sessions older than this")
	fs.Duration("http.session_recheck_interval", session.DefaultRecheckInterval, "re-check that a signed-in user is still active this often")

	fs.String("metrics.addr", "127.0.0.1:9100", "observability server address (empty disables)")

	fs.String("log.format", "json", "log format (json, text)")
	fs.String("log.level", "info", "log level (debug, info, warn, error)")

	fs.String("database.driver", DriverPostgres, "storage driver (postgres, memory)")
	fs.String("database.url", "", "PostgreSQL connection URL (or "+EnvDatabaseURL+")")
	fs.Duration("database.connect_timeout", 5*time.Second, "timeout for each database dial")
	fs.Int32("database.max_conns", 10, "maximum pool connections")
	fs.Uint64("database.connect_retries", 5, "startup ping retries")
	fs.Bool("database.auto_migrate", true, "apply pending migrations when serve starts")

	fs.Duration("auth.token_ttl", auth.DefaultTokenTTL, "remember-me token lifetime")
	fs.Uint32("auth.argon2.memory_kib", argon.MemoryKiB, "argon2id memory in KiB")
	fs.Uint32("auth.argon2.iterations", argon.Iterations, "argon2id iterations")
	fs.Uint8("auth.argon2.parallelism", argon.Parallelism, "argon2id parallelism")

	fs.Float64("ratelimit.auth_per_minute", 10, "register/login attempts per minute per client IP")
	fs.Int("ratelimit.auth_burst", 5, "register/login burst per client IP")

	fs.String("plan.api_base_url", plan.DefaultAPIBaseURL, "chat completions API base URL")
	fs.String("plan.model", plan.DefaultModel, "chat model")
	fs.Float64("plan.temperature", plan.DefaultTemperature, "sampling temperature")
	fs.Duration("plan.timeout", plan.DefaultTimeout, "chat completion request timeout")
	fs.Uint64("plan.retries", 2, "retries for rate-limited or failed completions")
}

// Load builds the configuration. Flag defaults apply first, then the YAML file,
// then environment secrets, then flags set on the command line. A config file
// named with --config must exist; the default XDG file is optional.
func Load(flags *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	k := koanf.New(".")

	path, required := configPath(flags)
	if path != "" && (required || fileExists(path)) {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	env := map[string]string{
		"database.url": getenv(EnvDatabaseURL),
		"plan.api_key": getenv(EnvAPIKey),
	}
	for key, val := range env {
		if val == "" {
			continue
		}
		if f := flags.Lookup(key); f != nil && f.Changed {
			continue
		}
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

// configPath returns the file to load and whether it must exist.
func configPath(flags *pflag.FlagSet) (string, bool) {
	if f := flags.Lookup(ConfigFlag); f != nil && f.Value.String() != "" {
		return f.Value.String(), f.Changed
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		// No home directory, no default file.
		return "", false
	}
	return path, false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return invalid("http.addr", "must not be empty")
	case c.HTTP.SessionIdleTimeout <= 0:
		return invalid("http.session_idle_timeout", "must be positive")
	case c.HTTP.SessionMaxLifetime < c.HTTP.SessionIdleTimeout:
		return invalid("http.session_max_lifetime", "must not be shorter than http.session_idle_timeout")
	case c.HTTP.SessionRecheckInterval <= 0:
		return invalid("http.session_recheck_interval", "must be positive")
	case c.Log.Format != "json" && c.Log.Format != "text":
		return invalid("log.format", "must be json or text")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "must be debug, info, warn or error")
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "is required for the postgres driver (set "+EnvDatabaseURL+")")
		}
	case DriverMemory:
	default:
		return invalid("database.driver", "must be postgres or memory")
	}
	switch {
	case c.Database.ConnectTimeout <= 0:
		return invalid("database.connect_timeout", "must be positive")
	case c.Database.MaxConns < 0:
		return invalid("database.max_conns", "must not be negative")
	case c.Auth.TokenTTL <= 0:
		return invalid("auth.token_ttl", "must be positive")
	}
	if err := c.Auth.Argon2.Params().Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "auth.argon2").Errorf("argon2 parameters: %s", err.Error())
	}

	switch {
	case c.RateLimit.AuthPerMinute <= 0:
		return invalid("ratelimit.auth_per_minute", "must be positive")
	case c.RateLimit.AuthBurst < 1:
		return invalid("ratelimit.auth_burst", "must be at least 1")
	case c.Plan.Temperature < 0 || c.Plan.Temperature > 2:
		return invalid("plan.temperature", "must be between 0 and 2")
	case c.Plan.Timeout <= 0:
		return invalid("plan.timeout", "must be positive")
	}
	return nil
}

// Redacted returns a copy safe to print: the API key and database password are masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Plan.APIKey != "" {
		out.Plan.APIKey = redacted
	}
	if out.Database.URL != "" {
		if u, err := url.Parse(out.Database.URL); err == nil {
			out.Database.URL = u.Redacted()
		} else {
			out.Database.URL = redacted
		}
	}
	return out
}

func invalid(key, msg string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s %s", key, msg)
}
