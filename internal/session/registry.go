// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Registry lifetime defaults.
const (
	// DefaultIdleTimeout is how long an unused session stays in the registry.
	DefaultIdleTimeout = 2 * time.Hour
	// DefaultMaxLifetime is how long a session lives however often it is used.
	DefaultMaxLifetime = 24 * time.Hour
)

// idBytes is the size of a registry id before encoding (256 bits).
const idBytes = 32

type entry struct {
	sess     *Session
	created  time.Time
	lastSeen time.Time
}

// Registry holds the transient sessions of all clients of this process,
// keyed by an opaque browser-session id. Nothing here is persisted.
type Registry struct {
	mu          sync.Mutex
	entries     map[string]*entry
	idleTimeout time.Duration
	maxLifetime time.Duration
	now         func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxLifetime caps how long a session can live. Non-positive values are ignored.
func WithMaxLifetime(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.maxLifetime = d
		}
	}
}

// NewRegistry creates a Registry. A non-positive idleTimeout uses DefaultIdleTimeout.
func NewRegistry(idleTimeout time.Duration, opts ...RegistryOption) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	r := &Registry{
		entries:     make(map[string]*entry),
		idleTimeout: idleTimeout,
		maxLifetime: DefaultMaxLifetime,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastSeen) > r.idleTimeout || now.Sub(e.created) > r.maxLifetime
}

// Get returns the session for id if it exists, has not been idle too long and
// is younger than the maximum lifetime.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if r.expired(e, now) {
		delete(r.entries, id)
		return nil, false
	}
	e.lastSeen = now
	return e.sess, true
}

// Create registers a new unauthenticated session and returns its id.
func (r *Registry) Create() (string, *Session, error) {
	id, err := newSessionID()
	if err != nil {
		return "", nil, err
	}
	sess := New()

	now := r.now()
	r.mu.Lock()
	r.entries[id] = &entry{sess: sess, created: now, lastSeen: now}
	r.mu.Unlock()

	return id, sess, nil
}

// Rotate moves the session registered under id to a fresh id and restarts its
// lifetime. The old id stops working.
func (r *Registry) Rotate(id string) (string, error) {
	newID, err := newSessionID()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return "", oops.Code("SESSION_NOT_FOUND").Errorf("session not registered")
	}
	delete(r.entries, id)
	now := r.now()
	e.created = now
	e.lastSeen = now
	r.entries[newID] = e
	return newID, nil
}

// DeleteUser removes every session signed in as userID except the one
// registered under keep, and returns how many were removed.
func (r *Registry) DeleteUser(userID ulid.ULID, keep string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if id == keep {
			continue
		}
		if user := e.sess.User(); user != nil && user.UserID == userID {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Delete removes a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Sweep drops idle and over-age sessions and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if r.expired(e, now) {
			delete(r.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RunSweeper calls Sweep every interval until stop is closed.
func (r *Registry) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			r.Sweep(now)
		case <-stop:
			return
		}
	}
}

func newSessionID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SESSION_ID_GENERATE_FAILED").Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
