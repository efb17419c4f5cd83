// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package session

import (
	"net/http"
	"time"

	"github.com/samber/oops"
)

// CookieStore is a client-side key/value store. Callers must not read from it
// until Ready reports true.
type CookieStore interface {
	// Ready reports whether the store has loaded the client's values.
	Ready() bool

	// Get returns the value for key.
	Get(key string) (string, bool)

	// Set stores value under key until expires.
	Set(key, value string, expires time.Time)

	// Delete removes key.
	Delete(key string)

	// Save flushes pending changes to the client.
	Save() error
}

// CookieOptions are the attributes applied to every cookie written by HTTPCookieStore.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieOptions returns HttpOnly, SameSite=Lax cookies scoped to "/".
func DefaultCookieOptions(secure bool) CookieOptions {
	return CookieOptions{
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// HTTPCookieStore is a CookieStore over a single HTTP request/response pair.
// Changes are buffered until Save writes them as Set-Cookie headers, which must
// happen before the response body is written.
type HTTPCookieStore struct {
	r       *http.Request
	w       http.ResponseWriter
	opts    CookieOptions
	pending map[string]*http.Cookie
	dirty   map[string]bool
}

// NewHTTPCookieStore creates a store for one request.
func NewHTTPCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *HTTPCookieStore {
	return &HTTPCookieStore{
		r:       r,
		w:       w,
		opts:    opts,
		pending: make(map[string]*http.Cookie),
		dirty:   make(map[string]bool),
	}
}

// Ready is always true: request cookies are available as soon as the request arrives.
func (s *HTTPCookieStore) Ready() bool {
	return true
}

// Get returns the pending value for key if one was set in this request,
// otherwise the value the client sent.
func (s *HTTPCookieStore) Get(key string) (string, bool) {
	if c, ok := s.pending[key]; ok {
		if c.MaxAge < 0 {
			return "", false
		}
		return c.Value, true
	}
	c, err := s.r.Cookie(key)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Set stores value under key. A zero expires makes a browser-session cookie.
func (s *HTTPCookieStore) Set(key, value string, expires time.Time) {
	c := s.cookie(key, value)
	if !expires.IsZero() {
		c.Expires = expires.UTC()
		c.MaxAge = int(time.Until(expires).Seconds())
		if c.MaxAge <= 0 {
			c.MaxAge = -1
		}
	}
	s.pending[key] = c
	s.dirty[key] = true
}

// Delete expires key on the client.
func (s *HTTPCookieStore) Delete(key string) {
	c := s.cookie(key, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	s.pending[key] = c
	s.dirty[key] = true
}

// Save writes the cookies changed since the last Save to the response.
func (s *HTTPCookieStore) Save() error {
	if s.w == nil {
		return oops.Code("COOKIE_SAVE_FAILED").Errorf("no response writer")
	}
	for key := range s.dirty {
		http.SetCookie(s.w, s.pending[key])
		delete(s.dirty, key)
	}
	return nil
}

func (s *HTTPCookieStore) cookie(key, value string) *http.Cookie {
	return &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     s.opts.Path,
		Domain:   s.opts.Domain,
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: s.opts.SameSite,
	}
}

// Compile-time interface check.
var _ CookieStore = (*HTTPCookieStore)(nil)
