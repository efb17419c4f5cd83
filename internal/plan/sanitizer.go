// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package plan

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from user input and model output. Plans are plain
// text; no HTML element survives.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer creates a Sanitizer with a strict (no elements) policy.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text removes all tags from s and decodes the entities the policy produces,
// so "salt & pepper" stays readable.
func (s *Sanitizer) Text(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

// Request returns a copy of req with every free-text field sanitized.
// Ingredients that become empty are dropped.
func (s *Sanitizer) Request(req Request) Request {
	out := req
	out.Ingredients = nil
	for _, ing := range req.Ingredients {
		if clean := s.Text(ing); clean != "" {
			out.Ingredients = append(out.Ingredients, clean)
		}
	}
	out.Extra = s.Text(req.Extra)
	return out
}
