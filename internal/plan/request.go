// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package plan

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Request limits.
const (
	MinKcal        = 1000
	MaxKcal        = 5000
	DefaultKcal    = 2000
	MaxExtraLength = 200
	MaxIngredients = 100
)

// Request describes the plan a user asks for.
type Request struct {
	Ingredients      []string `json:"ingredients"`
	MaxKcal          int      `json:"max_kcal"`
	ExactIngredients bool     `json:"exact_ingredients"`
	Extra            string   `json:"extra,omitempty"`
}

// ParseIngredients splits free text into one ingredient per non-blank line.
func ParseIngredients(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Normalize trims every field, drops blank ingredients and applies the default calorie cap.
func (r Request) Normalize() Request {
	out := Request{
		MaxKcal:          r.MaxKcal,
		ExactIngredients: r.ExactIngredients,
		Extra:            strings.TrimSpace(r.Extra),
	}
	for _, ing := range r.Ingredients {
		out.Ingredients = append(out.Ingredients, ParseIngredients(ing)...)
	}
	if out.MaxKcal == 0 {
		out.MaxKcal = DefaultKcal
	}
	return out
}

// Validate checks a normalized request.
func (r Request) Validate() error {
	if len(r.Ingredients) == 0 {
		return oops.Code(CodeNoIngredients).
			With("field", "ingredients").
			Wrapf(ErrInvalidRequest, "at least one ingredient is required")
	}
	if len(r.Ingredients) > MaxIngredients {
		return oops.Code(CodeNoIngredients).
			With("field", "ingredients").
			With("max", MaxIngredients).
			Wrapf(ErrInvalidRequest, "at most %d ingredients are allowed", MaxIngredients)
	}
	if r.MaxKcal < MinKcal || r.MaxKcal > MaxKcal {
		return oops.Code(CodeInvalidKcal).
			With("field", "max_kcal").
			With("value", r.MaxKcal).
			Wrapf(ErrInvalidRequest, "daily calorie goal must be between %d and %d", MinKcal, MaxKcal)
	}
	if utf8.RuneCountInString(r.Extra) > MaxExtraLength {
		return oops.Code(CodeExtraTooLong).
			With("field", "extra").
			Wrapf(ErrInvalidRequest, "extra requirements must be at most %d characters", MaxExtraLength)
	}
	return nil
}
