// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// SpecialCharacters is the set of characters that satisfy RuleSpecial.
const SpecialCharacters = "!@#$%^&*()-_=+[]{}|;:'\",.<>/?`~\\"

// PasswordRule names a single password policy requirement.
type PasswordRule string

// Password rules, in the order they are checked.
const (
	RuleMinLength PasswordRule = "min_length"
	RuleMaxLength PasswordRule = "max_length"
	RuleUppercase PasswordRule = "uppercase"
	RuleLowercase PasswordRule = "lowercase"
	RuleDigit     PasswordRule = "digit"
	RuleSpecial   PasswordRule = "special"
)

// Description returns a human-readable form of the rule.
func (r PasswordRule) Description() string {
	switch r {
	case RuleMinLength:
		return "password is too short"
	case RuleMaxLength:
		return "password is too long"
	case RuleUppercase:
		return "password must contain an uppercase letter"
	case RuleLowercase:
		return "password must contain a lowercase letter"
	case RuleDigit:
		return "password must contain a digit"
	case RuleSpecial:
		return "password must contain a special character"
	default:
		return string(r)
	}
}

// PasswordPolicy is the password strength policy applied on registration and
// password change.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPasswordPolicy returns the standard policy: 8 to 128 characters.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, MaxLength: 128}
}

// Check returns the first rule the password violates, or "" if it satisfies all of them.
// Lengths are counted in runes.
func (p PasswordPolicy) Check(password string) PasswordRule {
	n := utf8.RuneCountInString(password)
	if n < p.MinLength {
		return RuleMinLength
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return RuleMaxLength
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			special = true
		}
	}

	switch {
	case !upper:
		return RuleUppercase
	case !lower:
		return RuleLowercase
	case !digit:
		return RuleDigit
	case !special:
		return RuleSpecial
	}
	return ""
}

// Validate returns a *WeakPasswordError wrapped with AUTH_WEAK_PASSWORD when the
// password violates the policy.
func (p PasswordPolicy) Validate(password string) error {
	rule := p.Check(password)
	if rule == "" {
		return nil
	}
	return oops.Code(CodeWeakPassword).
		With("rule", string(rule)).
		Wrap(&WeakPasswordError{Rule: rule})
}
