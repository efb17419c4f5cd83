// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/internal/plan"
	"github.com/mealplanner/mealplanner/pkg/errutil"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

// Error codes produced by the web layer itself.
const (
	CodeInvalidJSON   = "INVALID_JSON"
	CodeBodyTooLarge  = "BODY_TOO_LARGE"
	CodeAuthRequired  = "AUTH_REQUIRED"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInvalidID     = "INVALID_ID"
	CodeInternal      = "INTERNAL"
	CodeUnavailable   = "SERVICE_UNAVAILABLE"
	msgUnavailable    = "service temporarily unavailable, please try again later"
	msgInternal       = "internal error"
	msgAuthRequired   = "login required"
	msgBadCredentials = "invalid email or password"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Code: code, Message: message})
}

// writeError maps err onto a status code and a client-safe message. Store
// outages and unexpected errors never leak their details.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(logger.With("path", r.URL.Path), "request failed", err)
	}
	writeErrorBody(w, status, code, message)
}

func classify(err error) (status int, code, message string) {
	code = errutil.Code(err)
	switch {
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrValidation), errors.Is(err, plan.ErrInvalidRequest):
		return http.StatusBadRequest, orDefault(code, auth.CodeValidation), err.Error()
	case errors.Is(err, auth.ErrDuplicateUser):
		return http.StatusConflict, auth.CodeDuplicateUser, "an account with this email already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, auth.CodeInvalidCredentials, msgBadCredentials
	case errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, auth.CodeTokenInvalid, "session expired, please log in again"
	case errors.Is(err, plan.ErrPlanNotFound):
		return http.StatusNotFound, plan.CodeNotFound, "meal plan not found"
	case errors.Is(err, plan.ErrGenerationFailed):
		return http.StatusBadGateway, plan.CodeGenerationFailed, "the meal plan could not be generated, please try again"
	case errors.Is(err, auth.ErrDatabaseUnavailable), errors.Is(err, plan.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable, msgUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal, msgInternal
	}
}

func orDefault(code, fallback string) string {
	if code == "" {
		return fallback
	}
	return code
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields,
// trailing data and bodies over MaxBodyBytes. On failure it writes the
// response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "request body too large")
			return false
		}
		writeErrorBody(w, http.StatusBadRequest, CodeInvalidJSON, "malformed JSON body")
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeErrorBody(w, http.StatusBadRequest, CodeInvalidJSON, "request body must contain a single JSON object")
		return false
	}
	return true
}
