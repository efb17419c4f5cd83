// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/mealplanner/mealplanner/internal/auth"
	"github.com/mealplanner/mealplanner/internal/session"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type userResponse struct {
	User *auth.UserInfo `json:"user"`
}

type loginResponse struct {
	User       *auth.UserInfo `json:"user"`
	Remembered bool           `json:"remembered"`
}

type sessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *auth.UserInfo `json:"user,omitempty"`
}

// eventResult names the outcome of an auth call for metrics.
func eventResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrDuplicateUser):
		return "duplicate"
	case errors.Is(err, auth.ErrValidation), errors.Is(err, auth.ErrWeakPassword):
		return "invalid"
	case errors.Is(err, auth.ErrDatabaseUnavailable):
		return "unavailable"
	case errors.Is(err, session.ErrCookiesNotReady):
		return "pending"
	default:
		return "error"
	}
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	h.metrics.AuthEvent(EventRegister, eventResult(err))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{User: user})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, _ := session.FromContext(r.Context())

	result, err := h.bridge.Login(r.Context(), sess, cookiesFrom(r.Context()), req.Email, req.Password, req.RememberMe)
	h.metrics.AuthEvent(EventLogin, eventResult(err))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.rotateSession(r.Context(), w, sessionIDFrom(r.Context()))
	writeJSON(w, http.StatusOK, loginResponse{User: result.User, Remembered: result.Remembered})
}

// logout always ends the local session; a failed token revoke is only logged.
func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	err := h.bridge.Logout(r.Context(), sess, cookiesFrom(r.Context()))
	h.metrics.AuthEvent(EventLogout, eventResult(err))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) sessionState(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	resp := sessionResponse{Authenticated: sess.Authenticated()}
	if resp.Authenticated {
		resp.User = sess.User()
	}
	writeJSON(w, http.StatusOK, resp)
}

// changePassword revokes every remember-me token of the user, ends the user's
// other sessions and drops the token cookie. The current session stays
// logged in.
func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	err := h.accounts.ChangePassword(r.Context(), user.UserID, req.CurrentPassword, req.NewPassword)
	h.metrics.AuthEvent(EventPasswordChange, eventResult(err))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if n := h.registry.DeleteUser(user.UserID, sessionIDFrom(r.Context())); n > 0 {
		h.logger.InfoContext(r.Context(), "ended other sessions after password change",
			"user_id", user.UserID.String(),
			"sessions", n,
		)
	}
	if err := h.bridge.Forget(cookiesFrom(r.Context())); err != nil {
		h.logger.WarnContext(r.Context(), "failed to clear token cookie after password change", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
