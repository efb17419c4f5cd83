// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/mealplanner/mealplanner/internal/plan"
)

type planListResponse struct {
	Plans []*plan.Plan `json:"plans"`
}

func (h *handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req plan.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	p, err := h.plans.Generate(r.Context(), user.UserID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) listPlans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeErrorBody(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	plans, err := h.plans.List(r.Context(), user.UserID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if plans == nil {
		plans = []*plan.Plan{}
	}
	writeJSON(w, http.StatusOK, planListResponse{Plans: plans})
}

func (h *handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := ulid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, CodeInvalidID, "invalid plan id")
		return
	}
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	p, err := h.plans.Get(r.Context(), user.UserID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
