// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Meal Planner Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mealplanner/mealplanner/internal/plan"
)

// Metrics contains the custom Prometheus metrics for the meal planner.
type Metrics struct {
	AuthEvents     *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	PlansGenerated *prometheus.CounterVec
}

// NewMetrics creates and registers the custom metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplanner_auth_events_total",
				Help: "Total number of authentication events by event and result",
			},
			[]string{"event", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplanner_http_requests_total",
				Help: "Total number of HTTP requests by route pattern and status code",
			},
			[]string{"route", "status"},
		),
		PlansGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mealplanner_plans_generated_total",
				Help: "Total number of meal-plan generation attempts by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.AuthEvents, m.HTTPRequests, m.PlansGenerated)
	return m
}

// AuthEvent counts an authentication event.
func (m *Metrics) AuthEvent(event, result string) {
	m.AuthEvents.WithLabelValues(event, result).Inc()
}

// HTTPRequest counts a served request.
func (m *Metrics) HTTPRequest(route string, status int) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// PlanGenerated counts a generation attempt. It implements plan.Recorder.
func (m *Metrics) PlanGenerated(result string) {
	m.PlansGenerated.WithLabelValues(result).Inc()
}

var _ plan.Recorder = (*Metrics)(nil)
