// Package metrics exposes settlement telemetry. A debit that commits
// without a booking must be distinguishable from ordinary business
// failures, so every terminal outcome is counted under its own label.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settlement outcome labels.
const (
	OutcomeBooked            = "booked"
	OutcomeUnauthorized      = "unauthorized"
	OutcomeNotFound          = "not_found"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeInconsistency     = "internal_inconsistency"
)

// Settlement counts reserve outcomes.
type Settlement struct {
	reg      *prometheus.Registry
	outcomes *prometheus.CounterVec
}

func NewSettlement() *Settlement {
	reg := prometheus.NewRegistry()
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "settlement",
		Name:      "outcomes_total",
		Help:      "Reserve outcomes by terminal state.",
	}, []string{"outcome"})
	reg.MustRegister(outcomes)
	return &Settlement{reg: reg, outcomes: outcomes}
}

// Record increments the counter for outcome. Safe on a nil receiver so
// wiring metrics stays optional.
func (s *Settlement) Record(outcome string) {
	if s == nil {
		return
	}
	s.outcomes.WithLabelValues(outcome).Inc()
}

// Handler serves the /metrics endpoint for this registry.
func (s *Settlement) Handler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
}
