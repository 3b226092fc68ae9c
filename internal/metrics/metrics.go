// Package metrics collects Prometheus metrics for authentication and account
// operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records account and authorization outcomes.
type Collector struct {
	authDecisions *prometheus.CounterVec
	signups       *prometheus.CounterVec
	signins       *prometheus.CounterVec
	events        *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "users_auth_decisions_total",
			Help: "Authorization gate decisions by outcome.",
		}, []string{"outcome"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "users_signups_total",
			Help: "Account creations by result.",
		}, []string{"result"}),
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "users_signins_total",
			Help: "Sign-in attempts by result.",
		}, []string{"result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "users_account_events_total",
			Help: "Account events handed to the message queue by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.authDecisions,
		c.signups,
		c.signins,
		c.events,
	)

	return c
}

func (c *Collector) RecordAuthDecision(outcome string) {
	c.authDecisions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSignup(result string) {
	c.signups.WithLabelValues(result).Inc()
}

func (c *Collector) RecordSignin(result string) {
	c.signins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordEvent(result string) {
	c.events.WithLabelValues(result).Inc()
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
