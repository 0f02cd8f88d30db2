// Package metrics exposes prometheus counters for auth flow outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Observer receives flow events. Services depend on this, not on prometheus.
type Observer interface {
	FlowCompleted(flow string, success bool)
	RefreshReuse()
	MailFailure()
}

// Nop discards all observations.
type Nop struct{}

func (Nop) FlowCompleted(string, bool) {}
func (Nop) RefreshReuse()              {}
func (Nop) MailFailure()               {}

// Metrics is an Observer backed by a dedicated registry.
type Metrics struct {
	registry     *prometheus.Registry
	flows        *prometheus.CounterVec
	reuse        prometheus.Counter
	mailFailures prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		flows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_flow_total",
				Help: "Completed auth flows by flow and outcome",
			},
			[]string{"flow", "outcome"},
		),
		reuse: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gophauth_refresh_reuse_total",
			Help: "Refresh token reuse detections",
		}),
		mailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gophauth_mail_failures_total",
			Help: "Emails that could not be handed to the sender",
		}),
	}
	reg.MustRegister(m.flows, m.reuse, m.mailFailures)
	return m
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *Metrics) FlowCompleted(flow string, success bool) {
	m.flows.WithLabelValues(flow, outcome(success)).Inc()
}

func (m *Metrics) RefreshReuse() { m.reuse.Inc() }

func (m *Metrics) MailFailure() { m.mailFailures.Inc() }

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
