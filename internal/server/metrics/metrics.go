// Package metrics records authentication outcomes and RPC latency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeAccountGone  = "account_gone"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// Recorder receives auth events from the session service and transport.
type Recorder interface {
	Login(outcome string)
	Refresh(outcome string)
	Logout(outcome string)
	ObserveRPC(method, code string, elapsed time.Duration)
}

// Prometheus is a Recorder backed by its own registry.
type Prometheus struct {
	registry    *prometheus.Registry
	logins      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	logouts     *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "refreshes_total",
			Help:      "Access token refresh attempts by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Name:      "logouts_total",
			Help:      "Logout attempts by outcome.",
		}, []string{"outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authcore",
			Name:      "rpc_duration_seconds",
			Help:      "gRPC handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
	p.registry.MustRegister(
		p.logins, p.refreshes, p.logouts, p.rpcDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) Login(outcome string)   { p.logins.WithLabelValues(outcome).Inc() }
func (p *Prometheus) Refresh(outcome string) { p.refreshes.WithLabelValues(outcome).Inc() }
func (p *Prometheus) Logout(outcome string)  { p.logouts.WithLabelValues(outcome).Inc() }

func (p *Prometheus) ObserveRPC(method, code string, elapsed time.Duration) {
	p.rpcDuration.WithLabelValues(method, code).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Nop returns a Recorder that drops every event.
func Nop() Recorder { return nop{} }

type nop struct{}

func (nop) Login(string)                             {}
func (nop) Refresh(string)                           {}
func (nop) Logout(string)                            {}
func (nop) ObserveRPC(string, string, time.Duration) {}

var _ Recorder = (*Prometheus)(nil)
