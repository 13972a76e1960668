// Package metrics exposes Prometheus metrics for dapp request handling
// and send validation.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "corewallet"

// Request dispositions.
const (
	DispositionResolved   = "resolved"
	DispositionPending    = "pending"
	DispositionApproved   = "approved"
	DispositionRejected   = "rejected"
	DispositionFailed     = "failed"
	DispositionSuperseded = "superseded"
	DispositionLimited    = "limited"
)

// Metrics holds the collectors on a private registry so tests and
// multiple instances never collide on the default registry.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	validations   *prometheus.CounterVec
	approveTiming *prometheus.HistogramVec
	rpcCalls      *prometheus.CounterVec
	pending       prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dapp_requests_total",
			Help:      "Dapp requests by method and disposition.",
		}, []string{"method", "disposition"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_validations_total",
			Help:      "Send validations by ledger and outcome reason.",
		}, []string{"ledger", "reason"}),
		approveTiming: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dapp_approve_duration_seconds",
			Help:      "Time spent in the approve phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "Node calls by ledger and result.",
		}, []string{"ledger", "result"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dapp_requests_pending",
			Help:      "Requests awaiting a user decision.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.validations,
		m.approveTiming,
		m.rpcCalls,
		m.pending,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest counts a request outcome.
func (m *Metrics) ObserveRequest(method, disposition string) {
	m.requests.WithLabelValues(method, disposition).Inc()
}

// ObserveApprove records how long an approve phase took.
func (m *Metrics) ObserveApprove(method string, d time.Duration) {
	m.approveTiming.WithLabelValues(method).Observe(d.Seconds())
}

// SetPending sets the number of requests awaiting a decision.
func (m *Metrics) SetPending(n int) {
	m.pending.Set(float64(n))
}

// ObserveValidation counts a send validation outcome.
func (m *Metrics) ObserveValidation(ledger, reason string) {
	if reason == "" {
		reason = "ok"
	}
	m.validations.WithLabelValues(strings.ToLower(ledger), reason).Inc()
}

// RecordRPCCall counts a node call.
func (m *Metrics) RecordRPCCall(ledger string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.rpcCalls.WithLabelValues(strings.ToLower(ledger), result).Inc()
}
