// Package metrics provides Prometheus instrumentation for echobin.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "echobin/pkg/errors"
	"echobin/pkg/httpx"
)

// Metrics holds all Prometheus metrics for echobin. Each instance owns its
// registry so tests and multiple servers do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BodySize        *prometheus.HistogramVec

	// Inspection metrics
	BodyVariants *prometheus.CounterVec
	DecodeErrors *prometheus.CounterVec

	// Auth metrics
	AuthOutcomes *prometheus.CounterVec
}

// New creates a new Metrics instance with all counters and histograms.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "echobin"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		BodySize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_body_bytes",
				Help:      "Size of inspected request bodies in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
			},
			[]string{"route"},
		),
		BodyVariants: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "body_variants_total",
				Help:      "Classified request bodies by variant",
			},
			[]string{"variant"},
		),
		DecodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Body decode diagnostics by operation",
			},
			[]string{"op"},
		),
		AuthOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "auth_outcomes_total",
				Help:      "Authorization checks by scheme, state and reason",
			},
			[]string{"scheme", "state", "reason"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Middleware records request counts and durations labelled by the matched
// route template. It must be installed with mux.Router.Use.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		srw := httpx.NewStatusRecorder(w)
		next.ServeHTTP(srw, r)
		m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(srw.Status)).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveBody records the classified variant, size and diagnostics of one
// inspected body.
func (m *Metrics) ObserveBody(route, variant string, size int, diags []error) {
	if m == nil {
		return
	}
	m.BodyVariants.WithLabelValues(variant).Inc()
	m.BodySize.WithLabelValues(route).Observe(float64(size))
	for _, d := range diags {
		op := "unknown"
		var ke *apperrors.KindError
		if errors.As(d, &ke) {
			op = ke.Op
		}
		m.DecodeErrors.WithLabelValues(op).Inc()
	}
}

// ObserveAuth records one authorization check.
func (m *Metrics) ObserveAuth(scheme, state, reason string) {
	if m == nil {
		return
	}
	m.AuthOutcomes.WithLabelValues(scheme, state, reason).Inc()
}
