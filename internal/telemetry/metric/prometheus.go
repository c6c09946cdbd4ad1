package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "onelogin"

// Registry holds all application metrics.
//
// A nil *Registry is valid and records nothing, so components can take one
// unconditionally.
type Registry struct {
	reg *prometheus.Registry

	LoginsTotal       *prometheus.CounterVec
	SessionsExpired   prometheus.Counter
	SessionsMalformed prometheus.Counter
	StoreErrors       *prometheus.CounterVec
	RegistryDuration  *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
}

// NewRegistry creates the application metrics and registers them, together
// with the Go runtime and process collectors, in a fresh registry.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login enforcements by outcome.",
		}, []string{"outcome"}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Session entries dropped as expired while loading.",
		}),
		SessionsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_malformed_total",
			Help:      "Session entries dropped as malformed while loading.",
		}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Session store failures by operation.",
		}, []string{"op"}),
		RegistryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_duration_seconds",
			Help:      "Latency of session registry operations.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.LoginsTotal,
		r.SessionsExpired,
		r.SessionsMalformed,
		r.StoreErrors,
		r.RegistryDuration,
		r.HTTPRequests,
	)
	return r
}

// Prometheus returns the underlying registry, for components that register
// their own collectors (the Badger engine does).
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveLogin counts one login enforcement.
func (r *Registry) ObserveLogin(outcome string) {
	if r == nil {
		return
	}
	r.LoginsTotal.WithLabelValues(outcome).Inc()
}

// ObservePruned counts entries dropped while loading a session set.
func (r *Registry) ObservePruned(expired, malformed int) {
	if r == nil {
		return
	}
	if expired > 0 {
		r.SessionsExpired.Add(float64(expired))
	}
	if malformed > 0 {
		r.SessionsMalformed.Add(float64(malformed))
	}
}

// ObserveStoreError counts one store failure.
func (r *Registry) ObserveStoreError(op string) {
	if r == nil {
		return
	}
	r.StoreErrors.WithLabelValues(op).Inc()
}

// ObserveDuration records the latency of a registry operation started at start.
func (r *Registry) ObserveDuration(op string, start time.Time) {
	if r == nil {
		return
	}
	r.RegistryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveHTTP counts one served HTTP request.
func (r *Registry) ObserveHTTP(method string, code int) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}
