package marketdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	roleCache    = "cache"
	rolePrimary  = "primary"
	roleFallback = "fallback"
)

type metrics struct {
	requests        *prometheus.CounterVec
	primaryFailures *prometheus.CounterVec
	failures        *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finx_marketdata_requests_total",
			Help: "Requests served, by data kind and the source that served them",
		}, []string{"kind", "source"}),
		primaryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finx_marketdata_primary_failures_total",
			Help: "Primary provider failures that fell back to the fallback provider",
		}, []string{"kind"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finx_marketdata_failures_total",
			Help: "Requests that failed after every eligible provider was tried",
		}, []string{"kind"}),
	}
}

func (m *metrics) request(kind, source string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind, source).Inc()
}

func (m *metrics) primaryFailure(kind string) {
	if m == nil {
		return
	}
	m.primaryFailures.WithLabelValues(kind).Inc()
}

func (m *metrics) failure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}
