package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	waitSeconds prometheus.Histogram
	timeouts    prometheus.Counter
}

// WithMetrics registers limiter metrics on reg, labelled with name.
func WithMetrics(reg prometheus.Registerer, name string) Option {
	return func(l *Limiter) {
		f := promauto.With(reg)
		labels := prometheus.Labels{"limiter": name}
		l.metrics = &metrics{
			waitSeconds: f.NewHistogram(prometheus.HistogramOpts{
				Name:        "finx_ratelimit_wait_seconds",
				Help:        "Time a call spent waiting for a free rate limit slot",
				ConstLabels: labels,
				Buckets:     []float64{0, 1, 5, 15, 30, 60, 120},
			}),
			timeouts: f.NewCounter(prometheus.CounterOpts{
				Name:        "finx_ratelimit_timeouts_total",
				Help:        "Calls rejected because the wait exceeded the maximum",
				ConstLabels: labels,
			}),
		}
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "finx_ratelimit_calls_last_minute",
			Help:        "Admitted calls in the last 60 seconds",
			ConstLabels: labels,
		}, func() float64 { return float64(l.Stats().CallsLastMinute) })
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "finx_ratelimit_calls_last_day",
			Help:        "Admitted calls in the last 24 hours",
			ConstLabels: labels,
		}, func() float64 { return float64(l.Stats().CallsLastDay) })
		f.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "finx_ratelimit_queued",
			Help:        "Calls waiting for admission",
			ConstLabels: labels,
		}, func() float64 { return float64(l.Stats().Queued) })
	}
}

func (m *metrics) admitted(waited time.Duration) {
	if m == nil {
		return
	}
	m.waitSeconds.Observe(waited.Seconds())
}

func (m *metrics) timeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}
