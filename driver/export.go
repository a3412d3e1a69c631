package driver

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records what the driver sent. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	errors   prometheus.Counter
	duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "serenity_driver_requests_total",
				Help: "Completed mine requests, labeled by response status code",
			},
			[]string{"code"},
		),
		errors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "serenity_driver_request_errors_total",
				Help: "Mine requests that failed before a full response was read",
			},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "serenity_driver_request_duration_seconds",
				Help:    "Round trip time of completed mine requests",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) observe(code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.errors.Inc()
}
