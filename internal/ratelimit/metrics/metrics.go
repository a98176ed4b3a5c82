package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RequestsAllowed  prometheus.Counter
	RequestsRejected prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RequestsAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loannote_ratelimit_requests_allowed_total",
			Help: "Total number of requests admitted by the rate limiter",
		}),
		RequestsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loannote_ratelimit_requests_rejected_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
	}
}

func (m *Metrics) IncrementAllowed() {
	m.RequestsAllowed.Inc()
}

func (m *Metrics) IncrementRejected() {
	m.RequestsRejected.Inc()
}
