package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubmissionsRejected  prometheus.Counter
	NotificationsSent    prometheus.Counter
	NotificationFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SubmissionsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loannote_notify_submissions_rejected_total",
			Help: "Total number of loan submissions rejected before dispatch",
		}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loannote_notify_notifications_sent_total",
			Help: "Total number of admin notifications accepted by the mail relay",
		}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "loannote_notify_notification_failures_total",
			Help: "Total number of dispatch attempts that did not reach the admin",
		}),
	}
}

func (m *Metrics) IncrementRejected() {
	m.SubmissionsRejected.Inc()
}

func (m *Metrics) IncrementSent() {
	m.NotificationsSent.Inc()
}

func (m *Metrics) IncrementFailures() {
	m.NotificationFailures.Inc()
}
