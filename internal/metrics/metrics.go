package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jnfrati/buzon/internal/models"
)

const Namespace = "mq"

// Error kinds used as the "kind" label of request_errors_total.
const (
	KindNotFound = "not_found"
	KindTooLarge = "too_large"
	KindDecode   = "decode"
	KindLock     = "lock"
)

// Metrics holds the broker's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	posted    *prometheus.CounterVec
	delivered *prometheus.CounterVec
	timeouts  *prometheus.CounterVec
	errors    *prometheus.CounterVec

	queues     prometheus.Gauge
	queueDepth *prometheus.GaugeVec

	getWait prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		posted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_posted_total",
			Help:      "Messages accepted per queue",
		}, []string{"queue"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_delivered_total",
			Help:      "Messages handed to consumers per queue",
		}, []string{"queue"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "get_timeouts_total",
			Help:      "Gets that ended without a message",
		}, []string{"queue"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "request_errors_total",
			Help:      "Failed requests by kind",
		}, []string{"kind"}),
		queues: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queues",
			Help:      "Number of queues in the registry",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queue_depth",
			Help:      "Pending messages per queue at the last report",
		}, []string{"queue"}),
		getWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "get_wait_seconds",
			Help:      "Time spent inside a get, waiting included",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
		}),
	}

	err := errors.Join(
		reg.Register(m.posted),
		reg.Register(m.delivered),
		reg.Register(m.timeouts),
		reg.Register(m.errors),
		reg.Register(m.queues),
		reg.Register(m.queueDepth),
		reg.Register(m.getWait),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) Posted(queue string) {
	if m == nil {
		return
	}
	m.posted.WithLabelValues(queue).Inc()
}

// Got records the outcome of a get that did not fail.
func (m *Metrics) Got(queue string, delivered bool, wait time.Duration) {
	if m == nil {
		return
	}
	m.getWait.Observe(wait.Seconds())
	if delivered {
		m.delivered.WithLabelValues(queue).Inc()
		return
	}
	m.timeouts.WithLabelValues(queue).Inc()
}

func (m *Metrics) Error(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

func (m *Metrics) QueueCreated() {
	if m == nil {
		return
	}
	m.queues.Inc()
}

// ObserveStats overwrites the depth gauges with a registry snapshot.
func (m *Metrics) ObserveStats(stats []models.QueueStats) {
	if m == nil {
		return
	}
	m.queues.Set(float64(len(stats)))
	for _, s := range stats {
		m.queueDepth.WithLabelValues(s.Name).Set(float64(s.Depth))
	}
}
