// Package metrics exposes dashboard activity on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flameguard"

type Metrics struct {
	registry *prometheus.Registry

	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
	webcamRunning   prometheus.Gauge
	submissions     *prometheus.CounterVec
}

// HubStats is the part of the event hub the metrics read.
type HubStats interface {
	Subscribers() int
	Dropped() int64
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to the detection backend",
		}, []string{"op", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of detection backend requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_refreshes_total",
			Help:      "Historical log refreshes by collection and outcome",
		}, []string{"collection", "outcome"}),
		webcamRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "webcam_running",
			Help:      "1 while a realtime detection session is running",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Video submissions by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.backendRequests,
		m.backendLatency,
		m.refreshes,
		m.webcamRunning,
		m.submissions,
	)

	return m
}

// WatchHub publishes the subscriber count and drop total of the event hub.
func (m *Metrics) WatchHub(h HubStats) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_subscribers",
			Help:      "Connected event subscribers",
		},
		func() float64 { return float64(h.Subscribers()) },
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped for slow subscribers",
		},
		func() float64 { return float64(h.Dropped()) },
	))
}

func (m *Metrics) ObserveBackendRequest(op, outcome string, elapsed time.Duration) {
	m.backendRequests.WithLabelValues(op, outcome).Inc()
	m.backendLatency.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRefresh(collection, outcome string) {
	m.refreshes.WithLabelValues(collection, outcome).Inc()
}

func (m *Metrics) SetWebcamRunning(running bool) {
	if running {
		m.webcamRunning.Set(1)
		return
	}

	m.webcamRunning.Set(0)
}

func (m *Metrics) ObserveSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
