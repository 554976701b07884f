package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tareas"

type Metrics struct {
	registry *prometheus.Registry

	ListingRequests *prometheus.CounterVec
	ListingDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.ListingRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listing_requests_total",
		Help:      "Listing requests by flow and outcome.",
	}, []string{"flow", "outcome"})

	m.ListingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "listing_duration_seconds",
		Help:      "Time spent building a listing page.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"flow"})

	m.registry.MustRegister(m.ListingRequests, m.ListingDuration)
	return m
}

func (m *Metrics) ObserveListing(flow, outcome string, elapsed time.Duration) {
	m.ListingRequests.WithLabelValues(flow, outcome).Inc()
	m.ListingDuration.WithLabelValues(flow).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
