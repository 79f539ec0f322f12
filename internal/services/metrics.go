package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service-level Prometheus collectors. One instance is
// shared by every component; handlers expose them on /metrics.
type Metrics struct {
	ScoringTotal           *prometheus.CounterVec
	ScoringFailed          prometheus.Counter
	RecommendationRequests *prometheus.CounterVec
	UpstreamRequests       *prometheus.CounterVec
	WorkerQueueDepth       prometheus.Gauge
	WorkerDropped          *prometheus.CounterVec
	EventPublishFailures   prometheus.Counter
}

// NewMetrics registers the collectors on reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry so
// repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ScoringTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mbtirec_scoring_total",
			Help: "Content scorings persisted, labeled by scoring method",
		}, []string{"method"}),
		ScoringFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mbtirec_scoring_failed_total",
			Help: "Scoring attempts that fell back to the neutral vector",
		}),
		RecommendationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mbtirec_recommendation_requests_total",
			Help: "Recommendation pages served, labeled by result source",
		}, []string{"source"}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mbtirec_upstream_requests_total",
			Help: "Calls to the content platform, labeled by outcome",
		}, []string{"outcome"}),
		WorkerQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mbtirec_worker_queue_depth",
			Help: "Tasks currently waiting in the background worker queue",
		}),
		WorkerDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mbtirec_worker_dropped_total",
			Help: "Background tasks rejected because the worker queue was full",
		}, []string{"kind"}),
		EventPublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "mbtirec_event_publish_failures_total",
			Help: "Kafka event publishes that failed and were dropped",
		}),
	}
}
