package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_events_total",
			Help: "Total number of order webhook events consumed",
		},
	)

	DuplicateEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_events_duplicate_total",
			Help: "Total number of events skipped by the dedup store",
		},
	)

	EventsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_skipped_total",
			Help: "Total number of events that exited the pipeline early",
		},
		[]string{"reason"},
	)

	ShipmentsNotifiedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shipments_notified_total",
			Help: "Total number of shipments notified to the chat",
		},
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "Duration of one pipeline run per event",
			Buckets: prometheus.DefBuckets,
		},
	)

	TokenRefreshTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_token_refresh_total",
			Help: "Total number of OAuth token refresh attempts",
		},
	)

	TokenCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_token_cache_hits_total",
			Help: "Total number of access token reads served from the in-memory cache",
		},
	)
)

func Register() {
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(DuplicateEventsTotal)
	prometheus.MustRegister(EventsSkippedTotal)
	prometheus.MustRegister(ShipmentsNotifiedTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(TokenRefreshTotal)
	prometheus.MustRegister(TokenCacheHitsTotal)
}
