// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// IngestedRecords counts feed records by outcome: created, updated, skipped, failed.
	IngestedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mls_ingested_records_total",
			Help: "Feed records processed by ingestion, by outcome",
		},
		[]string{"outcome"},
	)

	// ProcessedImages counts image processor outcomes: succeeded, failed, skipped.
	ProcessedImages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mls_processed_images_total",
			Help: "Images handled by the image processor, by outcome",
		},
		[]string{"outcome"},
	)

	// GatewayResponses counts image gateway responses: redirect, proxy, cache, not_found, upstream_error.
	GatewayResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mls_image_gateway_responses_total",
			Help: "Image gateway responses, by path taken",
		},
		[]string{"path"},
	)

	// UpstreamLatency observes outbound calls to the feed and media hosts.
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mls_upstream_latency_ms",
			Help:    "Latency of upstream feed and media requests in milliseconds",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"target"},
	)

	// SearchDuration observes property search latency.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mls_search_duration_ms",
			Help:    "Latency of property searches in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// ObserveSince records the elapsed time since start in milliseconds.
func ObserveSince(o prometheus.Observer, start time.Time) {
	o.Observe(float64(time.Since(start).Microseconds()) / 1000)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
