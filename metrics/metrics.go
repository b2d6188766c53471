package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kmz_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kmz_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RecordsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kmz_records_scanned_total",
			Help: "Records read from the Registro collection",
		},
	)

	// RecordsSkipped counts records dropped for having no usable location.
	RecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kmz_records_skipped_total",
			Help: "Records skipped because the Coordinates field was missing or unusable",
		},
	)

	ArchivesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kmz_archives_generated_total",
			Help: "KMZ archives written to the download directory",
		},
	)

	ArchivePoints = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kmz_archive_points",
			Help:    "Number of placemarks per generated archive",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	GenerationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kmz_generation_errors_total",
			Help: "Failed KMZ generations by error code",
		},
		[]string{"code"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordArchive records a successfully written archive.
func RecordArchive(points int) {
	ArchivesGenerated.Inc()
	ArchivePoints.Observe(float64(points))
}

func RecordGenerationError(code string) {
	GenerationErrors.WithLabelValues(code).Inc()
}
