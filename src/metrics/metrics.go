package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the application's Prometheus metrics.
type Collector struct {
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	DatasetLoadDuration prometheus.Histogram
	DatasetRows         prometheus.Gauge
	DatasetReloadsTotal prometheus.Counter

	RenderDuration prometheus.Histogram

	IngestAttachmentsTotal prometheus.Counter
	IngestErrorsTotal      *prometheus.CounterVec

	ReportPushesTotal *prometheus.CounterVec
}

// NewCollector registers the application metrics under the given namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		DatasetLoadDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dataset_load_duration_seconds",
				Help:      "Duration of workbook read and normalization in seconds",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
			},
		),

		DatasetRows: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dataset_rows",
				Help:      "Number of rows in the clean table",
			},
		),

		DatasetReloadsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dataset_reloads_total",
				Help:      "Times the dataset cache was invalidated and re-read",
			},
		),

		RenderDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Duration of the filter and aggregation pipeline in seconds",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
		),

		IngestAttachmentsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_attachments_total",
				Help:      "Dataset attachments saved from email",
			},
		),

		IngestErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingest_errors_total",
				Help:      "Email ingest errors by type",
			},
			[]string{"error_type"},
		),

		ReportPushesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_pushes_total",
				Help:      "Daily report deliveries by channel and status",
			},
			[]string{"channel", "status"},
		),
	}
}

// Timer measures one operation against a histogram.
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation.
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments the API request counter.
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments the API error counter.
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordIngestError increments the ingest error counter.
func (c *Collector) RecordIngestError(errorType string) {
	c.IngestErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordReportPush increments the report delivery counter.
func (c *Collector) RecordReportPush(channel, status string) {
	c.ReportPushesTotal.WithLabelValues(channel, status).Inc()
}
