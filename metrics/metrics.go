// Package metrics bundles the Prometheus collectors shared by the collector and the sink.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors on a dedicated registry.
type Metrics struct {
	Registry            *prometheus.Registry
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	PagesTotal          prometheus.Counter
	ItemsExtractedTotal prometheus.Counter
	ItemsSkippedTotal   prometheus.Counter
	DuplicatesTotal     prometheus.Counter
	RetriesTotal        prometheus.Counter
	ErrorsTotal         *prometheus.CounterVec
	RowsLoadedTotal     prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksync_requests_total",
			Help: "Total page requests issued, by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booksync_request_duration_seconds",
			Help:    "HTTP request latency for page requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booksync_pages_processed_total",
			Help: "Total number of result pages run through the extractor.",
		},
	)
	itemsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booksync_items_extracted_total",
			Help: "Total number of records accepted into a batch.",
		},
	)
	itemsSkipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booksync_items_skipped_total",
			Help: "Total number of item blocks dropped for missing fields.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booksync_duplicates_total",
			Help: "Total number of records dropped as duplicate titles.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booksync_retries_total",
			Help: "Total number of page fetch retries.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booksync_errors_total",
			Help: "Total number of contained collection errors by type.",
		},
		[]string{"error_type"},
	)
	rowsLoaded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booksync_rows_loaded_total",
			Help: "Total number of rows inserted into the sink.",
		},
	)

	registry.MustRegister(requests, requestDuration, pages, itemsExtracted, itemsSkipped, duplicates, retries, errorsTotal, rowsLoaded)

	return &Metrics{
		Registry:            registry,
		RequestsTotal:       requests,
		RequestDuration:     requestDuration,
		PagesTotal:          pages,
		ItemsExtractedTotal: itemsExtracted,
		ItemsSkippedTotal:   itemsSkipped,
		DuplicatesTotal:     duplicates,
		RetriesTotal:        retries,
		ErrorsTotal:         errorsTotal,
		RowsLoadedTotal:     rowsLoaded,
	}
}

// IncRequest increments the requests counter for an outcome label.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

func (m *Metrics) IncItems() {
	if m == nil {
		return
	}
	m.ItemsExtractedTotal.Inc()
}

func (m *Metrics) IncSkipped() {
	if m == nil {
		return
	}
	m.ItemsSkippedTotal.Inc()
}

func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// AddRowsLoaded adds n inserted rows.
func (m *Metrics) AddRowsLoaded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsLoadedTotal.Add(float64(n))
}
