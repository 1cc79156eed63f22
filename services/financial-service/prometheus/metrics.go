package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/suteetoe/erpsuite/gomicro/config"
)

var (
	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Invoice metrics
	InvoiceOperationsCounter *prometheus.CounterVec

	// Payments received
	PaymentsCounter prometheus.Counter

	// Consumed events by outcome
	EventsConsumedCounter *prometheus.CounterVec

	// Invoices moved to OVERDUE by the sweeper
	OverdueMarkedCounter prometheus.Counter

	// Report queries by report
	ReportQueriesCounter *prometheus.CounterVec

	// Errors by type
	ErrorCounter *prometheus.CounterVec

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics with configuration.
// Only the first call registers collectors.
func InitMetrics(config *config.Config) {
	initOnce.Do(func() {
		prefix := config.Metrics.Prefix

		DbOperationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		)

		InvoiceOperationsCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_invoice_operations_total",
				Help: "Total number of invoice operations",
			},
			[]string{"operation"},
		)

		PaymentsCounter = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_payments_total",
				Help: "Total number of recorded payments",
			},
		)

		EventsConsumedCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_events_consumed_total",
				Help: "Total number of consumed events by outcome",
			},
			[]string{"routing_key", "result"},
		)

		OverdueMarkedCounter = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_invoices_marked_overdue_total",
				Help: "Total number of invoices moved to OVERDUE",
			},
		)

		ReportQueriesCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_report_queries_total",
				Help: "Total number of report queries",
			},
			[]string{"report"},
		)

		ErrorCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type"},
		)
	})
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operationType string) func(time.Time) {
	return func(start time.Time) {
		if DbOperationDuration == nil {
			return
		}
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(start).Seconds())
	}
}

// RecordInvoiceOperation records an invoice operation
func RecordInvoiceOperation(operation string) {
	if InvoiceOperationsCounter != nil {
		InvoiceOperationsCounter.WithLabelValues(operation).Inc()
	}
}

// RecordPayment records a payment
func RecordPayment() {
	if PaymentsCounter != nil {
		PaymentsCounter.Inc()
	}
}

// RecordEventConsumed records the outcome of handling one event
func RecordEventConsumed(routingKey, result string) {
	if EventsConsumedCounter != nil {
		EventsConsumedCounter.WithLabelValues(routingKey, result).Inc()
	}
}

// RecordOverdueMarked adds n invoices moved to OVERDUE
func RecordOverdueMarked(n int64) {
	if OverdueMarkedCounter != nil {
		OverdueMarkedCounter.Add(float64(n))
	}
}

// RecordReportQuery records a report query
func RecordReportQuery(report string) {
	if ReportQueriesCounter != nil {
		ReportQueriesCounter.WithLabelValues(report).Inc()
	}
}

// RecordError records an error by type
func RecordError(errorType string) {
	if ErrorCounter != nil {
		ErrorCounter.WithLabelValues(errorType).Inc()
	}
}
