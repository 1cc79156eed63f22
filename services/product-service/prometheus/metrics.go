package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/suteetoe/erpsuite/gomicro/config"
)

var (
	// Tenant context metrics
	TenantContextMissingCounter prometheus.Counter

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Product metrics
	ProductOperationsCounter *prometheus.CounterVec

	// Category metrics
	CategoryOperationsCounter *prometheus.CounterVec

	// Price row metrics
	PriceOperationsCounter *prometheus.CounterVec

	// Price resolution outcomes by tier
	PriceResolutionsCounter *prometheus.CounterVec

	// Errors by type
	ErrorCounter *prometheus.CounterVec

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics with configuration.
// Only the first call registers collectors.
func InitMetrics(config *config.Config) {
	initOnce.Do(func() {
		// Use metric prefix from configuration
		prefix := config.Metrics.Prefix

		TenantContextMissingCounter = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_tenant_context_missing_total",
				Help: "Total number of requests without tenant context",
			},
		)

		DbOperationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		)

		ProductOperationsCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_operations_total",
				Help: "Total number of product operations",
			},
			[]string{"operation"},
		)

		CategoryOperationsCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_category_operations_total",
				Help: "Total number of category operations",
			},
			[]string{"operation"},
		)

		PriceOperationsCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_price_operations_total",
				Help: "Total number of price row operations",
			},
			[]string{"operation"},
		)

		PriceResolutionsCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_price_resolutions_total",
				Help: "Total number of price resolutions by applied tier",
			},
			[]string{"price_type"},
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

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordProductOperation increments the counter for product operations
func RecordProductOperation(operation string) {
	ProductOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordCategoryOperation increments the counter for category operations
func RecordCategoryOperation(operation string) {
	CategoryOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordPriceOperation increments the counter for price row operations
func RecordPriceOperation(operation string) {
	PriceOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordPriceResolution counts a resolved price by tier
func RecordPriceResolution(priceType string) {
	PriceResolutionsCounter.WithLabelValues(priceType).Inc()
}

// RecordError increments the error counter
func RecordError(errorType string) {
	ErrorCounter.WithLabelValues(errorType).Inc()
}

// RecordTenantContextMissing counts requests rejected for lack of a tenant
func RecordTenantContextMissing() {
	TenantContextMissingCounter.Inc()
}
