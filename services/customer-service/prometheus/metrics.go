package prometheus

import (
	"strconv"
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

	// Customer metrics
	CustomerOperationsCounter *prometheus.CounterVec

	// Tenant specific metrics
	CustomersPerTenantGauge *prometheus.GaugeVec

	// Errors by type
	ErrorCounter *prometheus.CounterVec

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	initOnce.Do(func() {
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

		CustomerOperationsCounter = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_operations_total",
				Help: "Total number of customer operations",
			},
			[]string{"operation"},
		)

		CustomersPerTenantGauge = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_customers_per_tenant",
				Help: "Number of customers per tenant",
			},
			[]string{"tenant_id"},
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
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordCustomerOperation increments the counter for customer operations
func RecordCustomerOperation(operation string) {
	CustomerOperationsCounter.WithLabelValues(operation).Inc()
}

// UpdateCustomersPerTenant updates the gauge for customers per tenant
func UpdateCustomersPerTenant(tenantID uint, count int64) {
	CustomersPerTenantGauge.WithLabelValues(strconv.FormatUint(uint64(tenantID), 10)).Set(float64(count))
}

// RecordError increments the error counter
func RecordError(errorType string) {
	ErrorCounter.WithLabelValues(errorType).Inc()
}
