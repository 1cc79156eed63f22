package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Orders by operation: create, approve, ship, cancel
	OrderOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_order_operations_total",
			Help: "Total number of sales order operations",
		},
		[]string{"operation"},
	)

	// Quotations by operation: create, convert
	QuotationOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_quotation_operations_total",
			Help: "Total number of quotation operations",
		},
		[]string{"operation"},
	)

	// Event publishing outcomes
	EventPublishCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_event_publish_total",
			Help: "Total number of published domain events by outcome",
		},
		[]string{"routing_key", "result"},
	)

	// Calls to customer-service and product-service
	UpstreamCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_upstream_call_duration_seconds",
			Help:    "Duration of calls to other services in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream", "result"},
	)

	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(OrderOperationCounter)
	prometheus.MustRegister(QuotationOperationCounter)
	prometheus.MustRegister(EventPublishCounter)
	prometheus.MustRegister(UpstreamCallDuration)
	prometheus.MustRegister(ErrorCounter)
	prometheus.MustRegister(DBOperationDuration)
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.With(prometheus.Labels{"operation": operation}).Observe(time.Since(start).Seconds())
	}
}

// TrackUpstreamCall returns a func that records one call to upstream
func TrackUpstreamCall(upstream string) func(err error) {
	start := time.Now()
	return func(err error) {
		result := "success"
		if err != nil {
			result = "failure"
		}
		UpstreamCallDuration.With(prometheus.Labels{"upstream": upstream, "result": result}).Observe(time.Since(start).Seconds())
	}
}

// RecordOrderOperation records a sales order operation
func RecordOrderOperation(operation string) {
	OrderOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordQuotationOperation records a quotation operation
func RecordQuotationOperation(operation string) {
	QuotationOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordEventPublish records the outcome of publishing routingKey
func RecordEventPublish(routingKey string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventPublishCounter.With(prometheus.Labels{"routing_key": routingKey, "result": result}).Inc()
}

// RecordError records an error by type
func RecordError(errorType string) {
	ErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}
