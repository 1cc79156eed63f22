package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // "success" or "failure"
	)

	// Registration counter
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "user_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Tenant operation counter
	TenantOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_tenant_operations_total",
			Help: "Total number of tenant operations",
		},
		[]string{"operation"}, // onboard, update, suspend, deactivate, ...
	)

	// Assignment counter
	AssignmentOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_assignment_operations_total",
			Help: "Total number of user-tenant assignment operations",
		},
		[]string{"operation"}, // assign, remove_role, deactivate, set_primary
	)

	// Role and catalog operations
	RoleOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_role_operations_total",
			Help: "Total number of role, permission and catalog operations",
		},
		[]string{"operation"},
	)

	// Authorization decisions
	AuthzDecisionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_authz_decisions_total",
			Help: "Total number of permission checks by outcome",
		},
		[]string{"decision"}, // "allow" or "deny"
	)

	// Error counters
	ErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_errors_total",
			Help: "Total number of errors by type",
		},
		[]string{"type"},
	)

	// Tenant-specific error counter
	TenantErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_tenant_errors_total",
			Help: "Total number of tenant-related errors",
		},
		[]string{"tenant_id", "error_type"},
	)
)

// Histogram metrics
var (
	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "user_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "user_service_info",
			Help: "Information about the user service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(TenantOperationCounter)
	prometheus.MustRegister(AssignmentOperationCounter)
	prometheus.MustRegister(RoleOperationCounter)
	prometheus.MustRegister(AuthzDecisionCounter)
	prometheus.MustRegister(ErrorCounter)
	prometheus.MustRegister(TenantErrorCounter)

	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(startTime).Seconds())
	}
}

// RecordLogin records a login attempt
func RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	LoginCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordRegister records a registration
func RecordRegister() {
	RegisterCounter.Inc()
}

// RecordError records an error by type
func RecordError(errorType string) {
	ErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordTenantError records a tenant-related error
func RecordTenantError(tenantID uint, errorType string) {
	TenantErrorCounter.With(prometheus.Labels{
		"tenant_id":  strconv.FormatUint(uint64(tenantID), 10),
		"error_type": errorType,
	}).Inc()
}

// RecordTenantOperation records a tenant operation
func RecordTenantOperation(operation string) {
	TenantOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordAssignmentOperation records a user-tenant assignment operation
func RecordAssignmentOperation(operation string) {
	AssignmentOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordRoleOperation records a role, permission or catalog operation
func RecordRoleOperation(operation string) {
	RoleOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordAuthzDecision records the outcome of a permission check
func RecordAuthzDecision(allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisionCounter.With(prometheus.Labels{"decision": decision}).Inc()
}
