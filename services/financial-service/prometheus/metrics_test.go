package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/suteetoe/erpsuite/gomicro/config"
)

func TestRecordersBeforeInitAreNoops(t *testing.T) {
	if EventsConsumedCounter != nil {
		t.Skip("metrics already initialized")
	}
	assert.NotPanics(t, func() {
		RecordEventConsumed("order.shipped", "created")
		RecordOverdueMarked(2)
		TrackDBOperation("noop")(time.Now())
	})
}

func TestInitMetricsCounts(t *testing.T) {
	InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "financial_test"}})
	InitMetrics(&config.Config{Metrics: config.MetricsConfig{Prefix: "ignored"}})

	RecordEventConsumed("order.shipped", "duplicate")
	RecordEventConsumed("order.shipped", "duplicate")
	RecordOverdueMarked(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(EventsConsumedCounter.WithLabelValues("order.shipped", "duplicate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(OverdueMarkedCounter))
}
