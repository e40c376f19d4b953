package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSettlementMetricsWithRegisterer(reg)

	m.RecordOutcome("success")
	m.RecordOutcome("success")
	m.RecordOutcome("error")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.outcomes.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("error")))
}

func TestStockSignals(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSettlementMetricsWithRegisterer(reg)

	m.RecordLowStock()
	m.RecordStockExhausted()
	m.RecordSkippedItem()
	m.RecordDuration(50 * time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.lowStock))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.stockExhausted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.skippedItems))
}

func TestDoubleRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newSettlementMetricsWithRegisterer(reg)

	assert.NotPanics(t, func() {
		second := newSettlementMetricsWithRegisterer(reg)
		second.RecordLowStock()
		assert.Equal(t, float64(1), testutil.ToFloat64(first.lowStock))
	})
}
