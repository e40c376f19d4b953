package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics instruments the webhook settlement pipeline.
type SettlementMetrics struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram

	lowStock       prometheus.Counter
	stockExhausted prometheus.Counter
	skippedItems   prometheus.Counter
}

func NewSettlementMetrics() *SettlementMetrics {
	return newSettlementMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSettlementMetricsWithRegisterer(registerer prometheus.Registerer) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SettlementMetrics{
		outcomes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pagos_settlements_total",
			Help: "Total number of processed payment webhooks by outcome",
		}, []string{"outcome"}),
		duration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "pagos_settlement_duration_seconds",
			Help:    "Duration of webhook settlement processing in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		lowStock: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pagos_low_stock_warnings_total",
			Help: "Total number of products that dropped to or below the low-stock threshold",
		}),
		stockExhausted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pagos_stock_exhausted_total",
			Help: "Total number of products whose stock reached zero",
		}),
		skippedItems: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pagos_skipped_line_items_total",
			Help: "Total number of purchased line items referencing unknown products",
		}),
	}
}

func (m *SettlementMetrics) RecordOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *SettlementMetrics) RecordDuration(d time.Duration) {
	m.duration.Observe(d.Seconds())
}

func (m *SettlementMetrics) RecordLowStock() {
	m.lowStock.Inc()
}

func (m *SettlementMetrics) RecordStockExhausted() {
	m.stockExhausted.Inc()
}

func (m *SettlementMetrics) RecordSkippedItem() {
	m.skippedItems.Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
