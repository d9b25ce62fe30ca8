package obs

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// StatementMetrics groups Prometheus collectors describing statement generation.
type StatementMetrics struct {
	// Total counts statement generations by outcome (ok, unknown_genre, play_not_found, error).
	Total *prometheus.CounterVec
	// Amount records the amount owed per statement in major currency units.
	Amount prometheus.Histogram
	// Credits records the volume credits earned per statement.
	Credits prometheus.Histogram
	// Performances records how many performances each statement priced.
	Performances prometheus.Histogram
	// Cache counts statement cache lookups by result (hit, miss, error, bypass).
	Cache *prometheus.CounterVec
}

// NewStatementMetrics registers and returns statement collectors. Collectors already
// registered under the same name are reused.
func NewStatementMetrics(namespace string, reg prometheus.Registerer) *StatementMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &StatementMetrics{
		Total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Count of statement generations by outcome.",
		}, []string{"result"}),
		Amount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "statement_amount_dollars",
			Help:      "Amount owed per generated statement in dollars.",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000},
		}),
		Credits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "statement_volume_credits",
			Help:      "Volume credits earned per generated statement.",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250},
		}),
		Performances: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "statement_performances",
			Help:      "Performances priced per generated statement.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statement_cache_total",
			Help:      "Statement cache lookups by result.",
		}, []string{"result"}),
	}

	mustRegisterCollector(reg, m.Total, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.Total = v
		}
	})
	mustRegisterCollector(reg, m.Amount, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Histogram); ok {
			m.Amount = v
		}
	})
	mustRegisterCollector(reg, m.Credits, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Histogram); ok {
			m.Credits = v
		}
	})
	mustRegisterCollector(reg, m.Performances, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Histogram); ok {
			m.Performances = v
		}
	})
	mustRegisterCollector(reg, m.Cache, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.Cache = v
		}
	})
	return m
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
