// Package metrics exposes Prometheus collectors for pricing calculations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Calculation kinds used as the "kind" label
const (
	KindShipping   = "shipping"
	KindRates      = "rates"
	KindPricing    = "pricing"
	KindDigitizing = "digitizing"
)

// Outcomes used as the "outcome" label
const (
	OutcomeOK      = "ok"
	OutcomeNoMatch = "no_profile"
	OutcomeError   = "error"
)

// Collector records calculation counts and latency. A nil *Collector is a
// valid no-op.
type Collector struct {
	Total    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// New registers the calculation collectors with reg, or the default
// registerer when reg is nil. Registering twice reuses the existing vectors.
func New(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		Total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Count of pricing calculations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "calculation_duration_ms",
			Help:      "Calculation latency distribution in milliseconds.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"kind"}),
	}

	if err := reg.Register(c.Total); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			panic(fmt.Errorf("register calculations_total: %w", err))
		}
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			c.Total = existing
		}
	}
	if err := reg.Register(c.Duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			panic(fmt.Errorf("register calculation_duration_ms: %w", err))
		}
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			c.Duration = existing
		}
	}
	return c
}

// Observe records one calculation
func (c *Collector) Observe(kind, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Total.WithLabelValues(kind, outcome).Inc()
	c.Duration.WithLabelValues(kind).Observe(DurationMillis(elapsed))
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
