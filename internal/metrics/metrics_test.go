package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"embroidery-pricing/internal/metrics"
)

func TestCollectorObserve(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := metrics.New("embroidery", registry)

	c.Observe(metrics.KindDigitizing, metrics.OutcomeOK, 3*time.Millisecond)
	c.Observe(metrics.KindDigitizing, metrics.OutcomeOK, time.Millisecond)
	c.Observe(metrics.KindShipping, metrics.OutcomeError, time.Millisecond)

	if got := testutil.ToFloat64(c.Total.WithLabelValues(metrics.KindDigitizing, metrics.OutcomeOK)); got != 2 {
		t.Fatalf("digitizing ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Total.WithLabelValues(metrics.KindShipping, metrics.OutcomeError)); got != 1 {
		t.Fatalf("shipping error = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(c.Duration); n != 2 {
		t.Fatalf("expected 2 histogram series, got %d", n)
	}
}

func TestCollectorRegisterTwiceReuses(t *testing.T) {
	registry := prometheus.NewRegistry()
	a := metrics.New("embroidery", registry)
	b := metrics.New("embroidery", registry)

	a.Observe(metrics.KindPricing, metrics.OutcomeOK, 0)
	if got := testutil.ToFloat64(b.Total.WithLabelValues(metrics.KindPricing, metrics.OutcomeOK)); got != 1 {
		t.Fatalf("second collector does not share counters: %v", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *metrics.Collector
	c.Observe(metrics.KindRates, metrics.OutcomeOK, time.Second)
}

func TestDurationMillis(t *testing.T) {
	if got := metrics.DurationMillis(1500 * time.Microsecond); got != 1.5 {
		t.Fatalf("DurationMillis = %v", got)
	}
}
