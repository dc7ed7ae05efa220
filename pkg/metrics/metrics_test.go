package metrics

import (
	"strings"
	"testing"
)

func TestCounterRender(t *testing.T) {
	r := New()
	c := r.Counter("stayscout_queries_total", "Total queries")
	c.Inc()
	c.Add(2)

	out := r.Render()
	if !strings.Contains(out, "# TYPE stayscout_queries_total counter") {
		t.Errorf("missing TYPE header:\n%s", out)
	}
	if !strings.Contains(out, "stayscout_queries_total 3") {
		t.Errorf("missing counter value:\n%s", out)
	}
}

func TestLabeledCountersShareHeader(t *testing.T) {
	r := New()
	r.Counter(WithLabels("stayscout_ingest_total", "outcome", "ok"), "Ingested records").Inc()
	r.Counter(WithLabels("stayscout_ingest_total", "outcome", "skipped"), "Ingested records").Inc()

	out := r.Render()
	if strings.Count(out, "# TYPE stayscout_ingest_total counter") != 1 {
		t.Errorf("labeled series should share one TYPE line:\n%s", out)
	}
	if !strings.Contains(out, `stayscout_ingest_total{outcome="ok"} 1`) ||
		!strings.Contains(out, `stayscout_ingest_total{outcome="skipped"} 1`) {
		t.Errorf("missing labeled series:\n%s", out)
	}
}

func TestHistogramCumulativeBuckets(t *testing.T) {
	r := New()
	h := r.Histogram("stayscout_latency_seconds", "Latency", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	out := r.Render()
	for _, want := range []string{
		`stayscout_latency_seconds_bucket{le="0.1"} 1`,
		`stayscout_latency_seconds_bucket{le="1"} 2`,
		`stayscout_latency_seconds_bucket{le="10"} 3`,
		`stayscout_latency_seconds_bucket{le="+Inf"} 3`,
		`stayscout_latency_seconds_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
}

func TestRegistryReturnsSameMetric(t *testing.T) {
	r := New()
	a := r.Counter("x_total", "")
	b := r.Counter("x_total", "")
	if a != b {
		t.Error("same name should yield same counter")
	}
}
