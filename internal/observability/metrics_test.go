package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCountOutcomes(t *testing.T) {
	m := NewMetrics("test_metrics")
	m.ObserveGeneration("ok", 120*time.Millisecond)
	m.ObserveGeneration("ok", 80*time.Millisecond)
	m.ObserveGeneration("validation_error", 0)
	m.DictationSession("started")
	m.DictationEvent("final")
	m.DictationEvent("final")
	m.DictationEvent("interim")

	if got := testutil.ToFloat64(m.GenerationRequests.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.GenerationRequests.WithLabelValues("validation_error")); got != 1 {
		t.Fatalf("validation_error requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DictationEvents.WithLabelValues("final")); got != 2 {
		t.Fatalf("final events = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.GenerationLatency); got != 1 {
		t.Fatalf("latency series = %d, want 1", got)
	}
}

func TestMetricsSeparateRegistries(t *testing.T) {
	// Same namespace twice must not panic on duplicate registration.
	a := NewMetrics("dup")
	b := NewMetrics("dup")
	a.DictationSession("started")
	if got := testutil.ToFloat64(b.DictationSessions.WithLabelValues("started")); got != 0 {
		t.Fatalf("registry b saw %v started sessions, want 0", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGeneration("ok", time.Second)
	m.DictationSession("started")
	m.DictationEvent("final")
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("WriteTextfile() on nil metrics error = %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics("textfile")
	m.ObserveGeneration("request_error", 30*time.Millisecond)

	path := filepath.Join(t.TempDir(), "promptcrafter.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `textfile_generation_requests_total{outcome="request_error"} 1`) {
		t.Fatalf("textfile missing counter line:\n%s", data)
	}
}
