package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/artpar/documind/adapters/metrics"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func TestNew(t *testing.T) {
	// Use a new registry to avoid conflicts with other tests
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m == nil {
		t.Fatal("NewWithRegistry returned nil")
	}
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.QuotaDecisions == nil {
		t.Error("QuotaDecisions is nil")
	}
	if m.QuotaStoreErrors == nil {
		t.Error("QuotaStoreErrors is nil")
	}
	if m.ConfigReloads == nil {
		t.Error("ConfigReloads is nil")
	}
}

func TestQuotaDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.QuotaDecision("guest_global", "allowed")
	m.QuotaDecision("guest_global", "denied")
	m.QuotaDecision("user_ai_chat", "denied")
	m.QuotaDecision("user_ai_chat", "denied")

	f := gather(t, reg, "documind_quota_decisions_total")
	if len(f.GetMetric()) != 3 {
		t.Errorf("expected 3 metric series, got %d", len(f.GetMetric()))
	}
}

func TestQuotaStoreError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.QuotaStoreError("count")
	m.QuotaStoreError("count")

	f := gather(t, reg, "documind_quota_store_errors_total")
	if got := f.GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Errorf("value = %f, want 2", got)
	}
}

func TestWorkCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.UsageRecorded("merge")
	m.PDFTask("merge", "ok")
	m.AIRequest("gemini-2.5-flash", "error")

	for _, name := range []string{
		"documind_usage_events_total",
		"documind_pdf_tasks_total",
		"documind_ai_requests_total",
	} {
		gather(t, reg, name)
	}
}

func TestRequestsInFlight(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.RequestsInFlight.Inc()
	m.RequestsInFlight.Inc()
	m.RequestsInFlight.Dec()

	f := gather(t, reg, "documind_requests_in_flight")
	if val := f.GetMetric()[0].GetGauge().GetValue(); val != 1 {
		t.Errorf("expected value 1, got %f", val)
	}
}

func TestConfigReloads(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ConfigReloads.Inc()
	m.ConfigLastReload.SetToCurrentTime()

	gather(t, reg, "documind_config_reloads_total")
	gather(t, reg, "documind_config_last_reload_timestamp")
}

func TestNormalizePath(t *testing.T) {
	if got := metrics.NormalizePath("/api/tools/merge"); got != "/api/tools/merge" {
		t.Errorf("NormalizePath = %s", got)
	}

	longPath := "/very/long/path/that/exceeds/fifty/characters/in/total/length"
	result := metrics.NormalizePath(longPath)
	if len(result) != 53 {
		t.Errorf("NormalizePath should truncate long paths, got len=%d", len(result))
	}
}
