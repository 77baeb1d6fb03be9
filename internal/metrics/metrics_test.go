package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"maintenance-manager/console/internal/platform/rbac"
	"maintenance-manager/console/internal/toast"
)

// find returns the metric of family name whose labels include all of labels.
func find(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	next:
		for _, m := range f.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func TestConsoleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConsoleMetrics(reg)

	m.ObserveGate("/settings", rbac.Forbidden)
	m.ObserveGate("/settings", rbac.Forbidden)
	m.ObserveToast(toast.Error)
	m.ObserveLogin("rate_limited")
	m.ObserveAPI("invoices.get", 404, 20*time.Millisecond)
	m.ObserveRequest("GET", "/invoices/{id}", 200, time.Millisecond)

	if got := find(t, reg, "console_gate_decisions_total", map[string]string{"route": "/settings", "decision": "forbidden"}).GetCounter().GetValue(); got != 2 {
		t.Errorf("forbidden decisions = %v, want 2", got)
	}
	if got := find(t, reg, "console_toast_added_total", map[string]string{"kind": "error"}).GetCounter().GetValue(); got != 1 {
		t.Errorf("error toasts = %v, want 1", got)
	}
	if got := find(t, reg, "console_auth_login_attempts_total", map[string]string{"result": "rate_limited"}).GetCounter().GetValue(); got != 1 {
		t.Errorf("rate limited logins = %v, want 1", got)
	}
	if got := find(t, reg, "console_api_request_duration_seconds", map[string]string{"operation": "invoices.get", "status": "404"}).GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("api samples = %v, want 1", got)
	}
	if got := find(t, reg, "console_http_request_duration_seconds", map[string]string{"route": "/invoices/{id}", "code": "200"}).GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("http samples = %v, want 1", got)
	}
}

func TestRegisterSessionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConsoleMetrics(reg)
	m.RegisterSessionGauge(func() int { return 3 })

	if v := find(t, reg, "console_session_stores_active", nil).GetGauge().GetValue(); v != 3 {
		t.Errorf("gauge = %v, want 3", v)
	}
}

func TestNewConsoleMetrics_SeparateRegistries(t *testing.T) {
	NewConsoleMetrics(prometheus.NewRegistry())
	NewConsoleMetrics(prometheus.NewRegistry())
}
