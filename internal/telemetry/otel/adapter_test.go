package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"

	auditdomain "maintenance-manager/console/internal/audit/domain"
)

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec   otellog.Record
	calls int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.calls++
}

func TestNewAuditPublisher_NilProvider(t *testing.T) {
	if p := NewAuditPublisher(nil); p != nil {
		t.Fatal("expected nil publisher for nil provider")
	}
	var p *AuditPublisher
	if err := p.Publish(context.Background(), &auditdomain.AuditLog{}); err != nil {
		t.Errorf("nil Publish: %v", err)
	}
}

func TestAuditPublisher_AttributeMapping(t *testing.T) {
	cap := &recordCapture{}
	p := newAuditPublisherWithLogger(cap)
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	entry := &auditdomain.AuditLog{
		ID:        "a1",
		CompanyID: "7",
		UserID:    "42",
		Action:    "login",
		Resource:  "session",
		IP:        "10.0.0.1",
		CreatedAt: created,
	}
	if err := p.Publish(context.Background(), entry); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	rec := cap.rec
	if got := rec.Body().AsString(); got != "login session" {
		t.Errorf("body = %q, want %q", got, "login session")
	}
	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{"audit.id": "a1", "company_id": "7", "user_id": "42", "action": "login", "resource": "session", "client.address": "10.0.0.1"}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %q = %q, want %q", k, attrs[k], v)
		}
	}
	if _, ok := attrs["client_id"]; ok {
		t.Error("empty client_id should not be set")
	}
	if _, ok := attrs["metadata"]; ok {
		t.Error("empty metadata should not be set")
	}
}

func TestAuditPublisher_NilEntry(t *testing.T) {
	cap := &recordCapture{}
	p := newAuditPublisherWithLogger(cap)
	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("Publish(nil): %v", err)
	}
	if cap.calls != 0 {
		t.Error("nil entry should not emit")
	}
}
