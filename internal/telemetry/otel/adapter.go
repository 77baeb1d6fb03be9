package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	auditdomain "maintenance-manager/console/internal/audit/domain"
)

// recordEmitter is the subset of otellog.Logger used by AuditPublisher.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// AuditPublisher ships audit events to the collector as OTel log records.
type AuditPublisher struct {
	logger recordEmitter
}

// NewAuditPublisher returns a publisher that logs through provider. A nil provider returns nil (disabled).
func NewAuditPublisher(provider *sdklog.LoggerProvider) *AuditPublisher {
	if provider == nil {
		return nil
	}
	return &AuditPublisher{logger: provider.Logger("console.audit")}
}

func newAuditPublisherWithLogger(l recordEmitter) *AuditPublisher {
	return &AuditPublisher{logger: l}
}

// Publish converts the entry to a log record. Empty fields are not added as attributes.
func (p *AuditPublisher) Publish(ctx context.Context, entry *auditdomain.AuditLog) error {
	if p == nil || entry == nil {
		return nil
	}
	rec := otellog.Record{}
	rec.SetTimestamp(entry.CreatedAt)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(entry.Action + " " + entry.Resource))
	attrs := []struct{ k, v string }{
		{"audit.id", entry.ID},
		{"company_id", entry.CompanyID},
		{"user_id", entry.UserID},
		{"client_id", entry.ClientID},
		{"action", entry.Action},
		{"resource", entry.Resource},
		{"client.address", entry.IP},
		{"metadata", entry.Metadata},
	}
	for _, a := range attrs {
		if a.v != "" {
			rec.AddAttributes(otellog.String(a.k, a.v))
		}
	}
	p.logger.Emit(ctx, rec)
	return nil
}

// Close is a no-op; the LoggerProvider is shut down with the other providers.
func (p *AuditPublisher) Close() error { return nil }
