// Package audit records security-relevant console events (sign-ins, sign-outs, denied pages, mutations).
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"maintenance-manager/console/internal/audit/domain"
	auditrepo "maintenance-manager/console/internal/audit/repository"
)

// SentinelCompanyID is the company_id used for audit events that have no company (e.g. login_failure).
const SentinelCompanyID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// ClientExtractor returns the console client id from the request context.
type ClientExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by auth and session code paths.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, companyID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and, optionally, publishers.
type Logger struct {
	repo        auditrepo.Repository
	publishers  []Publisher
	ipExtractor IPExtractor
	clientID    ClientExtractor
	nowF        func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// repo and ipExtractor may be nil; a nil ipExtractor records the IP as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, nowF: time.Now}
}

// WithPublisher also publishes every event to p. A nil p is ignored.
func (l *Logger) WithPublisher(p Publisher) *Logger {
	if p != nil {
		l.publishers = append(l.publishers, p)
	}
	return l
}

// WithClientExtractor records the console client id of each event.
func (l *Logger) WithClientExtractor(f ClientExtractor) *Logger {
	l.clientID = f
	return l
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, companyID, userID, action, resource, metadata string) {
	if l == nil || (l.repo == nil && len(l.publishers) == 0) {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	if companyID == "" || companyID == "0" {
		companyID = SentinelCompanyID
	}
	if userID == "0" {
		userID = ""
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.nowF().UTC(),
	}
	if l.clientID != nil {
		entry.ClientID = l.clientID(ctx)
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, entry); err != nil {
			log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
		}
	}
	for _, p := range l.publishers {
		publishAsync(p, entry)
	}
}
