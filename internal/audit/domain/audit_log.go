package domain

import "time"

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"companyId"`
	UserID    string    `json:"userId,omitempty"`
	ClientID  string    `json:"clientId,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
