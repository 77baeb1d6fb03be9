// Package repository persists console audit events.
package repository

import (
	"context"

	"maintenance-manager/console/internal/audit/domain"
)

// Repository is append-only: the console writes audit events and never reads them back.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
}
