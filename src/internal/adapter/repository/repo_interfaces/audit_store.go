package repo_interfaces

import (
	"context"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
)

// AuditStore is append-only. List returns the newest records first.
type AuditStore interface {
	Append(ctx context.Context, record domain.AuditRecord) error
	List(ctx context.Context, limit int) ([]domain.AuditRecord, error)
}
