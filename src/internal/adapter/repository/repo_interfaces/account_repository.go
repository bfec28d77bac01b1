package repo_interfaces

import (
	"context"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
)

type AccountRepository interface {
	Get(ctx context.Context, id string) (domain.Account, error)
	// Save persists every account or none of them.
	Save(ctx context.Context, accounts ...domain.Account) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)
	// FindParent returns the account listing childID among its children, or
	// domain.ErrRecordNotFound when childID is not grouped.
	FindParent(ctx context.Context, childID string) (domain.Account, error)
}
