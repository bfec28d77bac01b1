package repo_interfaces

import (
	"context"
	"errors"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
)

// ErrTerminalTransaction is returned when a save would overwrite a completed,
// rejected or failed record.
var ErrTerminalTransaction = errors.New("transaction record is terminal")

type TransactionRepository interface {
	Save(ctx context.Context, tx domain.Transaction) error
	Get(ctx context.Context, id string) (domain.Transaction, error)
	ListPending(ctx context.Context, tiers ...domain.TransactionStatus) ([]domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error)
}
