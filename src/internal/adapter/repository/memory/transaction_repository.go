package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
)

type TransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]domain.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{transactions: make(map[string]domain.Transaction)}
}

func (r *TransactionRepository) Save(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.transactions[tx.ID]; ok && existing.Status.IsTerminal() {
		return fmt.Errorf("save transaction %s: %w", tx.ID, repo_interfaces.ErrTerminalTransaction)
	}
	r.transactions[tx.ID] = copyTransaction(tx)
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, id string) (domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Transaction{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[id]
	if !ok {
		return domain.Transaction{}, domain.ErrRecordNotFound
	}
	return copyTransaction(tx), nil
}

func (r *TransactionRepository) ListPending(ctx context.Context, tiers ...domain.TransactionStatus) ([]domain.Transaction, error) {
	return r.filter(ctx, func(tx domain.Transaction) bool {
		for _, tier := range tiers {
			if tx.Status == tier {
				return true
			}
		}
		return false
	})
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	return r.filter(ctx, func(tx domain.Transaction) bool {
		for _, id := range tx.AccountIDs() {
			if id == accountID {
				return true
			}
		}
		return false
	})
}

func (r *TransactionRepository) filter(ctx context.Context, keep func(domain.Transaction) bool) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, tx := range r.transactions {
		if keep(tx) {
			out = append(out, copyTransaction(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func copyTransaction(tx domain.Transaction) domain.Transaction {
	cp := tx
	cp.SourceAccountID = copyString(tx.SourceAccountID)
	cp.TargetAccountID = copyString(tx.TargetAccountID)
	cp.DecidedBy = copyString(tx.DecidedBy)
	cp.FailureReason = copyString(tx.FailureReason)
	if tx.DecidedAt != nil {
		at := *tx.DecidedAt
		cp.DecidedAt = &at
	}
	return cp
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
