package memory

import (
	"context"
	"sync"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
)

type AuditStore struct {
	mu      sync.RWMutex
	records []domain.AuditRecord
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Append(ctx context.Context, record domain.AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record.AccountIDs = append([]string(nil), record.AccountIDs...)
	s.records = append(s.records, record)
	return nil
}

// List returns up to limit records, newest first. A non-positive limit
// returns everything.
func (s *AuditStore) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.AuditRecord, 0, n)
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}
