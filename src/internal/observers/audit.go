package observers

import (
	"context"
	"fmt"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditLogObserver appends one record per event to an AuditStore.
type AuditLogObserver struct {
	store repo_interfaces.AuditStore
	now   func() time.Time
}

func NewAuditLogObserver(store repo_interfaces.AuditStore) *AuditLogObserver {
	return &AuditLogObserver{store: store, now: time.Now}
}

func (o *AuditLogObserver) Name() string { return "audit" }

func (o *AuditLogObserver) Notify(ctx context.Context, event domain.Event) error {
	record := domain.AuditRecord{
		ID:         uuid.NewString(),
		EventID:    event.ID,
		Kind:       event.Kind,
		ActorID:    event.Actor.ID,
		ActorRole:  event.Actor.Role,
		OccurredAt: event.OccurredAt,
		RecordedAt: o.now().UTC(),
	}

	for _, snap := range event.Accounts {
		record.AccountIDs = append(record.AccountIDs, snap.ID)
	}

	if tx := event.Transaction; tx != nil {
		id := tx.ID
		status := tx.Status
		record.TransactionID = &id
		record.Status = &status
		record.Amount = decimal.NewNullDecimal(tx.Amount)
		record.Detail = fmt.Sprintf("%s %s", tx.Type, tx.Status)
		if tx.FailureReason != nil {
			record.Detail = fmt.Sprintf("%s: %s", record.Detail, *tx.FailureReason)
		}
	}

	if event.Kind == domain.EventAccountStateChanged && len(event.Accounts) > 0 {
		record.Detail = fmt.Sprintf("%s -> %s", event.PreviousState, event.Accounts[0].State)
	}

	if err := o.store.Append(ctx, record); err != nil {
		return fmt.Errorf("append audit record for event %s: %w", event.ID, err)
	}
	return nil
}
