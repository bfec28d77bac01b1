package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditRecord is one append-only line of the audit trail.
type AuditRecord struct {
	ID            string              `json:"id"`
	EventID       string              `json:"eventId"`
	Kind          EventKind           `json:"kind"`
	ActorID       string              `json:"actorId"`
	ActorRole     Role                `json:"actorRole"`
	TransactionID *string             `json:"transactionId,omitempty"`
	Status        *TransactionStatus  `json:"status,omitempty"`
	Amount        decimal.NullDecimal `json:"amount"`
	AccountIDs    []string            `json:"accountIds,omitempty"`
	Detail        string              `json:"detail,omitempty"`
	OccurredAt    time.Time           `json:"occurredAt"`
	RecordedAt    time.Time           `json:"recordedAt"`
}
