package domain

import "time"

type EventKind string

const (
	EventTransactionCreated   EventKind = "TRANSACTION_CREATED"
	EventTransactionApproved  EventKind = "TRANSACTION_APPROVED"
	EventTransactionRejected  EventKind = "TRANSACTION_REJECTED"
	EventTransactionCompleted EventKind = "TRANSACTION_COMPLETED"
	EventTransactionFailed    EventKind = "TRANSACTION_FAILED"
	EventAccountStateChanged  EventKind = "ACCOUNT_STATE_CHANGED"
)

// Event is an immutable notification about a committed change. Transaction
// is nil for ACCOUNT_STATE_CHANGED; PreviousState is set only for it.
type Event struct {
	ID            string            `json:"id"`
	Kind          EventKind         `json:"kind"`
	OccurredAt    time.Time         `json:"occurredAt"`
	Actor         Actor             `json:"actor"`
	Transaction   *Transaction      `json:"transaction,omitempty"`
	Accounts      []AccountSnapshot `json:"accounts,omitempty"`
	PreviousState StateTag          `json:"previousState,omitempty"`
}

// TransactionEventKind maps a status change to the event it publishes.
func TransactionEventKind(status TransactionStatus) (EventKind, bool) {
	switch status {
	case TransactionStatusApproved, TransactionStatusAutoApproved:
		return EventTransactionApproved, true
	case TransactionStatusRejected:
		return EventTransactionRejected, true
	case TransactionStatusCompleted:
		return EventTransactionCompleted, true
	case TransactionStatusFailed:
		return EventTransactionFailed, true
	default:
		return "", false
	}
}
