package service_interfaces

import (
	"context"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

type SubmitRequest struct {
	Actor           domain.Actor
	Type            domain.TransactionType
	Amount          decimal.Decimal
	SourceAccountID string
	TargetAccountID string
	Description     string
	// Pin is checked when a customer debits an account carrying a PIN hash.
	Pin string
}

type DecideRequest struct {
	Actor         domain.Actor
	TransactionID string
	Approve       bool
}

// TransactionResult is the transaction after the call together with the
// accounts it touched, as committed.
type TransactionResult struct {
	Transaction domain.Transaction
	Accounts    []domain.AccountSnapshot
}

type ApprovalService interface {
	Submit(ctx context.Context, req SubmitRequest) (TransactionResult, error)
	Decide(ctx context.Context, req DecideRequest) (TransactionResult, error)
	GetTransaction(ctx context.Context, actor domain.Actor, id string) (domain.Transaction, error)
	ListPending(ctx context.Context, actor domain.Actor) ([]domain.Transaction, error)
	ListAccountTransactions(ctx context.Context, actor domain.Actor, accountID string) ([]domain.Transaction, error)
}
