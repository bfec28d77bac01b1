package models

import (
	"errors"
	"strings"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

type SubmitTransactionRequest struct {
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	SourceAccountID string          `json:"sourceAccountId,omitempty"`
	TargetAccountID string          `json:"targetAccountId,omitempty"`
	Description     string          `json:"description,omitempty"`
	Pin             string          `json:"pin,omitempty"`
}

func (r SubmitTransactionRequest) Validate() error {
	var errs []string

	txType, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		errs = append(errs, "type must be one of DEPOSIT, WITHDRAWAL, TRANSFER")
	}

	source := strings.TrimSpace(r.SourceAccountID)
	target := strings.TrimSpace(r.TargetAccountID)
	switch txType {
	case domain.TransactionTypeDeposit:
		if target == "" {
			errs = append(errs, "targetAccountId is required")
		}
		if source != "" {
			errs = append(errs, "sourceAccountId must be empty for a deposit")
		}
	case domain.TransactionTypeWithdrawal:
		if source == "" {
			errs = append(errs, "sourceAccountId is required")
		}
		if target != "" {
			errs = append(errs, "targetAccountId must be empty for a withdrawal")
		}
	case domain.TransactionTypeTransfer:
		if source == "" {
			errs = append(errs, "sourceAccountId is required")
		}
		if target == "" {
			errs = append(errs, "targetAccountId is required")
		}
		if source != "" && source == target {
			errs = append(errs, "sourceAccountId and targetAccountId must differ")
		}
	}

	if len(r.Description) > 256 {
		errs = append(errs, "description must be at most 256 characters")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ToServiceRequest leaves the amount check to the core so that non-positive
// amounts surface as NON_POSITIVE_AMOUNT.
func (r SubmitTransactionRequest) ToServiceRequest(actor domain.Actor) service_interfaces.SubmitRequest {
	txType, _ := domain.ParseTransactionType(r.Type)
	return service_interfaces.SubmitRequest{
		Actor:           actor,
		Type:            txType,
		Amount:          r.Amount,
		SourceAccountID: strings.TrimSpace(r.SourceAccountID),
		TargetAccountID: strings.TrimSpace(r.TargetAccountID),
		Description:     r.Description,
		Pin:             r.Pin,
	}
}

type DecideTransactionRequest struct {
	Approve *bool `json:"approve"`
}

func (r DecideTransactionRequest) Validate() error {
	if r.Approve == nil {
		return errors.New("approve is required")
	}
	return nil
}

type TransactionResponse struct {
	Transaction domain.Transaction       `json:"transaction"`
	Accounts    []domain.AccountSnapshot `json:"accounts,omitempty"`
}

func NewTransactionResponse(result service_interfaces.TransactionResult) TransactionResponse {
	return TransactionResponse{Transaction: result.Transaction, Accounts: result.Accounts}
}
