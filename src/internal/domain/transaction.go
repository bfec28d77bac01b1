package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
)

func ParseTransactionType(raw string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(raw)))
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return t, nil
	default:
		return "", NewError(CodeInvalidInput, "unknown transaction type %q", raw)
	}
}

type TransactionStatus string

const (
	TransactionStatusPending                 TransactionStatus = "PENDING"
	TransactionStatusAutoApproved            TransactionStatus = "AUTO_APPROVED"
	TransactionStatusPendingEmployeeApproval TransactionStatus = "PENDING_EMPLOYEE_APPROVAL"
	TransactionStatusPendingAdminApproval    TransactionStatus = "PENDING_ADMIN_APPROVAL"
	TransactionStatusApproved                TransactionStatus = "APPROVED"
	TransactionStatusRejected                TransactionStatus = "REJECTED"
	TransactionStatusCompleted               TransactionStatus = "COMPLETED"
	TransactionStatusFailed                  TransactionStatus = "FAILED"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending: {
		TransactionStatusAutoApproved,
		TransactionStatusPendingEmployeeApproval,
		TransactionStatusPendingAdminApproval,
		TransactionStatusRejected,
		TransactionStatusFailed,
	},
	TransactionStatusAutoApproved:            {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusPendingEmployeeApproval: {TransactionStatusApproved, TransactionStatusRejected, TransactionStatusFailed},
	TransactionStatusPendingAdminApproval:    {TransactionStatusApproved, TransactionStatusRejected, TransactionStatusFailed},
	TransactionStatusApproved:                {TransactionStatusCompleted, TransactionStatusFailed},
}

func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusRejected, TransactionStatusFailed:
		return true
	default:
		return false
	}
}

func (s TransactionStatus) AwaitingApproval() bool {
	return s == TransactionStatusPendingEmployeeApproval || s == TransactionStatusPendingAdminApproval
}

// RequiredRole is the lowest approver role for a pending tier.
func (s TransactionStatus) RequiredRole() (Role, bool) {
	switch s {
	case TransactionStatusPendingEmployeeApproval:
		return RoleEmployee, true
	case TransactionStatusPendingAdminApproval:
		return RoleAdmin, true
	default:
		return "", false
	}
}

func ParseApprovalTier(raw string) (TransactionStatus, error) {
	status := TransactionStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.AwaitingApproval() {
		return "", NewError(CodeInvalidInput, "unknown approval tier %q", raw)
	}
	return status, nil
}

type Transaction struct {
	ID              string            `json:"id"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	SourceAccountID *string           `json:"sourceAccountId,omitempty"`
	TargetAccountID *string           `json:"targetAccountId,omitempty"`
	Description     string            `json:"description,omitempty"`
	Status          TransactionStatus `json:"status"`
	RequestedBy     string            `json:"requestedBy"`
	RequestedRole   Role              `json:"requestedRole"`
	DecidedBy       *string           `json:"decidedBy,omitempty"`
	DecidedAt       *time.Time        `json:"decidedAt,omitempty"`
	FailureReason   *string           `json:"failureReason,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type NewTransactionParams struct {
	ID              string
	Type            TransactionType
	Amount          decimal.Decimal
	SourceAccountID string
	TargetAccountID string
	Description     string
	RequestedBy     Actor
	Now             time.Time
}

func NewTransaction(p NewTransactionParams) (Transaction, error) {
	if err := requirePositive(p.Amount); err != nil {
		return Transaction{}, err
	}
	if strings.TrimSpace(p.ID) == "" {
		return Transaction{}, NewError(CodeInvalidInput, "transaction id is required")
	}

	source := strings.TrimSpace(p.SourceAccountID)
	target := strings.TrimSpace(p.TargetAccountID)

	switch p.Type {
	case TransactionTypeDeposit:
		if target == "" || source != "" {
			return Transaction{}, NewError(CodeInvalidInput, "deposit requires a target account and no source account")
		}
	case TransactionTypeWithdrawal:
		if source == "" || target != "" {
			return Transaction{}, NewError(CodeInvalidInput, "withdrawal requires a source account and no target account")
		}
	case TransactionTypeTransfer:
		if source == "" || target == "" {
			return Transaction{}, NewError(CodeInvalidInput, "transfer requires source and target accounts")
		}
		if source == target {
			return Transaction{}, NewError(CodeInvalidInput, "transfer source and target accounts must differ")
		}
	default:
		return Transaction{}, NewError(CodeInvalidInput, "unknown transaction type %q", p.Type)
	}

	return Transaction{
		ID:              p.ID,
		Type:            p.Type,
		Amount:          p.Amount,
		SourceAccountID: optional(source),
		TargetAccountID: optional(target),
		Description:     strings.TrimSpace(p.Description),
		Status:          TransactionStatusPending,
		RequestedBy:     p.RequestedBy.ID,
		RequestedRole:   p.RequestedBy.Role,
		CreatedAt:       p.Now,
		UpdatedAt:       p.Now,
	}, nil
}

// Transition moves the record to next. Terminal records refuse every
// transition.
func (t *Transaction) Transition(next TransactionStatus, now time.Time) error {
	if t.Status.IsTerminal() {
		return NewError(CodeInvalidTransition, "transaction %s is %s and can no longer change", t.ID, t.Status)
	}
	for _, allowed := range transactionTransitions[t.Status] {
		if allowed == next {
			t.Status = next
			t.UpdatedAt = now
			return nil
		}
	}
	return NewError(CodeInvalidTransition, "transaction %s cannot move from %s to %s", t.ID, t.Status, next)
}

func (t *Transaction) RecordDecision(decidedBy string, now time.Time) {
	by := decidedBy
	at := now
	t.DecidedBy = &by
	t.DecidedAt = &at
}

func (t *Transaction) Fail(reason string, now time.Time) error {
	if err := t.Transition(TransactionStatusFailed, now); err != nil {
		return err
	}
	r := reason
	t.FailureReason = &r
	return nil
}

// AccountIDs lists the accounts the transaction touches, source first.
func (t Transaction) AccountIDs() []string {
	ids := make([]string, 0, 2)
	if t.SourceAccountID != nil {
		ids = append(ids, *t.SourceAccountID)
	}
	if t.TargetAccountID != nil {
		ids = append(ids, *t.TargetAccountID)
	}
	return ids
}

// DebitOperation is the state operation checked on the source account.
func (t Transaction) DebitOperation() Operation {
	if t.Type == TransactionTypeTransfer {
		return OperationTransfer
	}
	return OperationWithdrawal
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}
