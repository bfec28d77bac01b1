package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking     AccountType = "CHECKING"
	AccountTypeSavings      AccountType = "SAVINGS"
	AccountTypeInvestment   AccountType = "INVESTMENT"
	AccountTypeLoan         AccountType = "LOAN"
	AccountTypeBusinessLoan AccountType = "BUSINESS_LOAN"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeInvestment, AccountTypeLoan, AccountTypeBusinessLoan:
		return true
	default:
		return false
	}
}

// IsLoan reports whether the type may carry an owed (negative) balance.
func (t AccountType) IsLoan() bool {
	return t == AccountTypeLoan || t == AccountTypeBusinessLoan
}

func ParseAccountType(raw string) (AccountType, error) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", NewError(CodeInvalidInput, "unknown account type %q", raw)
	}
	return t, nil
}

// Account is a leaf holding funds, or a composite grouping child accounts by
// id. Composite balances are folded on read (see AggregateBalance) and the
// Balance field of a composite stays zero.
type Account struct {
	ID        string
	OwnerID   string
	Type      AccountType
	Balance   decimal.Decimal
	State     AccountState
	Children  []string
	Features  []Feature
	PinHash   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewAccount(id string, ownerID string, accountType AccountType, opening decimal.Decimal, now time.Time) (*Account, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewError(CodeInvalidInput, "account id is required")
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, NewError(CodeInvalidInput, "owner id is required")
	}
	if !accountType.Valid() {
		return nil, NewError(CodeInvalidInput, "unknown account type %q", accountType)
	}
	if opening.IsNegative() && !accountType.IsLoan() {
		return nil, NewError(CodeInvalidInput, "opening balance of a %s account cannot be negative", accountType)
	}
	if err := requireScale("opening balance", opening); err != nil {
		return nil, err
	}

	return &Account{
		ID:        strings.TrimSpace(id),
		OwnerID:   strings.TrimSpace(ownerID),
		Type:      accountType,
		Balance:   opening,
		State:     Active,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (a *Account) IsComposite() bool {
	return len(a.Children) > 0
}

func (a *Account) StateName() StateTag {
	if a.State == nil {
		return StateActive
	}
	return a.State.Name()
}

func (a *Account) state() AccountState {
	if a.State == nil {
		return Active
	}
	return a.State
}

// SetState applies an administrative transition. Closed accepts none.
func (a *Account) SetState(next AccountState) error {
	if next == nil {
		return NewError(CodeInvalidInput, "target state is required")
	}
	if a.StateName() == StateClosed {
		return NewError(CodeInvalidTransition, "account %s is closed and cannot move to %s", a.ID, next.Name())
	}
	a.State = next
	return nil
}

// Allows returns ErrIllegalStateOperation when the current state forbids op.
func (a *Account) Allows(op Operation) error {
	if a.IsComposite() {
		return NewError(CodeIllegalStateOperation, "account %s is composite and holds no funds of its own", a.ID)
	}
	if !a.state().IsOperationAllowed(op) {
		return NewError(CodeIllegalStateOperation, "%s is not allowed while account %s is %s", op, a.ID, a.StateName())
	}
	return nil
}

// Deposit credits amount and returns the credited total.
func (a *Account) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}
	if err := a.Allows(OperationDeposit); err != nil {
		return decimal.Zero, err
	}
	a.Balance = a.Balance.Add(amount)
	return amount, nil
}

func (a *Account) Withdraw(amount decimal.Decimal) error {
	return a.withdraw(amount, decimal.Zero, OperationWithdrawal)
}

// Available is the amount that can leave the account without features.
func (a *Account) Available() decimal.Decimal {
	return a.Balance
}

func (a *Account) Account() *Account {
	return a
}

func (a *Account) withdraw(amount decimal.Decimal, allowance decimal.Decimal, op Operation) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := a.Allows(op); err != nil {
		return err
	}
	if a.Balance.Add(allowance).LessThan(amount) {
		return NewError(CodeLimitExceeded, "%s of %s exceeds available %s on account %s",
			strings.ToLower(string(op)), amount.String(), a.Balance.Add(allowance).String(), a.ID)
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// credit books a feature bonus. It is reached only after a successful
// deposit, so the state has already been checked.
func (a *Account) credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}

// Clone returns a deep copy safe to mutate independently.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Children != nil {
		cp.Children = append([]string(nil), a.Children...)
	}
	if a.Features != nil {
		cp.Features = append([]Feature(nil), a.Features...)
	}
	return &cp
}

// AccountSnapshot is the read-only view carried by events and responses.
type AccountSnapshot struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"ownerId"`
	Type     AccountType     `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	State    StateTag        `json:"state"`
	Children []string        `json:"children,omitempty"`
	Features []Feature       `json:"features,omitempty"`
}

func (a *Account) Snapshot() AccountSnapshot {
	cp := a.Clone()
	return AccountSnapshot{
		ID:       cp.ID,
		OwnerID:  cp.OwnerID,
		Type:     cp.Type,
		Balance:  cp.Balance,
		State:    cp.StateName(),
		Children: cp.Children,
		Features: cp.Features,
	}
}

// MoneyScale is the number of fractional digits balances and amounts are
// stored with. Values carrying more are refused rather than rounded.
const MoneyScale = 8

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewError(CodeNonPositiveAmount, "amount must be greater than zero, got %s", amount.String())
	}
	return requireScale("amount", amount)
}

func requireScale(field string, value decimal.Decimal) error {
	if !value.Equal(value.Truncate(MoneyScale)) {
		return NewError(CodeInvalidInput, "%s %s has more than %d decimal places", field, value.String(), MoneyScale)
	}
	return nil
}
