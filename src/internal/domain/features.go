package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Operations is the transactional capability set shared by a bare Account and
// every feature wrapping it. Each feature owns exactly one inner value, so a
// stack is a singly linked chain ending at the Account.
type Operations interface {
	Deposit(amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(amount decimal.Decimal) error
	Available() decimal.Decimal
	Account() *Account

	// withdraw carries the overdraft-style allowance granted by outer
	// features down to the Account, which owns the balance check.
	withdraw(amount decimal.Decimal, allowance decimal.Decimal, op Operation) error
}

var _ Operations = (*Account)(nil)

type FeatureKind string

const (
	FeatureOverdraftProtection   FeatureKind = "OVERDRAFT_PROTECTION"
	FeatureInvestmentBonus       FeatureKind = "INVESTMENT_BONUS"
	FeaturePremiumSavings        FeatureKind = "PREMIUM_SAVINGS"
	FeatureBusinessLoanExtension FeatureKind = "BUSINESS_LOAN_EXTENSION"
	FeatureWithdrawalCap         FeatureKind = "WITHDRAWAL_CAP"
)

// Feature is the persisted parameter set of one decorator. Only the fields
// relevant to Kind are read.
type Feature struct {
	Kind              FeatureKind     `json:"kind"`
	Limit             decimal.Decimal `json:"limit"`
	Rate              decimal.Decimal `json:"rate"`
	MinBalanceForRate decimal.Decimal `json:"minBalanceForRate"`
	MaxExtension      decimal.Decimal `json:"maxExtension"`
}

func (f Feature) Validate() error {
	switch f.Kind {
	case FeatureOverdraftProtection, FeatureWithdrawalCap:
		if !f.Limit.IsPositive() {
			return NewError(CodeInvalidInput, "%s limit must be greater than zero", f.Kind)
		}
	case FeatureInvestmentBonus:
		if !f.Rate.IsPositive() {
			return NewError(CodeInvalidInput, "%s rate must be greater than zero", f.Kind)
		}
	case FeaturePremiumSavings:
		if !f.Rate.IsPositive() {
			return NewError(CodeInvalidInput, "%s rate must be greater than zero", f.Kind)
		}
		if f.MinBalanceForRate.IsNegative() {
			return NewError(CodeInvalidInput, "%s minBalanceForRate cannot be negative", f.Kind)
		}
	case FeatureBusinessLoanExtension:
		if !f.MaxExtension.IsPositive() {
			return NewError(CodeInvalidInput, "%s maxExtension must be greater than zero", f.Kind)
		}
	default:
		return NewError(CodeInvalidInput, "unknown feature kind %q", f.Kind)
	}
	for _, money := range []struct {
		field string
		value decimal.Decimal
	}{
		{"limit", f.Limit},
		{"minBalanceForRate", f.MinBalanceForRate},
		{"maxExtension", f.MaxExtension},
	} {
		if err := requireScale(string(f.Kind)+" "+money.field, money.value); err != nil {
			return err
		}
	}
	return nil
}

func (f Feature) wrap(inner Operations) (Operations, error) {
	switch f.Kind {
	case FeatureOverdraftProtection:
		return NewOverdraftProtection(inner, f.Limit)
	case FeatureWithdrawalCap:
		return NewWithdrawalCap(inner, f.Limit)
	case FeatureInvestmentBonus:
		return NewInvestmentBonus(inner, f.Rate)
	case FeaturePremiumSavings:
		return NewPremiumSavings(inner, f.Rate, f.MinBalanceForRate)
	case FeatureBusinessLoanExtension:
		return NewBusinessLoanExtension(inner, f.MaxExtension)
	default:
		return nil, NewError(CodeInvalidInput, "unknown feature kind %q", f.Kind)
	}
}

func ParseFeatureKind(raw string) (FeatureKind, error) {
	kind := FeatureKind(strings.ToUpper(strings.TrimSpace(raw)))
	switch kind {
	case FeatureOverdraftProtection, FeatureInvestmentBonus, FeaturePremiumSavings, FeatureBusinessLoanExtension, FeatureWithdrawalCap:
		return kind, nil
	default:
		return "", NewError(CodeInvalidInput, "unknown feature kind %q", raw)
	}
}

// Wrap builds the feature stack recorded on the account. The first feature is
// the closest wrap.
func Wrap(account *Account) (Operations, error) {
	var ops Operations = account
	for _, f := range account.Features {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		wrapped, err := f.wrap(ops)
		if err != nil {
			return nil, err
		}
		ops = wrapped
	}
	return ops, nil
}

// Transfer moves amount from source to target. Both sides are checked before
// any balance moves; the credit side goes through the target's features.
func Transfer(source Operations, target Operations, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}
	if source.Account().ID == target.Account().ID {
		return decimal.Zero, NewError(CodeInvalidInput, "source and target accounts must differ")
	}
	if err := source.Account().Allows(OperationTransfer); err != nil {
		return decimal.Zero, err
	}
	if err := target.Account().Allows(OperationDeposit); err != nil {
		return decimal.Zero, err
	}
	if err := source.withdraw(amount, decimal.Zero, OperationTransfer); err != nil {
		return decimal.Zero, err
	}
	return target.Deposit(amount)
}

type feature struct {
	inner Operations
}

func (f feature) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	return f.inner.Deposit(amount)
}

func (f feature) Available() decimal.Decimal {
	return f.inner.Available()
}

func (f feature) Account() *Account {
	return f.inner.Account()
}

func (f feature) withdraw(amount decimal.Decimal, allowance decimal.Decimal, op Operation) error {
	return f.inner.withdraw(amount, allowance, op)
}

func newFeature(inner Operations) (feature, error) {
	if inner == nil {
		return feature{}, NewError(CodeInvalidInput, "feature requires an inner account")
	}
	return feature{inner: inner}, nil
}

// OverdraftProtection lets withdrawals run up to balance + Limit.
type OverdraftProtection struct {
	feature
	Limit decimal.Decimal
}

func NewOverdraftProtection(inner Operations, limit decimal.Decimal) (*OverdraftProtection, error) {
	base, err := newFeature(inner)
	if err != nil {
		return nil, err
	}
	if !limit.IsPositive() {
		return nil, NewError(CodeInvalidInput, "overdraft limit must be greater than zero")
	}
	return &OverdraftProtection{feature: base, Limit: limit}, nil
}

func (o *OverdraftProtection) Available() decimal.Decimal {
	return o.inner.Available().Add(o.Limit)
}

func (o *OverdraftProtection) Withdraw(amount decimal.Decimal) error {
	return o.withdraw(amount, decimal.Zero, OperationWithdrawal)
}

func (o *OverdraftProtection) withdraw(amount decimal.Decimal, allowance decimal.Decimal, op Operation) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := o.Account().Allows(op); err != nil {
		return err
	}
	widened := allowance.Add(o.Limit)
	if headroom := o.inner.Available().Add(widened); amount.GreaterThan(headroom) {
		return NewError(CodeLimitExceeded, "%s exceeds overdraft headroom %s on account %s",
			amount.String(), headroom.String(), o.Account().ID)
	}
	return o.inner.withdraw(amount, widened, op)
}

// WithdrawalCap bounds any single debit to Limit.
type WithdrawalCap struct {
	feature
	Limit decimal.Decimal
}

func NewWithdrawalCap(inner Operations, limit decimal.Decimal) (*WithdrawalCap, error) {
	base, err := newFeature(inner)
	if err != nil {
		return nil, err
	}
	if !limit.IsPositive() {
		return nil, NewError(CodeInvalidInput, "withdrawal cap must be greater than zero")
	}
	return &WithdrawalCap{feature: base, Limit: limit}, nil
}

func (c *WithdrawalCap) Withdraw(amount decimal.Decimal) error {
	return c.withdraw(amount, decimal.Zero, OperationWithdrawal)
}

func (c *WithdrawalCap) withdraw(amount decimal.Decimal, allowance decimal.Decimal, op Operation) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := c.Account().Allows(op); err != nil {
		return err
	}
	if amount.GreaterThan(c.Limit) {
		return NewError(CodeLimitExceeded, "%s exceeds the per-debit cap %s on account %s",
			amount.String(), c.Limit.String(), c.Account().ID)
	}
	return c.inner.withdraw(amount, allowance, op)
}

// InvestmentBonus credits Rate × the credited amount after every deposit.
type InvestmentBonus struct {
	feature
	Rate decimal.Decimal
}

func NewInvestmentBonus(inner Operations, rate decimal.Decimal) (*InvestmentBonus, error) {
	base, err := newFeature(inner)
	if err != nil {
		return nil, err
	}
	if !rate.IsPositive() {
		return nil, NewError(CodeInvalidInput, "investment bonus rate must be greater than zero")
	}
	return &InvestmentBonus{feature: base, Rate: rate}, nil
}

func (b *InvestmentBonus) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	credited, err := b.inner.Deposit(amount)
	if err != nil {
		return decimal.Zero, err
	}
	return credited.Add(applyBonus(b.Account(), credited, b.Rate)), nil
}

func (b *InvestmentBonus) Withdraw(amount decimal.Decimal) error {
	return b.withdraw(amount, decimal.Zero, OperationWithdrawal)
}

// PremiumSavings credits Rate × the credited amount when the balance after
// the wrapped deposit is at least MinBalanceForRate.
type PremiumSavings struct {
	feature
	Rate              decimal.Decimal
	MinBalanceForRate decimal.Decimal
}

func NewPremiumSavings(inner Operations, rate decimal.Decimal, minBalanceForRate decimal.Decimal) (*PremiumSavings, error) {
	base, err := newFeature(inner)
	if err != nil {
		return nil, err
	}
	if !rate.IsPositive() {
		return nil, NewError(CodeInvalidInput, "premium savings rate must be greater than zero")
	}
	if minBalanceForRate.IsNegative() {
		return nil, NewError(CodeInvalidInput, "premium savings minimum balance cannot be negative")
	}
	return &PremiumSavings{feature: base, Rate: rate, MinBalanceForRate: minBalanceForRate}, nil
}

func (p *PremiumSavings) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	credited, err := p.inner.Deposit(amount)
	if err != nil {
		return decimal.Zero, err
	}
	if p.Account().Balance.LessThan(p.MinBalanceForRate) {
		return credited, nil
	}
	return credited.Add(applyBonus(p.Account(), credited, p.Rate)), nil
}

func (p *PremiumSavings) Withdraw(amount decimal.Decimal) error {
	return p.withdraw(amount, decimal.Zero, OperationWithdrawal)
}

// BusinessLoanExtension lets a loan account draw down to -MaxExtension.
type BusinessLoanExtension struct {
	feature
	MaxExtension decimal.Decimal
}

func NewBusinessLoanExtension(inner Operations, maxExtension decimal.Decimal) (*BusinessLoanExtension, error) {
	base, err := newFeature(inner)
	if err != nil {
		return nil, err
	}
	if !inner.Account().Type.IsLoan() {
		return nil, NewError(CodeInvalidInput, "business loan extension requires a loan account, got %s", inner.Account().Type)
	}
	if !maxExtension.IsPositive() {
		return nil, NewError(CodeInvalidInput, "business loan extension must be greater than zero")
	}
	return &BusinessLoanExtension{feature: base, MaxExtension: maxExtension}, nil
}

func (e *BusinessLoanExtension) Available() decimal.Decimal {
	return e.inner.Available().Add(e.MaxExtension)
}

func (e *BusinessLoanExtension) Withdraw(amount decimal.Decimal) error {
	return e.withdraw(amount, decimal.Zero, OperationWithdrawal)
}

func (e *BusinessLoanExtension) withdraw(amount decimal.Decimal, allowance decimal.Decimal, op Operation) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := e.Account().Allows(op); err != nil {
		return err
	}
	widened := allowance.Add(e.MaxExtension)
	if credit := e.inner.Available().Add(widened); amount.GreaterThan(credit) {
		return NewError(CodeLimitExceeded, "%s exceeds remaining loan extension %s on account %s",
			amount.String(), credit.String(), e.Account().ID)
	}
	return e.inner.withdraw(amount, widened, op)
}

func applyBonus(account *Account, credited decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	bonus := credited.Mul(rate).Round(2)
	if !bonus.IsPositive() {
		return decimal.Zero
	}
	account.credit(bonus)
	return bonus
}
