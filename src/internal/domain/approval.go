package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalBand is an amount interval. The lower edge is exclusive unless
// IncludeMin is set; an invalid Max means the band is unbounded above.
type ApprovalBand struct {
	Min        decimal.Decimal
	IncludeMin bool
	Max        decimal.NullDecimal
}

func (b ApprovalBand) Contains(amount decimal.Decimal) bool {
	if b.IncludeMin {
		if amount.LessThan(b.Min) {
			return false
		}
	} else if amount.LessThanOrEqual(b.Min) {
		return false
	}
	return !b.Max.Valid || amount.LessThanOrEqual(b.Max.Decimal)
}

// ApprovalHandler is one link of the approval chain.
type ApprovalHandler interface {
	Name() string
	Band() ApprovalBand
	TryHandle(tx *Transaction, now time.Time) (TransactionStatus, bool)
}

type bandHandler struct {
	name   string
	band   ApprovalBand
	status TransactionStatus
}

func (h bandHandler) Name() string       { return h.name }
func (h bandHandler) Band() ApprovalBand { return h.band }

func (h bandHandler) TryHandle(tx *Transaction, now time.Time) (TransactionStatus, bool) {
	if !h.band.Contains(tx.Amount) {
		return "", false
	}
	if err := tx.Transition(h.status, now); err != nil {
		return "", false
	}
	return h.status, true
}

// AutoApprovalHandler owns [0, max]. The service completes what it approves.
type AutoApprovalHandler struct{ bandHandler }

func NewAutoApprovalHandler(max decimal.Decimal) AutoApprovalHandler {
	return AutoApprovalHandler{bandHandler{
		name:   "auto",
		band:   ApprovalBand{Min: decimal.Zero, IncludeMin: true, Max: decimal.NewNullDecimal(max)},
		status: TransactionStatusAutoApproved,
	}}
}

// EmployeeApprovalHandler owns (min, max].
type EmployeeApprovalHandler struct{ bandHandler }

func NewEmployeeApprovalHandler(min decimal.Decimal, max decimal.Decimal) EmployeeApprovalHandler {
	return EmployeeApprovalHandler{bandHandler{
		name:   "employee",
		band:   ApprovalBand{Min: min, Max: decimal.NewNullDecimal(max)},
		status: TransactionStatusPendingEmployeeApproval,
	}}
}

// AdminApprovalHandler owns (min, ∞).
type AdminApprovalHandler struct{ bandHandler }

func NewAdminApprovalHandler(min decimal.Decimal) AdminApprovalHandler {
	return AdminApprovalHandler{bandHandler{
		name:   "admin",
		band:   ApprovalBand{Min: min},
		status: TransactionStatusPendingAdminApproval,
	}}
}

type ApprovalThresholds struct {
	AutoApproveMax     decimal.Decimal
	EmployeeApproveMax decimal.Decimal
}

func DefaultApprovalThresholds() ApprovalThresholds {
	return ApprovalThresholds{
		AutoApproveMax:     decimal.NewFromInt(25000),
		EmployeeApproveMax: decimal.NewFromInt(75000),
	}
}

func (t ApprovalThresholds) Validate() error {
	if !t.AutoApproveMax.IsPositive() {
		return NewError(CodeInvalidInput, "auto-approval threshold must be greater than zero")
	}
	if !t.EmployeeApproveMax.GreaterThan(t.AutoApproveMax) {
		return NewError(CodeInvalidInput, "employee threshold %s must exceed auto-approval threshold %s",
			t.EmployeeApproveMax.String(), t.AutoApproveMax.String())
	}
	return nil
}

// ApprovalChain is an ordered partition of [0, ∞): exactly one handler
// accepts any positive amount.
type ApprovalChain struct {
	handlers []ApprovalHandler
}

func NewApprovalChain(thresholds ApprovalThresholds) (ApprovalChain, error) {
	if err := thresholds.Validate(); err != nil {
		return ApprovalChain{}, err
	}
	return NewApprovalChainFromHandlers(
		NewAutoApprovalHandler(thresholds.AutoApproveMax),
		NewEmployeeApprovalHandler(thresholds.AutoApproveMax, thresholds.EmployeeApproveMax),
		NewAdminApprovalHandler(thresholds.EmployeeApproveMax),
	)
}

// NewApprovalChainFromHandlers checks that the bands start at an inclusive
// zero, meet edge to edge and end unbounded.
func NewApprovalChainFromHandlers(handlers ...ApprovalHandler) (ApprovalChain, error) {
	if len(handlers) == 0 {
		return ApprovalChain{}, NewError(CodeInvalidInput, "approval chain needs at least one handler")
	}

	first := handlers[0].Band()
	if !first.IncludeMin || !first.Min.IsZero() {
		return ApprovalChain{}, NewError(CodeInvalidInput, "first approval band must start at an inclusive zero")
	}
	for i := 1; i < len(handlers); i++ {
		prev := handlers[i-1].Band()
		cur := handlers[i].Band()
		if !prev.Max.Valid {
			return ApprovalChain{}, NewError(CodeInvalidInput, "approval band %s is unbounded but not last", handlers[i-1].Name())
		}
		if cur.IncludeMin || !cur.Min.Equal(prev.Max.Decimal) {
			return ApprovalChain{}, NewError(CodeInvalidInput, "approval band %s does not start where %s ends",
				handlers[i].Name(), handlers[i-1].Name())
		}
	}
	if handlers[len(handlers)-1].Band().Max.Valid {
		return ApprovalChain{}, NewError(CodeInvalidInput, "last approval band must be unbounded")
	}

	return ApprovalChain{handlers: append([]ApprovalHandler(nil), handlers...)}, nil
}

// Route hands tx to the first handler whose band contains its amount.
func (c ApprovalChain) Route(tx *Transaction, now time.Time) (ApprovalHandler, error) {
	if tx.Status != TransactionStatusPending {
		return nil, NewError(CodeInvalidTransition, "transaction %s is %s, only PENDING transactions can be routed", tx.ID, tx.Status)
	}
	for _, h := range c.handlers {
		if _, ok := h.TryHandle(tx, now); ok {
			return h, nil
		}
	}
	return nil, NewError(CodeInvalidInput, "no approval handler accepts amount %s", tx.Amount.String())
}

func (c ApprovalChain) Handlers() []ApprovalHandler {
	return append([]ApprovalHandler(nil), c.handlers...)
}
