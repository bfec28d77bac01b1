package domain

import "strings"

type StateTag string

const (
	StateActive    StateTag = "ACTIVE"
	StateFrozen    StateTag = "FROZEN"
	StateSuspended StateTag = "SUSPENDED"
	StateClosed    StateTag = "CLOSED"
)

// Operation is the kind of transactional operation checked against an
// account's state. Incoming transfer credit is checked as OperationDeposit.
type Operation string

const (
	OperationDeposit    Operation = "DEPOSIT"
	OperationWithdrawal Operation = "WITHDRAWAL"
	OperationTransfer   Operation = "TRANSFER"
)

// AccountState answers whether an operation is legal. Implementations carry
// no per-account data and are shared by every account in that state.
type AccountState interface {
	Name() StateTag
	IsOperationAllowed(op Operation) bool
}

type activeState struct{}

func (activeState) Name() StateTag { return StateActive }

func (activeState) IsOperationAllowed(op Operation) bool {
	switch op {
	case OperationDeposit, OperationWithdrawal, OperationTransfer:
		return true
	default:
		return false
	}
}

// frozenState lets funds in but not out.
type frozenState struct{}

func (frozenState) Name() StateTag { return StateFrozen }

func (frozenState) IsOperationAllowed(op Operation) bool {
	return op == OperationDeposit
}

// suspendedState only admits administrative actions.
type suspendedState struct{}

func (suspendedState) Name() StateTag { return StateSuspended }

func (suspendedState) IsOperationAllowed(Operation) bool { return false }

type closedState struct{}

func (closedState) Name() StateTag { return StateClosed }

func (closedState) IsOperationAllowed(Operation) bool { return false }

var (
	Active    AccountState = activeState{}
	Frozen    AccountState = frozenState{}
	Suspended AccountState = suspendedState{}
	Closed    AccountState = closedState{}
)

// StateFor resolves a persisted or requested tag to its shared state value.
func StateFor(tag StateTag) (AccountState, error) {
	switch StateTag(strings.ToUpper(strings.TrimSpace(string(tag)))) {
	case StateActive:
		return Active, nil
	case StateFrozen:
		return Frozen, nil
	case StateSuspended:
		return Suspended, nil
	case StateClosed:
		return Closed, nil
	default:
		return nil, NewError(CodeInvalidInput, "unknown account state %q", tag)
	}
}
