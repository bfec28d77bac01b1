package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/service_interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAccountRequiresEmployee(t *testing.T) {
	f := newFixture(t)

	_, err := f.account.OpenAccount(context.Background(), service_interfaces.OpenAccountRequest{
		Actor:          customerA,
		OwnerID:        "cust-a",
		Type:           domain.AccountTypeChecking,
		OpeningBalance: d("10"),
	})
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))
}

func TestOpenAccountValidatesInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := []struct {
		name string
		req  service_interfaces.OpenAccountRequest
	}{
		{
			name: "negative opening balance",
			req:  service_interfaces.OpenAccountRequest{Actor: employee, OwnerID: "cust-a", Type: domain.AccountTypeChecking, OpeningBalance: d("-1")},
		},
		{
			name: "unknown type",
			req:  service_interfaces.OpenAccountRequest{Actor: employee, OwnerID: "cust-a", Type: "CRYPTO"},
		},
		{
			name: "loan extension on checking",
			req: service_interfaces.OpenAccountRequest{
				Actor:    employee,
				OwnerID:  "cust-a",
				Type:     domain.AccountTypeChecking,
				Features: []domain.Feature{{Kind: domain.FeatureBusinessLoanExtension, MaxExtension: d("100")}},
			},
		},
		{
			name: "short pin",
			req:  service_interfaces.OpenAccountRequest{Actor: employee, OwnerID: "cust-a", Type: domain.AccountTypeChecking, Pin: "12"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.account.OpenAccount(ctx, tc.req)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestOpenLoanAccountWithExtension(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	opened, err := f.account.OpenAccount(ctx, service_interfaces.OpenAccountRequest{
		Actor:          admin,
		OwnerID:        "biz-1",
		Type:           domain.AccountTypeBusinessLoan,
		OpeningBalance: d("-100"),
		Features:       []domain.Feature{{Kind: domain.FeatureBusinessLoanExtension, MaxExtension: d("1000")}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, opened.State)
	assert.False(t, opened.HasPin)

	_, err = f.approval.Submit(ctx, withdraw(employee, opened.ID, "900"))
	require.NoError(t, err)
	assert.True(t, f.balance(t, opened.ID).Equal(d("-1000")))

	_, err = f.approval.Submit(ctx, withdraw(employee, opened.ID, "0.01"))
	assert.True(t, errors.Is(err, domain.ErrLimitExceeded))
}

func TestCustomerSeesOnlyOwnAccounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a1", "cust-a", domain.AccountTypeChecking, "10")
	f.seed(t, "acct-a2", "cust-a", domain.AccountTypeSavings, "20")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "30")

	mine, err := f.account.ListAccounts(ctx, customerA, "")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.account.ListAccounts(ctx, customerA, "cust-b")
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	theirs, err := f.account.ListAccounts(ctx, employee, "cust-b")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "acct-b", theirs[0].ID)

	_, err = f.account.GetAccount(ctx, customerA, "acct-b")
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	_, err = f.account.GetAccount(ctx, customerA, "acct-zz")
	assert.True(t, errors.Is(err, domain.ErrUnknownAccount))
}

func TestChangeStateRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "10")

	_, err := f.account.ChangeState(ctx, customerA, "acct-a", domain.StateFrozen)
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	_, err = f.account.ChangeState(ctx, employee, "acct-a", "DORMANT")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	same, err := f.account.ChangeState(ctx, employee, "acct-a", domain.StateActive)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, same.State)
	assert.Equal(t, 0, f.recorder.count(domain.EventAccountStateChanged))

	closed, err := f.account.ChangeState(ctx, admin, "acct-a", domain.StateClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.StateClosed, closed.State)

	_, err = f.account.ChangeState(ctx, admin, "acct-a", domain.StateActive)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	_, err = f.account.ChangeState(ctx, admin, "acct-a", domain.StateClosed)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	_, err = f.approval.Submit(ctx, deposit(employee, "acct-a", "1"))
	assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation))

	_, err = f.account.AddFeature(ctx, employee, "acct-a", domain.Feature{Kind: domain.FeatureWithdrawalCap, Limit: d("5")})
	assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation))
}

func TestStateChangeEventCarriesPreviousState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "10")

	_, err := f.account.ChangeState(ctx, employee, "acct-a", domain.StateSuspended)
	require.NoError(t, err)

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	require.Len(t, f.recorder.events, 1)
	event := f.recorder.events[0]
	assert.Equal(t, domain.EventAccountStateChanged, event.Kind)
	assert.Equal(t, domain.StateActive, event.PreviousState)
	require.Len(t, event.Accounts, 1)
	assert.Equal(t, domain.StateSuspended, event.Accounts[0].State)
	assert.Nil(t, event.Transaction)
}

func TestAddFeatureAppliesOnNextTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "1000")

	view, err := f.account.AddFeature(ctx, employee, "acct-a", domain.Feature{Kind: domain.FeatureWithdrawalCap, Limit: d("300")})
	require.NoError(t, err)
	require.Len(t, view.Features, 1)

	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "301"))
	assert.True(t, errors.Is(err, domain.ErrLimitExceeded))

	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "300"))
	require.NoError(t, err)

	_, err = f.account.AddFeature(ctx, employee, "acct-a", domain.Feature{Kind: domain.FeatureOverdraftProtection})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestAttachChildBuildsAggregate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "group", "cust-a", domain.AccountTypeChecking, "0")
	f.seed(t, "sub", "cust-a", domain.AccountTypeChecking, "0")
	f.seed(t, "leaf-1", "cust-a", domain.AccountTypeChecking, "100")
	f.seed(t, "leaf-2", "cust-a", domain.AccountTypeSavings, "250.50")
	f.seed(t, "funded", "cust-a", domain.AccountTypeChecking, "5")

	_, err := f.account.AttachChild(ctx, employee, "group", "leaf-1")
	require.NoError(t, err)
	_, err = f.account.AttachChild(ctx, employee, "sub", "leaf-2")
	require.NoError(t, err)
	view, err := f.account.AttachChild(ctx, employee, "group", "sub")
	require.NoError(t, err)
	assert.True(t, view.Balance.Equal(d("350.50")))
	assert.Equal(t, []string{"leaf-1", "sub"}, view.Children)

	got, err := f.account.GetAccount(ctx, customerA, "group")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(d("350.50")))

	_, err = f.account.AttachChild(ctx, employee, "sub", "group")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.account.AttachChild(ctx, employee, "group", "leaf-1")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.account.AttachChild(ctx, employee, "funded", "leaf-1")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.account.AttachChild(ctx, employee, "group", "ghost")
	assert.True(t, errors.Is(err, domain.ErrUnknownAccount))

	_, err = f.approval.Submit(ctx, deposit(employee, "group", "10"))
	assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation))
}

func TestAttachChildKeepsSingleOwnerTree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "group-a", "cust-a", domain.AccountTypeChecking, "0")
	f.seed(t, "group-x", "cust-a", domain.AccountTypeChecking, "0")
	f.seed(t, "a-savings", "cust-a", domain.AccountTypeSavings, "40")
	f.seed(t, "b-savings", "cust-b", domain.AccountTypeSavings, "9999")

	_, err := f.account.AttachChild(ctx, employee, "group-a", "b-savings")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.account.AttachChild(ctx, employee, "group-a", "a-savings")
	require.NoError(t, err)
	_, err = f.account.AttachChild(ctx, employee, "group-x", "a-savings")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	got, err := f.account.GetAccount(ctx, customerA, "group-a")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(d("40")))
	assert.Equal(t, []string{"a-savings"}, got.Children)

	other, err := f.accounts.Get(ctx, "group-x")
	require.NoError(t, err)
	assert.Empty(t, other.Children)
}

func TestDetachChildUngroupsAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "group", "cust-a", domain.AccountTypeChecking, "0")
	f.seed(t, "other", "cust-a", domain.AccountTypeChecking, "0")
	f.seed(t, "leaf-1", "cust-a", domain.AccountTypeChecking, "100")
	f.seed(t, "leaf-2", "cust-a", domain.AccountTypeSavings, "25")

	_, err := f.account.AttachChild(ctx, employee, "group", "leaf-1")
	require.NoError(t, err)
	_, err = f.account.AttachChild(ctx, employee, "group", "leaf-2")
	require.NoError(t, err)

	_, err = f.account.DetachChild(ctx, customerA, "group", "leaf-1")
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))
	_, err = f.account.DetachChild(ctx, employee, "group", "ghost")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = f.account.DetachChild(ctx, employee, "missing", "leaf-1")
	assert.True(t, errors.Is(err, domain.ErrUnknownAccount))

	view, err := f.account.DetachChild(ctx, employee, "group", "leaf-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"leaf-2"}, view.Children)
	assert.True(t, view.Balance.Equal(d("25")))

	_, err = f.account.AttachChild(ctx, employee, "other", "leaf-1")
	require.NoError(t, err)

	view, err = f.account.DetachChild(ctx, employee, "group", "leaf-2")
	require.NoError(t, err)
	assert.Empty(t, view.Children)
	assert.True(t, view.Balance.IsZero())

	_, err = f.approval.Submit(ctx, deposit(employee, "group", "10"))
	require.NoError(t, err)
	assert.True(t, f.balance(t, "group").Equal(d("10")))
}

func TestFreezeAndReactivateRestoresLegality(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "1000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	frozen, err := f.account.ChangeState(ctx, employee, "acct-a", domain.StateFrozen)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFrozen, frozen.State)

	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "100"))
	assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation))
	_, err = f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "100"))
	assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation))
	assert.True(t, f.balance(t, "acct-a").Equal(d("1000")))

	active, err := f.account.ChangeState(ctx, employee, "acct-a", domain.StateActive)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, active.State)

	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "100"))
	require.NoError(t, err)
	_, err = f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "100"))
	require.NoError(t, err)
	assert.True(t, f.balance(t, "acct-a").Equal(d("800")))
	assert.True(t, f.balance(t, "acct-b").Equal(d("100")))

	stored, err := f.accounts.Get(ctx, "acct-a")
	require.NoError(t, err)
	for _, op := range []domain.Operation{domain.OperationDeposit, domain.OperationWithdrawal, domain.OperationTransfer} {
		assert.Equal(t, domain.Active.IsOperationAllowed(op), stored.State.IsOperationAllowed(op), string(op))
	}
	assert.Equal(t, 2, f.recorder.count(domain.EventAccountStateChanged))
}

func TestSubmitRefusesAmountsBeyondStoredScale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "100")

	for _, amount := range []string{"0.000000001", "0.123456789"} {
		_, err := f.approval.Submit(ctx, deposit(employee, "acct-a", amount))
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), amount)
	}
	assert.True(t, f.balance(t, "acct-a").Equal(d("100")))
	assert.Equal(t, 0, f.recorder.count(domain.EventTransactionCreated))

	_, err := f.account.OpenAccount(ctx, service_interfaces.OpenAccountRequest{
		Actor:          employee,
		OwnerID:        "cust-a",
		Type:           domain.AccountTypeChecking,
		OpeningBalance: d("10.000000001"),
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
