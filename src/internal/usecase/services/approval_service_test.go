package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/memory"
	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/events"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/service_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	customerA = domain.Actor{ID: "cust-a", Role: domain.RoleCustomer}
	customerB = domain.Actor{ID: "cust-b", Role: domain.RoleCustomer}
	employee  = domain.Actor{ID: "emp-1", Role: domain.RoleEmployee}
	admin     = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Notify(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) kinds(txID string) []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, 0)
	for _, e := range r.events {
		if e.Transaction != nil && e.Transaction.ID == txID {
			out = append(out, e.Kind)
		}
	}
	return out
}

func (r *recorder) count(kind domain.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type panickingObserver struct{}

func (panickingObserver) Name() string { return "broken" }

func (panickingObserver) Notify(context.Context, domain.Event) error {
	panic("observer exploded")
}

type fixture struct {
	accounts *memory.AccountRepository
	txs      *memory.TransactionRepository
	recorder *recorder
	approval *services.ApprovalService
	account  *services.AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil, nil)
}

func newFixtureWith(t *testing.T, accountRepo repo_interfaces.AccountRepository, txRepo repo_interfaces.TransactionRepository) *fixture {
	t.Helper()

	f := &fixture{
		accounts: memory.NewAccountRepository(),
		txs:      memory.NewTransactionRepository(),
		recorder: &recorder{},
	}
	if accountRepo == nil {
		accountRepo = f.accounts
	}
	if txRepo == nil {
		txRepo = f.txs
	}

	bus := events.NewBus()
	require.NoError(t, bus.Register(panickingObserver{}))
	require.NoError(t, bus.Register(f.recorder))

	chain, err := domain.NewApprovalChain(domain.DefaultApprovalThresholds())
	require.NoError(t, err)

	locks := services.NewLocks()
	f.approval = services.NewApprovalService(accountRepo, txRepo, chain, bus, services.WithSharedLocks(locks))
	f.account = services.NewAccountService(accountRepo, bus, services.WithSharedLocks(locks))
	return f
}

func (f *fixture) seed(t *testing.T, id string, owner string, accountType domain.AccountType, balance string, features ...domain.Feature) {
	t.Helper()
	account, err := domain.NewAccount(id, owner, accountType, d(balance), time.Now())
	require.NoError(t, err)
	account.Features = features
	require.NoError(t, f.accounts.Save(context.Background(), *account))
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	account, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return account.Balance
}

func deposit(actor domain.Actor, target string, amount string) service_interfaces.SubmitRequest {
	return service_interfaces.SubmitRequest{Actor: actor, Type: domain.TransactionTypeDeposit, Amount: d(amount), TargetAccountID: target}
}

func withdraw(actor domain.Actor, source string, amount string) service_interfaces.SubmitRequest {
	return service_interfaces.SubmitRequest{Actor: actor, Type: domain.TransactionTypeWithdrawal, Amount: d(amount), SourceAccountID: source}
}

func transfer(actor domain.Actor, source string, target string, amount string) service_interfaces.SubmitRequest {
	return service_interfaces.SubmitRequest{
		Actor:           actor,
		Type:            domain.TransactionTypeTransfer,
		Amount:          d(amount),
		SourceAccountID: source,
		TargetAccountID: target,
	}
}

func TestEndToEndDepositThenApprovedTransfer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "1000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	res, err := f.approval.Submit(ctx, deposit(customerA, "acct-a", "500"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, res.Transaction.Status)
	assert.True(t, f.balance(t, "acct-a").Equal(d("1500")))
	require.NotNil(t, res.Transaction.DecidedBy)
	assert.Equal(t, domain.SystemApprover, *res.Transaction.DecidedBy)
	assert.Equal(t, []domain.EventKind{
		domain.EventTransactionCreated,
		domain.EventTransactionApproved,
		domain.EventTransactionCompleted,
	}, f.recorder.kinds(res.Transaction.ID))

	_, err = f.approval.Submit(ctx, deposit(employee, "acct-a", "23500"))
	require.NoError(t, err)
	_, err = f.approval.Submit(ctx, deposit(employee, "acct-a", "25000"))
	require.NoError(t, err)
	require.True(t, f.balance(t, "acct-a").Equal(d("50000")))

	pending, err := f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "30000"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPendingEmployeeApproval, pending.Transaction.Status)
	assert.True(t, f.balance(t, "acct-a").Equal(d("50000")))
	assert.True(t, f.balance(t, "acct-b").IsZero())

	done, err := f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: employee, TransactionID: pending.Transaction.ID, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, done.Transaction.Status)
	require.NotNil(t, done.Transaction.DecidedBy)
	assert.Equal(t, "emp-1", *done.Transaction.DecidedBy)
	assert.True(t, f.balance(t, "acct-a").Equal(d("20000")))
	assert.True(t, f.balance(t, "acct-b").Equal(d("30000")))

	completed := 0
	for _, kind := range f.recorder.kinds(pending.Transaction.ID) {
		if kind == domain.EventTransactionCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)

	stored, err := f.txs.Get(ctx, pending.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, stored.Status)
}

func TestDepositWithPremiumSavingsAddsBonus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeSavings, "1000",
		domain.Feature{Kind: domain.FeaturePremiumSavings, Rate: d("0.01")})

	_, err := f.approval.Submit(context.Background(), deposit(customerA, "acct-a", "500"))
	require.NoError(t, err)
	assert.True(t, f.balance(t, "acct-a").Equal(d("1505")))
}

func TestFrozenAccountRejectsDebitsRegardlessOfAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "1000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	_, err := f.account.ChangeState(ctx, employee, "acct-a", domain.StateFrozen)
	require.NoError(t, err)
	assert.Equal(t, 1, f.recorder.count(domain.EventAccountStateChanged))

	for _, amount := range []string{"1", "5000", "100000"} {
		_, err := f.approval.Submit(ctx, withdraw(customerA, "acct-a", amount))
		assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation), "withdraw %s: %v", amount, err)

		_, err = f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", amount))
		assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation), "transfer %s: %v", amount, err)
	}

	_, err = f.approval.Submit(ctx, deposit(customerB, "acct-a", "10"))
	require.NoError(t, err)
	assert.True(t, f.balance(t, "acct-a").Equal(d("1010")))
}

func TestTransferIntoSuspendedAccountFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "1000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")
	_, err := f.account.ChangeState(ctx, admin, "acct-b", domain.StateSuspended)
	require.NoError(t, err)

	_, err = f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "10"))
	assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation))
	assert.True(t, f.balance(t, "acct-a").Equal(d("1000")))
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "100")

	_, err := f.approval.Submit(ctx, deposit(customerA, "acct-a", "0"))
	assert.True(t, errors.Is(err, domain.ErrNonPositiveAmount))

	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "-5"))
	assert.True(t, errors.Is(err, domain.ErrNonPositiveAmount))

	_, err = f.approval.Submit(ctx, deposit(customerA, "acct-missing", "5"))
	assert.True(t, errors.Is(err, domain.ErrUnknownAccount))

	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "100.01"))
	assert.True(t, errors.Is(err, domain.ErrLimitExceeded))

	_, err = f.approval.Submit(ctx, withdraw(domain.Actor{ID: "x", Role: "ROOT"}, "acct-a", "1"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	assert.True(t, f.balance(t, "acct-a").Equal(d("100")))
}

func TestOverdraftAllowsNegativeBalanceUpToLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "100",
		domain.Feature{Kind: domain.FeatureOverdraftProtection, Limit: d("500")})

	_, err := f.approval.Submit(ctx, withdraw(customerA, "acct-a", "600.01"))
	assert.True(t, errors.Is(err, domain.ErrLimitExceeded))

	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "600"))
	require.NoError(t, err)
	assert.True(t, f.balance(t, "acct-a").Equal(d("-500")))
}

func TestCustomerCannotDebitSomeoneElsesAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "1000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	_, err := f.approval.Submit(ctx, withdraw(customerB, "acct-a", "10"))
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	_, err = f.approval.Submit(ctx, transfer(customerB, "acct-a", "acct-b", "10"))
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	_, err = f.approval.Submit(ctx, withdraw(employee, "acct-a", "10"))
	require.NoError(t, err)
}

func TestCustomerDebitRequiresPin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	opened, err := f.account.OpenAccount(ctx, service_interfaces.OpenAccountRequest{
		Actor:          employee,
		OwnerID:        "cust-a",
		Type:           domain.AccountTypeChecking,
		OpeningBalance: d("100"),
		Pin:            "4321",
	})
	require.NoError(t, err)
	assert.True(t, opened.HasPin)

	req := withdraw(customerA, opened.ID, "10")
	req.Pin = "0000"
	_, err = f.approval.Submit(ctx, req)
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	req.Pin = "4321"
	_, err = f.approval.Submit(ctx, req)
	require.NoError(t, err)
	assert.True(t, f.balance(t, opened.ID).Equal(d("90")))
}

func TestDecideRequiresMatchingTier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "200000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	res, err := f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "80000"))
	require.NoError(t, err)
	require.Equal(t, domain.TransactionStatusPendingAdminApproval, res.Transaction.Status)

	_, err = f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: employee, TransactionID: res.Transaction.ID, Approve: true})
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	_, err = f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: customerA, TransactionID: res.Transaction.ID, Approve: true})
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	stored, err := f.txs.Get(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPendingAdminApproval, stored.Status)
	assert.True(t, f.balance(t, "acct-a").Equal(d("200000")))

	done, err := f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: admin, TransactionID: res.Transaction.ID, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusCompleted, done.Transaction.Status)
	assert.True(t, f.balance(t, "acct-b").Equal(d("80000")))
}

func TestAdminMayDecideEmployeeTier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "50000")

	res, err := f.approval.Submit(ctx, withdraw(customerA, "acct-a", "25000.01"))
	require.NoError(t, err)
	require.Equal(t, domain.TransactionStatusPendingEmployeeApproval, res.Transaction.Status)

	_, err = f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: admin, TransactionID: res.Transaction.ID, Approve: true})
	require.NoError(t, err)
	assert.True(t, f.balance(t, "acct-a").Equal(d("24999.99")))
}

func TestRejectLeavesBalancesUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "50000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	res, err := f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "30000"))
	require.NoError(t, err)

	rejected, err := f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: employee, TransactionID: res.Transaction.ID, Approve: false})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusRejected, rejected.Transaction.Status)
	assert.True(t, f.balance(t, "acct-a").Equal(d("50000")))
	assert.True(t, f.balance(t, "acct-b").IsZero())
	assert.Equal(t, []domain.EventKind{domain.EventTransactionCreated, domain.EventTransactionRejected}, f.recorder.kinds(res.Transaction.ID))

	_, err = f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: employee, TransactionID: res.Transaction.ID, Approve: true})
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	_, err = f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: employee, TransactionID: "nope", Approve: true})
	assert.True(t, errors.Is(err, domain.ErrUnknownTransaction))
}

func TestApproveFailsWhenAccountFrozenMeanwhile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "50000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	res, err := f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "30000"))
	require.NoError(t, err)

	_, err = f.account.ChangeState(ctx, employee, "acct-a", domain.StateFrozen)
	require.NoError(t, err)

	_, err = f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: employee, TransactionID: res.Transaction.ID, Approve: true})
	assert.True(t, errors.Is(err, domain.ErrIllegalStateOperation))

	stored, err := f.txs.Get(ctx, res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.True(t, f.balance(t, "acct-a").Equal(d("50000")))
	assert.Contains(t, f.recorder.kinds(res.Transaction.ID), domain.EventTransactionFailed)
}

func TestApproveFailsWhenFundsSpentMeanwhile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "40000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	res, err := f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "30000"))
	require.NoError(t, err)
	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "20000"))
	require.NoError(t, err)

	_, err = f.approval.Decide(ctx, service_interfaces.DecideRequest{Actor: employee, TransactionID: res.Transaction.ID, Approve: true})
	assert.True(t, errors.Is(err, domain.ErrLimitExceeded))
	assert.True(t, f.balance(t, "acct-a").Equal(d("20000")))
	assert.True(t, f.balance(t, "acct-b").IsZero())
}

type accountRepoStub struct {
	repo_interfaces.AccountRepository
	saveFn func(ctx context.Context, accounts ...domain.Account) error
}

func (s accountRepoStub) Save(ctx context.Context, accounts ...domain.Account) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, accounts...)
	}
	return s.AccountRepository.Save(ctx, accounts...)
}

type transactionRepoStub struct {
	repo_interfaces.TransactionRepository
	saveFn func(ctx context.Context, tx domain.Transaction) error
}

func (s transactionRepoStub) Save(ctx context.Context, tx domain.Transaction) error {
	if s.saveFn != nil {
		return s.saveFn(ctx, tx)
	}
	return s.TransactionRepository.Save(ctx, tx)
}

func TestAccountPersistenceFailureAbortsBeforeAnyChange(t *testing.T) {
	ctx := context.Background()
	base := memory.NewAccountRepository()
	stub := accountRepoStub{
		AccountRepository: base,
		saveFn: func(context.Context, ...domain.Account) error {
			return errors.New("connection reset")
		},
	}
	f := newFixtureWith(t, stub, nil)
	f.accounts = base
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "100")

	_, err := f.approval.Submit(ctx, withdraw(customerA, "acct-a", "10"))
	assert.True(t, errors.Is(err, domain.ErrPersistenceFailure))
	assert.True(t, f.balance(t, "acct-a").Equal(d("100")))
	assert.Equal(t, 0, f.recorder.count(domain.EventTransactionCompleted))
	assert.Equal(t, 1, f.recorder.count(domain.EventTransactionFailed))
}

func TestTransactionPersistenceFailureRestoresAccounts(t *testing.T) {
	ctx := context.Background()
	txBase := memory.NewTransactionRepository()
	stub := transactionRepoStub{
		TransactionRepository: txBase,
		saveFn: func(ctx context.Context, tx domain.Transaction) error {
			if tx.Status == domain.TransactionStatusCompleted {
				return errors.New("disk full")
			}
			return txBase.Save(ctx, tx)
		},
	}
	f := newFixtureWith(t, nil, stub)
	f.txs = txBase
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "100")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	_, err := f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "40"))
	assert.True(t, errors.Is(err, domain.ErrPersistenceFailure))
	assert.True(t, f.balance(t, "acct-a").Equal(d("100")))
	assert.True(t, f.balance(t, "acct-b").IsZero())
	assert.Equal(t, 0, f.recorder.count(domain.EventTransactionCompleted))
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "300")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		limited   int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.approval.Submit(ctx, withdraw(customerA, "acct-a", "10"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrLimitExceeded):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, succeeded)
	assert.Equal(t, 20, limited)
	assert.True(t, f.balance(t, "acct-a").IsZero())
}

func TestOpposingTransfersDoNotDeadlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "1000")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "1000")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "1"))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.approval.Submit(ctx, transfer(customerB, "acct-b", "acct-a", "1"))
			assert.NoError(t, err)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposing transfers deadlocked")
	}

	total := f.balance(t, "acct-a").Add(f.balance(t, "acct-b"))
	assert.True(t, total.Equal(d("2000")))
}

func TestListPendingVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "500000")

	_, err := f.approval.Submit(ctx, withdraw(customerA, "acct-a", "30000"))
	require.NoError(t, err)
	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "90000"))
	require.NoError(t, err)
	_, err = f.approval.Submit(ctx, withdraw(customerA, "acct-a", "10"))
	require.NoError(t, err)

	forEmployee, err := f.approval.ListPending(ctx, employee)
	require.NoError(t, err)
	require.Len(t, forEmployee, 1)
	assert.Equal(t, domain.TransactionStatusPendingEmployeeApproval, forEmployee[0].Status)

	forAdmin, err := f.approval.ListPending(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, forAdmin, 2)

	forCustomer, err := f.approval.ListPending(ctx, customerA)
	require.NoError(t, err)
	assert.Empty(t, forCustomer)

	history, err := f.approval.ListAccountTransactions(ctx, customerA, "acct-a")
	require.NoError(t, err)
	assert.Len(t, history, 3)

	_, err = f.approval.ListAccountTransactions(ctx, customerB, "acct-a")
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))
}

func TestGetTransactionVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, "acct-a", "cust-a", domain.AccountTypeChecking, "100")
	f.seed(t, "acct-b", "cust-b", domain.AccountTypeChecking, "0")

	res, err := f.approval.Submit(ctx, transfer(customerA, "acct-a", "acct-b", "5"))
	require.NoError(t, err)

	for _, actor := range []domain.Actor{customerA, customerB, employee} {
		got, err := f.approval.GetTransaction(ctx, actor, res.Transaction.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Transaction.ID, got.ID)
	}

	_, err = f.approval.GetTransaction(ctx, domain.Actor{ID: "cust-z", Role: domain.RoleCustomer}, res.Transaction.ID)
	assert.True(t, errors.Is(err, domain.ErrInsufficientPrivilege))

	_, err = f.approval.GetTransaction(ctx, employee, "missing")
	assert.True(t, errors.Is(err, domain.ErrUnknownTransaction))
}
