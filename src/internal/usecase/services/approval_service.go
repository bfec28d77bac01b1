package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/service_interfaces"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

type ApprovalService struct {
	accountRepo     repo_interfaces.AccountRepository
	transactionRepo repo_interfaces.TransactionRepository
	chain           domain.ApprovalChain
	publisher       EventPublisher
	opts            options
}

var _ service_interfaces.ApprovalService = (*ApprovalService)(nil)

func NewApprovalService(
	accountRepo repo_interfaces.AccountRepository,
	transactionRepo repo_interfaces.TransactionRepository,
	chain domain.ApprovalChain,
	publisher EventPublisher,
	opts ...Option,
) *ApprovalService {
	return &ApprovalService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		chain:           chain,
		publisher:       publisher,
		opts:            buildOptions(opts),
	}
}

func (s *ApprovalService) Submit(ctx context.Context, req service_interfaces.SubmitRequest) (result service_interfaces.TransactionResult, err error) {
	ctx, span := startSpan(ctx, s.opts.tracer, "ApprovalService.Submit",
		attribute.String("transaction.type", string(req.Type)),
		attribute.String("actor.role", string(req.Actor.Role)),
	)
	defer endSpan(span, &err)

	logger.Info("approval service submit request", logger.Fields{
		"actorId":         req.Actor.ID,
		"actorRole":       string(req.Actor.Role),
		"type":            string(req.Type),
		"amount":          req.Amount.String(),
		"sourceAccountId": req.SourceAccountID,
		"targetAccountId": req.TargetAccountID,
	})

	now := s.opts.now()
	tx, err := domain.NewTransaction(domain.NewTransactionParams{
		ID:              s.opts.newID(),
		Type:            req.Type,
		Amount:          req.Amount,
		SourceAccountID: req.SourceAccountID,
		TargetAccountID: req.TargetAccountID,
		Description:     req.Description,
		RequestedBy:     req.Actor,
		Now:             now,
	})
	if err != nil {
		return service_interfaces.TransactionResult{}, err
	}
	if err := req.Actor.Validate(); err != nil {
		return service_interfaces.TransactionResult{}, err
	}
	span.SetAttributes(attribute.String("transaction.id", tx.ID))

	unlock := s.opts.locks.Lock(accountKeys(tx)...)
	defer unlock()

	source, target, err := s.loadParties(ctx, tx)
	if err != nil {
		return service_interfaces.TransactionResult{}, err
	}
	if err := authorizeDebit(req.Actor, source, req.Pin); err != nil {
		return service_interfaces.TransactionResult{}, err
	}
	if err := checkLegality(tx, source, target); err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	// Limits are evaluated against clones so a pending transaction leaves
	// balances untouched.
	updated, err := apply(tx, source, target, now)
	if err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	if _, err := s.chain.Route(&tx, now); err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	if tx.Status != domain.TransactionStatusAutoApproved {
		if err := s.saveTransaction(ctx, tx); err != nil {
			return service_interfaces.TransactionResult{}, err
		}
		s.publish(ctx, domain.EventTransactionCreated, req.Actor, tx, snapshots(source, target))
		logger.Info("approval service transaction awaiting approval", logger.Fields{
			"transactionId": tx.ID,
			"status":        string(tx.Status),
		})
		return service_interfaces.TransactionResult{Transaction: tx, Accounts: snapshots(source, target)}, nil
	}

	created := tx
	tx.RecordDecision(domain.SystemApprover, now)
	approved := tx
	if err := tx.Transition(domain.TransactionStatusCompleted, now); err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	if err := s.commit(ctx, tx, updated, []*domain.Account{source, target}); err != nil {
		s.recordFailure(ctx, req.Actor, approved, err, snapshots(source, target))
		return service_interfaces.TransactionResult{}, err
	}

	committed := snapshots(updated...)
	s.publish(ctx, domain.EventTransactionCreated, req.Actor, created, committed)
	s.publish(ctx, domain.EventTransactionApproved, req.Actor, approved, committed)
	s.publish(ctx, domain.EventTransactionCompleted, req.Actor, tx, committed)

	logger.Info("approval service transaction auto-approved", logger.Fields{
		"transactionId": tx.ID,
		"status":        string(tx.Status),
	})
	return service_interfaces.TransactionResult{Transaction: tx, Accounts: committed}, nil
}

func (s *ApprovalService) Decide(ctx context.Context, req service_interfaces.DecideRequest) (result service_interfaces.TransactionResult, err error) {
	ctx, span := startSpan(ctx, s.opts.tracer, "ApprovalService.Decide",
		attribute.String("transaction.id", req.TransactionID),
		attribute.Bool("decision.approve", req.Approve),
		attribute.String("actor.role", string(req.Actor.Role)),
	)
	defer endSpan(span, &err)

	logger.Info("approval service decide request", logger.Fields{
		"actorId":       req.Actor.ID,
		"actorRole":     string(req.Actor.Role),
		"transactionId": req.TransactionID,
		"approve":       req.Approve,
	})

	if err := req.Actor.Validate(); err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	// Account ids never change after creation, so they can be read before
	// taking the locks and the status re-checked once held.
	peek, err := s.loadTransaction(ctx, req.TransactionID)
	if err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	unlock := s.opts.locks.Lock(append(accountKeys(peek), transactionKey(peek.ID))...)
	defer unlock()

	tx, err := s.loadTransaction(ctx, req.TransactionID)
	if err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	required, pending := tx.Status.RequiredRole()
	if !pending {
		return service_interfaces.TransactionResult{}, domain.NewError(domain.CodeInvalidTransition,
			"transaction %s is %s and is not awaiting approval", tx.ID, tx.Status)
	}
	if !req.Actor.Role.AtLeast(required) {
		return service_interfaces.TransactionResult{}, domain.NewError(domain.CodeInsufficientPrivilege,
			"transaction %s requires %s approval, caller is %s", tx.ID, required, req.Actor.Role)
	}

	now := s.opts.now()
	if !req.Approve {
		return s.reject(ctx, req.Actor, tx, now)
	}

	source, target, err := s.loadParties(ctx, tx)
	if err != nil {
		if domain.CodeOf(err) == domain.CodePersistenceFailure {
			return service_interfaces.TransactionResult{}, err
		}
		return service_interfaces.TransactionResult{}, s.failDecision(ctx, req.Actor, tx, err, now, nil)
	}

	parties := []*domain.Account{source, target}
	if err := checkLegality(tx, source, target); err != nil {
		return service_interfaces.TransactionResult{}, s.failDecision(ctx, req.Actor, tx, err, now, parties)
	}
	updated, err := apply(tx, source, target, now)
	if err != nil {
		return service_interfaces.TransactionResult{}, s.failDecision(ctx, req.Actor, tx, err, now, parties)
	}

	if err := tx.Transition(domain.TransactionStatusApproved, now); err != nil {
		return service_interfaces.TransactionResult{}, err
	}
	tx.RecordDecision(req.Actor.ID, now)
	approved := tx
	if err := tx.Transition(domain.TransactionStatusCompleted, now); err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	if err := s.commit(ctx, tx, updated, parties); err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	committed := snapshots(updated...)
	s.publish(ctx, domain.EventTransactionApproved, req.Actor, approved, committed)
	s.publish(ctx, domain.EventTransactionCompleted, req.Actor, tx, committed)

	logger.Info("approval service transaction approved", logger.Fields{
		"transactionId": tx.ID,
		"decidedBy":     req.Actor.ID,
	})
	return service_interfaces.TransactionResult{Transaction: tx, Accounts: committed}, nil
}

func (s *ApprovalService) GetTransaction(ctx context.Context, actor domain.Actor, id string) (domain.Transaction, error) {
	if err := actor.Validate(); err != nil {
		return domain.Transaction{}, err
	}
	tx, err := s.loadTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if actor.Role.AtLeast(domain.RoleEmployee) || tx.RequestedBy == actor.ID {
		return tx, nil
	}
	for _, accountID := range tx.AccountIDs() {
		account, err := loadAccount(ctx, s.accountRepo, accountID)
		if err != nil {
			continue
		}
		if account.OwnerID == actor.ID {
			return tx, nil
		}
	}
	return domain.Transaction{}, domain.NewError(domain.CodeInsufficientPrivilege, "transaction %s is not visible to %s", id, actor.ID)
}

// ListPending returns the queue the actor may decide on: employees see the
// employee tier, admins both tiers, customers nothing.
func (s *ApprovalService) ListPending(ctx context.Context, actor domain.Actor) ([]domain.Transaction, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var tiers []domain.TransactionStatus
	switch actor.Role {
	case domain.RoleAdmin:
		tiers = []domain.TransactionStatus{domain.TransactionStatusPendingEmployeeApproval, domain.TransactionStatusPendingAdminApproval}
	case domain.RoleEmployee:
		tiers = []domain.TransactionStatus{domain.TransactionStatusPendingEmployeeApproval}
	default:
		return []domain.Transaction{}, nil
	}

	pending, err := s.transactionRepo.ListPending(ctx, tiers...)
	if err != nil {
		logger.Error("approval service list pending failed", err, logger.Fields{"actorRole": string(actor.Role)})
		return nil, domain.PersistenceFailure("list pending transactions", err)
	}
	return pending, nil
}

func (s *ApprovalService) ListAccountTransactions(ctx context.Context, actor domain.Actor, accountID string) ([]domain.Transaction, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	account, err := loadAccount(ctx, s.accountRepo, accountID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleCustomer && account.OwnerID != actor.ID {
		return nil, domain.NewError(domain.CodeInsufficientPrivilege, "account %s is not owned by %s", accountID, actor.ID)
	}

	txs, err := s.transactionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		logger.Error("approval service list account transactions failed", err, logger.Fields{"accountId": accountID})
		return nil, domain.PersistenceFailure("list account transactions", err)
	}
	return txs, nil
}

func (s *ApprovalService) reject(ctx context.Context, actor domain.Actor, tx domain.Transaction, now time.Time) (service_interfaces.TransactionResult, error) {
	if err := tx.Transition(domain.TransactionStatusRejected, now); err != nil {
		return service_interfaces.TransactionResult{}, err
	}
	tx.RecordDecision(actor.ID, now)
	if err := s.saveTransaction(ctx, tx); err != nil {
		return service_interfaces.TransactionResult{}, err
	}

	parties := s.snapshotParties(ctx, tx)
	s.publish(ctx, domain.EventTransactionRejected, actor, tx, parties)

	logger.Info("approval service transaction rejected", logger.Fields{
		"transactionId": tx.ID,
		"decidedBy":     actor.ID,
	})
	return service_interfaces.TransactionResult{Transaction: tx, Accounts: parties}, nil
}

// failDecision records that an approved transaction could no longer be
// applied and returns cause to the caller.
func (s *ApprovalService) failDecision(ctx context.Context, actor domain.Actor, tx domain.Transaction, cause error, now time.Time, parties []*domain.Account) error {
	tx.RecordDecision(actor.ID, now)
	if err := tx.Fail(cause.Error(), now); err != nil {
		return err
	}
	if err := s.saveTransaction(ctx, tx); err != nil {
		return err
	}

	s.publish(ctx, domain.EventTransactionFailed, actor, tx, snapshots(parties...))
	logger.Warn("approval service approved transaction failed", logger.Fields{
		"transactionId": tx.ID,
		"code":          string(domain.CodeOf(cause)),
	})
	return cause
}

// recordFailure marks an auto-approved transaction FAILED after its commit
// failed. It is best effort: the commit error is what the caller sees.
func (s *ApprovalService) recordFailure(ctx context.Context, actor domain.Actor, tx domain.Transaction, cause error, parties []domain.AccountSnapshot) {
	if err := tx.Fail(cause.Error(), s.opts.now()); err != nil {
		return
	}
	if err := s.transactionRepo.Save(ctx, tx); err != nil {
		logger.Error("approval service record failed transaction failed", err, logger.Fields{"transactionId": tx.ID})
		return
	}
	s.publish(ctx, domain.EventTransactionFailed, actor, tx, parties)
}

// commit persists the mutated accounts and then the transaction. If the
// transaction cannot be stored the previous account values are written back.
func (s *ApprovalService) commit(ctx context.Context, tx domain.Transaction, updated []*domain.Account, previous []*domain.Account) error {
	if err := s.accountRepo.Save(ctx, values(updated)...); err != nil {
		logger.Error("approval service save accounts failed", err, logger.Fields{"transactionId": tx.ID})
		return domain.PersistenceFailure("save accounts", err)
	}

	if err := s.transactionRepo.Save(ctx, tx); err != nil {
		logger.Error("approval service save transaction failed, restoring accounts", err, logger.Fields{"transactionId": tx.ID})
		if restoreErr := s.accountRepo.Save(ctx, values(previous)...); restoreErr != nil {
			logger.Error("approval service restore accounts failed", restoreErr, logger.Fields{"transactionId": tx.ID})
		}
		return domain.PersistenceFailure("save transaction", err)
	}
	return nil
}

func (s *ApprovalService) saveTransaction(ctx context.Context, tx domain.Transaction) error {
	if err := s.transactionRepo.Save(ctx, tx); err != nil {
		logger.Error("approval service save transaction failed", err, logger.Fields{
			"transactionId": tx.ID,
			"status":        string(tx.Status),
		})
		if errors.Is(err, repo_interfaces.ErrTerminalTransaction) {
			return domain.NewError(domain.CodeInvalidTransition, "transaction %s is already final", tx.ID)
		}
		return domain.PersistenceFailure("save transaction", err)
	}
	return nil
}

func (s *ApprovalService) loadTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.transactionRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.Transaction{}, domain.NewError(domain.CodeUnknownTransaction, "transaction %s does not exist", id)
		}
		logger.Error("approval service load transaction failed", err, logger.Fields{"transactionId": id})
		return domain.Transaction{}, domain.PersistenceFailure("load transaction "+id, err)
	}
	return tx, nil
}

func (s *ApprovalService) loadParties(ctx context.Context, tx domain.Transaction) (source *domain.Account, target *domain.Account, err error) {
	if tx.SourceAccountID != nil {
		if source, err = loadAccount(ctx, s.accountRepo, *tx.SourceAccountID); err != nil {
			return nil, nil, err
		}
	}
	if tx.TargetAccountID != nil {
		if target, err = loadAccount(ctx, s.accountRepo, *tx.TargetAccountID); err != nil {
			return nil, nil, err
		}
	}
	return source, target, nil
}

func (s *ApprovalService) snapshotParties(ctx context.Context, tx domain.Transaction) []domain.AccountSnapshot {
	source, target, err := s.loadParties(ctx, tx)
	if err != nil {
		return nil
	}
	return snapshots(source, target)
}

func (s *ApprovalService) publish(ctx context.Context, kind domain.EventKind, actor domain.Actor, tx domain.Transaction, accounts []domain.AccountSnapshot) {
	if s.publisher == nil {
		return
	}
	snapshot := tx
	s.publisher.Publish(ctx, domain.Event{
		ID:          s.opts.newID(),
		Kind:        kind,
		OccurredAt:  s.opts.now(),
		Actor:       actor,
		Transaction: &snapshot,
		Accounts:    accounts,
	})
}

// authorizeDebit lets customers move money only out of their own accounts,
// and only with the PIN when one is set.
func authorizeDebit(actor domain.Actor, source *domain.Account, pin string) error {
	if source == nil || actor.Role != domain.RoleCustomer {
		return nil
	}
	if source.OwnerID != actor.ID {
		return domain.NewError(domain.CodeInsufficientPrivilege, "account %s is not owned by %s", source.ID, actor.ID)
	}
	if source.PinHash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(source.PinHash), []byte(pin)); err != nil {
		return domain.NewError(domain.CodeInsufficientPrivilege, "pin verification failed for account %s", source.ID)
	}
	return nil
}

// checkLegality runs the state checks on both sides before any amount is
// looked at.
func checkLegality(tx domain.Transaction, source *domain.Account, target *domain.Account) error {
	if source != nil {
		if err := source.Allows(tx.DebitOperation()); err != nil {
			return err
		}
	}
	if target != nil {
		if err := target.Allows(domain.OperationDeposit); err != nil {
			return err
		}
	}
	return nil
}

// apply runs tx through the feature stacks of clones of source and target and
// returns the mutated clones.
func apply(tx domain.Transaction, source *domain.Account, target *domain.Account, now time.Time) ([]*domain.Account, error) {
	src := source.Clone()
	dst := target.Clone()

	var err error
	switch tx.Type {
	case domain.TransactionTypeDeposit:
		err = withOps(dst, func(ops domain.Operations) error {
			_, err := ops.Deposit(tx.Amount)
			return err
		})
	case domain.TransactionTypeWithdrawal:
		err = withOps(src, func(ops domain.Operations) error {
			return ops.Withdraw(tx.Amount)
		})
	case domain.TransactionTypeTransfer:
		var srcOps, dstOps domain.Operations
		if srcOps, err = domain.Wrap(src); err != nil {
			return nil, err
		}
		if dstOps, err = domain.Wrap(dst); err != nil {
			return nil, err
		}
		_, err = domain.Transfer(srcOps, dstOps, tx.Amount)
	default:
		err = domain.NewError(domain.CodeInvalidInput, "unknown transaction type %q", tx.Type)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Account, 0, 2)
	for _, a := range []*domain.Account{src, dst} {
		if a != nil {
			a.UpdatedAt = now
			out = append(out, a)
		}
	}
	return out, nil
}

func withOps(account *domain.Account, fn func(domain.Operations) error) error {
	if account == nil {
		return fmt.Errorf("transaction is missing its account")
	}
	ops, err := domain.Wrap(account)
	if err != nil {
		return err
	}
	return fn(ops)
}

func accountKeys(tx domain.Transaction) []string {
	ids := tx.AccountIDs()
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, accountKey(id))
	}
	return keys
}

func values(accounts []*domain.Account) []domain.Account {
	out := make([]domain.Account, 0, len(accounts))
	for _, a := range accounts {
		if a != nil {
			out = append(out, *a)
		}
	}
	return out
}
