package services

import (
	"context"
	"errors"
	"strings"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

type AccountService struct {
	accountRepo repo_interfaces.AccountRepository
	publisher   EventPublisher
	opts        options
}

var _ service_interfaces.AccountService = (*AccountService)(nil)

func NewAccountService(accountRepo repo_interfaces.AccountRepository, publisher EventPublisher, opts ...Option) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		publisher:   publisher,
		opts:        buildOptions(opts),
	}
}

func (s *AccountService) OpenAccount(ctx context.Context, req service_interfaces.OpenAccountRequest) (service_interfaces.AccountView, error) {
	logger.Info("account service open account request", logger.Fields{
		"actorId": req.Actor.ID,
		"ownerId": req.OwnerID,
		"type":    string(req.Type),
		"pin":     req.Pin,
	})

	if err := requireRole(req.Actor, domain.RoleEmployee, "opening an account"); err != nil {
		return service_interfaces.AccountView{}, err
	}

	account, err := domain.NewAccount(s.opts.newID(), req.OwnerID, req.Type, req.OpeningBalance, s.opts.now())
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	account.Features = append([]domain.Feature(nil), req.Features...)
	if _, err := domain.Wrap(account); err != nil {
		return service_interfaces.AccountView{}, err
	}

	if pin := strings.TrimSpace(req.Pin); pin != "" {
		if len(pin) < 4 {
			return service_interfaces.AccountView{}, domain.NewError(domain.CodeInvalidInput, "pin must be at least 4 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
		if err != nil {
			return service_interfaces.AccountView{}, domain.NewError(domain.CodeInvalidInput, "pin cannot be hashed: %v", err)
		}
		account.PinHash = string(hash)
	}

	if err := s.accountRepo.Save(ctx, *account); err != nil {
		logger.Error("account service open account save failed", err, logger.Fields{"ownerId": account.OwnerID})
		return service_interfaces.AccountView{}, domain.PersistenceFailure("save account", err)
	}

	logger.Info("account service open account success", logger.Fields{
		"accountId": account.ID,
		"ownerId":   account.OwnerID,
	})
	return view(account, account.Balance), nil
}

func (s *AccountService) GetAccount(ctx context.Context, actor domain.Actor, id string) (service_interfaces.AccountView, error) {
	if err := actor.Validate(); err != nil {
		return service_interfaces.AccountView{}, err
	}
	account, err := loadAccount(ctx, s.accountRepo, id)
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	if actor.Role == domain.RoleCustomer && account.OwnerID != actor.ID {
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeInsufficientPrivilege, "account %s is not owned by %s", id, actor.ID)
	}
	return s.viewWithAggregate(ctx, account)
}

func (s *AccountService) ListAccounts(ctx context.Context, actor domain.Actor, ownerID string) ([]service_interfaces.AccountView, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		ownerID = actor.ID
	}
	if actor.Role == domain.RoleCustomer && ownerID != actor.ID {
		return nil, domain.NewError(domain.CodeInsufficientPrivilege, "customers can only list their own accounts")
	}

	accounts, err := s.accountRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		logger.Error("account service list accounts failed", err, logger.Fields{"ownerId": ownerID})
		return nil, domain.PersistenceFailure("list accounts", err)
	}

	out := make([]service_interfaces.AccountView, 0, len(accounts))
	for i := range accounts {
		v, err := s.viewWithAggregate(ctx, &accounts[i])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *AccountService) ChangeState(ctx context.Context, actor domain.Actor, id string, target domain.StateTag) (result service_interfaces.AccountView, err error) {
	ctx, span := startSpan(ctx, s.opts.tracer, "AccountService.ChangeState",
		attribute.String("account.id", id),
		attribute.String("account.state", string(target)),
	)
	defer endSpan(span, &err)

	logger.Info("account service change state request", logger.Fields{
		"actorId":   actor.ID,
		"accountId": id,
		"target":    string(target),
	})

	if err := requireRole(actor, domain.RoleEmployee, "changing account state"); err != nil {
		return service_interfaces.AccountView{}, err
	}
	next, err := domain.StateFor(target)
	if err != nil {
		return service_interfaces.AccountView{}, err
	}

	unlock := s.opts.locks.Lock(accountKey(id))
	defer unlock()

	account, err := loadAccount(ctx, s.accountRepo, id)
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	previous := account.StateName()
	if previous == next.Name() && previous != domain.StateClosed {
		return s.viewWithAggregate(ctx, account)
	}

	updated := account.Clone()
	if err := updated.SetState(next); err != nil {
		return service_interfaces.AccountView{}, err
	}
	updated.UpdatedAt = s.opts.now()

	if err := s.accountRepo.Save(ctx, *updated); err != nil {
		logger.Error("account service change state save failed", err, logger.Fields{"accountId": id})
		return service_interfaces.AccountView{}, domain.PersistenceFailure("save account", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, domain.Event{
			ID:            s.opts.newID(),
			Kind:          domain.EventAccountStateChanged,
			OccurredAt:    s.opts.now(),
			Actor:         actor,
			Accounts:      snapshots(updated),
			PreviousState: previous,
		})
	}

	logger.Info("account service change state success", logger.Fields{
		"accountId": id,
		"from":      string(previous),
		"to":        string(next.Name()),
	})
	return s.viewWithAggregate(ctx, updated)
}

func (s *AccountService) AddFeature(ctx context.Context, actor domain.Actor, id string, feature domain.Feature) (service_interfaces.AccountView, error) {
	if err := requireRole(actor, domain.RoleEmployee, "adding a feature"); err != nil {
		return service_interfaces.AccountView{}, err
	}

	unlock := s.opts.locks.Lock(accountKey(id))
	defer unlock()

	account, err := loadAccount(ctx, s.accountRepo, id)
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	if account.StateName() == domain.StateClosed {
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeIllegalStateOperation, "account %s is closed", id)
	}

	updated := account.Clone()
	updated.Features = append(updated.Features, feature)
	if _, err := domain.Wrap(updated); err != nil {
		return service_interfaces.AccountView{}, err
	}
	updated.UpdatedAt = s.opts.now()

	if err := s.accountRepo.Save(ctx, *updated); err != nil {
		logger.Error("account service add feature save failed", err, logger.Fields{"accountId": id})
		return service_interfaces.AccountView{}, domain.PersistenceFailure("save account", err)
	}

	logger.Info("account service add feature success", logger.Fields{
		"accountId": id,
		"feature":   string(feature.Kind),
	})
	return s.viewWithAggregate(ctx, updated)
}

// AttachChild groups childID under parentID. The parent must hold no funds
// of its own, both accounts must share an owner, a child sits under at most
// one parent and the hierarchy must stay acyclic.
func (s *AccountService) AttachChild(ctx context.Context, actor domain.Actor, parentID string, childID string) (service_interfaces.AccountView, error) {
	if err := requireRole(actor, domain.RoleEmployee, "grouping accounts"); err != nil {
		return service_interfaces.AccountView{}, err
	}

	unlock := s.opts.locks.Lock(accountKey(parentID), accountKey(childID))
	defer unlock()

	parent, err := loadAccount(ctx, s.accountRepo, parentID)
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	child, err := loadAccount(ctx, s.accountRepo, childID)
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	if parent.StateName() == domain.StateClosed {
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeIllegalStateOperation, "account %s is closed", parentID)
	}
	if !parent.IsComposite() && !parent.Balance.IsZero() {
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeInvalidInput,
			"account %s holds a balance and cannot become a group", parentID)
	}
	if child.OwnerID != parent.OwnerID {
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeInvalidInput,
			"account %s belongs to %s and cannot be grouped under an account of %s", childID, child.OwnerID, parent.OwnerID)
	}

	current, err := s.accountRepo.FindParent(ctx, childID)
	switch {
	case err == nil:
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeInvalidInput, "account %s is already under %s", childID, current.ID)
	case !errors.Is(err, domain.ErrRecordNotFound):
		logger.Error("account service find parent failed", err, logger.Fields{"accountId": childID})
		return service_interfaces.AccountView{}, domain.PersistenceFailure("find parent account", err)
	}

	cycle, err := domain.WouldCycle(ctx, parentID, childID, lookupFunc(s.accountRepo))
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	if cycle {
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeInvalidInput, "attaching %s under %s would create a cycle", childID, parentID)
	}

	updated := parent.Clone()
	updated.Children = append(updated.Children, childID)
	updated.UpdatedAt = s.opts.now()

	if err := s.accountRepo.Save(ctx, *updated); err != nil {
		logger.Error("account service attach child save failed", err, logger.Fields{"accountId": parentID})
		return service_interfaces.AccountView{}, domain.PersistenceFailure("save account", err)
	}

	logger.Info("account service attach child success", logger.Fields{
		"accountId": parentID,
		"childId":   childID,
	})
	return s.viewWithAggregate(ctx, updated)
}

// DetachChild removes childID from parentID's children. A parent left with
// no children becomes an unfunded leaf again.
func (s *AccountService) DetachChild(ctx context.Context, actor domain.Actor, parentID string, childID string) (service_interfaces.AccountView, error) {
	if err := requireRole(actor, domain.RoleEmployee, "ungrouping accounts"); err != nil {
		return service_interfaces.AccountView{}, err
	}

	unlock := s.opts.locks.Lock(accountKey(parentID), accountKey(childID))
	defer unlock()

	parent, err := loadAccount(ctx, s.accountRepo, parentID)
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	if parent.StateName() == domain.StateClosed {
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeIllegalStateOperation, "account %s is closed", parentID)
	}

	remaining := make([]string, 0, len(parent.Children))
	for _, id := range parent.Children {
		if id != childID {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == len(parent.Children) {
		return service_interfaces.AccountView{}, domain.NewError(domain.CodeInvalidInput, "account %s is not under %s", childID, parentID)
	}

	updated := parent.Clone()
	updated.Children = nil
	if len(remaining) > 0 {
		updated.Children = remaining
	}
	updated.UpdatedAt = s.opts.now()

	if err := s.accountRepo.Save(ctx, *updated); err != nil {
		logger.Error("account service detach child save failed", err, logger.Fields{"accountId": parentID})
		return service_interfaces.AccountView{}, domain.PersistenceFailure("save account", err)
	}

	logger.Info("account service detach child success", logger.Fields{
		"accountId": parentID,
		"childId":   childID,
	})
	return s.viewWithAggregate(ctx, updated)
}

func (s *AccountService) viewWithAggregate(ctx context.Context, account *domain.Account) (service_interfaces.AccountView, error) {
	balance, err := domain.AggregateBalance(ctx, *account, lookupFunc(s.accountRepo))
	if err != nil {
		return service_interfaces.AccountView{}, err
	}
	return view(account, balance), nil
}

func view(account *domain.Account, balance decimal.Decimal) service_interfaces.AccountView {
	snap := account.Snapshot()
	snap.Balance = balance
	return service_interfaces.AccountView{AccountSnapshot: snap, HasPin: account.PinHash != ""}
}
