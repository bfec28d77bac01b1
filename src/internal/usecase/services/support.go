package services

import (
	"context"
	"errors"
	"time"

	"github.com/api-sage/core-banking-engine/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/logger"
	"github.com/api-sage/core-banking-engine/src/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventPublisher is the fan-out the services announce committed changes on.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

type Option func(*options)

type options struct {
	now    func() time.Time
	newID  func() string
	tracer trace.Tracer
	locks  *keyedLocks
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithSharedLocks makes services built from the same Locks value serialize
// on the same account keys.
func WithSharedLocks(locks *Locks) Option {
	return func(o *options) { o.locks = locks.inner }
}

// Locks is the per-account lock table shared by the account and approval
// services.
type Locks struct {
	inner *keyedLocks
}

func NewLocks() *Locks {
	return &Locks{inner: newKeyedLocks()}
}

func buildOptions(opts []Option) options {
	o := options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = telemetry.Tracer()
	}
	if o.locks == nil {
		o.locks = newKeyedLocks()
	}
	return o
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span. Call it deferred with a pointer to the named
// error result.
func endSpan(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, string(domain.CodeOf(*err)))
	}
	span.End()
}

func loadAccount(ctx context.Context, repo repo_interfaces.AccountRepository, id string) (*domain.Account, error) {
	account, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.NewError(domain.CodeUnknownAccount, "account %s does not exist", id)
		}
		logger.Error("account lookup failed", err, logger.Fields{"accountId": id})
		return nil, domain.PersistenceFailure("load account "+id, err)
	}
	return &account, nil
}

func lookupFunc(repo repo_interfaces.AccountRepository) domain.AccountLookup {
	return func(ctx context.Context, id string) (domain.Account, error) {
		account, err := loadAccount(ctx, repo, id)
		if err != nil {
			return domain.Account{}, err
		}
		return *account, nil
	}
}

func requireRole(actor domain.Actor, min domain.Role, action string) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.Role.AtLeast(min) {
		return domain.NewError(domain.CodeInsufficientPrivilege, "%s requires role %s or above, caller is %s", action, min, actor.Role)
	}
	return nil
}

func snapshots(accounts ...*domain.Account) []domain.AccountSnapshot {
	out := make([]domain.AccountSnapshot, 0, len(accounts))
	for _, a := range accounts {
		if a != nil {
			out = append(out, a.Snapshot())
		}
	}
	return out
}
