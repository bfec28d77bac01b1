package service_interfaces

import (
	"context"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/shopspring/decimal"
)

type OpenAccountRequest struct {
	Actor          domain.Actor
	OwnerID        string
	Type           domain.AccountType
	OpeningBalance decimal.Decimal
	Features       []domain.Feature
	Pin            string
}

// AccountView is an account as seen by callers. For composites Balance is
// the folded balance of every leaf below it.
type AccountView struct {
	domain.AccountSnapshot
	HasPin bool `json:"hasPin"`
}

type AccountService interface {
	OpenAccount(ctx context.Context, req OpenAccountRequest) (AccountView, error)
	GetAccount(ctx context.Context, actor domain.Actor, id string) (AccountView, error)
	ListAccounts(ctx context.Context, actor domain.Actor, ownerID string) ([]AccountView, error)
	ChangeState(ctx context.Context, actor domain.Actor, id string, target domain.StateTag) (AccountView, error)
	AddFeature(ctx context.Context, actor domain.Actor, id string, feature domain.Feature) (AccountView, error)
	AttachChild(ctx context.Context, actor domain.Actor, parentID string, childID string) (AccountView, error)
	DetachChild(ctx context.Context, actor domain.Actor, parentID string, childID string) (AccountView, error)
}
