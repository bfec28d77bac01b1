package models

import (
	"errors"
	"strings"

	"github.com/api-sage/core-banking-engine/src/internal/domain"
	"github.com/api-sage/core-banking-engine/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

type FeatureRequest struct {
	Kind              string          `json:"kind"`
	Limit             decimal.Decimal `json:"limit"`
	Rate              decimal.Decimal `json:"rate"`
	MinBalanceForRate decimal.Decimal `json:"minBalanceForRate"`
	MaxExtension      decimal.Decimal `json:"maxExtension"`
}

func (r FeatureRequest) Validate() error {
	kind, err := domain.ParseFeatureKind(r.Kind)
	if err != nil {
		return errors.New("kind is not supported")
	}
	return r.toDomain(kind).Validate()
}

func (r FeatureRequest) ToDomain() domain.Feature {
	kind, _ := domain.ParseFeatureKind(r.Kind)
	return r.toDomain(kind)
}

func (r FeatureRequest) toDomain(kind domain.FeatureKind) domain.Feature {
	return domain.Feature{
		Kind:              kind,
		Limit:             r.Limit,
		Rate:              r.Rate,
		MinBalanceForRate: r.MinBalanceForRate,
		MaxExtension:      r.MaxExtension,
	}
}

type OpenAccountRequest struct {
	OwnerID        string           `json:"ownerId"`
	Type           string           `json:"type"`
	OpeningBalance decimal.Decimal  `json:"openingBalance"`
	Features       []FeatureRequest `json:"features,omitempty"`
	Pin            string           `json:"pin,omitempty"`
}

func (r OpenAccountRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.OwnerID) == "" {
		errs = append(errs, "ownerId is required")
	}
	accountType, err := domain.ParseAccountType(r.Type)
	if err != nil {
		errs = append(errs, "type must be one of CHECKING, SAVINGS, INVESTMENT, LOAN, BUSINESS_LOAN")
	} else if r.OpeningBalance.IsNegative() && !accountType.IsLoan() {
		errs = append(errs, "openingBalance cannot be negative")
	}
	for _, f := range r.Features {
		if err := f.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if pin := strings.TrimSpace(r.Pin); pin != "" && len(pin) < 4 {
		errs = append(errs, "pin must be at least 4 characters")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (r OpenAccountRequest) ToServiceRequest(actor domain.Actor) service_interfaces.OpenAccountRequest {
	accountType, _ := domain.ParseAccountType(r.Type)
	features := make([]domain.Feature, 0, len(r.Features))
	for _, f := range r.Features {
		features = append(features, f.ToDomain())
	}
	return service_interfaces.OpenAccountRequest{
		Actor:          actor,
		OwnerID:        strings.TrimSpace(r.OwnerID),
		Type:           accountType,
		OpeningBalance: r.OpeningBalance,
		Features:       features,
		Pin:            r.Pin,
	}
}

type ChangeStateRequest struct {
	State string `json:"state"`
}

func (r ChangeStateRequest) Validate() error {
	if _, err := domain.StateFor(r.Tag()); err != nil {
		return errors.New("state must be one of ACTIVE, FROZEN, SUSPENDED, CLOSED")
	}
	return nil
}

func (r ChangeStateRequest) Tag() domain.StateTag {
	return domain.StateTag(strings.ToUpper(strings.TrimSpace(r.State)))
}

type AttachChildRequest struct {
	ChildID string `json:"childId"`
}

func (r AttachChildRequest) Validate() error {
	if strings.TrimSpace(r.ChildID) == "" {
		return errors.New("childId is required")
	}
	return nil
}
